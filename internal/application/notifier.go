package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
)

const notifyTimeout = 3 * time.Second

// notifier はコミット後の副作用（キャッシュ無効化とイベント通知）をまとめる
// どちらも失敗はログに残すだけで呼び出し元には返さない
type notifier struct {
	cache     SeatCache
	publisher EventPublisher
}

// seatsChanged は公演の空席数キャッシュを無効化する
func (n notifier) seatsChanged(ctx context.Context, showID string) {
	if n.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := n.cache.Invalidate(ctx, showID); err != nil {
		logger.Warn("キャッシュ無効化エラー", zap.String("show_id", showID), zap.Error(err))
	}
}

func (n notifier) publish(ctx context.Context, t reservation.EventType, r *reservation.Reservation) {
	if n.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := n.publisher.Publish(ctx, reservation.NewEvent(t, r)); err != nil {
		logger.Warn("予約イベントの送信に失敗",
			zap.String("type", string(t)),
			zap.String("reservation_id", r.ID),
			zap.Error(err),
		)
	}
}
