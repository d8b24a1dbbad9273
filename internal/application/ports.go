package application

import (
	"context"
	"time"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/reservation"
)

// SeatCache は公演ごとの空席数キャッシュ
// nil の場合はキャッシュを使わない
type SeatCache interface {
	GetAvailableCount(ctx context.Context, showID string) (int, error)
	SetAvailableCount(ctx context.Context, showID string, count int, ttl time.Duration) error
	Invalidate(ctx context.Context, showID string) error
}

// EventPublisher はコミット済みの予約イベントを外部へ通知する
// nil の場合は通知しない
type EventPublisher interface {
	Publish(ctx context.Context, event reservation.Event) error
}
