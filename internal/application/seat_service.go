package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/show"
	redisinfra "github.com/sanosuguru/go-seat-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
)

const (
	seatCacheTTL = 30 * time.Second
)

type SeatService struct {
	seatRepo seat.Repository
	showRepo show.Repository
	notifier notifier
}

// NewSeatService は座席サービスを作成する
// cache が nil なら空席数は常にDBから数える
func NewSeatService(sr seat.Repository, shr show.Repository, cache SeatCache) *SeatService {
	return &SeatService{seatRepo: sr, showRepo: shr, notifier: notifier{cache: cache}}
}

type CreateSeatsInput struct {
	ShowID string
	Labels []string
}

// CreateSeats は公演に座席をまとめて登録する
// 空ラベル・重複ラベルを含む場合は何も登録しない
func (s *SeatService) CreateSeats(ctx context.Context, input CreateSeatsInput) ([]*seat.Seat, error) {
	if len(input.Labels) == 0 {
		return nil, seat.ErrLabelsRequired
	}
	seen := make(map[string]struct{}, len(input.Labels))
	seats := make([]*seat.Seat, 0, len(input.Labels))
	for _, label := range input.Labels {
		se := seat.NewSeat(input.ShowID, label)
		if err := se.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[se.Label]; dup {
			return nil, seat.ErrDuplicateLabel
		}
		seen[se.Label] = struct{}{}
		seats = append(seats, se)
	}

	if _, err := s.showRepo.GetByID(ctx, input.ShowID); err != nil {
		return nil, storeError("公演取得", err)
	}
	if err := s.seatRepo.CreateBulk(ctx, seats); err != nil {
		return nil, storeError("座席一括作成", err)
	}
	s.notifier.seatsChanged(ctx, input.ShowID)
	return seats, nil
}

// GetSeatsByShow は公演の座席一覧を返す
func (s *SeatService) GetSeatsByShow(ctx context.Context, showID string, availableOnly bool) ([]*seat.Seat, error) {
	if strings.TrimSpace(showID) == "" {
		return nil, seat.ErrShowIDRequired
	}
	var (
		seats []*seat.Seat
		err   error
	)
	if availableOnly {
		seats, err = s.seatRepo.GetAvailableByShowID(ctx, showID)
	} else {
		seats, err = s.seatRepo.GetByShowID(ctx, showID)
	}
	if err != nil {
		return nil, storeError("座席一覧取得", err)
	}
	return seats, nil
}

func (s *SeatService) CountAvailableSeats(ctx context.Context, showID string) (int, error) {
	cache := s.notifier.cache

	// キャッシュから取得を試みる
	if cache != nil {
		count, err := cache.GetAvailableCount(ctx, showID)
		if err == nil {
			logger.Debug("キャッシュヒット", zap.String("show_id", showID), zap.Int("count", count))
			return count, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("キャッシュ取得エラー", zap.Error(err))
		}
	}

	// DBから取得
	count, err := s.seatRepo.CountAvailableByShowID(ctx, showID)
	if err != nil {
		return 0, storeError("空席数取得", err)
	}

	// キャッシュに保存
	if cache != nil {
		if cacheErr := cache.SetAvailableCount(ctx, showID, count, seatCacheTTL); cacheErr != nil {
			logger.Warn("キャッシュ保存エラー", zap.Error(cacheErr))
		}
	}

	return count, nil
}
