package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/metrics"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	cleanupTimeout   = 5 * time.Second
)

type ReservationService struct {
	txManager       transaction.Manager
	reservationRepo reservation.Repository
	seatRepo        seat.Repository
	notifier        notifier
	metrics         *metrics.Metrics
}

// NewReservationService は予約サービスを作成する
// cache, publisher, m は nil でもよい
func NewReservationService(
	tm transaction.Manager,
	rr reservation.Repository,
	sr seat.Repository,
	cache SeatCache,
	publisher EventPublisher,
	m *metrics.Metrics,
) *ReservationService {
	return &ReservationService{
		txManager:       tm,
		reservationRepo: rr,
		seatRepo:        sr,
		notifier:        notifier{cache: cache, publisher: publisher},
		metrics:         m,
	}
}

type ReserveInput struct {
	ShowID     string
	SeatLabels []string
	UserID     *string
}

// Reserve は指定ラベルの座席をまとめて確保し、保留中の予約を作成する
// 全席確保できるか、何も変わらないかのどちらか
func (s *ReservationService) Reserve(ctx context.Context, input ReserveInput) (*reservation.Reservation, error) {
	res, err := s.reserve(ctx, input)
	s.metrics.IncReservation(reserveResult(err))
	if err != nil {
		return nil, err
	}

	s.notifier.seatsChanged(ctx, res.ShowID)
	s.notifier.publish(ctx, reservation.EventCreated, res)
	logger.Info("予約を作成しました",
		zap.String("reservation_id", res.ID),
		zap.String("show_id", res.ShowID),
		zap.Int("count", len(res.SeatIDs)),
	)
	return res, nil
}

func (s *ReservationService) reserve(ctx context.Context, input ReserveInput) (*reservation.Reservation, error) {
	showID := strings.TrimSpace(input.ShowID)
	if showID == "" {
		return nil, reservation.ErrShowIDRequired
	}
	labels := seat.NormalizeLabels(input.SeatLabels)
	if len(labels) == 0 {
		return nil, seat.ErrLabelsRequired
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, storeError("トランザクション開始", err)
	}

	var (
		reservationID string
		committed     bool
	)
	defer func() {
		if committed {
			return
		}
		if rbErr := transaction.Rollback(tx); rbErr != nil {
			logger.Warn("ロールバックに失敗", zap.Error(rbErr))
		}
		if reservationID != "" {
			s.markFailed(ctx, reservationID)
		}
	}()

	// 座席行をロック（取れるまで待つ）
	seats, err := s.seatRepo.LockByLabels(ctx, tx, showID, labels)
	if err != nil {
		return nil, storeError("座席ロック", err)
	}
	if len(seats) != len(labels) {
		return nil, seat.ErrSeatNotFound
	}
	if u := seat.FirstUnavailable(labels, seats); u != nil {
		return nil, &seat.UnavailableError{Label: u.Label}
	}

	res := reservation.NewReservation(showID, input.UserID, seat.IDsInLabelOrder(labels, seats))
	if err := res.Validate(); err != nil {
		return nil, err
	}
	reservationID = res.ID

	if err := s.reservationRepo.Create(ctx, tx, res); err != nil {
		return nil, storeError("予約作成", err)
	}
	if err := s.seatRepo.Hold(ctx, tx, res.SeatIDs); err != nil {
		return nil, storeError("座席確保", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storeError("コミット", err)
	}
	committed = true
	return res, nil
}

// markFailed はロールバック後の後始末
// 通常は予約行が残っていないため何も更新しない
func (s *ReservationService) markFailed(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	updated, err := s.reservationRepo.MarkFailedIfPending(ctx, id)
	if err != nil {
		logger.Warn("失敗した予約の後始末に失敗", zap.String("reservation_id", id), zap.Error(err))
		return
	}
	if updated {
		logger.Warn("保留中の予約を失敗にしました", zap.String("reservation_id", id))
	}
}

func reserveResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case IsValidationError(err):
		return metrics.ResultInvalid
	case errors.Is(err, seat.ErrSeatNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, seat.ErrSeatUnavailable):
		return metrics.ResultConflict
	default:
		return metrics.ResultStoreFailed
	}
}

func (s *ReservationService) GetReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	res, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("予約取得", err)
	}
	return res, nil
}

func (s *ReservationService) GetUserReservations(ctx context.Context, userID string, limit, offset int) ([]*reservation.Reservation, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, reservation.ErrUserIDRequired
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	list, err := s.reservationRepo.GetByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, storeError("予約一覧取得", err)
	}
	return list, nil
}

// ConfirmReservation は保留中の予約を確定する
// 予約行をロックするため、同じ予約の期限切れ処理とは直列に実行される
func (s *ReservationService) ConfirmReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, storeError("トランザクション開始", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := transaction.Rollback(tx); rbErr != nil {
				logger.Warn("ロールバックに失敗", zap.Error(rbErr))
			}
		}
	}()

	res, err := s.reservationRepo.LockByID(ctx, tx, id)
	if err != nil {
		return nil, storeError("予約ロック", err)
	}
	if err := res.Confirm(); err != nil {
		return nil, err
	}
	if err := s.reservationRepo.UpdateStatus(ctx, tx, res); err != nil {
		return nil, storeError("予約更新", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storeError("コミット", err)
	}
	committed = true

	s.notifier.publish(ctx, reservation.EventConfirmed, res)
	logger.Info("予約を確定しました", zap.String("reservation_id", res.ID))
	return res, nil
}
