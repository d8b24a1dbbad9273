package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/lock"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/metrics"
)

const lockReleaseTimeout = 5 * time.Second

// ExpiryConfig は期限切れ判定の設定
type ExpiryConfig struct {
	// StaleAfter を過ぎても保留中の予約を失敗にする
	StaleAfter time.Duration
	// BatchSize は1サイクルで処理する最大件数
	BatchSize int
	// LockBackend はメトリクスのラベルに使う
	LockBackend string
}

// ReclaimResult は1サイクルの結果
type ReclaimResult struct {
	// Skipped は他のインスタンスがトークンを保持していたため何もしなかったことを表す
	Skipped      bool
	Candidates   int
	Reclaimed    int
	SkippedItems int
	Failed       int
}

// ExpiryService は期限切れの保留中予約を失敗にし、座席を解放する
type ExpiryService struct {
	txManager       transaction.Manager
	reservationRepo reservation.Repository
	seatRepo        seat.Repository
	locker          lock.Locker
	notifier        notifier
	metrics         *metrics.Metrics
	cfg             ExpiryConfig
	now             func() time.Time
}

func NewExpiryService(
	tm transaction.Manager,
	rr reservation.Repository,
	sr seat.Repository,
	locker lock.Locker,
	cache SeatCache,
	publisher EventPublisher,
	m *metrics.Metrics,
	cfg ExpiryConfig,
) *ExpiryService {
	return &ExpiryService{
		txManager:       tm,
		reservationRepo: rr,
		seatRepo:        sr,
		locker:          locker,
		notifier:        notifier{cache: cache, publisher: publisher},
		metrics:         m,
		cfg:             cfg,
		now:             time.Now,
	}
}

// ReclaimStale は1サイクル分の期限切れ処理を行う
// トークンを取れなければ何もせず Skipped を返す（エラーではない）
func (s *ExpiryService) ReclaimStale(ctx context.Context) (ReclaimResult, error) {
	var result ReclaimResult

	start := time.Now()
	lease, err := s.locker.TryAcquire(ctx)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			s.metrics.ObserveLock(s.cfg.LockBackend, "busy", time.Since(start))
			s.metrics.IncCycle(metrics.CycleSkipped)
			logger.Debug("他のインスタンスが期限切れ処理中のためスキップ")
			result.Skipped = true
			return result, nil
		}
		s.metrics.ObserveLock(s.cfg.LockBackend, "error", time.Since(start))
		s.metrics.IncCycle(metrics.CycleFailed)
		return result, fmt.Errorf("排他トークンの取得に失敗: %w", err)
	}
	s.metrics.ObserveLock(s.cfg.LockBackend, "acquired", time.Since(start))

	// トークンはどの経路でも必ず解放する
	defer func() {
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lockReleaseTimeout)
		defer cancel()
		if err := lease.Release(relCtx); err != nil {
			logger.Warn("排他トークンの解放に失敗", zap.Error(err))
		}
	}()

	now := s.now()
	cutoff := now.Add(-s.cfg.StaleAfter)
	ids, err := s.reservationRepo.ListStalePending(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		s.metrics.IncCycle(metrics.CycleFailed)
		return result, storeError("期限切れ候補の取得", err)
	}
	result.Candidates = len(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			s.metrics.IncCycle(metrics.CycleFailed)
			s.metrics.AddReclaimed(result.Reclaimed)
			return result, err
		}

		res, err := s.reclaimOne(ctx, id, now)
		switch {
		case err != nil:
			result.Failed++
			logger.Error("期限切れ予約の処理に失敗", zap.String("reservation_id", id), zap.Error(err))
		case res == nil:
			result.SkippedItems++
		default:
			result.Reclaimed++
			s.notifier.seatsChanged(ctx, res.ShowID)
			s.notifier.publish(ctx, reservation.EventExpired, res)
		}
	}

	s.metrics.IncCycle(metrics.CycleCompleted)
	s.metrics.AddReclaimed(result.Reclaimed)
	if result.Candidates > 0 {
		logger.Info("期限切れ予約を処理しました",
			zap.Int("candidates", result.Candidates),
			zap.Int("reclaimed", result.Reclaimed),
			zap.Int("skipped", result.SkippedItems),
			zap.Int("failed", result.Failed),
		)
	}
	return result, nil
}

// reclaimOne は1件を独立したトランザクションで失敗にし、座席を解放する
// 既に存在しない・期限切れの保留中でない場合は (nil, nil)
func (s *ExpiryService) reclaimOne(ctx context.Context, id string, now time.Time) (*reservation.Reservation, error) {
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
		if errors.Is(err, reservation.ErrReservationNotFound) {
			return nil, nil
		}
		return nil, storeError("予約ロック", err)
	}
	// 候補はロック外で読んだもの。ロック待ちの間に確定された予約には触れない
	if !res.IsStale(now, s.cfg.StaleAfter) {
		return nil, nil
	}

	if err := res.Fail(); err != nil {
		return nil, err
	}
	if err := s.reservationRepo.UpdateStatus(ctx, tx, res); err != nil {
		return nil, storeError("予約更新", err)
	}
	if err := s.seatRepo.Release(ctx, tx, res.SeatIDs); err != nil {
		return nil, storeError("座席解放", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storeError("コミット", err)
	}
	committed = true
	return res, nil
}
