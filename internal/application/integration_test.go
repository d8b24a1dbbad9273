//go:build integration
// +build integration

package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-seat-reservation/internal/config"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/lock"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/infrastructure/postgres"
)

type testEnv struct {
	db          *sqlx.DB
	reservation *ReservationService
	seats       *SeatService
	shows       *ShowService
	newExpiry   func(locker lock.Locker) *ExpiryService
}

func setupTestEnv(t *testing.T) *testEnv {
	cfg := config.Load()

	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		t.Skipf("DB接続エラー: %v", err)
	}
	require.NoError(t, postgres.RunMigrations(db.DB, "../../migrations"))

	showRepo := postgres.NewShowRepository(db)
	seatRepo := postgres.NewSeatRepository(db)
	reservationRepo := postgres.NewReservationRepository(db)
	txManager := postgres.NewTxManager(db)

	env := &testEnv{
		db:          db,
		reservation: NewReservationService(txManager, reservationRepo, seatRepo, nil, nil, nil),
		seats:       NewSeatService(seatRepo, showRepo, nil),
		shows:       NewShowService(showRepo),
		newExpiry: func(locker lock.Locker) *ExpiryService {
			return NewExpiryService(txManager, reservationRepo, seatRepo, locker, nil, nil, nil, ExpiryConfig{
				StaleAfter:  2 * time.Minute,
				BatchSize:   100,
				LockBackend: config.LockBackendPostgres,
			})
		},
	}

	t.Cleanup(func() {
		db.Exec("DELETE FROM reservations")
		db.Exec("DELETE FROM seats")
		db.Exec("DELETE FROM shows")
		db.Close()
	})
	return env
}

// createShowWithSeats はラベル 1..n の座席を持つ公演を作成する
func (e *testEnv) createShowWithSeats(t *testing.T, n int) string {
	ctx := context.Background()
	sh, err := e.shows.CreateShow(ctx, CreateShowInput{Name: "テスト公演"})
	require.NoError(t, err)

	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprint(i + 1)
	}
	_, err = e.seats.CreateSeats(ctx, CreateSeatsInput{ShowID: sh.ID, Labels: labels})
	require.NoError(t, err)
	return sh.ID
}

func (e *testEnv) seatStatus(t *testing.T, showID, label string) seat.Status {
	var status string
	require.NoError(t, e.db.Get(&status, `SELECT status FROM seats WHERE show_id = $1 AND label = $2`, showID, label))
	return seat.Status(status)
}

func (e *testEnv) backdate(t *testing.T, reservationID string, age time.Duration) {
	_, err := e.db.Exec(`UPDATE reservations SET created_at = $1 WHERE id = $2`, time.Now().Add(-age), reservationID)
	require.NoError(t, err)
}

func TestIntegration_ConcurrentReserveSameSeat(t *testing.T) {
	env := setupTestEnv(t)
	showID := env.createShowWithSeats(t, 1)

	const concurrency = 50
	var (
		wg          sync.WaitGroup
		successes   atomic.Int32
		unavailable atomic.Int32
	)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", i)
			_, err := env.reservation.Reserve(context.Background(), ReserveInput{
				ShowID: showID, SeatLabels: []string{"1"}, UserID: &userID,
			})
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, seat.ErrSeatUnavailable):
				unavailable.Add(1)
			default:
				t.Errorf("想定外のエラー: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load(), "成功は1件だけ")
	assert.Equal(t, int32(concurrency-1), unavailable.Load())
	assert.Equal(t, seat.StatusHeld, env.seatStatus(t, showID, "1"))

	var pending int
	require.NoError(t, env.db.Get(&pending, `SELECT COUNT(*) FROM reservations WHERE show_id = $1 AND status = 'PENDING'`, showID))
	assert.Equal(t, 1, pending)
}

func TestIntegration_OverlappingReservationsDoNotDeadlock(t *testing.T) {
	env := setupTestEnv(t)
	showID := env.createShowWithSeats(t, 4)

	// 逆順のラベル指定でもロック順は一定
	requests := [][]string{{"1", "2", "3"}, {"3", "2", "1"}, {"2", "4"}, {"4", "1"}}
	var wg sync.WaitGroup
	results := make([]error, len(requests))
	for i, labels := range requests {
		wg.Add(1)
		go func(i int, labels []string) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_, results[i] = env.reservation.Reserve(ctx, ReserveInput{ShowID: showID, SeatLabels: labels})
		}(i, labels)
	}
	wg.Wait()

	var held int
	for _, err := range results {
		if err == nil {
			continue
		}
		assert.ErrorIs(t, err, seat.ErrSeatUnavailable)
	}
	require.NoError(t, env.db.Get(&held, `SELECT COUNT(*) FROM seats WHERE show_id = $1 AND status = 'HELD'`, showID))

	var reserved int
	require.NoError(t, env.db.Get(&reserved, `SELECT COALESCE(SUM(cardinality(seat_ids)), 0) FROM reservations WHERE show_id = $1 AND status = 'PENDING'`, showID))
	assert.Equal(t, held, reserved, "確保済み座席数と保留中予約の座席数は一致する")
}

func TestIntegration_ReserveIsAtomic(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	showID := env.createShowWithSeats(t, 3)

	_, err := env.reservation.Reserve(ctx, ReserveInput{ShowID: showID, SeatLabels: []string{"2", "3"}})
	require.NoError(t, err)

	_, err = env.reservation.Reserve(ctx, ReserveInput{ShowID: showID, SeatLabels: []string{"1", "2"}})
	var ue *seat.UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "2", ue.Label)

	// 失敗した予約は座席1を確保しない
	assert.Equal(t, seat.StatusAvailable, env.seatStatus(t, showID, "1"))

	_, err = env.reservation.Reserve(ctx, ReserveInput{ShowID: showID, SeatLabels: []string{"1", "9"}})
	assert.ErrorIs(t, err, seat.ErrSeatNotFound)
	assert.Equal(t, seat.StatusAvailable, env.seatStatus(t, showID, "1"))

	count, err := env.seats.CountAvailableSeats(ctx, showID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// 結果が分からないまま同じ入力で再試行しても二重に確保しない
func TestIntegration_RetryDoesNotDoubleBook(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	showID := env.createShowWithSeats(t, 2)
	input := ReserveInput{ShowID: showID, SeatLabels: []string{"1", "2"}}

	_, err := env.reservation.Reserve(ctx, input)
	require.NoError(t, err)

	_, err = env.reservation.Reserve(ctx, input)
	assert.ErrorIs(t, err, seat.ErrSeatUnavailable)

	var pending int
	require.NoError(t, env.db.Get(&pending, `SELECT COUNT(*) FROM reservations WHERE show_id = $1 AND status = 'PENDING'`, showID))
	assert.Equal(t, 1, pending)
}

func TestIntegration_ExpiryReclaimsStalePending(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	showID := env.createShowWithSeats(t, 3)

	stale, err := env.reservation.Reserve(ctx, ReserveInput{ShowID: showID, SeatLabels: []string{"1", "2"}})
	require.NoError(t, err)
	fresh, err := env.reservation.Reserve(ctx, ReserveInput{ShowID: showID, SeatLabels: []string{"3"}})
	require.NoError(t, err)
	env.backdate(t, stale.ID, 3*time.Minute)

	expiry := env.newExpiry(postgres.NewAdvisoryLocker(env.db, 7301, 1))
	result, err := expiry.ReclaimStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Reclaimed)

	got, err := env.reservation.GetReservation(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusFailed, got.Status)
	assert.Equal(t, seat.StatusAvailable, env.seatStatus(t, showID, "1"))
	assert.Equal(t, seat.StatusAvailable, env.seatStatus(t, showID, "2"))

	// 期限内の予約は対象外
	got, err = env.reservation.GetReservation(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusPending, got.Status)
	assert.Equal(t, seat.StatusHeld, env.seatStatus(t, showID, "3"))

	// 失敗済みの予約は確定できない
	_, err = env.reservation.ConfirmReservation(ctx, stale.ID)
	assert.ErrorIs(t, err, reservation.ErrReservationNotPending)

	// 解放された座席は再び予約できる
	_, err = env.reservation.Reserve(ctx, ReserveInput{ShowID: showID, SeatLabels: []string{"1"}})
	assert.NoError(t, err)
}

func TestIntegration_ExpiryLeavesConfirmedUntouched(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	showID := env.createShowWithSeats(t, 1)

	res, err := env.reservation.Reserve(ctx, ReserveInput{ShowID: showID, SeatLabels: []string{"1"}})
	require.NoError(t, err)
	_, err = env.reservation.ConfirmReservation(ctx, res.ID)
	require.NoError(t, err)
	env.backdate(t, res.ID, time.Hour)

	result, err := env.newExpiry(postgres.NewAdvisoryLocker(env.db, 7301, 1)).ReclaimStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Reclaimed)

	got, err := env.reservation.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusConfirmed, got.Status)
	assert.Equal(t, seat.StatusHeld, env.seatStatus(t, showID, "1"))
}

func TestIntegration_ParallelReconcilersReclaimOnce(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	const n = 10
	showID := env.createShowWithSeats(t, n)

	for i := 1; i <= n; i++ {
		res, err := env.reservation.Reserve(ctx, ReserveInput{ShowID: showID, SeatLabels: []string{fmt.Sprint(i)}})
		require.NoError(t, err)
		env.backdate(t, res.ID, 5*time.Minute)
	}

	var (
		wg        sync.WaitGroup
		reclaimed atomic.Int32
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := env.newExpiry(postgres.NewAdvisoryLocker(env.db, 7301, 1)).ReclaimStale(ctx)
			assert.NoError(t, err)
			reclaimed.Add(int32(result.Reclaimed))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(n), reclaimed.Load(), "各予約はちょうど1回だけ処理される")

	var available int
	require.NoError(t, env.db.Get(&available, `SELECT COUNT(*) FROM seats WHERE show_id = $1 AND status = 'AVAILABLE'`, showID))
	assert.Equal(t, n, available)
}

func TestIntegration_AdvisoryLockIsExclusive(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	holder := postgres.NewAdvisoryLocker(env.db, 7301, 99)
	lease, err := holder.TryAcquire(ctx)
	require.NoError(t, err)

	_, err = postgres.NewAdvisoryLocker(env.db, 7301, 99).TryAcquire(ctx)
	assert.ErrorIs(t, err, lock.ErrNotAcquired)

	require.NoError(t, lease.Release(ctx))

	lease2, err := holder.TryAcquire(ctx)
	require.NoError(t, err)
	require.NoError(t, lease2.Release(ctx))
}
