package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
)

const reservationColumns = `id, show_id, user_id, seat_ids, status, created_at, updated_at`

type reservationRow struct {
	ID        string         `db:"id"`
	ShowID    string         `db:"show_id"`
	UserID    *string        `db:"user_id"`
	SeatIDs   pq.StringArray `db:"seat_ids"`
	Status    string         `db:"status"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (row *reservationRow) toEntity() *reservation.Reservation {
	return &reservation.Reservation{
		ID: row.ID, ShowID: row.ShowID, UserID: row.UserID,
		SeatIDs:   []string(row.SeatIDs),
		Status:    reservation.Status(row.Status),
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}
}

type ReservationRepository struct{ db *sqlx.DB }

func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) Create(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	stx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	query := `INSERT INTO reservations (id, show_id, user_id, seat_ids, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := stx.ExecContext(ctx, query,
		res.ID, res.ShowID, res.UserID, pq.Array(res.SeatIDs), string(res.Status), res.CreatedAt, res.UpdatedAt,
	); err != nil {
		return fmt.Errorf("予約作成に失敗: %w", err)
	}
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	var row reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidInput(err) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *ReservationRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	result := make([]*reservation.Reservation, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

// LockByID は予約行を FOR UPDATE で取得する
// 確定処理とリコンサイラーはこの行ロックで直列化される
func (r *ReservationRepository) LockByID(ctx context.Context, tx transaction.Tx, id string) (*reservation.Reservation, error) {
	stx, err := UnwrapTx(tx)
	if err != nil {
		return nil, err
	}
	var row reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1 FOR UPDATE`
	if err := stx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidInput(err) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, fmt.Errorf("予約ロックに失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *ReservationRepository) UpdateStatus(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	stx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	query := `UPDATE reservations SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := stx.ExecContext(ctx, query, string(res.Status), res.UpdatedAt, res.ID)
	if err != nil {
		return fmt.Errorf("予約更新に失敗: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の確認に失敗: %w", err)
	}
	if rows == 0 {
		return reservation.ErrReservationNotFound
	}
	return nil
}

// MarkFailedIfPending は保留中の予約だけを FAILED にする
// 座席は触らない。予約作成がロールバックされていれば0件で終わる
func (r *ReservationRepository) MarkFailedIfPending(ctx context.Context, id string) (bool, error) {
	query := `UPDATE reservations SET status = 'FAILED', updated_at = NOW() WHERE id = $1 AND status = 'PENDING'`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("予約の失敗処理に失敗: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新結果の確認に失敗: %w", err)
	}
	return rows > 0, nil
}

func (r *ReservationRepository) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]string, error) {
	var ids []string
	query := `SELECT id FROM reservations WHERE status = 'PENDING' AND created_at < $1 ORDER BY created_at ASC LIMIT $2`
	if err := r.db.SelectContext(ctx, &ids, query, createdBefore, limit); err != nil {
		return nil, fmt.Errorf("期限切れ予約取得に失敗: %w", err)
	}
	return ids, nil
}

var _ reservation.Repository = (*ReservationRepository)(nil)
