package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
)

const seatColumns = `id, show_id, label, status, created_at, updated_at`

type seatRow struct {
	ID        string    `db:"id"`
	ShowID    string    `db:"show_id"`
	Label     string    `db:"label"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r *seatRow) toEntity() *seat.Seat {
	return &seat.Seat{
		ID: r.ID, ShowID: r.ShowID, Label: r.Label,
		Status:    seat.Status(r.Status),
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func toSeats(rows []seatRow) []*seat.Seat {
	seats := make([]*seat.Seat, len(rows))
	for i := range rows {
		seats[i] = rows[i].toEntity()
	}
	return seats
}

type SeatRepository struct{ db *sqlx.DB }

func NewSeatRepository(db *sqlx.DB) *SeatRepository { return &SeatRepository{db: db} }

func (r *SeatRepository) CreateBulk(ctx context.Context, seats []*seat.Seat) error {
	if len(seats) == 0 {
		return nil
	}

	// バッチサイズごとに分割してマルチバリューINSERTを実行
	const batchSize = 1000
	for i := 0; i < len(seats); i += batchSize {
		end := min(i+batchSize, len(seats))
		if err := r.createBulkBatch(ctx, seats[i:end]); err != nil {
			return err
		}
	}
	return nil
}

// createBulkBatch はバッチ単位でマルチバリューINSERTを実行
func (r *SeatRepository) createBulkBatch(ctx context.Context, seats []*seat.Seat) error {
	const cols = 6
	query := `INSERT INTO seats (id, show_id, label, status, created_at, updated_at) VALUES `
	args := make([]any, 0, len(seats)*cols)
	placeholders := make([]string, 0, len(seats))

	for i, s := range seats {
		base := i * cols
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6))
		args = append(args, s.ID, s.ShowID, s.Label, string(s.Status), s.CreatedAt, s.UpdatedAt)
	}

	query += strings.Join(placeholders, ", ")
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return seat.ErrDuplicateLabel
		}
		return fmt.Errorf("座席一括作成に失敗: %w", err)
	}
	return nil
}

func (r *SeatRepository) GetByShowID(ctx context.Context, showID string) ([]*seat.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seats WHERE show_id = $1 ORDER BY label`
	var rows []seatRow
	if err := r.db.SelectContext(ctx, &rows, query, showID); err != nil {
		if isInvalidInput(err) {
			return []*seat.Seat{}, nil
		}
		return nil, fmt.Errorf("座席一覧取得に失敗: %w", err)
	}
	return toSeats(rows), nil
}

func (r *SeatRepository) GetAvailableByShowID(ctx context.Context, showID string) ([]*seat.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seats WHERE show_id = $1 AND status = 'AVAILABLE' ORDER BY label`
	var rows []seatRow
	if err := r.db.SelectContext(ctx, &rows, query, showID); err != nil {
		if isInvalidInput(err) {
			return []*seat.Seat{}, nil
		}
		return nil, fmt.Errorf("空席一覧取得に失敗: %w", err)
	}
	return toSeats(rows), nil
}

func (r *SeatRepository) CountAvailableByShowID(ctx context.Context, showID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM seats WHERE show_id = $1 AND status = 'AVAILABLE'`, showID)
	if err != nil {
		if isInvalidInput(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("空席数取得に失敗: %w", err)
	}
	return count, nil
}

// LockByLabels は対象座席を id 順に FOR UPDATE でロックする
// 重なり合う予約同士が同じ順序でロックを取るためデッドロックしない
func (r *SeatRepository) LockByLabels(ctx context.Context, tx transaction.Tx, showID string, labels []string) ([]*seat.Seat, error) {
	stx, err := UnwrapTx(tx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + seatColumns + ` FROM seats WHERE show_id = $1 AND label = ANY($2) ORDER BY id FOR UPDATE`
	var rows []seatRow
	if err := stx.SelectContext(ctx, &rows, query, showID, pq.Array(labels)); err != nil {
		if isInvalidInput(err) {
			return []*seat.Seat{}, nil
		}
		return nil, fmt.Errorf("座席ロックに失敗: %w", err)
	}
	return toSeats(rows), nil
}

// Hold は AVAILABLE の座席だけを HELD にする
// 更新件数が一致しなければ他の予約に取られている
func (r *SeatRepository) Hold(ctx context.Context, tx transaction.Tx, seatIDs []string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	stx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	query := `UPDATE seats SET status = 'HELD', updated_at = NOW() WHERE id = ANY($1) AND status = 'AVAILABLE'`
	result, err := stx.ExecContext(ctx, query, pq.Array(seatIDs))
	if err != nil {
		return fmt.Errorf("座席確保に失敗: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の確認に失敗: %w", err)
	}
	if int(rows) != len(seatIDs) {
		return seat.ErrSeatUnavailable
	}
	return nil
}

func (r *SeatRepository) Release(ctx context.Context, tx transaction.Tx, seatIDs []string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	stx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	query := `UPDATE seats SET status = 'AVAILABLE', updated_at = NOW() WHERE id = ANY($1)`
	if _, err := stx.ExecContext(ctx, query, pq.Array(seatIDs)); err != nil {
		return fmt.Errorf("座席解放に失敗: %w", err)
	}
	return nil
}

var _ seat.Repository = (*SeatRepository)(nil)
