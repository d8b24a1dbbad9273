package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/show"
)

// showRow はDBの行を表す構造体
type showRow struct {
	ID        string     `db:"id"`
	Name      string     `db:"name"`
	StartsAt  *time.Time `db:"starts_at"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

func (r *showRow) toEntity() *show.Show {
	return &show.Show{
		ID:        r.ID,
		Name:      r.Name,
		StartsAt:  r.StartsAt,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// ShowRepository は公演リポジトリのPostgreSQL実装
type ShowRepository struct {
	db *sqlx.DB
}

// NewShowRepository はShowRepositoryを作成する
func NewShowRepository(db *sqlx.DB) *ShowRepository {
	return &ShowRepository{db: db}
}

// Create は新しい公演を作成する
func (r *ShowRepository) Create(ctx context.Context, s *show.Show) error {
	query := `INSERT INTO shows (id, name, starts_at, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, s.ID, s.Name, s.StartsAt, s.CreatedAt, s.UpdatedAt); err != nil {
		return fmt.Errorf("公演作成に失敗しました: %w", err)
	}
	return nil
}

// GetByID はIDから公演を取得する
func (r *ShowRepository) GetByID(ctx context.Context, id string) (*show.Show, error) {
	query := `SELECT id, name, starts_at, created_at, updated_at FROM shows WHERE id = $1`

	var row showRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidInput(err) {
			return nil, show.ErrShowNotFound
		}
		return nil, fmt.Errorf("公演取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// インターフェースを満たしているか確認
var _ show.Repository = (*ShowRepository)(nil)
