package reservation

import (
	"context"
	"time"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
)

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は新しい予約を作成する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, reservation *Reservation) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Reservation, error)

	// GetByUserID はユーザーIDから予約一覧を取得する
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*Reservation, error)

	// LockByID は予約行を排他ロックして取得する（トランザクション必須）
	LockByID(ctx context.Context, tx transaction.Tx, id string) (*Reservation, error)

	// UpdateStatus は予約の状態を更新する（トランザクション必須）
	UpdateStatus(ctx context.Context, tx transaction.Tx, reservation *Reservation) error

	// MarkFailedIfPending は保留中であれば FAILED にする
	// トランザクション外の後始末用で、更新したかどうかを返す
	MarkFailedIfPending(ctx context.Context, id string) (bool, error)

	// ListStalePending は createdBefore より前に作成された保留中予約のIDを古い順に返す
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]string, error)
}
