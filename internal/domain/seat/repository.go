package seat

import (
	"context"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
)

// Repository は座席リポジトリのインターフェース
type Repository interface {
	// CreateBulk は複数の座席を一括作成する
	CreateBulk(ctx context.Context, seats []*Seat) error

	// GetByShowID は公演IDから座席一覧を取得する
	GetByShowID(ctx context.Context, showID string) ([]*Seat, error)

	// GetAvailableByShowID は公演IDから空席一覧を取得する
	GetAvailableByShowID(ctx context.Context, showID string) ([]*Seat, error)

	// CountAvailableByShowID は公演の空席数を取得する
	CountAvailableByShowID(ctx context.Context, showID string) (int, error)

	// LockByLabels は指定ラベルの座席行を排他ロックして返す（トランザクション必須）
	// ロックが取れるまでブロックする
	LockByLabels(ctx context.Context, tx transaction.Tx, showID string, labels []string) ([]*Seat, error)

	// Hold は空席を HELD に更新する（トランザクション必須）
	Hold(ctx context.Context, tx transaction.Tx, seatIDs []string) error

	// Release は座席を AVAILABLE に戻す（トランザクション必須）
	Release(ctx context.Context, tx transaction.Tx, seatIDs []string) error
}
