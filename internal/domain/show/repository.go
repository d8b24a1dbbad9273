package show

import "context"

// Repository は公演リポジトリのインターフェース
type Repository interface {
	// Create は新しい公演を作成する
	Create(ctx context.Context, show *Show) error

	// GetByID はIDから公演を取得する
	GetByID(ctx context.Context, id string) (*Show, error)
}
