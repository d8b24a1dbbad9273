package transaction

import (
	"context"
	"errors"
)

// ErrTxDone は終了済みのトランザクションを再度コミット/ロールバックした場合に返る
var ErrTxDone = errors.New("トランザクションは既に終了しています")

// Tx はトランザクションを表すインターフェース
// ドメイン層がインフラ層（sqlx等）に依存しないようにするための抽象化
type Tx interface {
	Commit() error
	Rollback() error
}

// Manager はトランザクションを管理するインターフェース
type Manager interface {
	// Begin は新しいトランザクションを開始する
	Begin(ctx context.Context) (Tx, error)
}

// Rollback は終了済みを無視してロールバックする
// defer で使う
func Rollback(tx Tx) error {
	if err := tx.Rollback(); err != nil && !errors.Is(err, ErrTxDone) {
		return err
	}
	return nil
}
