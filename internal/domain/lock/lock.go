// Package lock はクラスタ全体で1つのインスタンスだけが処理を行うための
// 排他トークンを定義する
package lock

import (
	"context"
	"errors"
)

// ErrNotAcquired は他のインスタンスがトークンを保持している場合に返る
// 異常ではなく、複数インスタンス構成での通常動作
var ErrNotAcquired = errors.New("ロックを取得できませんでした")

// Lease は取得済みの排他トークン
type Lease interface {
	// Release はトークンを解放する
	Release(ctx context.Context) error
}

// Locker は排他トークンを試行取得する
// 取得できない場合は待たずに ErrNotAcquired を返す
type Locker interface {
	TryAcquire(ctx context.Context) (Lease, error)
}
