package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/lock"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
)

// AdvisoryLocker は pg_try_advisory_lock によるセッションロック
// ロックはセッションに紐づくため、取得した接続を解放まで専有する
type AdvisoryLocker struct {
	db   *sql.DB
	key1 int32
	key2 int32
}

// NewAdvisoryLocker は2つのキーで識別されるアドバイザリーロックを作成する
func NewAdvisoryLocker(db *sqlx.DB, key1, key2 int32) *AdvisoryLocker {
	return &AdvisoryLocker{db: db.DB, key1: key1, key2: key2}
}

// TryAcquire はロックを待たずに取得を試みる
func (l *AdvisoryLocker) TryAcquire(ctx context.Context) (lock.Lease, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("ロック用接続の取得に失敗: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1, $2)`, l.key1, l.key2).Scan(&acquired); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("アドバイザリーロック取得に失敗: %w", err)
	}
	if !acquired {
		_ = conn.Close()
		return nil, lock.ErrNotAcquired
	}
	return &advisoryLease{conn: conn, key1: l.key1, key2: l.key2}, nil
}

type advisoryLease struct {
	conn *sql.Conn
	key1 int32
	key2 int32

	once sync.Once
	err  error
}

// Release は同じ接続でロックを解除する
// 解除できなかった接続はプールに戻さず破棄し、セッション終了でロックを外す
func (a *advisoryLease) Release(ctx context.Context) error {
	a.once.Do(func() {
		var unlocked bool
		err := a.conn.QueryRowContext(ctx, `SELECT pg_advisory_unlock($1, $2)`, a.key1, a.key2).Scan(&unlocked)
		if err == nil && !unlocked {
			err = errors.New("アドバイザリーロックを保持していません")
		}
		if err != nil {
			a.err = fmt.Errorf("アドバイザリーロック解除に失敗: %w", err)
			logger.Warn("ロック用接続を破棄します", zap.Error(err))
			_ = a.conn.Raw(func(any) error { return driver.ErrBadConn })
		}
		_ = a.conn.Close()
	})
	return a.err
}

var _ lock.Locker = (*AdvisoryLocker)(nil)
