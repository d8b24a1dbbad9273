package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/lock"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
)

var (
	// ErrLockNotAcquired は lock.ErrNotAcquired と同一
	ErrLockNotAcquired = lock.ErrNotAcquired
	ErrLockNotOwned    = errors.New("ロックの所有者ではありません")
)

// 所有者確認と削除をアトミックに実行する
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// 所有者確認と有効期限の延長をアトミックに実行する
var extendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// DistributedLock は Redis を使用した期限付きロック
// TTL を過ぎると所有者が解放しなくても失効する
type DistributedLock struct {
	client *redis.Client
	key    string
	value  string
	ttl    time.Duration
}

// LockManager は分散ロックを管理する
type LockManager struct {
	client *redis.Client
}

func NewLockManager(client *redis.Client) *LockManager {
	return &LockManager{client: client}
}

// AcquireLock はロックを取得する
func (m *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (*DistributedLock, error) {
	lockKey := fmt.Sprintf("lock:%s", key)
	lockValue := uuid.New().String()

	// SetNX を使用してロックを取得（キーが存在しない場合のみ設定）
	ok, err := m.client.SetNX(ctx, lockKey, lockValue, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("ロック取得に失敗: %w", err)
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	return &DistributedLock{
		client: m.client,
		key:    lockKey,
		value:  lockValue,
		ttl:    ttl,
	}, nil
}

// Locker は固定キーのロックを lock.Locker として返す
func (m *LockManager) Locker(key string, ttl time.Duration) lock.Locker {
	return &leaseLocker{manager: m, key: key, ttl: ttl}
}

type leaseLocker struct {
	manager *LockManager
	key     string
	ttl     time.Duration
}

// TryAcquire で得たリースは Release まで TTL/3 ごとに延長される
func (l *leaseLocker) TryAcquire(ctx context.Context) (lock.Lease, error) {
	dl, err := l.manager.AcquireLock(ctx, l.key, l.ttl)
	if err != nil {
		return nil, err
	}
	return startHeartbeat(dl), nil
}

// heartbeatLease は保持中のロックを定期的に延長する
type heartbeatLease struct {
	lock     *DistributedLock
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func startHeartbeat(dl *DistributedLock) *heartbeatLease {
	h := &heartbeatLease{
		lock: dl,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *heartbeatLease) run() {
	defer close(h.done)

	interval := h.lock.ttl / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			err := h.lock.Extend(ctx, h.lock.ttl)
			cancel()
			if errors.Is(err, ErrLockNotOwned) {
				logger.Warn("ロックを失ったため延長を停止", zap.String("key", h.lock.key))
				return
			}
			if err != nil {
				logger.Warn("ロック延長に失敗", zap.String("key", h.lock.key), zap.Error(err))
			}
		}
	}
}

// Release は延長を止めてからロックを解放する
func (h *heartbeatLease) Release(ctx context.Context) error {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
	return h.lock.Release(ctx)
}

var _ lock.Lease = (*heartbeatLease)(nil)

// Release はロックを解放する
// 失効後に他者が取得していた場合は ErrLockNotOwned
func (l *DistributedLock) Release(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Int()
	if err != nil {
		return fmt.Errorf("ロック解放に失敗: %w", err)
	}
	if result == 0 {
		return ErrLockNotOwned
	}
	return nil
}

// Extend はロックの有効期限を ttl に延長する
// 失効後に他者が取得していた場合は ErrLockNotOwned
func (l *DistributedLock) Extend(ctx context.Context, ttl time.Duration) error {
	result, err := extendScript.Run(ctx, l.client, []string{l.key}, l.value, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("ロック延長に失敗: %w", err)
	}
	if result == 0 {
		return ErrLockNotOwned
	}
	return nil
}

var _ lock.Lease = (*DistributedLock)(nil)
