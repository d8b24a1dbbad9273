package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// SeatCache は公演ごとの空席数をキャッシュする
// 座席の確保・解放のたびに無効化される
type SeatCache struct {
	client *redis.Client
}

// NewSeatCache は新しいSeatCacheインスタンスを作成する
func NewSeatCache(client *redis.Client) *SeatCache {
	return &SeatCache{client: client}
}

// GetAvailableCount は公演の空席数をキャッシュから取得する
func (c *SeatCache) GetAvailableCount(ctx context.Context, showID string) (int, error) {
	val, err := c.client.Get(ctx, availableCountKey(showID)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

// SetAvailableCount は公演の空席数をキャッシュに保存する
func (c *SeatCache) SetAvailableCount(ctx context.Context, showID string, count int, ttl time.Duration) error {
	if err := c.client.Set(ctx, availableCountKey(showID), count, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate は公演のキャッシュを無効化する
func (c *SeatCache) Invalidate(ctx context.Context, showID string) error {
	if err := c.client.Del(ctx, availableCountKey(showID)).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func availableCountKey(showID string) string {
	return fmt.Sprintf("shows:%s:seats:available", showID)
}
