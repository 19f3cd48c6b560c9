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

// AvailabilityCacheInterface は残席数キャッシュのインターフェース
type AvailabilityCacheInterface interface {
	GetAvailableCount(ctx context.Context, slotID string) (int, error)
	SetAvailableCount(ctx context.Context, slotID string, count int, ttl time.Duration) error
	Invalidate(ctx context.Context, slotID string) error
}

// AvailabilityCache は開催枠の残席数キャッシュを管理する
type AvailabilityCache struct {
	client *redis.Client
}

// NewAvailabilityCache は新しいAvailabilityCacheインスタンスを作成する
func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{client: client}
}

// GetAvailableCount は開催枠の残席数をキャッシュから取得する
func (c *AvailabilityCache) GetAvailableCount(ctx context.Context, slotID string) (int, error) {
	key := c.availableCountKey(slotID)
	val, err := c.client.Get(ctx, key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

// SetAvailableCount は開催枠の残席数をキャッシュに保存する
func (c *AvailabilityCache) SetAvailableCount(ctx context.Context, slotID string, count int, ttl time.Duration) error {
	key := c.availableCountKey(slotID)
	if err := c.client.Set(ctx, key, count, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate は開催枠のキャッシュを無効化する
// 定員を動かすすべての操作の後に呼ばれる
func (c *AvailabilityCache) Invalidate(ctx context.Context, slotID string) error {
	key := c.availableCountKey(slotID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *AvailabilityCache) availableCountKey(slotID string) string {
	return fmt.Sprintf("slots:available:%s", slotID)
}

var _ AvailabilityCacheInterface = (*AvailabilityCache)(nil)
