package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrPromoNotFound = errors.New("プロモコードが設定されていません")

// promoTTL はセッションに紐づくプロモコードの保持期間
// カートのTTLより十分長ければよい
const promoTTL = 2 * time.Hour

// PromoStoreInterface はセッション別プロモコード保存のインターフェース
type PromoStoreInterface interface {
	Get(ctx context.Context, sessionID string) (string, error)
	Set(ctx context.Context, sessionID, code string) error
	Clear(ctx context.Context, sessionID string) error
}

// PromoStore はセッションに適用されたプロモコードを保持する
// カート自体は予約ストアからの投影なので、セッション固有の状態はこれだけ
type PromoStore struct {
	client *redis.Client
}

func NewPromoStore(client *redis.Client) *PromoStore {
	return &PromoStore{client: client}
}

func (s *PromoStore) Get(ctx context.Context, sessionID string) (string, error) {
	code, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrPromoNotFound
		}
		return "", fmt.Errorf("プロモコード取得に失敗: %w", err)
	}
	return code, nil
}

func (s *PromoStore) Set(ctx context.Context, sessionID, code string) error {
	if err := s.client.Set(ctx, s.key(sessionID), code, promoTTL).Err(); err != nil {
		return fmt.Errorf("プロモコード保存に失敗: %w", err)
	}
	return nil
}

func (s *PromoStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("プロモコード削除に失敗: %w", err)
	}
	return nil
}

func (s *PromoStore) key(sessionID string) string {
	return fmt.Sprintf("promo:%s", sessionID)
}

var _ PromoStoreInterface = (*PromoStore)(nil)
