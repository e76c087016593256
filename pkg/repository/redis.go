package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/supermart/pkg/config"
	"github.com/example/supermart/pkg/models"
	"github.com/go-redis/redis/v8"
)

type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// Cart snapshot cache. The cart_items table is the source of truth; this is
// a read-through mirror invalidated on every cart mutation.

func cartKey(userID models.UserID) string {
	return fmt.Sprintf("cart:%d", userID)
}

func (r *RedisRepository) CacheCart(ctx context.Context, userID models.UserID, items []models.CartItem) error {
	return r.SetJSON(ctx, cartKey(userID), items, 10*time.Minute)
}

func (r *RedisRepository) GetCartCache(ctx context.Context, userID models.UserID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.GetJSON(ctx, cartKey(userID), &items)
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *RedisRepository) InvalidateCart(ctx context.Context, userID models.UserID) error {
	return r.client.Del(ctx, cartKey(userID)).Err()
}

// PendingQRPayment is the session-scoped marker held between QR issuance and
// payment completion. The retrieval reference is the provider's key for the
// in-flight transaction.
type PendingQRPayment struct {
	Amount       float64 `json:"amount"`
	RetrievalRef string  `json:"txn_retrieval_ref"`
	Address      string  `json:"address"`
}

func pendingQRKey(userID models.UserID) string {
	return fmt.Sprintf("nets:pending:%d", userID)
}

func (r *RedisRepository) SetPendingQRPayment(ctx context.Context, userID models.UserID, pending *PendingQRPayment) error {
	return r.SetJSON(ctx, pendingQRKey(userID), pending, 15*time.Minute)
}

func (r *RedisRepository) GetPendingQRPayment(ctx context.Context, userID models.UserID) (*PendingQRPayment, error) {
	var pending PendingQRPayment
	err := r.GetJSON(ctx, pendingQRKey(userID), &pending)
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pending, nil
}

func (r *RedisRepository) ClearPendingQRPayment(ctx context.Context, userID models.UserID) error {
	return r.client.Del(ctx, pendingQRKey(userID)).Err()
}

// Per-user checkout single-flight lock. A double-submitted checkout finds
// the key already set and is rejected instead of racing the first request.

func checkoutLockKey(userID models.UserID) string {
	return fmt.Sprintf("checkout:lock:%d", userID)
}

func (r *RedisRepository) AcquireCheckoutLock(ctx context.Context, userID models.UserID, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, checkoutLockKey(userID), 1, ttl).Result()
}

func (r *RedisRepository) ReleaseCheckoutLock(ctx context.Context, userID models.UserID) error {
	return r.client.Del(ctx, checkoutLockKey(userID)).Err()
}
