package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/juliodz03/websitetmdt-client/internal/domain"
)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:  client,
		baseTTL: 30 * 24 * time.Hour,
	}
}

// RedisStore keeps per-context client state under namespaced keys. The
// TTL gets a small jitter so a burst of contexts does not expire at once.
type RedisStore struct {
	client  *redis.Client
	baseTTL time.Duration
}

func sessionKey(clientID string) string { return fmt.Sprintf("session:%s", clientID) }
func authKey(clientID string) string    { return fmt.Sprintf("auth:%s", clientID) }
func cartKey(clientID string) string    { return fmt.Sprintf("cartsnap:%s", clientID) }

func (r *RedisStore) ttl() time.Duration {
	jitter := time.Duration(rand.Intn(60)) * time.Minute
	return r.baseTTL + jitter
}

func (r *RedisStore) GetSessionID(ctx context.Context, clientID string) (string, error) {
	v, err := r.client.Get(ctx, sessionKey(clientID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get session failed: %w", err)
	}
	return v, nil
}

func (r *RedisStore) SetSessionID(ctx context.Context, clientID, sessionID string) error {
	if err := r.client.Set(ctx, sessionKey(clientID), sessionID, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set session failed: %w", err)
	}
	return nil
}

func (r *RedisStore) GetAuth(ctx context.Context, clientID string) (*domain.AuthState, error) {
	data, err := r.client.Get(ctx, authKey(clientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get auth failed: %w", err)
	}
	var auth domain.AuthState
	if err := json.Unmarshal(data, &auth); err != nil {
		return nil, fmt.Errorf("unmarshal auth failed: %w", err)
	}
	return &auth, nil
}

func (r *RedisStore) SetAuth(ctx context.Context, clientID string, auth *domain.AuthState) error {
	data, err := json.Marshal(auth)
	if err != nil {
		return fmt.Errorf("marshal auth failed: %w", err)
	}
	if err := r.client.Set(ctx, authKey(clientID), data, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set auth failed: %w", err)
	}
	return nil
}

func (r *RedisStore) DeleteAuth(ctx context.Context, clientID string) error {
	if err := r.client.Del(ctx, authKey(clientID)).Err(); err != nil {
		return fmt.Errorf("redis delete auth failed: %w", err)
	}
	return nil
}

func (r *RedisStore) GetCart(ctx context.Context, clientID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(clientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get cart failed: %w", err)
	}
	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &cart, nil
}

func (r *RedisStore) SetCart(ctx context.Context, clientID string, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := r.client.Set(ctx, cartKey(clientID), data, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set cart failed: %w", err)
	}
	return nil
}

func (r *RedisStore) DeleteCart(ctx context.Context, clientID string) error {
	if err := r.client.Del(ctx, cartKey(clientID)).Err(); err != nil {
		return fmt.Errorf("redis delete cart failed: %w", err)
	}
	return nil
}
