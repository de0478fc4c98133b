package credstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis persists the credential record in Redis under two keys sharing a
// namespace prefix. Used by shared lab-workstation deployments where the
// portal process is short-lived but the workstation session is not.
type Redis struct {
	client   *redis.Client
	tokenKey string
	userKey  string
}

// NewRedis creates a Redis-backed store. The namespace scopes the two keys,
// typically per workstation or per kiosk identity.
func NewRedis(client *redis.Client, namespace string) *Redis {
	if namespace == "" {
		namespace = "classauth"
	}
	return &Redis{
		client:   client,
		tokenKey: namespace + ":credential:token",
		userKey:  namespace + ":credential:user",
	}
}

// Load implements Store.
func (r *Redis) Load(ctx context.Context) (Record, error) {
	vals, err := r.client.MGet(ctx, r.tokenKey, r.userKey).Result()
	if err != nil {
		return Record{}, fmt.Errorf("redis mget: %w", err)
	}

	token, ok := vals[0].(string)
	if !ok || token == "" {
		return Record{}, ErrNotFound
	}

	rec := Record{Token: token}
	if user, ok := vals[1].(string); ok {
		rec.User = []byte(user)
	}
	return rec, nil
}

// Save implements Store. Both keys are written in one transaction so a
// concurrent Load never observes a token without its user snapshot.
func (r *Redis) Save(ctx context.Context, rec Record) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.tokenKey, rec.Token, 0)
		pipe.Set(ctx, r.userKey, string(rec.User), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save: %w", err)
	}
	return nil
}

// Clear implements Store.
func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.tokenKey, r.userKey).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
