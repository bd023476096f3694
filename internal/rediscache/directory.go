// Package rediscache puts a Redis read-through cache in front of the user
// directory so contact lists and connects do not hit the identity store for
// every counterpart.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Rambha123/voxspace/internal/domain"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 5 * time.Minute

type Resolver interface {
	Resolve(ctx context.Context, userID string) (domain.User, error)
}

type Directory struct {
	client *redis.Client
	inner  Resolver
	ttl    time.Duration
}

// NewClient parses a redis:// URL and pings the server.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func NewDirectory(client *redis.Client, inner Resolver, ttl time.Duration) *Directory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Directory{client: client, inner: inner, ttl: ttl}
}

func userKey(id string) string {
	return fmt.Sprintf("user:%s", id)
}

// Resolve serves from Redis when possible. Misses are not cached, so a user
// created after a failed lookup becomes visible immediately.
func (d *Directory) Resolve(ctx context.Context, userID string) (domain.User, error) {
	key := userKey(userID)

	data, err := d.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var u domain.User
		if jerr := json.Unmarshal(data, &u); jerr == nil {
			return u, nil
		}
		slog.Warn("rediscache: corrupt entry", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		slog.Warn("rediscache: get failed", slog.String("key", key), slog.Any("err", err))
	}

	u, err := d.inner.Resolve(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}

	if data, err := json.Marshal(u); err == nil {
		if err := d.client.Set(ctx, key, data, d.ttl).Err(); err != nil {
			slog.Warn("rediscache: set failed", slog.String("key", key), slog.Any("err", err))
		}
	}
	return u, nil
}
