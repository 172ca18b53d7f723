package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"schoolmates/internal/middleware"
	"schoolmates/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Aside returns the JSON value cached under key, falling back to fetch on a miss and
// storing the fetched value for ttl. Without a client it simply calls fetch.
// Redis failures are logged and never fail the lookup.
func Aside[T any](ctx context.Context, key string, ttl time.Duration, fetch func() (T, error)) (T, error) {
	rdb := client
	if rdb == nil {
		return fetch()
	}

	raw, err := rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached T
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			observability.CacheLookups.WithLabelValues("hit").Inc()
			return cached, nil
		}
		observability.CacheLookups.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		observability.CacheLookups.WithLabelValues("miss").Inc()
	default:
		observability.CacheLookups.WithLabelValues("error").Inc()
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	value, err := fetch()
	if err != nil {
		return value, err
	}

	if encoded, jsonErr := json.Marshal(value); jsonErr == nil {
		if setErr := rdb.Set(ctx, key, encoded, ttl).Err(); setErr != nil {
			middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", setErr.Error()))
		}
	}
	return value, nil
}
