package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/flashdeck-backend/internal/config"
)

// maxSwapAttempts bounds optimistic retries when a watched document is
// modified concurrently.
const maxSwapAttempts = 5

// RedisGateway is the Redis-backed document store. Documents live as JSON
// strings under "doc:{path}"; each parent path keeps a sorted set
// "idx:{path}" of its child key segments so iteration order is stable and
// ascending.
type RedisGateway struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisGateway connects to Redis and verifies the connection.
func NewRedisGateway(cfg *config.RedisConfig, logger *slog.Logger) (*RedisGateway, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisGateway{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection.
func (g *RedisGateway) Close() error {
	return g.client.Close()
}

func docKey(path string) string {
	return "doc:" + path
}

func idxKey(path string) string {
	return "idx:" + path
}

// splitParent splits a path into its parent and final segment. The parent
// of a single-segment path is the empty root.
func splitParent(path string) (parent, leaf string) {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// registerPath records path and every ancestor in their parents' child
// indexes.
func (g *RedisGateway) registerPath(ctx context.Context, pipe redis.Pipeliner, path string) {
	for p := path; p != ""; {
		parent, leaf := splitParent(p)
		pipe.ZAdd(ctx, idxKey(parent), redis.Z{Score: 0, Member: leaf})
		p = parent
	}
}

func (g *RedisGateway) Get(ctx context.Context, path string, dest any) (bool, error) {
	raw, err := g.client.Get(ctx, docKey(path)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decoding %s: %w", path, err)
	}
	return true, nil
}

func (g *RedisGateway) Set(ctx context.Context, path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	_, err = g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, docKey(path), data, 0)
		g.registerPath(ctx, pipe, path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (g *RedisGateway) Update(ctx context.Context, path string, fields map[string]any) error {
	return g.Swap(ctx, path, func(current json.RawMessage) (any, error) {
		doc := make(map[string]any)
		if current != nil {
			if err := json.Unmarshal(current, &doc); err != nil {
				return nil, fmt.Errorf("decoding %s: %w", path, err)
			}
		}
		for k, v := range fields {
			doc[k] = v
		}
		return doc, nil
	})
}

func (g *RedisGateway) Push(ctx context.Context, path string, value any) (string, error) {
	key := uuid.New().String()
	if err := g.Set(ctx, Join(path, key), value); err != nil {
		return "", err
	}
	return key, nil
}

func (g *RedisGateway) Remove(ctx context.Context, path string) error {
	kids, err := g.client.ZRange(ctx, idxKey(path), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("listing children of %s: %w", path, err)
	}
	for _, kid := range kids {
		if err := g.Remove(ctx, Join(path, kid)); err != nil {
			return err
		}
	}

	parent, leaf := splitParent(path)
	pipe := g.client.TxPipeline()
	pipe.Del(ctx, docKey(path), idxKey(path))
	pipe.ZRem(ctx, idxKey(parent), leaf)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}

	g.pruneAncestors(ctx, parent)
	return nil
}

// pruneAncestors walks up from path deleting interior nodes left with no
// children and no document. Best effort; a leftover empty index only
// costs a key.
func (g *RedisGateway) pruneAncestors(ctx context.Context, path string) {
	for path != "" {
		count, err := g.client.ZCard(ctx, idxKey(path)).Result()
		if err != nil || count > 0 {
			return
		}
		exists, err := g.client.Exists(ctx, docKey(path)).Result()
		if err != nil || exists > 0 {
			return
		}
		parent, leaf := splitParent(path)
		pipe := g.client.TxPipeline()
		pipe.Del(ctx, idxKey(path))
		pipe.ZRem(ctx, idxKey(parent), leaf)
		if _, err := pipe.Exec(ctx); err != nil {
			g.logger.Warn("failed to prune empty path", "path", path, "error", err)
			return
		}
		path = parent
	}
}

func (g *RedisGateway) Children(ctx context.Context, path string) ([]Child, error) {
	keys, err := g.client.ZRange(ctx, idxKey(path), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing children of %s: %w", path, err)
	}
	if len(keys) == 0 {
		return []Child{}, nil
	}

	docKeys := make([]string, len(keys))
	for i, k := range keys {
		docKeys[i] = docKey(Join(path, k))
	}
	values, err := g.client.MGet(ctx, docKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("reading children of %s: %w", path, err)
	}

	children := make([]Child, len(keys))
	for i, k := range keys {
		children[i] = Child{Key: k}
		if s, ok := values[i].(string); ok {
			children[i].Value = json.RawMessage(s)
		}
	}
	return children, nil
}

func (g *RedisGateway) QueryEqual(ctx context.Context, path, field, value string) ([]Child, error) {
	children, err := g.Children(ctx, path)
	if err != nil {
		return nil, err
	}
	matched := make([]Child, 0, len(children))
	for _, c := range children {
		if matchField(c.Value, field, value) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func (g *RedisGateway) Swap(ctx context.Context, path string, fn SwapFunc) error {
	key := docKey(path)
	for attempt := 0; attempt < maxSwapAttempts; attempt++ {
		err := g.client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if err != nil && err != redis.Nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			var current json.RawMessage
			if err == nil {
				current = raw
			}

			next, err := fn(current)
			if err != nil {
				return err
			}
			data, err := json.Marshal(next)
			if err != nil {
				return fmt.Errorf("encoding %s: %w", path, err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				g.registerPath(ctx, pipe, path)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		return err
	}
	return fmt.Errorf("swapping %s: too many concurrent modifications", path)
}
