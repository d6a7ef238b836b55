package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisGateway stores each collection as a Redis hash keyed by document id.
type RedisGateway struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisGateway wraps a client. Keys are "<prefix>:<collection>".
func NewRedisGateway(client redis.UniversalClient, prefix string) *RedisGateway {
	if prefix == "" {
		prefix = "agentdesk"
	}
	return &RedisGateway{client: client, prefix: prefix}
}

func (g *RedisGateway) key(collection string) string {
	return g.prefix + ":" + collection
}

// Write replaces the hash field.
func (g *RedisGateway) Write(ctx context.Context, collection, id string, data []byte) error {
	if err := g.client.HSet(ctx, g.key(collection), id, data).Err(); err != nil {
		return fmt.Errorf("hset %s/%s: %w", collection, id, err)
	}
	return nil
}

// Read returns the hash field.
func (g *RedisGateway) Read(ctx context.Context, collection, id string) ([]byte, error) {
	data, err := g.client.HGet(ctx, g.key(collection), id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return nil, fmt.Errorf("hget %s/%s: %w", collection, id, err)
	}
	return data, nil
}

// Delete removes the hash field.
func (g *RedisGateway) Delete(ctx context.Context, collection, id string) error {
	if err := g.client.HDel(ctx, g.key(collection), id).Err(); err != nil {
		return fmt.Errorf("hdel %s/%s: %w", collection, id, err)
	}
	return nil
}

// List returns the whole hash ordered by id. Redis keeps no per-field
// timestamp, so UpdatedAt is zero.
func (g *RedisGateway) List(ctx context.Context, collection string) ([]Document, error) {
	all, err := g.client.HGetAll(ctx, g.key(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", collection, err)
	}
	out := make([]Document, 0, len(all))
	for id, data := range all {
		out = append(out, Document{Collection: collection, ID: id, Data: []byte(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
