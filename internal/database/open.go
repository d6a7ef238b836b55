package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/AgentDesk/internal/config"
	"github.com/dharsanguruparan/AgentDesk/internal/gateway"
)

// OpenGateway connects the document backend named by cfg.Gateway. The
// returned close function releases it.
func OpenGateway(ctx context.Context, cfg *config.Config, log *zap.Logger) (gateway.Gateway, func(), error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Gateway {
	case config.GatewayMemory, "":
		log.Warn("using in-memory gateway, reports are lost on restart")
		return gateway.NewMemoryGateway(), func() {}, nil

	case config.GatewayPostgres:
		pool, err := Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("postgres gateway ready")
		return gateway.NewPostgresGateway(pool), pool.Close, nil

	case config.GatewaySQLite:
		g, err := gateway.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info("sqlite gateway ready", zap.String("path", cfg.SQLitePath))
		return g, func() { _ = g.Close() }, nil

	case config.GatewayRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		log.Info("redis gateway ready", zap.String("addr", cfg.RedisAddr))
		return gateway.NewRedisGateway(client, cfg.RedisPrefix), func() { _ = client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown gateway %q", cfg.Gateway)
}
