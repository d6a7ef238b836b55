package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/AgentDesk/internal/config"
	"github.com/dharsanguruparan/AgentDesk/internal/gateway"
)

func TestOpenGateway(t *testing.T) {
	ctx := context.Background()
	for _, cfg := range []*config.Config{
		{Gateway: config.GatewayMemory},
		{Gateway: config.GatewaySQLite, SQLitePath: ":memory:"},
	} {
		t.Run(cfg.Gateway, func(t *testing.T) {
			g, closeFn, err := OpenGateway(ctx, cfg, nil)
			require.NoError(t, err)
			defer closeFn()

			require.NoError(t, g.Write(ctx, "c", "d", []byte(`{"ok":true}`)))
			data, err := g.Read(ctx, "c", "d")
			require.NoError(t, err)
			assert.JSONEq(t, `{"ok":true}`, string(data))
			_, err = g.Read(ctx, "c", "missing")
			assert.ErrorIs(t, err, gateway.ErrNotFound)
		})
	}
}

func TestOpenGatewayErrors(t *testing.T) {
	ctx := context.Background()
	_, _, err := OpenGateway(ctx, &config.Config{Gateway: "firestore"}, nil)
	assert.ErrorContains(t, err, "unknown gateway")

	_, _, err = OpenGateway(ctx, &config.Config{Gateway: config.GatewayPostgres, DatabaseURL: "postgres://localhost:notaport/agentdesk"}, nil)
	assert.ErrorContains(t, err, "parse dsn")
}
