package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/AgentDesk/internal/auth"
	"github.com/dharsanguruparan/AgentDesk/internal/gateway"
	"github.com/dharsanguruparan/AgentDesk/internal/model"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func useSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agentdesk.db")
	t.Setenv("AGENTDESK_DEV", "true")
	t.Setenv("AGENTDESK_GATEWAY", "sqlite")
	t.Setenv("AGENTDESK_SQLITE_PATH", path)
	return path
}

func TestIdentityCommand(t *testing.T) {
	out, err := execute(t, "identity", "Lovely@example.com")
	require.NoError(t, err)
	assert.Equal(t, "LOVELY\n", out)

	out, err = execute(t, "identity", "zed@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ZED\n", out)
}

func TestReportShow(t *testing.T) {
	path := useSQLite(t)
	ctx := context.Background()
	g, err := gateway.OpenSQLite(ctx, path)
	require.NoError(t, err)
	snap := model.ReportSnapshot{
		ReportHeader: model.ReportHeader{AgentName: "MAR", OpenShops: 3},
		Clients:      []model.Client{{ID: "a", ShopID: "S-3"}},
		Identity:     "MAR",
	}
	require.NoError(t, gateway.WriteJSON(ctx, g, gateway.ReportCollection("MAR"), gateway.CurrentReportID, snap))
	require.NoError(t, g.Close())

	out, err := execute(t, "report", "show", "MAR")
	require.NoError(t, err)
	assert.Contains(t, out, "Open Shops: 3")
	assert.Contains(t, out, "Shop ID: S-3")

	_, err = execute(t, "report", "show", "NOBODY")
	assert.ErrorContains(t, err, "no saved report")
}

func TestConnectionsCommands(t *testing.T) {
	useSQLite(t)

	out, err := execute(t, "connections", "add", "viewer@example.com", "CU")
	require.NoError(t, err)
	assert.Equal(t, "viewer-example-com-CU\n", out)

	out, err = execute(t, "connections", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "viewer@example.com")

	_, err = execute(t, "connections", "add", "viewer@example.com", "KEN")
	assert.Error(t, err)

	_, err = execute(t, "connections", "remove", "viewer-example-com-CU")
	require.NoError(t, err)
	out, err = execute(t, "connections", "list")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"), "only the header remains")
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("AGENTDESK_JWT_SECRET", "cli-secret")
	out, err := execute(t, "token", "boss@example.com", "--admin")
	require.NoError(t, err)

	claims, err := auth.ValidateToken([]byte("cli-secret"), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "boss@example.com", claims.Email)
	assert.True(t, claims.IsAdmin())
}
