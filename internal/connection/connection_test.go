package connection

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/AgentDesk/internal/gateway"
	"github.com/dharsanguruparan/AgentDesk/internal/model"
	"github.com/dharsanguruparan/AgentDesk/internal/notify"
)

var idAlphabet = regexp.MustCompile(`^[a-zA-Z0-9-]*$`)

func newManager(t *testing.T, gw gateway.Gateway) (*Manager, *notify.Inbox) {
	t.Helper()
	inbox := notify.NewInbox(0, nil)
	m := NewManager(gw, inbox, nil)
	m.now = func() time.Time { return time.Date(2025, 5, 1, 8, 30, 0, 0, time.UTC) }
	return m, inbox
}

func TestConnectionID(t *testing.T) {
	assert.Equal(t, "viewer-example-com-KEN", ConnectionID("viewer@example.com", "KEN"))
	assert.Equal(t, ConnectionID("a@b.co", "MAR"), ConnectionID("a@b.co", "MAR"))
	assert.Equal(t, "-", ConnectionID("", ""))
	assert.Regexp(t, idAlphabet, ConnectionID("ops+1@x.io", "CU 2/β"))
}

func TestConnectionIDDeterministicProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("same inputs give the same id", prop.ForAll(
		func(email, agent string) bool {
			return ConnectionID(email, agent) == ConnectionID(email, agent)
		},
		gen.AnyString(), gen.AnyString(),
	))
	properties.Property("ids only contain letters, digits and dashes", prop.ForAll(
		func(email, agent string) bool {
			return idAlphabet.MatchString(ConnectionID(email, agent))
		},
		gen.AnyString(), gen.AnyString(),
	))
	properties.Property("alphanumeric agents give distinct ids", prop.ForAll(
		func(a, b string) bool {
			if a == b {
				return true
			}
			return ConnectionID("viewer@example.com", a) != ConnectionID("viewer@example.com", b)
		},
		gen.AlphaString(), gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestCreateListDelete(t *testing.T) {
	ctx := context.Background()
	gw := gateway.NewMemoryGateway()
	m, inbox := newManager(t, gw)

	conn, err := m.Create(ctx, " viewer@example.com ", "KEN")
	require.NoError(t, err)
	assert.Equal(t, model.Connection{
		ID:          "viewer-example-com-KEN",
		ViewerEmail: "viewer@example.com",
		AgentName:   "KEN",
		ConnectedAt: time.Date(2025, 5, 1, 8, 30, 0, 0, time.UTC),
		Status:      model.ConnectionActive,
	}, conn)

	list, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Connection{conn}, list)

	require.NoError(t, m.Delete(ctx, conn.ID))
	require.NoError(t, m.Delete(ctx, conn.ID), "delete is idempotent")
	list, err = m.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	var got []string
	for _, n := range inbox.Drain() {
		got = append(got, n.Title)
	}
	assert.Equal(t, []string{"Connection Created", "Connection Removed", "Connection Removed"}, got)
}

func TestCreateRejects(t *testing.T) {
	ctx := context.Background()
	gw := gateway.NewMemoryGateway()
	m, _ := newManager(t, gw)
	_, err := m.Create(ctx, "viewer@example.com", "KEN")
	require.NoError(t, err)

	tests := []struct {
		name  string
		email string
		agent string
		want  error
	}{
		{"missing email", "", "MAR", ErrMissingFields},
		{"blank agent", "other@example.com", "  ", ErrMissingFields},
		{"no domain dot", "other@example", "MAR", ErrInvalidEmail},
		{"spaces", "other @example.com", "MAR", ErrInvalidEmail},
		{"same viewer", "viewer@example.com", "MAR", ErrDuplicateConnection},
		{"same agent", "other@example.com", "KEN", ErrDuplicateConnection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Create(ctx, tt.email, tt.agent)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	docs, err := gw.List(ctx, gateway.ConnectionsCollection)
	require.NoError(t, err)
	assert.Len(t, docs, 1, "rejected creates write nothing")
}

type brokenGateway struct{ gateway.Gateway }

func (brokenGateway) List(context.Context, string) ([]gateway.Document, error) {
	return nil, errors.New("offline")
}

func TestListFailureNotifies(t *testing.T) {
	m, inbox := newManager(t, brokenGateway{Gateway: gateway.NewMemoryGateway()})
	_, err := m.Create(context.Background(), "viewer@example.com", "KEN")
	require.Error(t, err)
	drained := inbox.Drain()
	require.Len(t, drained, 1)
	assert.Equal(t, "Failed to load viewer-agent connections", drained[0].Description)
}
