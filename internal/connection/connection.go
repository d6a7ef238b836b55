// Package connection manages which viewer account may see which agent.
package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/AgentDesk/internal/gateway"
	"github.com/dharsanguruparan/AgentDesk/internal/model"
	"github.com/dharsanguruparan/AgentDesk/internal/notify"
)

var (
	ErrMissingFields       = errors.New("viewer email and agent name are required")
	ErrInvalidEmail        = errors.New("invalid viewer email")
	ErrDuplicateConnection = errors.New("viewer or agent already connected")
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	idUnsafe     = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// ConnectionID derives the document id for a viewer/agent pair. The same pair
// always maps to the same id; distinct pairs that differ only in punctuation
// may collide.
func ConnectionID(viewerEmail, agentName string) string {
	return idUnsafe.ReplaceAllString(viewerEmail+"-"+agentName, "-")
}

// Manager reads and writes connection documents through a gateway.
type Manager struct {
	gw       gateway.Gateway
	notifier notify.Notifier
	log      *zap.Logger
	now      func() time.Time
}

// NewManager returns a Manager. A nil notifier or logger discards output.
func NewManager(gw gateway.Gateway, notifier notify.Notifier, log *zap.Logger) *Manager {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{gw: gw, notifier: notifier, log: log, now: time.Now}
}

// List returns every connection ordered by connection time.
func (m *Manager) List(ctx context.Context) ([]model.Connection, error) {
	docs, err := m.gw.List(ctx, gateway.ConnectionsCollection)
	if err != nil {
		m.log.Error("list connections failed", zap.Error(err))
		m.notifier.Notify(notify.Error("Error", "Failed to load viewer-agent connections"))
		return nil, fmt.Errorf("list connections: %w", err)
	}
	out := make([]model.Connection, 0, len(docs))
	for _, d := range docs {
		var c model.Connection
		if err := json.Unmarshal(d.Data, &c); err != nil {
			m.log.Warn("skipping malformed connection", zap.String("id", d.ID), zap.Error(err))
			continue
		}
		if c.ID == "" {
			c.ID = d.ID
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out, nil
}

// Create validates and stores a new active connection. Nothing is written
// when validation fails.
func (m *Manager) Create(ctx context.Context, viewerEmail, agentName string) (model.Connection, error) {
	viewerEmail = strings.TrimSpace(viewerEmail)
	agentName = strings.TrimSpace(agentName)
	if viewerEmail == "" || agentName == "" {
		m.notifier.Notify(notify.Error("Validation Error", "Please fill in all fields"))
		return model.Connection{}, ErrMissingFields
	}
	if !emailPattern.MatchString(viewerEmail) {
		m.notifier.Notify(notify.Error("Invalid Email", "Please enter a valid email address"))
		return model.Connection{}, ErrInvalidEmail
	}

	existing, err := m.List(ctx)
	if err != nil {
		return model.Connection{}, err
	}
	for _, c := range existing {
		if c.ViewerEmail == viewerEmail || c.AgentName == agentName {
			m.notifier.Notify(notify.Error("Connection Exists", "This viewer email or agent is already connected"))
			return model.Connection{}, ErrDuplicateConnection
		}
	}

	conn := model.Connection{
		ID:          ConnectionID(viewerEmail, agentName),
		ViewerEmail: viewerEmail,
		AgentName:   agentName,
		ConnectedAt: m.now().UTC().Truncate(time.Millisecond),
		Status:      model.ConnectionActive,
	}
	if err := gateway.WriteJSON(ctx, m.gw, gateway.ConnectionsCollection, conn.ID, conn); err != nil {
		m.log.Error("create connection failed", zap.String("id", conn.ID), zap.Error(err))
		m.notifier.Notify(notify.Error("Error", "Failed to create connection"))
		return model.Connection{}, err
	}
	m.log.Info("connection created", zap.String("id", conn.ID), zap.String("agent", agentName))
	m.notifier.Notify(notify.Info("Connection Created", fmt.Sprintf("%s is now connected to agent %s", viewerEmail, agentName)))
	return conn, nil
}

// Delete removes a connection. Removing an unknown id succeeds.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.gw.Delete(ctx, gateway.ConnectionsCollection, id); err != nil {
		m.log.Error("delete connection failed", zap.String("id", id), zap.Error(err))
		m.notifier.Notify(notify.Error("Error", "Failed to remove connection"))
		return fmt.Errorf("delete connection %s: %w", id, err)
	}
	m.log.Info("connection removed", zap.String("id", id))
	m.notifier.Notify(notify.Info("Connection Removed", "Connection "+id+" has been removed"))
	return nil
}
