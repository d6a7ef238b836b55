package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/AgentDesk/internal/auth"
	"github.com/dharsanguruparan/AgentDesk/internal/config"
	"github.com/dharsanguruparan/AgentDesk/internal/gateway"
	"github.com/dharsanguruparan/AgentDesk/internal/identity"
	"github.com/dharsanguruparan/AgentDesk/internal/model"
	"github.com/dharsanguruparan/AgentDesk/internal/notify"
	"github.com/dharsanguruparan/AgentDesk/internal/queue"
	"github.com/dharsanguruparan/AgentDesk/internal/report"
	"github.com/dharsanguruparan/AgentDesk/internal/session"
	"github.com/dharsanguruparan/AgentDesk/internal/signing"
	"github.com/dharsanguruparan/AgentDesk/internal/translate"
)

var jwtSecret = []byte("api-test-secret")

type fakeQueue struct {
	mu       sync.Mutex
	payloads []queue.ExportPayload
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	p, err := queue.ParseExportPayload(task)
	if err != nil {
		return nil, err
	}
	q.mu.Lock()
	q.payloads = append(q.payloads, p)
	q.mu.Unlock()
	return &asynq.TaskInfo{ID: "1"}, nil
}

type fakeExports map[string][]byte

func (f fakeExports) Download(_ context.Context, key string) ([]byte, error) {
	data, ok := f[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

type fakeTranslator struct{}

func (fakeTranslator) Translate(_ context.Context, text string) (string, error) {
	switch strings.TrimSpace(text) {
	case "":
		return "", translate.ErrNothingToTranslate
	case "down":
		return translate.UnavailableText, translate.ErrUnavailable
	}
	return "报告", nil
}

// switchGateway is a memory gateway whose writes can be turned off.
type switchGateway struct {
	*gateway.MemoryGateway
	failWrites atomic.Bool
}

func (g *switchGateway) Write(ctx context.Context, collection, id string, data []byte) error {
	if g.failWrites.Load() {
		return errors.New("gateway unavailable")
	}
	return g.MemoryGateway.Write(ctx, collection, id, data)
}

type harness struct {
	t       *testing.T
	handler http.Handler
	gw      *switchGateway
	queue   *fakeQueue
	exports fakeExports
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gw := &switchGateway{MemoryGateway: gateway.NewMemoryGateway()}
	registry := session.NewRegistry(func(id, email string, inbox *notify.Inbox) *report.Store {
		return report.NewStore(report.Deps{
			Identity:      id,
			Email:         email,
			Gateway:       gw,
			Notifier:      inbox,
			AutosaveDelay: time.Hour,
		})
	}, time.Hour, nil)
	t.Cleanup(registry.Shutdown)

	h := &harness{t: t, gw: gw, queue: &fakeQueue{}, exports: fakeExports{}}
	cfg := &config.Config{JWTSecret: jwtSecret, SignedURLTTL: time.Minute, PublicURL: "https://desk.example.com"}
	srv := New(cfg, Deps{
		Gateway:    gw,
		Resolver:   identity.NewResolver(nil),
		Sessions:   registry,
		Translator: fakeTranslator{},
		Queue:      h.queue,
		Exports:    h.exports,
		Signer:     signing.NewSigner([]byte("sign")),
	})
	h.handler = srv.Handler()
	return h
}

func token(t *testing.T, email, role string) string {
	t.Helper()
	tok, err := auth.GenerateToken(jwtSecret, email, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(method, path, tok string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type openResponse struct {
	Restored bool        `json:"restored"`
	Report   report.View `json:"report"`
}

func TestHealthAndAuth(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/report", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/report", token(t, "lovely@example.com", auth.RoleAgent), nil).Code)
}

func TestReportLifecycle(t *testing.T) {
	h := newHarness(t)
	tok := token(t, "Lovely@example.com", auth.RoleAgent)

	rec := h.do(http.MethodPost, "/report/session", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	opened := decode[openResponse](t, rec)
	assert.False(t, opened.Restored)
	assert.Equal(t, "LOVELY", opened.Report.Identity)
	require.Len(t, opened.Report.Clients, 1)
	clientID := opened.Report.Clients[0].ID

	rec = h.do(http.MethodPatch, "/report/header", tok, map[string]string{"addedToday": "3", "deposits": "$250"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[report.View](t, rec).Header.AddedToday)
	assert.Equal(t, http.StatusUnprocessableEntity, h.do(http.MethodPatch, "/report/header", tok, map[string]string{"openShops": "lots"}).Code)

	assert.Equal(t, http.StatusConflict, h.do(http.MethodDelete, "/report/clients/"+clientID, tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/report/clients/nope/toggle", tok, nil).Code)

	rec = h.do(http.MethodPost, "/report/submit", tok, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, clientID, body.FirstInvalid)
	assert.ElementsMatch(t, []string{model.FieldConversationSummary, model.FieldPlanForTomorrow}, body.Errors[clientID])

	rec = h.do(http.MethodPatch, "/report/clients/"+clientID, tok, map[string]string{
		model.FieldConversationSummary: "Walked through the app",
		model.FieldPlanForTomorrow:     "Send deposit guide",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[report.View](t, rec).Clients[0].Errors)

	rec = h.do(http.MethodPost, "/report/submit", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[submitResponse](t, rec).Text, "Conversation Summary: Walked through the app")

	rec = h.do(http.MethodPost, "/report/clients", tok, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/report/save", tok, nil).Code)

	var saved model.ReportSnapshot
	require.NoError(t, gateway.ReadJSON(context.Background(), h.gw, gateway.ReportCollection("LOVELY"), gateway.CurrentReportID, &saved))
	assert.Len(t, saved.Clients, 2)
	assert.Equal(t, 250.0, saved.Deposits)

	rec = h.do(http.MethodGet, "/report/notifications", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var titles []string
	for _, n := range decode[[]notify.Notification](t, rec) {
		titles = append(titles, n.Title)
	}
	assert.Equal(t, []string{"Cannot remove", "Missing required information", "Report Generated", "Report Saved"}, titles)

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/report/session", tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/report/session", tok, nil).Code)

	rec = h.do(http.MethodPost, "/report/session", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[openResponse](t, rec).Restored)
}

func TestTranslate(t *testing.T) {
	h := newHarness(t)
	tok := token(t, "kel@example.com", auth.RoleAgent)
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/report/session", tok, nil).Code)

	rec := h.do(http.MethodPost, "/report/translate", tok, translateRequest{Text: "Agent Report"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, translateResponse{Text: "报告", Translated: true}, decode[translateResponse](t, rec))

	rec = h.do(http.MethodPost, "/report/translate", tok, translateRequest{Text: "down"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, translateResponse{Text: translate.UnavailableText}, decode[translateResponse](t, rec))

	assert.Equal(t, http.StatusUnprocessableEntity, h.do(http.MethodPost, "/report/translate", tok, translateRequest{}).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, h.do(http.MethodPost, "/report/translate", tok, map[string]string{"unknown": "x"}).Code)
}

func TestExportAndDownload(t *testing.T) {
	h := newHarness(t)
	tok := token(t, "jhe@example.com", auth.RoleAgent)
	rec := h.do(http.MethodPost, "/report/session", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	clientID := decode[openResponse](t, rec).Report.Clients[0].ID

	assert.Equal(t, http.StatusUnprocessableEntity, h.do(http.MethodPost, "/report/export", tok, nil).Code)
	assert.Empty(t, h.queue.payloads, "invalid reports are not queued")

	h.do(http.MethodPatch, "/report/clients/"+clientID, tok, map[string]string{
		model.FieldConversationSummary: "Summary",
		model.FieldPlanForTomorrow:     "Plan",
	})
	rec = h.do(http.MethodPost, "/report/export", tok, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	resp := decode[exportResponse](t, rec)
	require.Len(t, h.queue.payloads, 1)
	assert.Equal(t, "JHE", h.queue.payloads[0].Identity)
	assert.Equal(t, "jhe@example.com", h.queue.payloads[0].RequestedBy)
	assert.Equal(t, resp.ObjectKey, h.queue.payloads[0].ObjectKey)
	require.Len(t, h.queue.payloads[0].Report.Clients, 1)
	assert.Equal(t, "Summary", h.queue.payloads[0].Report.Clients[0].ConversationSummary)

	link, err := url.Parse(resp.DownloadURL)
	require.NoError(t, err)
	assert.Equal(t, "desk.example.com", link.Host)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, link.RequestURI(), "", nil).Code, "worker has not run yet")
	h.exports[resp.ObjectKey] = []byte("Agent Report")
	rec = h.do(http.MethodGet, link.RequestURI(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Agent Report", rec.Body.String())

	q := link.Query()
	q.Set("key", "exports/KEN/other.txt")
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/exports/download?"+q.Encode(), "", nil).Code)
}

func TestExportQueuesValidatedStateWhenSaveFails(t *testing.T) {
	h := newHarness(t)
	tok := token(t, "primo@example.com", auth.RoleAgent)
	rec := h.do(http.MethodPost, "/report/session", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	clientID := decode[openResponse](t, rec).Report.Clients[0].ID

	h.do(http.MethodPatch, "/report/clients/"+clientID, tok, map[string]string{model.FieldConversationSummary: "OLD"})
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/report/save", tok, nil).Code)

	h.gw.failWrites.Store(true)
	h.do(http.MethodPatch, "/report/clients/"+clientID, tok, map[string]string{
		model.FieldConversationSummary: "NEW",
		model.FieldPlanForTomorrow:     "Visit shop",
	})
	rec = h.do(http.MethodPost, "/report/export", tok, nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	require.Len(t, h.queue.payloads, 1)
	got := h.queue.payloads[0].Report
	require.Len(t, got.Clients, 1)
	assert.Equal(t, "NEW", got.Clients[0].ConversationSummary)
	assert.Equal(t, "Visit shop", got.Clients[0].PlanForTomorrow)

	var saved model.ReportSnapshot
	require.NoError(t, gateway.ReadJSON(context.Background(), h.gw, gateway.ReportCollection("PRIMO"), gateway.CurrentReportID, &saved))
	assert.Equal(t, "OLD", saved.Clients[0].ConversationSummary)
	assert.Empty(t, saved.Clients[0].PlanForTomorrow)
}

func TestConnectionsRequireAdmin(t *testing.T) {
	h := newHarness(t)
	admin := token(t, "boss@example.com", auth.RoleAdmin)
	agent := token(t, "ken@example.com", auth.RoleAgent)

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/connections", agent, nil).Code)

	rec := h.do(http.MethodPost, "/connections", admin, createConnectionRequest{ViewerEmail: "viewer@example.com", AgentName: "KEN"})
	require.Equal(t, http.StatusCreated, rec.Code)
	conn := decode[model.Connection](t, rec)
	assert.Equal(t, "viewer-example-com-KEN", conn.ID)

	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/connections", admin, createConnectionRequest{ViewerEmail: "other@example.com", AgentName: "KEN"}).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, h.do(http.MethodPost, "/connections", admin, createConnectionRequest{ViewerEmail: "bad", AgentName: "MAR"}).Code)

	rec = h.do(http.MethodGet, "/connections", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Connection](t, rec), 1)

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/connections/"+conn.ID, admin, nil).Code)
}
