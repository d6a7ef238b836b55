package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestResendSender(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_123"}`))
	}))
	defer srv.Close()

	s := NewResendSender("re_test", "AgentDesk <reports@example.com>", nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	s.client.BaseURL = base

	res, err := s.Send(context.Background(), Message{To: []string{"lead@example.com"}, Subject: "Agent Report", HTML: "<p>hi</p>"})
	require.NoError(t, err)
	assert.Equal(t, "msg_123", res.MessageID)
	assert.Equal(t, "AgentDesk <reports@example.com>", got["from"])
	assert.Equal(t, "Agent Report", got["subject"])
}

func TestSendersRequireRecipients(t *testing.T) {
	_, err := NewResendSender("re_test", "x@example.com", nil).Send(context.Background(), Message{Subject: "s"})
	assert.ErrorIs(t, err, ErrNoRecipients)
	_, err = LogSender{}.Send(context.Background(), Message{Subject: "s"})
	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	_, err := LogSender{Log: zap.New(core)}.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "Agent Report"})
	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Agent Report", logs.All()[0].ContextMap()["subject"])
}
