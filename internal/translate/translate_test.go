package translate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL, Rate: rate.Inf})
}

func TestTranslateJoinsSegments(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/translate_a/single", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "gtx", q.Get("client"))
		assert.Equal(t, "zh-CN", q.Get("tl"))
		assert.Equal(t, "Agent Report\nCLIENT 1:", q.Get("q"))
		_, _ = w.Write([]byte(`[[["代理报告\n","Agent Report\n",null,null],["客户 1：","CLIENT 1:",null,null]],null,"en"]`))
	})

	got, err := c.Translate(context.Background(), "Agent Report\nCLIENT 1:")
	require.NoError(t, err)
	assert.Equal(t, "代理报告\n客户 1：", got)
}

func TestTranslateFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, "", UnavailableText, ErrUnavailable},
		{"not json", http.StatusOK, "<html>", UnavailableText, ErrUnavailable},
		{"null result", http.StatusOK, `[null,null,"en"]`, FailedText, ErrEmptyTranslation},
		{"empty segments", http.StatusOK, `[[],null,"en"]`, FailedText, ErrEmptyTranslation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			got, err := c.Translate(context.Background(), "hello")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslateNothing(t *testing.T) {
	c := New(Options{})
	_, err := c.Translate(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNothingToTranslate)
}

func TestTranslateHonoursContext(t *testing.T) {
	c := New(Options{BaseURL: "http://127.0.0.1:1", Rate: rate.Every(1e12), Burst: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := c.Translate(ctx, "hello")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, UnavailableText, got)
}
