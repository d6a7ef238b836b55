// Package translate turns a rendered report into Simplified Chinese through
// the public Google Translate endpoint.
package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://translate.googleapis.com"

	// UnavailableText replaces the translation when the service fails.
	UnavailableText = "Translation service unavailable. Please try again later."
	// FailedText replaces the translation when the service returns nothing.
	FailedText = "Translation failed. Please try again."
)

var (
	ErrNothingToTranslate = errors.New("nothing to translate")
	ErrUnavailable        = errors.New("translation service unavailable")
	ErrEmptyTranslation   = errors.New("translation service returned no text")
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// Rate is the sustained request rate; Burst the bucket size.
	Rate   rate.Limit
	Burst  int
	Logger *zap.Logger
}

// Client calls the translation endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// New returns a Client. Zero options select the public endpoint at one
// request per second.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.Rate <= 0 {
		opts.Rate = rate.Every(time.Second)
	}
	if opts.Burst <= 0 {
		opts.Burst = 3
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    opts.HTTPClient,
		limiter: rate.NewLimiter(opts.Rate, opts.Burst),
		log:     opts.Logger,
	}
}

// Translate returns text in Simplified Chinese. On failure the returned string
// is the placeholder to show the user and the error says what went wrong.
func (c *Client) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrNothingToTranslate
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return UnavailableText, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", "en")
	q.Set("tl", "zh-CN")
	q.Set("dt", "t")
	q.Set("q", text)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/translate_a/single?"+q.Encode(), nil)
	if err != nil {
		return UnavailableText, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("translate request failed", zap.Error(err))
		return UnavailableText, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("translate request rejected", zap.Int("status", resp.StatusCode))
		return UnavailableText, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return UnavailableText, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	translated, err := parse(body)
	if err != nil {
		c.log.Warn("translate response malformed", zap.Error(err))
		return UnavailableText, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if translated == "" {
		return FailedText, ErrEmptyTranslation
	}
	c.log.Debug("report translated", zap.Int("chars", len(text)))
	return translated, nil
}

// parse joins the first element of every segment in the first array of the
// response, e.g. [[["你好","hello",null,null]],null,"en"].
func parse(body []byte) (string, error) {
	var top []json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return "", err
	}
	if len(top) == 0 || string(top[0]) == "null" {
		return "", nil
	}
	var segments [][]json.RawMessage
	if err := json.Unmarshal(top[0], &segments); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		var part string
		if err := json.Unmarshal(seg[0], &part); err != nil {
			continue
		}
		b.WriteString(part)
	}
	return b.String(), nil
}
