package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"PickSentinel/internal/model"
)

const picksPath = "/api/v1/picks"

// StatusError is returned when the backend answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed if retried.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// RESTOptions configures a RESTFetcher.
type RESTOptions struct {
	BaseURL        string
	Token          string
	Proxy          string
	Timeout        time.Duration
	RequestsPerSec float64
	MaxElapsed     time.Duration
	InitialBackoff time.Duration
}

// RESTFetcher implements Fetcher against the dashboard backend REST API.
type RESTFetcher struct {
	client     *resty.Client
	limiter    *rate.Limiter
	maxElapsed time.Duration
	initial    time.Duration
}

// NewRESTFetcher creates a rate limited fetcher with optional proxy support.
func NewRESTFetcher(opts RESTOptions) *RESTFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 5
	}
	if opts.MaxElapsed <= 0 {
		opts.MaxElapsed = 30 * time.Second
	}

	c := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json")
	if opts.Token != "" {
		c.SetAuthToken(opts.Token)
	}
	if opts.Proxy != "" {
		c.SetProxy(opts.Proxy)
	}

	burst := int(opts.RequestsPerSec)
	if burst < 1 {
		burst = 1
	}
	return &RESTFetcher{
		client:     c,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSec), burst),
		maxElapsed: opts.MaxElapsed,
		initial:    opts.InitialBackoff,
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// FetchPicks retrieves the picks for one mode. Server errors and transport
// failures are retried with exponential backoff; client errors are not.
func (f *RESTFetcher) FetchPicks(ctx context.Context, mode string) ([]model.Pick, error) {
	var body []byte
	attempt := 0
	operation := func() error {
		attempt++
		if err := f.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		resp, err := f.client.R().
			SetContext(ctx).
			SetQueryParam("mode", mode).
			Get(picksPath)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			log.Warn().Err(err).Str("mode", mode).Int("attempt", attempt).Msg("fetch picks failed")
			return err
		}
		if resp.StatusCode() != http.StatusOK {
			serr := &StatusError{StatusCode: resp.StatusCode(), Body: truncate(resp.String(), 256)}
			if !serr.Temporary() {
				return backoff.Permanent(serr)
			}
			log.Warn().Err(serr).Str("mode", mode).Int("attempt", attempt).Msg("fetch picks retrying")
			return serr
		}
		body = resp.Body()
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = f.maxElapsed
	if f.initial > 0 {
		b.InitialInterval = f.initial
	}
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("fetch picks %s: %w", mode, err)
	}

	picks, err := decodePicks(body)
	if err != nil {
		return nil, fmt.Errorf("decode picks %s: %w", mode, err)
	}
	return picks, nil
}

// decodePicks accepts either a bare JSON array or an object wrapping the
// array under "data" or "picks".
func decodePicks(body []byte) ([]model.Pick, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}
	if body[0] == '[' {
		var picks []model.Pick
		if err := json.Unmarshal(body, &picks); err != nil {
			return nil, err
		}
		return picks, nil
	}
	var wrapped struct {
		Data  []model.Pick `json:"data"`
		Picks []model.Pick `json:"picks"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Data != nil {
		return wrapped.Data, nil
	}
	return wrapped.Picks, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
