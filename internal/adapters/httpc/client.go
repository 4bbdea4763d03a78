// Package httpc provides the paced and retried HTTP client shared by the remote adapters
package httpc

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"golang.org/x/time/rate"

	perr "telewarehouse/internal/platform/errors"
	"telewarehouse/internal/platform/logger"
	strs "telewarehouse/internal/platform/strings"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUA        = "telewarehouse"
	defaultRetryBase = 500 * time.Millisecond
	defaultRetryMax  = 30 * time.Second
)

// Options configures the Client
type Options struct {
	// Name tags log lines, e.g. "tgpreview"
	Name      string
	UserAgent string
	Timeout   time.Duration

	// MaxRetries is retries after the first attempt, 0 disables retry
	MaxRetries int
	RetryBase  time.Duration
	RetryMax   time.Duration

	// RPS paces every attempt, <=0 means unlimited
	RPS   float64
	Burst int
}

// Client issues requests one attempt at a time through a limiter and a retry policy
type Client struct {
	http    *http.Client
	opts    Options
	limiter *rate.Limiter
	exec    failsafe.Executor[*http.Response]
	log     logger.Logger
}

// New creates a Client with sane defaults
func New(o Options) *Client {
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	if o.RetryMax < o.RetryBase {
		o.RetryMax = max(defaultRetryMax, o.RetryBase)
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
	lim := rate.NewLimiter(rate.Inf, o.Burst)
	if o.RPS > 0 {
		lim = rate.NewLimiter(rate.Limit(o.RPS), o.Burst)
	}

	c := &Client{
		http:    &http.Client{Timeout: o.Timeout},
		opts:    o,
		limiter: lim,
		log:     *logger.Named(o.Name),
	}

	//nolint:bodyclose // *http.Response is the generic result type here
	retry := retrypolicy.NewBuilder[*http.Response]().
		WithBackoff(o.RetryBase, o.RetryMax).
		WithMaxRetries(o.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(_ *http.Response, err error) bool { return ShouldRetry(err) }).
		Build()
	c.exec = failsafe.With(retry)
	return c
}

// Do runs newReq through the limiter and retry policy
// newReq is called per attempt so request bodies can be rebuilt
// the returned response always has a 2xx status and an open body
func (c *Client) Do(ctx context.Context, newReq func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	attempt := 0
	resp, err := c.exec.WithContext(ctx).Get(func() (*http.Response, error) {
		attempt++
		resp, err := c.attempt(ctx, newReq)
		if err != nil && ShouldRetry(err) && attempt <= c.opts.MaxRetries {
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("http transient failure retrying")
		}
		return resp, err
	})
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && !se.Transient() {
			return nil, perr.Wrapf(se, perr.ErrorCodeUpstream, "%s status %d", c.opts.Name, se.Status)
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeUpstream, "%s request failed", c.opts.Name)
	}
	return resp, nil
}

// attempt is one paced round trip
func (c *Client) attempt(ctx context.Context, newReq func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := newReq(ctx)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "new request failed")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	c.log.Debug().
		Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("http response")

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		_ = resp.Body.Close()
		return nil, &StatusError{Status: resp.StatusCode, Body: strs.Squash(string(body), 200)}
	}
	return resp, nil
}

// Get is Do for a plain GET
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	return c.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
}
