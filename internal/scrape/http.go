package scrape

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"

	"github.com/cookdex/cookdex/internal/resilience"
)

// HTTPOptions configures the page fetching client.
type HTTPOptions struct {
	UserAgent  string
	MaxRetries int
	// RatePerHost throttles requests per host; recipe sites are quick to
	// block crawlers that hammer them.
	RatePerHost rate.Limit
	RateBurst   int
	// MaxBodyBytes caps how much of a page is read. Zero means 8 MiB.
	MaxBodyBytes int64
}

// HTTPClient fetches pages with per-host rate limiting, retry with backoff,
// per-host failure gating and charset normalization to UTF-8.
type HTTPClient struct {
	client *http.Client
	opts   HTTPOptions
	policy resilience.Policy
	gate   *resilience.HostGate

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPClient creates an HTTPClient with the given options. Timeouts are
// governed by the caller's context, so the scheduler's per-fetch deadline is
// the only clock that matters.
func NewHTTPClient(opts HTTPOptions) *HTTPClient {
	if opts.UserAgent == "" {
		opts.UserAgent = "cookdex/1.0"
	}
	if opts.RatePerHost == 0 {
		opts.RatePerHost = 2
	}
	if opts.RateBurst == 0 {
		opts.RateBurst = 4
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = 8 << 20
	}
	policy := resilience.DefaultPolicy()
	if opts.MaxRetries > 0 {
		policy.Attempts = opts.MaxRetries + 1
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 4,
		MaxConnsPerHost:     8,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPClient{
		client:   &http.Client{Transport: transport},
		opts:     opts,
		policy:   policy,
		gate:     resilience.NewHostGate(5, 30*time.Second),
		limiters: make(map[string]*rate.Limiter),
	}
}

func (c *HTTPClient) limiterFor(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	lim, ok := c.limiters[host]
	if !ok {
		lim = rate.NewLimiter(c.opts.RatePerHost, c.opts.RateBurst)
		c.limiters[host] = lim
	}
	return lim
}

// Get fetches a page and returns its body decoded to UTF-8.
func (c *HTTPClient) Get(ctx context.Context, rawURL string) ([]byte, error) {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}
	if err := c.gate.Allow(host); err != nil {
		return nil, eris.Wrapf(err, "scrape: %s", host)
	}

	policy := c.policy
	policy.OnRetry = func(attempt int, err error) {
		zap.L().Debug("scrape: retrying request",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	body, err := resilience.Retry(ctx, policy, func(ctx context.Context) ([]byte, error) {
		return c.fetch(ctx, rawURL, host)
	})
	c.gate.Report(host, err)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: get %s", rawURL)
	}
	return body, nil
}

func (c *HTTPClient) fetch(ctx context.Context, rawURL, host string) ([]byte, error) {
	if err := c.limiterFor(host).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, &resilience.StatusError{Code: resp.StatusCode, URL: rawURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}

	return decodeCharset(body, resp.Header.Get("Content-Type"))
}

// decodeCharset converts a response body to UTF-8 using the charset declared
// in the Content-Type header. Unknown or missing charsets pass through
// unchanged, since most recipe sites serve UTF-8 anyway.
func decodeCharset(body []byte, contentType string) ([]byte, error) {
	if contentType == "" {
		return body, nil
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body, nil
	}
	name := strings.ToLower(params["charset"])
	if name == "" || name == "utf-8" || name == "utf8" {
		return body, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		zap.L().Debug("scrape: unknown charset, passing body through", zap.String("charset", name))
		return body, nil
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: decode charset %s", name)
	}
	return decoded, nil
}
