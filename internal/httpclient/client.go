package httpclient

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/ternarybob/argus/internal/common"
)

// userAgents is the rotation pool; one is picked uniformly at random per
// request unless the caller supplies its own User-Agent header.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.2 Safari/605.1.15",
}

// ErrDecode indicates the response body could not be decoded as text/JSON
var ErrDecode = errors.New("response decode failed")

// StatusError is returned for non-2xx responses. Transient errors (5xx and
// 429/408) are retried; permanent ones (other 4xx) are not.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// Transient reports whether the status is worth retrying
func (e *StatusError) Transient() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return e.StatusCode >= 500
}

// Options customizes a single fetch
type Options struct {
	Headers          map[string]string
	Params           map[string]string
	EncodingOverride string        // charset label, e.g. "gbk"
	VerifyTLS        *bool         // nil → verify (default)
	MaxRetries       int           // 0 → client default
	Timeout          time.Duration // 0 → client default
	RequestDelay     time.Duration // per-host pacing override
}

// PageMeta describes the response a page came back with
type PageMeta struct {
	StatusCode  int
	ContentType string
	FinalURL    string
}

// hostLimiter serializes access per host: a semaphore bounds concurrency and
// the rate limiter enforces the minimum inter-request delay.
type hostLimiter struct {
	sem  *semaphore.Weighted
	rate *rate.Limiter
}

// Client is the shared fetching engine for all HTTP-based strategies
type Client struct {
	config     *common.CrawlerConfig
	standard   *http.Client
	insecure   *http.Client
	limitersMu sync.Mutex
	limiters   map[string]*hostLimiter
}

// New creates a client from crawler configuration
func New(cfg *common.CrawlerConfig) *Client {
	laxTLS := &tls.Config{
		InsecureSkipVerify: true,
		// Legacy government servers still negotiate old suites; the lax
		// client accepts them along with unverified chains.
		MinVersion: tls.VersionTLS10,
	}
	return &Client{
		config: cfg,
		standard: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		insecure: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				TLSClientConfig: laxTLS,
			},
		},
		limiters: make(map[string]*hostLimiter),
	}
}

func (c *Client) limiterFor(host string, delay time.Duration) *hostLimiter {
	c.limitersMu.Lock()
	defer c.limitersMu.Unlock()

	limiter, ok := c.limiters[host]
	if !ok {
		capacity := c.config.MaxConcurrentPerDomain
		if capacity < 1 {
			capacity = 1
		}
		limiter = &hostLimiter{
			sem:  semaphore.NewWeighted(int64(capacity)),
			rate: rate.NewLimiter(limitFor(delay), 1),
		}
		c.limiters[host] = limiter
	}
	// A per-source delay override retunes the shared host limiter
	if limit := limitFor(delay); limiter.rate.Limit() != limit {
		limiter.rate.SetLimit(limit)
	}
	return limiter
}

func limitFor(delay time.Duration) rate.Limit {
	if delay <= 0 {
		return rate.Inf
	}
	return rate.Every(delay)
}

// FetchPage fetches a URL with UA rotation, per-host pacing and retry, and
// returns the body decoded to UTF-8 text.
func (c *Client) FetchPage(ctx context.Context, rawURL string, opts Options) (string, *PageMeta, error) {
	body, meta, err := c.fetch(ctx, rawURL, opts)
	if err != nil {
		return "", meta, err
	}

	text, err := decodeText(body, meta.ContentType, opts.EncodingOverride)
	if err != nil {
		return "", meta, fmt.Errorf("%w: %s: %v", ErrDecode, rawURL, err)
	}
	return text, meta, nil
}

// FetchJSON fetches a JSON endpoint and unmarshals into v
func (c *Client) FetchJSON(ctx context.Context, rawURL string, opts Options, v any) error {
	if opts.Headers == nil {
		opts.Headers = map[string]string{}
	}
	if _, ok := opts.Headers["Accept"]; !ok {
		opts.Headers["Accept"] = "application/json"
	}

	body, _, err := c.fetch(ctx, rawURL, opts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, rawURL, err)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, rawURL string, opts Options) ([]byte, *PageMeta, error) {
	logger := common.GetLogger()

	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid URL %s: %w", rawURL, err)
	}
	if len(opts.Params) > 0 {
		query := target.Query()
		for k, v := range opts.Params {
			query.Set(k, v)
		}
		target.RawQuery = query.Encode()
	}

	delay := opts.RequestDelay
	if delay <= 0 {
		delay = c.config.RequestDelay
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = c.config.MaxRetries
	}

	limiter := c.limiterFor(target.Host, delay)
	if err := limiter.sem.Acquire(ctx, 1); err != nil {
		return nil, nil, err
	}
	defer limiter.sem.Release(1)

	if err := limiter.rate.Wait(ctx); err != nil {
		return nil, nil, err
	}

	httpClient := c.standard
	if opts.VerifyTLS != nil && !*opts.VerifyTLS {
		httpClient = c.insecure
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1))*time.Second +
				time.Duration(rand.Float64()*float64(time.Second))
			logger.Warn().
				Str("url", target.String()).
				Int("attempt", attempt+1).
				Int("max", maxRetries).
				Err(lastErr).
				Msg("Request failed, retrying")

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, nil, ctx.Err()
			case <-timer.C:
			}
		}

		body, meta, err := c.doRequest(ctx, httpClient, target.String(), opts)
		if err == nil {
			return body, meta, nil
		}
		lastErr = err

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Transient() {
			return nil, meta, err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, meta, err
		}
	}

	return nil, nil, fmt.Errorf("all %d attempts failed for %s: %w", maxRetries, target.String(), lastErr)
}

func (c *Client) doRequest(ctx context.Context, httpClient *http.Client, target string, opts Options) ([]byte, *PageMeta, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	meta := &PageMeta{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, meta, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	reader, err := decompressBody(resp.Body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, meta, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	maxBody := c.config.MaxBodySize
	if maxBody <= 0 {
		maxBody = 10 * 1024 * 1024
	}
	body, err := io.ReadAll(io.LimitReader(reader, maxBody))
	if err != nil {
		return nil, meta, err
	}
	return body, meta, nil
}

// decompressBody unwraps the content encoding. The transport only handles
// gzip transparently when it negotiated it itself, and our explicit
// Accept-Encoding disables that.
func decompressBody(body io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "br":
		return brotli.NewReader(body), nil
	case "gzip":
		return gzip.NewReader(body)
	case "deflate":
		return flate.NewReader(body), nil
	default:
		return body, nil
	}
}

// decodeText converts raw bytes to UTF-8, honoring an explicit charset
// override first, then the Content-Type charset, then UTF-8 as-is.
func decodeText(body []byte, contentType, override string) (string, error) {
	if override != "" {
		reader, err := charset.NewReaderLabel(override, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		decoded, err := io.ReadAll(reader)
		if err != nil {
			return "", err
		}
		return string(decoded), nil
	}

	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return string(body), nil
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return string(body), nil
	}
	return string(decoded), nil
}
