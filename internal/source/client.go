package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"msecli/internal/config"
	apperrors "msecli/internal/errors"
)

// Client fetches pages from the exchange website
type Client struct {
	listingURL string
	historyURL string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger

	maxAttempts  int
	retryBackoff time.Duration
}

// ClientOption configures a Client
type ClientOption func(*Client)

// NewClient creates a client for the URLs in cfg
func NewClient(cfg config.SourceConfig, opts ...ClientOption) *Client {
	c := &Client{
		listingURL: cfg.ListingURL,
		historyURL: cfg.HistoryURL,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: config.DefaultHTTPTimeout,
		},
		limiter:      newLimiter(config.DefaultRateLimit),
		logger:       slog.Default(),
		maxAttempts:  config.DefaultMaxAttempts,
		retryBackoff: config.DefaultRetryBackoff,
	}

	if cfg.Timeout > 0 {
		c.httpClient.Timeout = cfg.Timeout
	}
	if cfg.MaxAttempts > 0 {
		c.maxAttempts = cfg.MaxAttempts
		c.retryBackoff = cfg.RetryBackoff
	}
	if cfg.RateLimit > 0 {
		c.limiter = newLimiter(cfg.RateLimit)
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the total number of attempts and the initial backoff
func WithRetries(maxAttempts int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the number of requests per second
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		c.limiter = newLimiter(requestsPerSecond)
	}
}

func newLimiter(requestsPerSecond float64) *rate.Limiter {
	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// doRequest performs one request. A non-nil form is sent URL-encoded.
func (c *Client) doRequest(ctx context.Context, method, target string, form url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.NewTransportError("rate limiter", err).WithContext("url", target)
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, apperrors.NewTransportError("create request", err).WithContext("url", target)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "text/html")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewTransportError("do request", err).WithContext("url", target)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, apperrors.NewHTTPStatusError(target, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewTransportError("read response", err).WithContext("url", target)
	}
	return data, nil
}

// doWithRetry performs a request with exponential backoff retry
func (c *Client) doWithRetry(ctx context.Context, method, target string, form url.Values) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			wait := jitter(backoff)
			c.logger.DebugContext(ctx, "retrying request",
				slog.Int("attempt", attempt),
				slog.Duration("backoff", wait),
				slog.String("url", target))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}

			backoff *= 2
		}

		body, err := c.doRequest(ctx, method, target, form)
		if err == nil {
			return body, nil
		}

		lastErr = err
		if ctx.Err() != nil || !isRetryable(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("giving up after %d attempts: %w", c.maxAttempts, lastErr)
}

// jitter spreads backoff over [backoff/2, 3*backoff/2)
func jitter(backoff time.Duration) time.Duration {
	if backoff <= 0 {
		return 0
	}
	return backoff/2 + time.Duration(rand.Int63n(int64(backoff)))
}

// isRetryable reports whether a failed request may succeed when repeated.
// Network errors carry no status code.
func isRetryable(err error) bool {
	if !apperrors.IsType(err, apperrors.ErrTypeTransport) {
		return false
	}
	status := apperrors.StatusCode(err)
	return status == 0 || status >= 500 || status == http.StatusTooManyRequests
}
