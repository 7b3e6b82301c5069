// Package linkcheck verifies that the URLs and DOIs in a collection resolve.
package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/matsen/bibpage/internal/record"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default per-request timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultRateLimit is the default number of requests per second.
	DefaultRateLimit = 5.0

	// DefaultConcurrency is the default number of links checked at once.
	DefaultConcurrency = 4

	// DefaultUserAgent identifies link check requests.
	DefaultUserAgent = "bibpage-linkcheck/1.0"

	// DOIResolver is prefixed to bare DOIs.
	DOIResolver = "https://doi.org/"
)

// Target is one link taken from an entry.
type Target struct {
	Key   string `json:"key"`
	Field string `json:"field"` // "url" or "doi"
	URL   string `json:"url"`
}

// Result is the outcome of checking a Target.
type Result struct {
	Target
	Status int    `json:"status,omitempty"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// Client is a rate-limited HTTP link checker.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the requests per second. Zero or less disables limiting.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a link checker.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Targets collects the url and doi links of coll in collection order.
func Targets(coll record.Collection) []Target {
	var targets []Target
	for _, e := range coll {
		if u := strings.TrimSpace(record.Str(e.URL)); u != "" {
			targets = append(targets, Target{Key: e.Key, Field: "url", URL: u})
		}
		if d := strings.TrimSpace(record.Str(e.DOI)); d != "" {
			targets = append(targets, Target{Key: e.Key, Field: "doi", URL: doiLink(d)})
		}
	}
	return targets
}

func doiLink(doi string) string {
	if strings.HasPrefix(doi, "http://") || strings.HasPrefix(doi, "https://") {
		return doi
	}
	return DOIResolver + doi
}

// Check requests t.URL with HEAD, retrying with GET when the server
// rejects HEAD. Failures are reported in the Result, not as an error.
func (c *Client) Check(ctx context.Context, t Target) Result {
	res := Result{Target: t}

	status, err := c.do(ctx, http.MethodHead, t.URL)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = c.do(ctx, http.MethodGet, t.URL)
	}
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Status = status
	res.OK = status < 400
	if !res.OK {
		res.Error = fmt.Sprintf("HTTP %d", status)
	}
	return res
}

func (c *Client) do(ctx context.Context, method, url string) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	return resp.StatusCode, nil
}

// CheckAll checks targets with at most concurrency requests in flight.
// Results are in input order. The error is non-nil only when ctx ends early.
func (c *Client) CheckAll(ctx context.Context, targets []Target, concurrency int) ([]Result, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]Result, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, t := range targets {
		g.Go(func() error {
			results[i] = c.Check(gctx, t)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("checking links: %w", err)
	}
	return results, nil
}

// Failed returns the results that did not resolve.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.OK {
			failed = append(failed, r)
		}
	}
	return failed
}

// IsCanceled reports whether err came from context cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
