package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"streamgate/internal/core/ports"
	"streamgate/pkg/circuitbreaker"
)

// Client is the single outbound HTTP client shared by the playback proxy and
// the health prober, so the transport's connection limits bound both. Proxy
// fetches run through a per-host circuit breaker; an open circuit surfaces as
// a fetch error. Probes bypass the breakers because a health check must always
// reach the origin to report its real state.
type Client struct {
	httpClient *http.Client
	userAgent  string

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.CircuitBreaker
}

type Options struct {
	Timeout         time.Duration
	UserAgent       string
	MaxIdleConns    int
	MaxConnsPerHost int
}

func NewClient(opts Options) ports.UpstreamFetcher {
	transport := &http.Transport{
		MaxIdleConns:          opts.MaxIdleConns,
		MaxIdleConnsPerHost:   opts.MaxConnsPerHost,
		MaxConnsPerHost:       opts.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: opts.Timeout,
		TLSHandshakeTimeout:   10 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			// No client-level timeout: segment bodies stream past the
			// response-header deadline and are bounded by the request context.
		},
		userAgent: opts.UserAgent,
		breakers:  make(map[string]*circuitbreaker.CircuitBreaker),
	}
}

func (c *Client) Fetch(ctx context.Context, rawURL string) (*http.Response, error) {
	breaker := c.breakerFor(rawURL)
	if breaker == nil {
		return c.do(ctx, http.MethodGet, rawURL)
	}

	result, err := breaker.ExecuteWithResult(ctx, func() (interface{}, error) {
		return c.do(ctx, http.MethodGet, rawURL)
	})
	if err != nil {
		return nil, err
	}
	return result.(*http.Response), nil
}

func (c *Client) Head(ctx context.Context, rawURL string) (*http.Response, error) {
	return c.do(ctx, http.MethodHead, rawURL)
}

func (c *Client) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}

	c.setBrowserHeaders(req, rawURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	return resp, nil
}

func (c *Client) breakerFor(rawURL string) *circuitbreaker.CircuitBreaker {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	breaker, exists := c.breakers[parsed.Host]
	if !exists {
		breaker = circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold:    10,
			SuccessThreshold:    2,
			Timeout:             15 * time.Second,
			MaxRequestsHalfOpen: 3,
		})
		c.breakers[parsed.Host] = breaker
	}
	return breaker
}

// setBrowserHeaders makes the gateway look like a regular browser player.
// Origin servers commonly reject requests without a plausible UA and referer.
func (c *Client) setBrowserHeaders(req *http.Request, rawURL string) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	if parsed, err := url.Parse(rawURL); err == nil && parsed.Scheme != "" && parsed.Host != "" {
		origin := parsed.Scheme + "://" + parsed.Host
		req.Header.Set("Origin", origin)
		req.Header.Set("Referer", origin+"/")
	}
}
