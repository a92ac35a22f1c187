// Package client talks to a remote trust-source registry over HTTP.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"trustboard/internal/trustsource/models"
	"trustboard/pkg/platform/circuit"
	"trustboard/pkg/platform/sentinel"
)

// ErrCircuitOpen is returned without calling the registry while the breaker is open.
var ErrCircuitOpen = fmt.Errorf("registry circuit open: %w", sentinel.ErrUnavailable)

const maxResponseBytes = 4 << 20

// Client is a rate-limited, circuit-broken registry client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *circuit.Breaker
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps outbound calls at rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New constructs a registry client for baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Inf, 0),
		breaker:    circuit.New("trust-registry"),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sourcesResponse struct {
	Sources []models.Source `json:"sources"`
}

type recordsResponse struct {
	Records []models.Record `json:"records"`
}

// ListSources fetches an organization's sources, optionally narrowed to a category.
func (c *Client) ListSources(ctx context.Context, organizationID, category string) ([]models.Source, error) {
	u := fmt.Sprintf("%s/v1/organizations/%s/sources", c.baseURL, url.PathEscape(organizationID))
	if category != "" {
		u += "?" + url.Values{"category": {category}}.Encode()
	}
	var out sourcesResponse
	found, err := c.get(ctx, u, &out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return out.Sources, nil
}

// SearchRecords fetches the records in a source matching filter. An unknown
// source is reported as no records.
func (c *Client) SearchRecords(ctx context.Context, sourceID, filter string) ([]models.Record, error) {
	u := fmt.Sprintf("%s/v1/sources/%s/records?%s", c.baseURL, url.PathEscape(sourceID),
		url.Values{"q": {filter}}.Encode())
	var out recordsResponse
	found, err := c.get(ctx, u, &out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return out.Records, nil
}

// get performs a GET and decodes a 2xx body into dst. found is false on 404.
func (c *Client) get(ctx context.Context, u string, dst any) (found bool, err error) {
	if !c.breaker.Allow() {
		return false, ErrCircuitOpen
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("registry rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("build registry request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			c.recordFailure(ctx)
		}
		return false, fmt.Errorf("registry request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.recordSuccess(ctx)
		return false, nil
	case resp.StatusCode >= 500:
		c.recordFailure(ctx)
		return false, fmt.Errorf("registry returned %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	case resp.StatusCode >= 300:
		c.recordSuccess(ctx)
		return false, fmt.Errorf("registry returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(dst); err != nil {
		c.recordFailure(ctx)
		return false, fmt.Errorf("decode registry response: %w", errors.Join(sentinel.ErrCorrupted, err))
	}
	c.recordSuccess(ctx)
	return true, nil
}

func (c *Client) recordFailure(ctx context.Context) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "registry circuit opened", "breaker", c.breaker.Name())
	}
}

func (c *Client) recordSuccess(ctx context.Context) {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "registry circuit closed", "breaker", c.breaker.Name())
	}
}
