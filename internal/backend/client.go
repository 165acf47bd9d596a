package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/camuig/whale-dashboard/internal/config"
	"github.com/camuig/whale-dashboard/internal/logger"
	"github.com/camuig/whale-dashboard/internal/metrics"
)

const (
	EndpointAnalyze         = "analyze"
	EndpointWhaleTrades     = "whale_trades"
	EndpointRecentPositions = "recent_positions"

	maxResponseBytes = 32 << 20
)

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logger.Logger
}

// NewClient builds a client for the analytics backend. A zero timeout leaves
// requests unbounded; they then end only when their context does.
func NewClient(cfg *config.Config, log *logger.Logger) (*Client, error) {
	base, err := url.Parse(cfg.Backend.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}

	limit := rate.Inf
	if cfg.Backend.RateLimitPerSecond > 0 {
		limit = rate.Limit(cfg.Backend.RateLimitPerSecond)
	}
	burst := cfg.Backend.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: cfg.BackendTimeout()},
		limiter:    rate.NewLimiter(limit, burst),
		logger:     log,
	}, nil
}

// Analyze asks for every whale position in token.
func (c *Client) Analyze(ctx context.Context, token string) (*AnalyzeResponse, error) {
	var out AnalyzeResponse
	form := url.Values{"token": {token}}
	if err := c.do(ctx, http.MethodPost, EndpointAnalyze, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WhaleTrades asks for the trade history of one wallet.
func (c *Client) WhaleTrades(ctx context.Context, wallet string) (*WhaleTradesResponse, error) {
	var out WhaleTradesResponse
	form := url.Values{"wallet": {wallet}}
	if err := c.do(ctx, http.MethodPost, EndpointWhaleTrades, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecentPositions asks for the trailing 24h aggregates.
func (c *Client) RecentPositions(ctx context.Context) (*RecentPositionsResponse, error) {
	var out RecentPositionsResponse
	if err := c.do(ctx, http.MethodGet, EndpointRecentPositions, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type envelope interface {
	ErrorMessage() string
}

func (c *Client) do(ctx context.Context, method, endpoint string, form url.Values, out envelope) error {
	start := time.Now()
	outcome := metrics.OutcomeTransport
	defer func() {
		metrics.ObserveBackend(endpoint, outcome, time.Since(start))
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return &TransportError{Endpoint: endpoint, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(endpoint).String(), body)
	if err != nil {
		return &TransportError{Endpoint: endpoint, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Endpoint: endpoint, Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	c.logger.Debug("backend response",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"bytes", len(data),
		"duration_ms", math.Round(float64(time.Since(start).Microseconds())/1000),
	)

	decodeErr := json.Unmarshal(data, out)

	// an error field wins over the HTTP status
	if decodeErr == nil {
		if msg := out.ErrorMessage(); msg != "" {
			outcome = metrics.OutcomeDomain
			return &DomainError{Endpoint: endpoint, Message: msg}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Endpoint: endpoint, Status: resp.StatusCode, Err: errors.New("unexpected status")}
	}

	if decodeErr != nil {
		return &TransportError{Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", decodeErr)}
	}

	outcome = metrics.OutcomeOK
	return nil
}
