// Package finnhub provides a client for the Finnhub quote API
package finnhub

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/bgunnison/folio/internal/common"
	"github.com/bgunnison/folio/internal/interfaces"
	"github.com/bgunnison/folio/internal/models"
)

const (
	DefaultBaseURL   = "https://finnhub.io/api/v1"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 1 // requests per second (free tier: 60/min)
)

// Client implements the QuoteProvider interface against Finnhub.
type Client struct {
	http    *resty.Client
	apiKey  string
	logger  *common.Logger
	limiter *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.http.SetBaseURL(baseURL)
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.http.SetTimeout(timeout)
	}
}

// NewClient creates a new Finnhub client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		http:    resty.New().SetBaseURL(DefaultBaseURL).SetTimeout(DefaultTimeout),
		apiKey:  apiKey,
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name returns the provider identifier.
func (c *Client) Name() string { return "finnhub" }

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Finnhub API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params map[string]string, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	c.logger.Debug().Str("endpoint", path).Msg("Finnhub API request")

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("token", c.apiKey).
		SetResult(result).
		Get(path)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.IsError() {
		apiErr := &APIError{
			StatusCode: resp.StatusCode(),
			Message:    resp.String(),
			Endpoint:   path,
		}
		if resp.StatusCode() == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %v", models.ErrRateLimited, apiErr)
		}
		return apiErr
	}

	return nil
}

// quoteResponse is the /quote payload. "c" is the current price; zero means
// no data for the symbol.
type quoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePct     float64 `json:"dp"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// FetchPrice retrieves the current price for a ticker.
func (c *Client) FetchPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	var quote quoteResponse
	params := map[string]string{"symbol": models.NormalizeTicker(ticker)}
	if err := c.get(ctx, "/quote", params, &quote); err != nil {
		return decimal.Zero, err
	}

	if quote.Current <= 0 {
		return decimal.Zero, fmt.Errorf("no price available for %s", ticker)
	}
	return decimal.NewFromFloat(quote.Current), nil
}

// profileResponse is the /stock/profile2 payload.
type profileResponse struct {
	Name     string `json:"name"`
	Ticker   string `json:"ticker"`
	Exchange string `json:"exchange"`
}

// FetchCompanyName retrieves the company name for a ticker.
func (c *Client) FetchCompanyName(ctx context.Context, ticker string) (string, error) {
	var profile profileResponse
	params := map[string]string{"symbol": models.NormalizeTicker(ticker)}
	if err := c.get(ctx, "/stock/profile2", params, &profile); err != nil {
		return "", err
	}

	if profile.Name == "" {
		return "", fmt.Errorf("no company name available for %s", ticker)
	}
	return profile.Name, nil
}

// Ensure Client implements QuoteProvider
var _ interfaces.QuoteProvider = (*Client)(nil)
