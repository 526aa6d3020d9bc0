// Package alphavantage provides a client for the Alpha Vantage quote API
package alphavantage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/bgunnison/folio/internal/common"
	"github.com/bgunnison/folio/internal/interfaces"
	"github.com/bgunnison/folio/internal/models"
)

const (
	DefaultBaseURL   = "https://www.alphavantage.co"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per minute on the free tier
)

// Client implements the QuoteProvider interface against Alpha Vantage.
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

// WithRateLimit sets the rate limit in requests per minute
func WithRateLimit(requestsPerMinute int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.http.SetTimeout(timeout)
	}
}

// NewClient creates a new Alpha Vantage client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		http:    resty.New().SetBaseURL(DefaultBaseURL).SetTimeout(DefaultTimeout),
		apiKey:  apiKey,
		limiter: rate.NewLimiter(rate.Every(time.Minute/DefaultRateLimit), 1),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name returns the provider identifier.
func (c *Client) Name() string { return "alphavantage" }

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Function   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Alpha Vantage API error: %s (status: %d, function: %s)", e.Message, e.StatusCode, e.Function)
}

// rateLimitEnvelope carries the out-of-band throttle fields Alpha Vantage
// returns with HTTP 200. A populated Note or Information means the request
// was rejected for rate limiting, not served.
type rateLimitEnvelope struct {
	Note        string `json:"Note"`
	Information string `json:"Information"`
}

func (r *rateLimitEnvelope) limited() bool {
	return r.Note != "" || r.Information != ""
}

// get performs a rate-limited GET against the /query endpoint
func (c *Client) get(ctx context.Context, function string, params map[string]string, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	c.logger.Debug().Str("function", function).Msg("Alpha Vantage API request")

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("function", function).
		SetQueryParam("apikey", c.apiKey).
		SetResult(result).
		Get("/query")
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.IsError() {
		return &APIError{
			StatusCode: resp.StatusCode(),
			Message:    resp.String(),
			Function:   function,
		}
	}

	return nil
}

// globalQuoteResponse is the GLOBAL_QUOTE payload. Prices arrive as strings.
type globalQuoteResponse struct {
	rateLimitEnvelope
	GlobalQuote struct {
		Symbol string `json:"01. symbol"`
		Price  string `json:"05. price"`
	} `json:"Global Quote"`
}

// FetchPrice retrieves the current price for a ticker.
func (c *Client) FetchPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	var quote globalQuoteResponse
	params := map[string]string{"symbol": models.NormalizeTicker(ticker)}
	if err := c.get(ctx, "GLOBAL_QUOTE", params, &quote); err != nil {
		return decimal.Zero, err
	}

	if quote.limited() {
		return decimal.Zero, fmt.Errorf("%w: %s", models.ErrRateLimited, firstNonEmpty(quote.Note, quote.Information))
	}
	if quote.GlobalQuote.Price == "" {
		return decimal.Zero, fmt.Errorf("no price available for %s", ticker)
	}

	price, err := decimal.NewFromString(quote.GlobalQuote.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse price %q for %s: %w", quote.GlobalQuote.Price, ticker, err)
	}
	if price.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("no price available for %s", ticker)
	}
	return price, nil
}

// overviewResponse is the OVERVIEW payload, reduced to the fields we use.
type overviewResponse struct {
	rateLimitEnvelope
	Symbol string `json:"Symbol"`
	Name   string `json:"Name"`
}

// FetchCompanyName retrieves the company name for a ticker.
func (c *Client) FetchCompanyName(ctx context.Context, ticker string) (string, error) {
	var overview overviewResponse
	params := map[string]string{"symbol": models.NormalizeTicker(ticker)}
	if err := c.get(ctx, "OVERVIEW", params, &overview); err != nil {
		return "", err
	}

	if overview.limited() {
		return "", fmt.Errorf("%w: %s", models.ErrRateLimited, firstNonEmpty(overview.Note, overview.Information))
	}
	if overview.Name == "" {
		return "", fmt.Errorf("no company name available for %s", ticker)
	}
	return overview.Name, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Ensure Client implements QuoteProvider
var _ interfaces.QuoteProvider = (*Client)(nil)
