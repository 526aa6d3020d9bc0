// Package yahoo provides a Yahoo Finance quote provider. It is keyless and
// serves as the fallback of last resort.
package yahoo

import (
	"context"
	"fmt"

	"github.com/piquette/finance-go/equity"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"

	"github.com/bgunnison/folio/internal/common"
	"github.com/bgunnison/folio/internal/interfaces"
	"github.com/bgunnison/folio/internal/models"
)

// Client implements the QuoteProvider interface against Yahoo Finance.
type Client struct {
	logger *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Yahoo Finance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name returns the provider identifier.
func (c *Client) Name() string { return "yahoo" }

// FetchPrice retrieves the current price for a ticker.
func (c *Client) FetchPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	symbol := models.NormalizeTicker(ticker)
	c.logger.Debug().Str("symbol", symbol).Msg("Yahoo Finance quote request")

	q, err := quote.Get(symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch quote for %s: %w", ticker, err)
	}
	if q == nil || q.RegularMarketPrice <= 0 {
		return decimal.Zero, fmt.Errorf("no price available for %s", ticker)
	}
	return decimal.NewFromFloat(q.RegularMarketPrice), nil
}

// FetchCompanyName retrieves the company name for a ticker.
func (c *Client) FetchCompanyName(ctx context.Context, ticker string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	symbol := models.NormalizeTicker(ticker)
	q, err := equity.Get(symbol)
	if err != nil {
		return "", fmt.Errorf("failed to fetch profile for %s: %w", ticker, err)
	}
	if q == nil {
		return "", fmt.Errorf("no company name available for %s", ticker)
	}

	name := q.ShortName
	if name == "" {
		name = q.LongName
	}
	if name == "" {
		return "", fmt.Errorf("no company name available for %s", ticker)
	}
	return name, nil
}

// Ensure Client implements QuoteProvider
var _ interfaces.QuoteProvider = (*Client)(nil)
