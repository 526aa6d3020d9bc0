// Package interfaces defines service contracts for folio
package interfaces

import (
	"context"

	"github.com/shopspring/decimal"
)

// QuoteProvider is one source of live prices and company names. Providers are
// tried in priority order by the quote gateway; the engine never sees
// provider identity.
type QuoteProvider interface {
	// Name returns the provider identifier (e.g. "finnhub").
	Name() string

	// FetchPrice retrieves the current price for a ticker.
	FetchPrice(ctx context.Context, ticker string) (decimal.Decimal, error)

	// FetchCompanyName retrieves the company name for a ticker.
	FetchCompanyName(ctx context.Context, ticker string) (string, error)
}

// QuoteGateway combines providers behind a single fetch capability with
// fallback. Callers only observe the combined success/failure result.
type QuoteGateway interface {
	FetchPrice(ctx context.Context, ticker string) (decimal.Decimal, error)
	FetchCompanyName(ctx context.Context, ticker string) (string, error)
}

// AssistantClient generates text from a prompt.
type AssistantClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
