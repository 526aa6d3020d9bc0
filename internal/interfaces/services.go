package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/bgunnison/folio/internal/models"
)

// PortfolioEngine is the single source of truth for holdings state. All
// mutations persist the portfolio before returning.
type PortfolioEngine interface {
	// Load reads the persisted portfolio at startup, default-constructing an
	// empty one when no file exists. Corrupt data is surfaced, never discarded.
	Load(ctx context.Context) error

	// AddHolding inserts a new holding with zero shares and no price.
	AddHolding(ctx context.Context, ticker string, allocationPct decimal.Decimal) error

	// RemoveHolding removes a holding by ticker.
	RemoveHolding(ctx context.Context, ticker string) error

	// UpdateHolding applies a partial update to a holding.
	UpdateHolding(ctx context.Context, ticker string, update HoldingUpdate) error

	// Initialize seeds the portfolio from allocation percentages, deriving
	// share counts from purchase or live prices.
	Initialize(ctx context.Context, totalInvestment decimal.Decimal, entries []InitEntry) error

	// Refresh runs one refresh cycle: fetch prices, recompute aggregates,
	// append snapshots, persist. Returns models.ErrRefreshFailed when every
	// fetch failed; nothing is appended or persisted in that case.
	Refresh(ctx context.Context) (*models.RefreshResult, error)

	// Aggregate computes portfolio-level totals from current holdings.
	Aggregate() models.Aggregate

	// GetPortfolio returns a copy of the current state for readers.
	GetPortfolio() *models.Portfolio

	// SetDescription stores the free-text strategy description.
	SetDescription(ctx context.Context, text string) error

	// SetCredential stores an API credential under a provider name.
	SetCredential(ctx context.Context, provider, secret string) error
}

// HoldingUpdate is a partial update; nil fields are left unchanged.
type HoldingUpdate struct {
	AllocationPct *decimal.Decimal
	Shares        *decimal.Decimal
	PurchasePrice *decimal.Decimal
	PurchaseDate  *string // YYYY-MM-DD, empty string clears the date
}

// InitEntry is one row of a portfolio initialization request.
type InitEntry struct {
	Ticker        string
	AllocationPct decimal.Decimal
	PurchasePrice *decimal.Decimal // manual price preferred over a live fetch
	PurchaseDate  string
}

// AssistantStateStore is the slice of the portfolio engine the assistant
// service needs: reading current state and persisting per-ticker entries.
type AssistantStateStore interface {
	GetPortfolio() *models.Portfolio
	SetAssistantEntry(ctx context.Context, ticker string, entry models.AssistantEntry) error
}

// AssistantService stores per-ticker prompts and answers and drives the
// text-generation client.
type AssistantService interface {
	// Ask saves the prompt, generates an answer, stores it, and returns it.
	// The prompt is retained even when generation fails.
	Ask(ctx context.Context, ticker, prompt string) (string, error)

	// SavePrompt stores the prompt for a ticker without generating.
	SavePrompt(ctx context.Context, ticker, prompt string) error

	// State returns the stored prompt/answer for a ticker, if any.
	State(ticker string) (models.AssistantEntry, bool)
}
