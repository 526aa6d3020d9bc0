// Package portfolio implements the holdings engine, the single owner of
// portfolio state. All mutations happen under its lock and persist before
// returning.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bgunnison/folio/internal/common"
	"github.com/bgunnison/folio/internal/interfaces"
	"github.com/bgunnison/folio/internal/models"
)

var oneHundred = decimal.NewFromInt(100)

// Engine implements the PortfolioEngine interface.
type Engine struct {
	storage interfaces.StorageManager
	gateway interfaces.QuoteGateway
	logger  *common.Logger
	now     func() time.Time // injectable clock for testing

	mu        sync.RWMutex
	portfolio *models.Portfolio
}

// NewEngine creates a portfolio engine. Call Load before use.
func NewEngine(storage interfaces.StorageManager, gateway interfaces.QuoteGateway, logger *common.Logger) *Engine {
	return &Engine{
		storage:   storage,
		gateway:   gateway,
		logger:    logger,
		now:       time.Now,
		portfolio: models.NewPortfolio(),
	}
}

// Load reads the persisted portfolio. A missing file yields an empty
// portfolio; corrupt data is surfaced so the operator can recover the backup.
func (e *Engine) Load(ctx context.Context) error {
	p, err := e.storage.ConfigStore().Load()
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			e.logger.Info().Msg("No portfolio file found, starting empty")
			e.mu.Lock()
			e.portfolio = models.NewPortfolio()
			e.mu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to load portfolio: %w", err)
	}

	e.mu.Lock()
	e.portfolio = p
	e.mu.Unlock()

	e.logger.Info().Int("holdings", len(p.Holdings)).Msg("Portfolio loaded")
	return nil
}

// persistLocked writes the current state. Callers must hold the write lock.
func (e *Engine) persistLocked() error {
	e.portfolio.UpdatedAt = e.now()
	if err := e.storage.ConfigStore().Save(e.portfolio); err != nil {
		return fmt.Errorf("failed to persist portfolio: %w", err)
	}
	return nil
}

func validateAllocation(pct decimal.Decimal) error {
	if pct.Sign() < 0 || pct.GreaterThan(oneHundred) {
		return &models.ValidationError{Field: "allocation_pct", Reason: "must be between 0 and 100"}
	}
	return nil
}

func validatePurchaseDate(date string) error {
	if date == "" {
		return nil
	}
	if _, err := time.Parse(models.PurchaseDateLayout, date); err != nil {
		return &models.ValidationError{Field: "purchase_date", Reason: "must be YYYY-MM-DD"}
	}
	return nil
}

// AddHolding inserts a new holding with zero shares and no prices.
func (e *Engine) AddHolding(ctx context.Context, ticker string, allocationPct decimal.Decimal) error {
	key := models.NormalizeTicker(ticker)
	if key == "" {
		return &models.ValidationError{Field: "ticker", Reason: "must not be empty"}
	}
	if err := validateAllocation(allocationPct); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.portfolio.HasTicker(key) {
		return fmt.Errorf("%s: %w", key, models.ErrDuplicateTicker)
	}

	e.portfolio.Holdings = append(e.portfolio.Holdings, models.Holding{
		Ticker:        key,
		AllocationPct: allocationPct,
	})

	if err := e.persistLocked(); err != nil {
		// Roll back the in-memory append so state matches disk.
		e.portfolio.Holdings = e.portfolio.Holdings[:len(e.portfolio.Holdings)-1]
		return err
	}

	e.logger.Info().Str("ticker", key).Str("allocation_pct", allocationPct.String()).Msg("Holding added")
	return nil
}

// RemoveHolding removes a holding and its assistant state.
func (e *Engine) RemoveHolding(ctx context.Context, ticker string) error {
	key := models.NormalizeTicker(ticker)

	e.mu.Lock()
	defer e.mu.Unlock()

	_, idx := e.portfolio.FindHolding(key)
	if idx < 0 {
		return fmt.Errorf("%s: %w", key, models.ErrNotFound)
	}

	removed := e.portfolio.Holdings[idx]
	e.portfolio.Holdings = append(e.portfolio.Holdings[:idx], e.portfolio.Holdings[idx+1:]...)
	var removedEntry models.AssistantEntry
	var hadEntry bool
	if e.portfolio.AssistantState != nil {
		removedEntry, hadEntry = e.portfolio.AssistantState[key]
		delete(e.portfolio.AssistantState, key)
	}

	if err := e.persistLocked(); err != nil {
		e.portfolio.Holdings = append(e.portfolio.Holdings[:idx], append([]models.Holding{removed}, e.portfolio.Holdings[idx:]...)...)
		if hadEntry {
			e.portfolio.AssistantState[key] = removedEntry
		}
		return err
	}

	e.logger.Info().Str("ticker", key).Msg("Holding removed")
	return nil
}

// UpdateHolding applies a partial update. Nil fields are left unchanged.
func (e *Engine) UpdateHolding(ctx context.Context, ticker string, update interfaces.HoldingUpdate) error {
	key := models.NormalizeTicker(ticker)

	if update.AllocationPct != nil {
		if err := validateAllocation(*update.AllocationPct); err != nil {
			return err
		}
	}
	if update.Shares != nil && update.Shares.Sign() < 0 {
		return &models.ValidationError{Field: "shares", Reason: "must not be negative"}
	}
	if update.PurchasePrice != nil && update.PurchasePrice.Sign() < 0 {
		return &models.ValidationError{Field: "purchase_price", Reason: "must not be negative"}
	}
	if update.PurchaseDate != nil {
		if err := validatePurchaseDate(*update.PurchaseDate); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	h, idx := e.portfolio.FindHolding(key)
	if idx < 0 {
		return fmt.Errorf("%s: %w", key, models.ErrNotFound)
	}

	prev := h.Clone()
	if update.AllocationPct != nil {
		h.AllocationPct = *update.AllocationPct
	}
	if update.Shares != nil {
		h.Shares = *update.Shares
	}
	if update.PurchasePrice != nil {
		v := *update.PurchasePrice
		h.PurchasePrice = &v
	}
	if update.PurchaseDate != nil {
		h.PurchaseDate = *update.PurchaseDate
	}

	if err := e.persistLocked(); err != nil {
		e.portfolio.Holdings[idx] = prev
		return err
	}

	e.logger.Info().Str("ticker", key).Msg("Holding updated")
	return nil
}

// Initialize seeds share counts from allocation percentages. Each entry gets
// shares = (allocation% of total investment) / price, where the price is the
// manual purchase price when given, otherwise a live fetch. Entries replace
// any existing holdings with the same tickers.
func (e *Engine) Initialize(ctx context.Context, totalInvestment decimal.Decimal, entries []interfaces.InitEntry) error {
	if totalInvestment.Sign() <= 0 {
		return &models.ValidationError{Field: "total_investment", Reason: "must be positive"}
	}

	holdings := make([]models.Holding, 0, len(entries))
	seen := make(map[string]bool, len(entries))

	for _, entry := range entries {
		key := models.NormalizeTicker(entry.Ticker)
		if key == "" {
			return &models.ValidationError{Field: "ticker", Reason: "must not be empty"}
		}
		if seen[key] {
			return fmt.Errorf("%s: %w", key, models.ErrDuplicateTicker)
		}
		seen[key] = true
		if err := validateAllocation(entry.AllocationPct); err != nil {
			return err
		}
		if err := validatePurchaseDate(entry.PurchaseDate); err != nil {
			return err
		}

		var price decimal.Decimal
		if entry.PurchasePrice != nil && entry.PurchasePrice.Sign() > 0 {
			price = *entry.PurchasePrice
		} else {
			fetched, err := e.gateway.FetchPrice(ctx, key)
			if err != nil {
				return fmt.Errorf("failed to price %s for initialization: %w", key, err)
			}
			price = fetched
		}
		if price.Sign() <= 0 {
			return &models.ValidationError{Field: "purchase_price", Reason: "must be positive"}
		}

		allocated := totalInvestment.Mul(entry.AllocationPct).Div(oneHundred)
		shares := allocated.Div(price)

		holdings = append(holdings, models.Holding{
			Ticker:        key,
			AllocationPct: entry.AllocationPct,
			Shares:        shares,
			PurchasePrice: &price,
			PurchaseDate:  entry.PurchaseDate,
		})
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	prevInvestment := e.portfolio.TotalInvestment
	prevHoldings := e.portfolio.Holdings
	e.portfolio.TotalInvestment = totalInvestment
	e.portfolio.Holdings = holdings

	if err := e.persistLocked(); err != nil {
		e.portfolio.TotalInvestment = prevInvestment
		e.portfolio.Holdings = prevHoldings
		return err
	}

	e.logger.Info().
		Str("total_investment", totalInvestment.String()).
		Int("holdings", len(holdings)).
		Msg("Portfolio initialized")
	return nil
}

// priceUpdate is the result of one ticker fetch within a refresh cycle.
type priceUpdate struct {
	ticker      string
	price       decimal.Decimal
	companyName string // empty when not fetched or fetch failed
	err         error
}

// Refresh runs one refresh cycle. Prices are fetched without holding the
// engine lock; the results are applied as a single atomic pass under the
// write lock. When every fetch fails, state, logs, and the portfolio file are
// all left untouched and ErrRefreshFailed is returned.
func (e *Engine) Refresh(ctx context.Context) (*models.RefreshResult, error) {
	e.mu.RLock()
	type target struct {
		ticker    string
		needsName bool
	}
	targets := make([]target, len(e.portfolio.Holdings))
	for i := range e.portfolio.Holdings {
		h := &e.portfolio.Holdings[i]
		targets[i] = target{
			ticker:    h.Ticker,
			needsName: h.CompanyName == "" || h.CompanyName == h.Ticker,
		}
	}
	e.mu.RUnlock()

	result := &models.RefreshResult{
		StartedAt: e.now(),
		Failures:  make(map[string]string),
	}

	if len(targets) == 0 {
		result.CompletedAt = e.now()
		return result, nil
	}

	updates := make([]priceUpdate, 0, len(targets))
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		u := priceUpdate{ticker: t.ticker}
		price, err := e.gateway.FetchPrice(ctx, t.ticker)
		if err != nil {
			u.err = err
			e.logger.Warn().Err(err).Str("ticker", t.ticker).Msg("Price fetch failed")
		} else {
			u.price = price
			if t.needsName {
				if name, nameErr := e.gateway.FetchCompanyName(ctx, t.ticker); nameErr == nil {
					u.companyName = name
				}
			}
		}
		updates = append(updates, u)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	timestamp := e.now()
	var snapshots []models.Snapshot

	for _, u := range updates {
		if u.err != nil {
			result.Failed++
			result.Failures[u.ticker] = u.err.Error()
			continue
		}
		h, idx := e.portfolio.FindHolding(u.ticker)
		if idx < 0 {
			// Removed mid-cycle; nothing to apply.
			continue
		}
		price := u.price
		h.CurrentPrice = &price
		if u.companyName != "" {
			h.CompanyName = u.companyName
		}
		result.Succeeded++

		snapshots = append(snapshots, models.Snapshot{
			Timestamp:    timestamp,
			Ticker:       h.Ticker,
			CurrentPrice: price,
			Shares:       h.Shares,
			PL:           h.PL(),
			PLPct:        h.PLPct(),
		})
	}

	result.CompletedAt = e.now()

	if result.AllFailed() {
		e.logger.Error().Int("failed", result.Failed).Msg("Refresh cycle failed for every ticker")
		return result, models.ErrRefreshFailed
	}

	agg := e.aggregateLocked()

	for _, snap := range snapshots {
		if err := e.storage.SnapshotStore().AppendSnapshot(snap); err != nil {
			e.logger.Error().Err(err).Str("ticker", snap.Ticker).Msg("Failed to append snapshot")
		}
	}
	totals := models.TotalsSnapshot{
		Timestamp:  timestamp,
		TotalValue: agg.TotalValue,
		TotalPL:    agg.TotalPL,
		TotalPLPct: agg.TotalPLPct,
	}
	if err := e.storage.SnapshotStore().AppendTotals(totals); err != nil {
		e.logger.Error().Err(err).Msg("Failed to append totals snapshot")
	}

	if err := e.persistLocked(); err != nil {
		return result, err
	}

	e.logger.Info().
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Str("total_value", agg.TotalValue.String()).
		Msg("Refresh cycle completed")
	return result, nil
}

// aggregateLocked computes totals. Callers must hold at least the read lock.
func (e *Engine) aggregateLocked() models.Aggregate {
	var agg models.Aggregate
	var costBasis decimal.Decimal

	for i := range e.portfolio.Holdings {
		h := &e.portfolio.Holdings[i]
		agg.TotalValue = agg.TotalValue.Add(h.CurrentValue())
		agg.TotalPL = agg.TotalPL.Add(h.PL())
		costBasis = costBasis.Add(h.CostBasis())
	}

	denom := e.portfolio.TotalInvestment
	if denom.Sign() <= 0 {
		denom = costBasis
	}
	if denom.Sign() > 0 {
		agg.TotalPLPct = agg.TotalPL.Div(denom)
	}
	return agg
}

// Aggregate computes portfolio-level totals from current holdings.
func (e *Engine) Aggregate() models.Aggregate {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.aggregateLocked()
}

// GetPortfolio returns a deep copy safe for readers.
func (e *Engine) GetPortfolio() *models.Portfolio {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.portfolio.Clone()
}

// SetDescription stores the strategy description.
func (e *Engine) SetDescription(ctx context.Context, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.portfolio.Description
	e.portfolio.Description = text
	if err := e.persistLocked(); err != nil {
		e.portfolio.Description = prev
		return err
	}
	return nil
}

// SetCredential stores an API credential under a provider name.
func (e *Engine) SetCredential(ctx context.Context, provider, secret string) error {
	if provider == "" {
		return &models.ValidationError{Field: "provider", Reason: "must not be empty"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.portfolio.Credentials == nil {
		e.portfolio.Credentials = make(map[string]string)
	}
	prev, had := e.portfolio.Credentials[provider]
	e.portfolio.Credentials[provider] = secret
	if err := e.persistLocked(); err != nil {
		if had {
			e.portfolio.Credentials[provider] = prev
		} else {
			delete(e.portfolio.Credentials, provider)
		}
		return err
	}
	return nil
}

// SetAssistantEntry stores assistant state for a ticker and persists.
// Used by the assistant service, which does not own portfolio state.
func (e *Engine) SetAssistantEntry(ctx context.Context, ticker string, entry models.AssistantEntry) error {
	key := models.NormalizeTicker(ticker)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.portfolio.AssistantState == nil {
		e.portfolio.AssistantState = make(map[string]models.AssistantEntry)
	}
	prev, had := e.portfolio.AssistantState[key]
	e.portfolio.AssistantState[key] = entry
	if err := e.persistLocked(); err != nil {
		if had {
			e.portfolio.AssistantState[key] = prev
		} else {
			delete(e.portfolio.AssistantState, key)
		}
		return err
	}
	return nil
}

// Ensure Engine implements PortfolioEngine
var _ interfaces.PortfolioEngine = (*Engine)(nil)
