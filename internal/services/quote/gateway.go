// Package quote provides a price gateway with ordered provider fallback
package quote

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bgunnison/folio/internal/common"
	"github.com/bgunnison/folio/internal/interfaces"
	"github.com/bgunnison/folio/internal/models"
)

// DefaultCooldown is how long a rate-limited provider is skipped before it
// is tried again.
const DefaultCooldown = 5 * time.Minute

// Gateway implements QuoteGateway over an ordered list of providers.
// A provider that reports rate limiting is placed in cooldown and skipped
// until the cooldown expires; the next provider in order is tried instead.
type Gateway struct {
	providers []interfaces.QuoteProvider
	cooldown  time.Duration
	logger    *common.Logger

	mu         sync.Mutex
	cooldownBy map[string]time.Time
	now        func() time.Time // injectable clock for testing
}

// GatewayOption configures the gateway
type GatewayOption func(*Gateway)

// WithCooldown sets the rate-limit cooldown period
func WithCooldown(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.cooldown = d
	}
}

// NewGateway creates a gateway over the given providers, tried in order.
func NewGateway(logger *common.Logger, providers []interfaces.QuoteProvider, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		providers:  providers,
		cooldown:   DefaultCooldown,
		logger:     logger,
		cooldownBy: make(map[string]time.Time),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// inCooldown reports whether a provider is currently skipped.
func (g *Gateway) inCooldown(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	until, ok := g.cooldownBy[name]
	if !ok {
		return false
	}
	if g.now().After(until) {
		delete(g.cooldownBy, name)
		return false
	}
	return true
}

func (g *Gateway) startCooldown(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cooldownBy[name] = g.now().Add(g.cooldown)
}

// FetchPrice tries each provider in order until one returns a price.
func (g *Gateway) FetchPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	var lastErr error

	for _, p := range g.providers {
		if g.inCooldown(p.Name()) {
			g.logger.Debug().Str("provider", p.Name()).Str("ticker", ticker).Msg("Provider in cooldown, skipping")
			continue
		}

		price, err := p.FetchPrice(ctx, ticker)
		if err == nil {
			return price, nil
		}
		lastErr = err

		if errors.Is(err, models.ErrRateLimited) {
			g.logger.Warn().Str("provider", p.Name()).Str("ticker", ticker).Msg("Provider rate limited, starting cooldown")
			g.startCooldown(p.Name())
		} else {
			g.logger.Warn().Err(err).Str("provider", p.Name()).Str("ticker", ticker).Msg("Provider failed, trying next")
		}

		if ctx.Err() != nil {
			return decimal.Zero, ctx.Err()
		}
	}

	return decimal.Zero, &models.FetchError{
		Ticker:      ticker,
		Provider:    "all",
		RateLimited: lastErr != nil && errors.Is(lastErr, models.ErrRateLimited),
		Err:         lastErr,
	}
}

// FetchCompanyName tries each provider in order until one returns a usable
// name. A name equal to the ticker symbol is treated as a miss so a later
// provider can supply the real name.
func (g *Gateway) FetchCompanyName(ctx context.Context, ticker string) (string, error) {
	var lastErr error
	symbol := models.NormalizeTicker(ticker)

	for _, p := range g.providers {
		if g.inCooldown(p.Name()) {
			continue
		}

		name, err := p.FetchCompanyName(ctx, ticker)
		if err == nil && name != "" && name != symbol {
			return name, nil
		}
		if err != nil {
			lastErr = err
			if errors.Is(err, models.ErrRateLimited) {
				g.startCooldown(p.Name())
			}
		}

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", &models.FetchError{
		Ticker:   ticker,
		Provider: "all",
		Err:      lastErr,
	}
}

// Ensure Gateway implements QuoteGateway
var _ interfaces.QuoteGateway = (*Gateway)(nil)
