// Package models defines data structures for folio
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseDateLayout is the calendar date format used for purchase dates.
// An empty string means no purchase date has been set.
const PurchaseDateLayout = "2006-01-02"

// NormalizeTicker upper-cases and trims a ticker symbol. Tickers are compared
// in normalized form everywhere.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(ticker), " ", ""))
}

// Holding represents one tracked position in the portfolio.
type Holding struct {
	Ticker        string           `json:"ticker"`
	AllocationPct decimal.Decimal  `json:"allocation_pct"` // intended % of total investment, 0–100, advisory
	Shares        decimal.Decimal  `json:"shares"`
	PurchasePrice *decimal.Decimal `json:"purchase_price,omitempty"` // per-share cost, nil until set
	PurchaseDate  string           `json:"purchase_date,omitempty"`  // YYYY-MM-DD, empty until set
	CurrentPrice  *decimal.Decimal `json:"current_price,omitempty"`  // nil until first successful refresh
	CompanyName   string           `json:"company_name,omitempty"`   // cached, fetched once
}

// CurrentValue returns shares × current price, or zero when unpriced.
func (h *Holding) CurrentValue() decimal.Decimal {
	if h.CurrentPrice == nil {
		return decimal.Zero
	}
	return h.Shares.Mul(*h.CurrentPrice)
}

// CostBasis returns shares × purchase price, or zero when no purchase price
// has been set.
func (h *Holding) CostBasis() decimal.Decimal {
	if h.PurchasePrice == nil {
		return decimal.Zero
	}
	return h.Shares.Mul(*h.PurchasePrice)
}

// PL returns the absolute profit/loss: current value minus cost basis.
func (h *Holding) PL() decimal.Decimal {
	return h.CurrentValue().Sub(h.CostBasis())
}

// PLPct returns profit/loss as a fraction of cost basis. Zero when the cost
// basis is zero.
func (h *Holding) PLPct() decimal.Decimal {
	basis := h.CostBasis()
	if basis.IsZero() {
		return decimal.Zero
	}
	return h.PL().Div(basis)
}

// DaysOwned returns whole days since the purchase date, or -1 when the date
// is unset or malformed.
func (h *Holding) DaysOwned(now time.Time) int {
	if h.PurchaseDate == "" {
		return -1
	}
	t, err := time.Parse(PurchaseDateLayout, h.PurchaseDate)
	if err != nil {
		return -1
	}
	return int(now.Sub(t).Hours() / 24)
}

// Clone returns a deep copy of the holding.
func (h *Holding) Clone() Holding {
	c := *h
	if h.PurchasePrice != nil {
		v := *h.PurchasePrice
		c.PurchasePrice = &v
	}
	if h.CurrentPrice != nil {
		v := *h.CurrentPrice
		c.CurrentPrice = &v
	}
	return c
}

// AssistantEntry stores the per-ticker assistant prompt and the last answer
// it produced.
type AssistantEntry struct {
	Prompt     string    `json:"prompt"`
	LastAnswer string    `json:"last_answer,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// Portfolio is the aggregate holdings state. It is owned exclusively by the
// portfolio engine; no other component holds a mutable reference.
type Portfolio struct {
	TotalInvestment decimal.Decimal           `json:"total_investment"`
	Holdings        []Holding                 `json:"holdings"` // insertion order = display order
	Description     string                    `json:"description,omitempty"`
	AssistantState  map[string]AssistantEntry `json:"assistant_state,omitempty"` // keyed by normalized ticker
	Credentials     map[string]string         `json:"credentials,omitempty"`     // provider name -> API key
	UpdatedAt       time.Time                 `json:"updated_at,omitempty"`
}

// NewPortfolio returns an empty portfolio.
func NewPortfolio() *Portfolio {
	return &Portfolio{}
}

// FindHolding returns the holding for a ticker and its index, or nil and -1.
// Lookup is case-insensitive.
func (p *Portfolio) FindHolding(ticker string) (*Holding, int) {
	key := NormalizeTicker(ticker)
	for i := range p.Holdings {
		if p.Holdings[i].Ticker == key {
			return &p.Holdings[i], i
		}
	}
	return nil, -1
}

// HasTicker reports whether the portfolio contains a ticker (case-insensitive).
func (p *Portfolio) HasTicker(ticker string) bool {
	h, _ := p.FindHolding(ticker)
	return h != nil
}

// Tickers returns the portfolio's tickers in display order.
func (p *Portfolio) Tickers() []string {
	out := make([]string, len(p.Holdings))
	for i := range p.Holdings {
		out[i] = p.Holdings[i].Ticker
	}
	return out
}

// Clone returns a deep copy of the portfolio, safe to hand to readers.
func (p *Portfolio) Clone() *Portfolio {
	c := &Portfolio{
		TotalInvestment: p.TotalInvestment,
		Description:     p.Description,
		UpdatedAt:       p.UpdatedAt,
	}
	if p.Holdings != nil {
		c.Holdings = make([]Holding, len(p.Holdings))
		for i := range p.Holdings {
			c.Holdings[i] = p.Holdings[i].Clone()
		}
	}
	if p.AssistantState != nil {
		c.AssistantState = make(map[string]AssistantEntry, len(p.AssistantState))
		for k, v := range p.AssistantState {
			c.AssistantState[k] = v
		}
	}
	if p.Credentials != nil {
		c.Credentials = make(map[string]string, len(p.Credentials))
		for k, v := range p.Credentials {
			c.Credentials[k] = v
		}
	}
	return c
}
