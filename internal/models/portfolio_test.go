package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTicker(t *testing.T) {
	assert.Equal(t, "AAPL", NormalizeTicker(" aapl "))
	assert.Equal(t, "BRK.B", NormalizeTicker("brk.b"))
	assert.Equal(t, "MSFT", NormalizeTicker("M S F T"))
	assert.Equal(t, "", NormalizeTicker("   "))
}

func TestHoldingDerivedValues(t *testing.T) {
	purchase := decimal.RequireFromString("5")
	current := decimal.RequireFromString("7")
	h := Holding{
		Ticker:        "AAPL",
		Shares:        decimal.RequireFromString("10"),
		PurchasePrice: &purchase,
		CurrentPrice:  &current,
	}

	assert.True(t, h.CurrentValue().Equal(decimal.RequireFromString("70")))
	assert.True(t, h.CostBasis().Equal(decimal.RequireFromString("50")))
	assert.True(t, h.PL().Equal(decimal.RequireFromString("20")))
	assert.True(t, h.PLPct().Equal(decimal.RequireFromString("0.4")))
}

func TestHoldingUnpricedIsZero(t *testing.T) {
	h := Holding{Ticker: "AAPL", Shares: decimal.RequireFromString("10")}

	assert.True(t, h.CurrentValue().IsZero())
	assert.True(t, h.CostBasis().IsZero())
	assert.True(t, h.PL().IsZero())
	// Zero cost basis must not divide.
	assert.True(t, h.PLPct().IsZero())
}

func TestPortfolioFindHoldingCaseInsensitive(t *testing.T) {
	p := Portfolio{Holdings: []Holding{{Ticker: "AAPL"}, {Ticker: "MSFT"}}}

	h, idx := p.FindHolding("msft")
	require.NotNil(t, h)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "MSFT", h.Ticker)

	h, idx = p.FindHolding("GOOG")
	assert.Nil(t, h)
	assert.Equal(t, -1, idx)
}

func TestPortfolioCloneIsDeep(t *testing.T) {
	price := decimal.RequireFromString("100")
	p := &Portfolio{
		TotalInvestment: decimal.RequireFromString("1000"),
		Holdings:        []Holding{{Ticker: "AAPL", PurchasePrice: &price}},
		AssistantState:  map[string]AssistantEntry{"AAPL": {Prompt: "hi"}},
		Credentials:     map[string]string{"finnhub": "key"},
	}

	c := p.Clone()
	c.Holdings[0].Ticker = "MUTATED"
	*c.Holdings[0].PurchasePrice = decimal.RequireFromString("999")
	c.AssistantState["AAPL"] = AssistantEntry{Prompt: "changed"}
	c.Credentials["finnhub"] = "changed"

	assert.Equal(t, "AAPL", p.Holdings[0].Ticker)
	assert.True(t, p.Holdings[0].PurchasePrice.Equal(decimal.RequireFromString("100")))
	assert.Equal(t, "hi", p.AssistantState["AAPL"].Prompt)
	assert.Equal(t, "key", p.Credentials["finnhub"])
}

func TestRefreshResultAllFailed(t *testing.T) {
	assert.True(t, (&RefreshResult{Failed: 3}).AllFailed())
	assert.False(t, (&RefreshResult{Succeeded: 1, Failed: 2}).AllFailed())
	// An empty portfolio cycle is not a failure.
	assert.False(t, (&RefreshResult{}).AllFailed())
}

func TestDaysOwnedBoundaries(t *testing.T) {
	now := time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 10, (&Holding{PurchaseDate: "2026-01-01"}).DaysOwned(now))
	assert.Equal(t, 0, (&Holding{PurchaseDate: "2026-01-11"}).DaysOwned(now))
	assert.Equal(t, -1, (&Holding{}).DaysOwned(now))
	assert.Equal(t, -1, (&Holding{PurchaseDate: "01/11/2026"}).DaysOwned(now))
}
