package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is an immutable per-ticker record appended on each successful
// price fetch within a refresh cycle.
type Snapshot struct {
	Timestamp    time.Time
	Ticker       string
	CurrentPrice decimal.Decimal
	Shares       decimal.Decimal
	PL           decimal.Decimal
	PLPct        decimal.Decimal // fraction, e.g. 0.40 = +40%
}

// TotalsSnapshot is an immutable portfolio-level record appended once per
// refresh cycle.
type TotalsSnapshot struct {
	Timestamp  time.Time
	TotalValue decimal.Decimal
	TotalPL    decimal.Decimal
	TotalPLPct decimal.Decimal
}

// Aggregate holds portfolio-level derived values computed from current
// holdings.
type Aggregate struct {
	TotalValue decimal.Decimal
	TotalPL    decimal.Decimal
	TotalPLPct decimal.Decimal // relative to TotalInvestment when > 0, else summed cost basis
}

// RefreshTrigger identifies what initiated a refresh cycle.
type RefreshTrigger string

const (
	TriggerPeriodic RefreshTrigger = "periodic"
	TriggerManual   RefreshTrigger = "manual"
)

// RefreshResult summarizes one completed refresh cycle.
type RefreshResult struct {
	CycleID     string
	Trigger     RefreshTrigger
	StartedAt   time.Time
	CompletedAt time.Time
	Succeeded   int
	Failed      int
	Failures    map[string]string // ticker -> failure reason
}

// AllFailed reports whether no ticker was priced in the cycle.
func (r *RefreshResult) AllFailed() bool {
	return r.Succeeded == 0 && r.Failed > 0
}
