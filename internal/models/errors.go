package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for key lookup and structural failures.
var (
	// ErrDuplicateTicker is returned when adding a ticker that already exists
	// in the portfolio (comparison is case-insensitive).
	ErrDuplicateTicker = errors.New("ticker already exists in portfolio")

	// ErrNotFound is returned when a ticker or the persisted portfolio file
	// is absent.
	ErrNotFound = errors.New("not found")

	// ErrRefreshFailed is returned when every quote fetch in a refresh cycle
	// failed. Nothing is appended or persisted in that case.
	ErrRefreshFailed = errors.New("refresh failed: quote gateway unreachable for all tickers")

	// ErrCorruptData is returned when the persisted portfolio file exists but
	// cannot be parsed. The file is never deleted or overwritten on this path.
	ErrCorruptData = errors.New("persisted portfolio is corrupt")

	// ErrRateLimited marks a provider failure caused by API rate limiting.
	// The quote gateway places the provider in cooldown when it sees this.
	ErrRateLimited = errors.New("provider rate limited")
)

// ValidationError reports bad user input, rejected before any state mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// FetchError reports a failed quote lookup for a single ticker. Per-ticker
// fetch failures are recovered locally and never abort a refresh cycle.
type FetchError struct {
	Ticker      string
	Provider    string // last provider attempted, empty when none were eligible
	RateLimited bool   // true when the failure was a provider rate limit
	Err         error
}

func (e *FetchError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("fetch %s via %s: %v", e.Ticker, e.Provider, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Ticker, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PersistenceError reports a backup or write failure. State must not be
// assumed saved when one is returned.
type PersistenceError struct {
	Op  string // "backup" or "write"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
