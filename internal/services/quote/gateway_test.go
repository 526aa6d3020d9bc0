package quote

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bgunnison/folio/internal/common"
	"github.com/bgunnison/folio/internal/interfaces"
	"github.com/bgunnison/folio/internal/models"
)

// fakeProvider is a scripted QuoteProvider for gateway tests.
type fakeProvider struct {
	name       string
	price      decimal.Decimal
	priceErr   error
	company    string
	companyErr error

	priceCalls   int
	companyCalls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) FetchPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	f.priceCalls++
	if f.priceErr != nil {
		return decimal.Zero, f.priceErr
	}
	return f.price, nil
}

func (f *fakeProvider) FetchCompanyName(ctx context.Context, ticker string) (string, error) {
	f.companyCalls++
	if f.companyErr != nil {
		return "", f.companyErr
	}
	return f.company, nil
}

func newTestGateway(providers ...*fakeProvider) *Gateway {
	ps := make([]interfaces.QuoteProvider, len(providers))
	for i, p := range providers {
		ps[i] = p
	}
	return NewGateway(common.NewSilentLogger(), ps)
}

func TestFetchPriceFirstProviderWins(t *testing.T) {
	first := &fakeProvider{name: "first", price: decimal.NewFromFloat(101.50)}
	second := &fakeProvider{name: "second", price: decimal.NewFromFloat(999)}
	gw := newTestGateway(first, second)

	price, err := gw.FetchPrice(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchPrice failed: %v", err)
	}
	if !price.Equal(decimal.NewFromFloat(101.50)) {
		t.Errorf("expected 101.50, got %s", price)
	}
	if second.priceCalls != 0 {
		t.Errorf("second provider should not be called, got %d calls", second.priceCalls)
	}
}

func TestFetchPriceFallsBackOnFailure(t *testing.T) {
	first := &fakeProvider{name: "first", priceErr: fmt.Errorf("connection refused")}
	second := &fakeProvider{name: "second", price: decimal.NewFromFloat(42.10)}
	gw := newTestGateway(first, second)

	price, err := gw.FetchPrice(context.Background(), "MSFT")
	if err != nil {
		t.Fatalf("FetchPrice failed: %v", err)
	}
	if !price.Equal(decimal.NewFromFloat(42.10)) {
		t.Errorf("expected 42.10, got %s", price)
	}
	if first.priceCalls != 1 {
		t.Errorf("first provider should be tried once, got %d", first.priceCalls)
	}
}

func TestFetchPriceAllProvidersFail(t *testing.T) {
	first := &fakeProvider{name: "first", priceErr: fmt.Errorf("boom")}
	second := &fakeProvider{name: "second", priceErr: fmt.Errorf("also boom")}
	gw := newTestGateway(first, second)

	_, err := gw.FetchPrice(context.Background(), "NVDA")
	if err == nil {
		t.Fatal("expected error when all providers fail")
	}
	var fetchErr *models.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %T", err)
	}
	if fetchErr.Ticker != "NVDA" {
		t.Errorf("expected ticker NVDA in error, got %s", fetchErr.Ticker)
	}
}

func TestFetchPriceRateLimitedProviderEntersCooldown(t *testing.T) {
	limited := &fakeProvider{
		name:     "limited",
		priceErr: fmt.Errorf("%w: too many requests", models.ErrRateLimited),
	}
	backup := &fakeProvider{name: "backup", price: decimal.NewFromFloat(10)}
	gw := newTestGateway(limited, backup)

	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	gw.now = func() time.Time { return clock }

	if _, err := gw.FetchPrice(context.Background(), "AAPL"); err != nil {
		t.Fatalf("FetchPrice failed: %v", err)
	}
	if limited.priceCalls != 1 {
		t.Fatalf("limited provider should be tried once, got %d", limited.priceCalls)
	}

	// During cooldown the limited provider is skipped entirely.
	if _, err := gw.FetchPrice(context.Background(), "AAPL"); err != nil {
		t.Fatalf("FetchPrice failed: %v", err)
	}
	if limited.priceCalls != 1 {
		t.Errorf("limited provider should be skipped during cooldown, got %d calls", limited.priceCalls)
	}

	// After cooldown expiry the provider is tried again.
	clock = clock.Add(DefaultCooldown + time.Second)
	if _, err := gw.FetchPrice(context.Background(), "AAPL"); err != nil {
		t.Fatalf("FetchPrice failed: %v", err)
	}
	if limited.priceCalls != 2 {
		t.Errorf("limited provider should be retried after cooldown, got %d calls", limited.priceCalls)
	}
}

func TestFetchCompanyNameSkipsTickerEcho(t *testing.T) {
	echo := &fakeProvider{name: "echo", company: "AAPL"}
	real := &fakeProvider{name: "real", company: "Apple Inc"}
	gw := newTestGateway(echo, real)

	name, err := gw.FetchCompanyName(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("FetchCompanyName failed: %v", err)
	}
	if name != "Apple Inc" {
		t.Errorf("expected Apple Inc, got %q", name)
	}
}

func TestFetchCompanyNameAllMiss(t *testing.T) {
	echo := &fakeProvider{name: "echo", company: "TSLA"}
	gw := newTestGateway(echo)

	_, err := gw.FetchCompanyName(context.Background(), "TSLA")
	if err == nil {
		t.Fatal("expected error when no provider returns a real name")
	}
}

func TestFetchPriceRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := &fakeProvider{name: "first", priceErr: fmt.Errorf("boom")}
	second := &fakeProvider{name: "second", price: decimal.NewFromFloat(1)}
	gw := newTestGateway(first, second)

	cancel()
	_, err := gw.FetchPrice(ctx, "AAPL")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if second.priceCalls != 0 {
		t.Errorf("second provider should not be called after cancellation")
	}
}
