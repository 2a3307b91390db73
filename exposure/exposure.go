// Package exposure sums booked transaction amounts for a counterparty.
//
// Reads go through a circuit breaker. Every failure is reported as
// risk.ErrDataUnavailable (or risk.ErrTimeout for context errors) so the
// caller can deny the proposal instead of treating a missing read as zero.
package exposure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/treasury/risk"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
)

// Scope selects the booked transactions to sum. A nil Product sums every
// product for the counterparty.
type Scope struct {
	risk.Key
	Product *risk.ProductType
}

// Ledger sums amounts of bookings whose status counts as exposure.
type Ledger interface {
	SumAmount(ctx context.Context, s Scope) (decimal.Decimal, error)
}

type BreakerConfig struct {
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
	Interval    time.Duration
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:        "ledger",
		MaxFailures: 3,
		OpenTimeout: 30 * time.Second,
		Interval:    60 * time.Second,
	}
}

type Aggregator struct {
	ledger Ledger
	cb     *gobreaker.CircuitBreaker
}

func New(l Ledger, cfg BreakerConfig) *Aggregator {
	st := gobreaker.Settings{
		Name:     cfg.Name,
		Interval: cfg.Interval,
		Timeout:  cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		// A caller giving up says nothing about ledger health.
		IsSuccessful: func(err error) bool {
			var ab *abandoned
			return err == nil || errors.As(err, &ab)
		},
	}
	return &Aggregator{ledger: l, cb: gobreaker.NewCircuitBreaker(st)}
}

// Current returns the booked exposure for k, scoped to product when non-nil.
func (a *Aggregator) Current(ctx context.Context, k risk.Key, product *risk.ProductType) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", risk.ErrTimeout, err)
	}
	v, err := a.cb.Execute(func() (interface{}, error) {
		sum, err := a.ledger.SumAmount(ctx, Scope{Key: k, Product: product})
		if err != nil && ctx.Err() != nil {
			return nil, &abandoned{err: err}
		}
		return sum, err
	})
	if err != nil {
		return decimal.Zero, classify(ctx, err)
	}
	return v.(decimal.Decimal), nil
}

// Both returns the product-scoped and overall exposure for k.
func (a *Aggregator) Both(ctx context.Context, k risk.Key, product risk.ProductType) (prod, overall decimal.Decimal, err error) {
	prod, err = a.Current(ctx, k, &product)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%s exposure: %w", product, err)
	}
	overall, err = a.Current(ctx, k, nil)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("overall exposure: %w", err)
	}
	return prod, overall, nil
}

// State exposes the breaker state for diagnostics.
func (a *Aggregator) State() string {
	return a.cb.State().String()
}

// abandoned marks a ledger error seen after the caller's context ended.
// The breaker does not count it as a failure.
type abandoned struct{ err error }

func (e *abandoned) Error() string { return e.err.Error() }
func (e *abandoned) Unwrap() error { return e.err }

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return fmt.Errorf("%w: %v", risk.ErrTimeout, err)
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: ledger circuit open", risk.ErrDataUnavailable)
	}
	return fmt.Errorf("%w: %v", risk.ErrDataUnavailable, err)
}
