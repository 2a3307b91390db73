package exposure

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rustyeddy/treasury/risk"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	mu     sync.Mutex
	sums   map[string]decimal.Decimal
	err    error
	calls  int
	scopes []Scope
}

func (f *fakeLedger) SumAmount(ctx context.Context, s Scope) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.scopes = append(f.scopes, s)
	if f.err != nil {
		return decimal.Zero, f.err
	}
	name := "overall"
	if s.Product != nil {
		name = string(*s.Product)
	}
	return f.sums[name], nil
}

var key = risk.Key{CounterpartyID: "1", CounterpartyType: risk.Individual, Currency: "LKR"}

func TestBoth(t *testing.T) {
	t.Parallel()

	l := &fakeLedger{sums: map[string]decimal.Decimal{
		"gsec":    decimal.NewFromInt(40),
		"overall": decimal.NewFromInt(90),
	}}
	a := New(l, DefaultBreakerConfig())

	prod, overall, err := a.Both(context.Background(), key, risk.GSec)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(40).Equal(prod))
	assert.True(t, decimal.NewFromInt(90).Equal(overall))

	require.Len(t, l.scopes, 2)
	require.NotNil(t, l.scopes[0].Product)
	assert.Equal(t, risk.GSec, *l.scopes[0].Product)
	assert.Nil(t, l.scopes[1].Product)
	assert.Equal(t, key, l.scopes[1].Key)
}

func TestCurrentEmptyIsZero(t *testing.T) {
	t.Parallel()

	a := New(&fakeLedger{}, DefaultBreakerConfig())
	got, err := a.Current(context.Background(), key, nil)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestLedgerFailureIsDataUnavailable(t *testing.T) {
	t.Parallel()

	a := New(&fakeLedger{err: errors.New("connection refused")}, DefaultBreakerConfig())
	_, err := a.Current(context.Background(), key, nil)
	assert.ErrorIs(t, err, risk.ErrDataUnavailable)
	assert.NotErrorIs(t, err, risk.ErrTimeout)
}

func TestBreakerOpensAndShortCircuits(t *testing.T) {
	t.Parallel()

	l := &fakeLedger{err: errors.New("down")}
	cfg := DefaultBreakerConfig()
	cfg.MaxFailures = 2
	cfg.OpenTimeout = time.Hour
	a := New(l, cfg)

	for i := 0; i < 2; i++ {
		_, err := a.Current(context.Background(), key, nil)
		assert.ErrorIs(t, err, risk.ErrDataUnavailable)
	}
	assert.Equal(t, "open", a.State())

	_, err := a.Current(context.Background(), key, nil)
	assert.ErrorIs(t, err, risk.ErrDataUnavailable)
	assert.Contains(t, err.Error(), "circuit open")
	assert.Equal(t, 2, l.calls, "open breaker must not reach the ledger")
}

func TestCancelledContextIsTimeout(t *testing.T) {
	t.Parallel()

	l := &fakeLedger{}
	a := New(l, DefaultBreakerConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Current(ctx, key, nil)
	assert.ErrorIs(t, err, risk.ErrTimeout)
	assert.Equal(t, 0, l.calls)
}

func TestLedgerDeadlineIsTimeout(t *testing.T) {
	t.Parallel()

	a := New(&fakeLedger{err: context.DeadlineExceeded}, DefaultBreakerConfig())
	_, err := a.Current(context.Background(), key, nil)
	assert.ErrorIs(t, err, risk.ErrTimeout)
}

type slowLedger struct {
	delay time.Duration
}

func (l slowLedger) SumAmount(ctx context.Context, s Scope) (decimal.Decimal, error) {
	select {
	case <-time.After(l.delay):
		return decimal.NewFromInt(1), nil
	case <-ctx.Done():
		return decimal.Zero, ctx.Err()
	}
}

func TestCallerDeadlineDoesNotTripBreaker(t *testing.T) {
	t.Parallel()

	cfg := DefaultBreakerConfig()
	cfg.MaxFailures = 2
	a := New(slowLedger{delay: 50 * time.Millisecond}, cfg)

	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		_, err := a.Current(ctx, key, nil)
		cancel()
		assert.ErrorIs(t, err, risk.ErrTimeout)
		assert.NotErrorIs(t, err, risk.ErrDataUnavailable)
	}
	assert.Equal(t, "closed", a.State())

	got, err := a.Current(context.Background(), key, nil)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1).Equal(got))
}

func TestLedgerDeadlineWithLiveCallerTripsBreaker(t *testing.T) {
	t.Parallel()

	cfg := DefaultBreakerConfig()
	cfg.MaxFailures = 2
	cfg.OpenTimeout = time.Hour
	a := New(&fakeLedger{err: context.DeadlineExceeded}, cfg)

	for i := 0; i < 2; i++ {
		_, err := a.Current(context.Background(), key, nil)
		assert.ErrorIs(t, err, risk.ErrTimeout)
	}
	assert.Equal(t, "open", a.State())
}
