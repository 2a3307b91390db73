// Package enforce decides whether a proposed transaction may be booked
// against a counterparty's limits, and books it, with proposals for the same
// limit key strictly serialized.
package enforce

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/treasury/exposure"
	"github.com/rustyeddy/treasury/pkg/id"
	"github.com/rustyeddy/treasury/risk"
	"go.uber.org/zap"
)

// Ledger is the transaction store: it sums booked exposure and persists
// bookings. Persist must be atomic; a failed Persist leaves no booking.
type Ledger interface {
	exposure.Ledger
	Persist(ctx context.Context, b risk.Booking) error
}

// Recorder receives every decision, e.g. an audit log.
type Recorder interface {
	Record(p risk.Proposal, d risk.Decision, at time.Time) error
}

type Config struct {
	// AcquireTimeout bounds the wait for a counterparty scope. Zero waits
	// until the caller's context ends.
	AcquireTimeout time.Duration
	Shards         int
	// RecordRejected persists denied proposals with status rejected.
	RecordRejected bool
	Breaker        exposure.BreakerConfig
}

func DefaultConfig() Config {
	return Config{
		AcquireTimeout: 5 * time.Second,
		Shards:         DefaultShards,
		Breaker:        exposure.DefaultBreakerConfig(),
	}
}

type Option func(*Coordinator)

func WithLogger(l *zap.Logger) Option { return func(c *Coordinator) { c.log = l } }

func WithMetrics(m *Metrics) Option { return func(c *Coordinator) { c.metrics = m } }

func WithRecorder(r Recorder) Option { return func(c *Coordinator) { c.recorder = r } }

func WithClock(now func() time.Time) Option { return func(c *Coordinator) { c.now = now } }

type Coordinator struct {
	cfg    Config
	limits risk.Store
	ledger Ledger
	agg    *exposure.Aggregator
	locks  *LockTable

	log      *zap.Logger
	metrics  *Metrics
	recorder Recorder
	now      func() time.Time
}

func New(limits risk.Store, ledger Ledger, cfg Config, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:    cfg,
		limits: limits,
		ledger: ledger,
		agg:    exposure.New(ledger, cfg.Breaker),
		locks:  NewLockTable(cfg.Shards),
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Evaluate checks p against its counterparty's limits and, when allowed,
// books it before the counterparty scope is released.
//
// A non-nil error always comes with a denying Decision. Callers tell policy
// denials (nil error) from undetermined ones with errors.Is against
// risk.ErrInvalidInput, risk.ErrDataUnavailable, risk.ErrTimeout and
// risk.ErrIndeterminate.
func (c *Coordinator) Evaluate(ctx context.Context, p risk.Proposal) (d risk.Decision, err error) {
	start := c.now()
	defer func() { c.observe(p, d, err, start) }()

	if err := p.Validate(); err != nil {
		if !p.Product.Valid() {
			return risk.Deny(risk.ReasonUnknownProduct), err
		}
		return risk.Deny(risk.ReasonInvalidInput), err
	}
	if p.TransactionID == "" {
		p.TransactionID = id.New()
	}
	key := p.Key()

	release, err := c.acquire(ctx, key)
	if err != nil {
		return risk.Deny(risk.ReasonTimeout), err
	}
	defer release()

	row, err := c.limits.GetLimits(ctx, key)
	if err != nil {
		return storeFailure(ctx, "limits", err)
	}
	if row == nil {
		d = risk.Deny(risk.ReasonNoLimits)
		c.bookRejected(ctx, p, d)
		return d, nil
	}

	prod, overall, err := c.agg.Both(ctx, key, p.Product)
	if err != nil {
		if errors.Is(err, risk.ErrTimeout) {
			return risk.Deny(risk.ReasonTimeout), err
		}
		return risk.Deny(risk.ReasonUndetermined), err
	}

	d = risk.Decide(prod, overall, p.Amount, risk.LimitsFor(row, p.Product))
	if !d.Allowed {
		c.bookRejected(ctx, p, d)
		return d, nil
	}

	b := risk.NewBooking(p, d, c.now())
	if err := c.ledger.Persist(ctx, b); err != nil {
		return risk.Deny(risk.ReasonIndeterminate),
			fmt.Errorf("%w: persist %s: %v", risk.ErrIndeterminate, b.TransactionID, err)
	}
	return d, nil
}

func (c *Coordinator) acquire(ctx context.Context, key risk.Key) (func(), error) {
	waitCtx := ctx
	if c.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.cfg.AcquireTimeout)
		defer cancel()
	}

	t0 := time.Now()
	release, err := c.locks.Acquire(waitCtx, key)
	waited := time.Since(t0)
	if c.metrics != nil {
		c.metrics.LockWait.Observe(waited.Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("%w: waiting %s for %s: %v", risk.ErrTimeout, waited, key, err)
	}
	return release, nil
}

// bookRejected persists a denial when configured to. Rejected bookings never
// count as exposure, so a failure here is logged and not surfaced.
func (c *Coordinator) bookRejected(ctx context.Context, p risk.Proposal, d risk.Decision) {
	if !c.cfg.RecordRejected {
		return
	}
	b := risk.NewBooking(p, d, c.now())
	if err := c.ledger.Persist(ctx, b); err != nil {
		c.log.Warn("record rejected booking",
			zap.String("transaction_id", b.TransactionID),
			zap.Error(err))
	}
}

func storeFailure(ctx context.Context, what string, err error) (risk.Decision, error) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return risk.Deny(risk.ReasonTimeout), fmt.Errorf("%w: read %s: %v", risk.ErrTimeout, what, err)
	}
	return risk.Deny(risk.ReasonUndetermined), fmt.Errorf("%w: read %s: %v", risk.ErrDataUnavailable, what, err)
}

// Outcome classifies a decision for metrics and logs.
func Outcome(d risk.Decision, err error) string {
	switch {
	case errors.Is(err, risk.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, risk.ErrTimeout):
		return "timeout"
	case errors.Is(err, risk.ErrIndeterminate):
		return "indeterminate"
	case errors.Is(err, risk.ErrDataUnavailable):
		return "unavailable"
	case err != nil:
		return "error"
	case d.Allowed:
		return "allowed"
	case d.Reason == risk.ReasonNoLimits:
		return "no_limits"
	case d.Dimension != "":
		return "breach_" + string(d.Dimension)
	}
	return "denied"
}

func (c *Coordinator) observe(p risk.Proposal, d risk.Decision, err error, start time.Time) {
	outcome := Outcome(d, err)
	at := c.now()

	if c.metrics != nil {
		c.metrics.Decisions.WithLabelValues(outcome).Inc()
		c.metrics.Duration.Observe(at.Sub(start).Seconds())
		c.metrics.ActiveKeys.Set(float64(c.locks.Len()))
	}

	fields := []zap.Field{
		zap.String("counterparty", p.CounterpartyID),
		zap.String("counterparty_type", string(p.CounterpartyType)),
		zap.String("product", string(p.Product)),
		zap.String("currency", p.Currency),
		zap.String("amount", p.Amount.String()),
		zap.String("outcome", outcome),
	}
	switch {
	case err != nil:
		c.log.Warn("limit check failed", append(fields, zap.String("reason", d.Reason), zap.Error(err))...)
	case !d.Allowed:
		c.log.Info("limit check denied", append(fields,
			zap.String("reason", d.Reason),
			zap.String("exceeded", d.Exceeded.String()))...)
	default:
		c.log.Debug("limit check allowed", fields...)
	}

	if c.recorder != nil {
		if rerr := c.recorder.Record(p, d, at); rerr != nil {
			c.log.Warn("audit record", zap.Error(rerr))
		}
	}
}

// ActiveKeys reports how many counterparty scopes are held or awaited.
func (c *Coordinator) ActiveKeys() int { return c.locks.Len() }
