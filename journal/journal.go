// journal/journal.go

// Package journal is the SQLite transaction ledger, limit store and bond
// master used by the enforcement engine.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/treasury/coupon"
	"github.com/rustyeddy/treasury/exposure"
	"github.com/rustyeddy/treasury/risk"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrStatusTransition = errors.New("status change not allowed")
)

// Counterparty is a row of the counterparty master.
type Counterparty struct {
	ID        string
	Type      risk.CounterpartyType
	ShortName string
}

// StatusUpdate authorizes or rejects an accepted booking.
type StatusUpdate struct {
	TransactionID string
	Status        risk.Status
	Comment       string
	AuthorizedBy  string
	At            time.Time
}

func (u StatusUpdate) Validate() error {
	switch u.Status {
	case risk.StatusApproved:
	case risk.StatusRejected:
		if u.Comment == "" {
			return fmt.Errorf("%w: comment is required for rejected transactions", risk.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: status must be approved or rejected", risk.ErrInvalidInput)
	}
	if u.TransactionID == "" {
		return fmt.Errorf("%w: transaction id is required", risk.ErrInvalidInput)
	}
	return nil
}

// Record is a persisted booking with its authorization trail.
type Record struct {
	risk.Booking
	Comment      string
	AuthorizedBy string
	AuthorizedAt time.Time
}

// Store is everything the CLI needs from a backend. The SQLite journal and
// journal/postgres both implement it.
type Store interface {
	risk.Store
	exposure.Ledger
	Persist(ctx context.Context, b risk.Booking) error

	SaveLimits(ctx context.Context, l risk.CounterpartyLimit) error
	AddCounterparty(ctx context.Context, c Counterparty) error
	ListCounterparties(ctx context.Context) ([]Counterparty, error)

	UpdateStatus(ctx context.Context, u StatusUpdate) error
	GetRecord(ctx context.Context, transactionID string) (Record, error)
	ListRecords(ctx context.Context, k risk.Key) ([]Record, error)

	CreateInstrument(ctx context.Context, in coupon.Instrument) (int64, coupon.Schedule, error)
	CouponSchedule(ctx context.Context, isin string) (coupon.Schedule, error)

	Close() error
}
