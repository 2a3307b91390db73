package risk

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/treasury/pkg/id"
	"github.com/shopspring/decimal"
)

// Proposal is a transaction offered for booking against a counterparty.
type Proposal struct {
	TransactionID    string
	CounterpartyID   string
	CounterpartyType CounterpartyType
	Product          ProductType
	Amount           decimal.Decimal
	Currency         string

	ISIN      string
	TradeDate time.Time
}

func (p Proposal) Key() Key {
	return Key{
		CounterpartyID:   p.CounterpartyID,
		CounterpartyType: p.CounterpartyType,
		Currency:         p.Currency,
	}
}

// Validate reports precondition violations. The amount is never coerced.
func (p Proposal) Validate() error {
	if strings.TrimSpace(p.CounterpartyID) == "" {
		return fmt.Errorf("%w: counterparty id is required", ErrInvalidInput)
	}
	if _, err := ParseCounterpartyType(string(p.CounterpartyType)); err != nil {
		return err
	}
	if strings.TrimSpace(p.Currency) == "" {
		return fmt.Errorf("%w: currency is required", ErrInvalidInput)
	}
	if !p.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidInput, p.Amount)
	}
	if err := checkRange("amount", p.Amount); err != nil {
		return err
	}
	if !p.Product.Valid() {
		return fmt.Errorf("%w: %s %q", ErrInvalidInput, ReasonUnknownProduct, p.Product)
	}
	return nil
}

// ParseAmount converts user input into a positive decimal amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q is not a number", ErrInvalidInput, s)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidInput, s)
	}
	if err := checkRange("amount", d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// AmountScale is the number of decimal places stored for amounts and limits.
const AmountScale = 4

// maxAmount is the exclusive upper bound of a NUMERIC(24, 4) column.
var maxAmount = decimal.New(1, 24-AmountScale)

// checkRange rejects values the ledger would round or overflow.
func checkRange(name string, v decimal.Decimal) error {
	if !v.Equal(v.Truncate(AmountScale)) {
		return fmt.Errorf("%w: %s %s has more than %d decimal places", ErrInvalidInput, name, v, AmountScale)
	}
	if v.Abs().GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("%w: %s %s is out of range", ErrInvalidInput, name, v)
	}
	return nil
}

type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusApproved Status = "approved"
)

// Counts reports whether a booking in this status contributes to exposure.
func (s Status) Counts() bool {
	return s == StatusAccepted || s == StatusApproved
}

// Booking is a proposal as persisted by the ledger.
type Booking struct {
	Proposal
	Status   Status
	Reason   string
	BookedAt time.Time
}

// NewBooking stamps a proposal with an ID (when missing) and its status.
func NewBooking(p Proposal, d Decision, now time.Time) Booking {
	if p.TransactionID == "" {
		p.TransactionID = id.New()
	}
	st := StatusAccepted
	if !d.Allowed {
		st = StatusRejected
	}
	return Booking{Proposal: p, Status: st, Reason: d.Reason, BookedAt: now.UTC()}
}
