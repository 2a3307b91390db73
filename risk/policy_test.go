package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProductType(t *testing.T) {
	t.Parallel()

	for _, p := range Products {
		got, err := ParseProductType(" " + string(p) + " ")
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	_, err := ParseProductType("equity_swap")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), ReasonUnknownProduct)
}

func TestParseCounterpartyType(t *testing.T) {
	t.Parallel()

	got, err := ParseCounterpartyType("JOINT")
	require.NoError(t, err)
	assert.Equal(t, Joint, got)

	_, err = ParseCounterpartyType("corporate")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestProductLimitUnset(t *testing.T) {
	t.Parallel()

	var nilRow *CounterpartyLimit
	assert.True(t, nilRow.ProductLimit(FX).IsZero())

	row := &CounterpartyLimit{Product: map[ProductType]decimal.Decimal{FX: d("10")}}
	assert.True(t, d("10").Equal(row.ProductLimit(FX)))
	assert.True(t, row.ProductLimit(Repo).IsZero())
}

func TestCounterpartyLimitValidate(t *testing.T) {
	t.Parallel()

	good := CounterpartyLimit{
		CounterpartyID:   "42",
		CounterpartyType: Individual,
		OverallExposure:  d("1000"),
		Product:          map[ProductType]decimal.Decimal{GSec: d("500")},
	}
	assert.NoError(t, good.Validate())

	bad := good
	bad.OverallExposure = d("-1")
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)

	bad = good
	bad.Product = map[ProductType]decimal.Decimal{"bogus": d("1")}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)

	bad = good
	bad.Intraday = d("-5")
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)

	bad = good
	bad.Product = map[ProductType]decimal.Decimal{GSec: d("0.00005")}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)

	bad = good
	bad.CounterpartyID = ""
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)
}

func TestProposalValidate(t *testing.T) {
	t.Parallel()

	base := Proposal{
		CounterpartyID:   "7",
		CounterpartyType: Joint,
		Product:          Repo,
		Amount:           d("10"),
		Currency:         "LKR",
	}
	assert.NoError(t, base.Validate())

	trailing := base
	trailing.Amount = d("10.500000")
	assert.NoError(t, trailing.Validate(), "trailing zeros do not add precision")

	tests := []struct {
		name   string
		mutate func(p *Proposal)
	}{
		{"zero amount", func(p *Proposal) { p.Amount = decimal.Zero }},
		{"negative amount", func(p *Proposal) { p.Amount = d("-1") }},
		{"unknown product", func(p *Proposal) { p.Product = "swap" }},
		{"missing counterparty", func(p *Proposal) { p.CounterpartyID = " " }},
		{"bad counterparty type", func(p *Proposal) { p.CounterpartyType = "group" }},
		{"missing currency", func(p *Proposal) { p.Currency = "" }},
		{"too many decimal places", func(p *Proposal) { p.Amount = d("0.00001") }},
		{"out of range", func(p *Proposal) { p.Amount = d("100000000000000000000") }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := base
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidInput)
		})
	}
}

func TestParseAmount(t *testing.T) {
	t.Parallel()

	got, err := ParseAmount("1250.50")
	require.NoError(t, err)
	assert.True(t, d("1250.5").Equal(got))

	got, err = ParseAmount("99999999999999999999.9999")
	require.NoError(t, err, "largest storable amount")
	assert.True(t, d("99999999999999999999.9999").Equal(got))

	for _, in := range []string{"", "abc", "0", "-3", "NaN", "1.23456", "1e20"} {
		_, err := ParseAmount(in)
		assert.ErrorIs(t, err, ErrInvalidInput, in)
	}
}

func TestNewBooking(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	p := Proposal{CounterpartyID: "1", CounterpartyType: Individual, Product: FX, Amount: d("1"), Currency: "USD"}

	b := NewBooking(p, Allow(), now)
	assert.NotEmpty(t, b.TransactionID)
	assert.Equal(t, StatusAccepted, b.Status)
	assert.True(t, b.Status.Counts())
	assert.Empty(t, p.TransactionID, "proposal must not be mutated")

	b = NewBooking(p, Deny(ReasonNoLimits), now)
	assert.Equal(t, StatusRejected, b.Status)
	assert.Equal(t, ReasonNoLimits, b.Reason)
	assert.False(t, b.Status.Counts())
}

func TestKeyString(t *testing.T) {
	t.Parallel()

	k := Proposal{CounterpartyID: "9", CounterpartyType: Joint, Currency: "USD"}.Key()
	assert.Equal(t, "9/joint/USD", k.String())
}
