// Package coupon builds semi-annual coupon schedules for bonds.
package coupon

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/treasury/risk"
	"github.com/shopspring/decimal"
)

// FaceValue is the nominal amount every schedule is quoted against.
var FaceValue = decimal.NewFromInt(100)

var ErrInvalidSchedule = fmt.Errorf("%w: invalid coupon schedule", risk.ErrInvalidInput)

// ErrOutsideSchedule is returned by lookups for a date the bond does not
// accrue on.
var ErrOutsideSchedule = errors.New("date outside coupon schedule")

const periodMonths = 6

type Entry struct {
	ISIN      string          `json:"isin"`
	Number    int             `json:"coupon_number"`
	Date      time.Time       `json:"coupon_date"`
	Amount    decimal.Decimal `json:"coupon_amount"`
	Principal decimal.Decimal `json:"principal"`
}

// Generate returns the coupon schedule from issue to maturity. Each coupon
// pays ratePercent/2 of face value. Dates step six calendar months from the
// previous coupon; only dates strictly before maturity become periodic
// coupons, and a final entry on maturity carries the principal.
func Generate(isin string, issue, maturity time.Time, ratePercent decimal.Decimal) ([]Entry, error) {
	issue, maturity = Day(issue), Day(maturity)
	if !maturity.After(issue) {
		return nil, fmt.Errorf("%w: maturity %s must be after issue %s",
			ErrInvalidSchedule, maturity.Format(time.DateOnly), issue.Format(time.DateOnly))
	}
	if ratePercent.IsNegative() {
		return nil, fmt.Errorf("%w: coupon rate %s is negative", ErrInvalidSchedule, ratePercent)
	}

	amount := ratePercent.Div(decimal.NewFromInt(2)).Mul(FaceValue).Div(decimal.NewFromInt(100))

	var out []Entry
	for next := issue.AddDate(0, periodMonths, 0); next.Before(maturity); next = next.AddDate(0, periodMonths, 0) {
		out = append(out, Entry{
			ISIN:      isin,
			Number:    len(out) + 1,
			Date:      next,
			Amount:    amount,
			Principal: decimal.Zero,
		})
	}
	out = append(out, Entry{
		ISIN:      isin,
		Number:    len(out) + 1,
		Date:      maturity,
		Amount:    amount,
		Principal: FaceValue,
	})
	return out, nil
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
