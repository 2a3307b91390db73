package coupon

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rustyeddy/treasury/risk"
	"github.com/shopspring/decimal"
)

var isinPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// Instrument is the master record of a bond.
type Instrument struct {
	ID          int64           `json:"id" yaml:"id"`
	Issuer      string          `json:"isin_issuer" yaml:"isin_issuer"`
	ISIN        string          `json:"isin_number" yaml:"isin_number"`
	IssueDate   time.Time       `json:"issue_date" yaml:"issue_date"`
	Maturity    time.Time       `json:"maturity_date" yaml:"maturity_date"`
	CouponRate  decimal.Decimal `json:"coupon_rate" yaml:"coupon_rate"`
	Series      string          `json:"series" yaml:"series"`
	CouponDate1 string          `json:"coupon_date_1" yaml:"coupon_date_1"`
	CouponDate2 string          `json:"coupon_date_2" yaml:"coupon_date_2"`
	DayBasis    string          `json:"day_basis" yaml:"day_basis"`
	Currency    string          `json:"currency" yaml:"currency"`
}

func (in Instrument) Validate() error {
	if !isinPattern.MatchString(strings.ToUpper(in.ISIN)) {
		return fmt.Errorf("%w: malformed ISIN %q", risk.ErrInvalidInput, in.ISIN)
	}
	return nil
}

// Schedule generates the instrument's coupon schedule.
func (in Instrument) Schedule() (Schedule, error) {
	if err := in.Validate(); err != nil {
		return Schedule{}, err
	}
	entries, err := Generate(in.ISIN, in.IssueDate, in.Maturity, in.CouponRate)
	if err != nil {
		return Schedule{}, err
	}
	return Schedule{ISIN: in.ISIN, Issue: Day(in.IssueDate), Entries: entries}, nil
}

// Schedule is a generated coupon schedule plus the date accrual starts.
type Schedule struct {
	ISIN    string
	Issue   time.Time
	Entries []Entry
}

func (s Schedule) Maturity() time.Time {
	if len(s.Entries) == 0 {
		return time.Time{}
	}
	return s.Entries[len(s.Entries)-1].Date
}

// Around returns the coupon dates bracketing value: the last coupon on or
// before it (the issue date before the first coupon) and the next one after.
func (s Schedule) Around(value time.Time) (prev, next time.Time, err error) {
	value = Day(value)
	if len(s.Entries) == 0 || value.Before(s.Issue) || !value.Before(s.Maturity()) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s for %s", ErrOutsideSchedule, value.Format(time.DateOnly), s.ISIN)
	}
	i := sort.Search(len(s.Entries), func(i int) bool { return s.Entries[i].Date.After(value) })
	prev = s.Issue
	if i > 0 {
		prev = s.Entries[i-1].Date
	}
	return prev, s.Entries[i].Date, nil
}

// Months returns the distinct MM/DD coupon anniversaries, sorted.
func (s Schedule) Months() []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range s.Entries {
		md := e.Date.Format("01/02")
		if !seen[md] {
			seen[md] = true
			out = append(out, md)
		}
	}
	sort.Strings(out)
	return out
}
