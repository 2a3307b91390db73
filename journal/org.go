package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/treasury/coupon"
)

// FormatRecordOrg renders a booking as an Org-mode block with the facts in a
// PROPERTIES drawer.
func FormatRecordOrg(r Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** %s %s %s %s (%s)\n", strings.ToUpper(string(r.Status)), r.Product, r.Amount, r.Currency, shortID(r.TransactionID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRANSACTION_ID: %s\n", r.TransactionID)
	fmt.Fprintf(&b, ":COUNTERPARTY: %s (%s)\n", r.CounterpartyID, r.CounterpartyType)
	fmt.Fprintf(&b, ":PRODUCT: %s\n", r.Product)
	fmt.Fprintf(&b, ":AMOUNT: %s\n", r.Amount)
	fmt.Fprintf(&b, ":CURRENCY: %s\n", r.Currency)
	if r.ISIN != "" {
		fmt.Fprintf(&b, ":ISIN: %s\n", r.ISIN)
	}
	fmt.Fprintf(&b, ":BOOKED_AT: %s\n", r.BookedAt.UTC().Format(time.RFC3339))
	if r.Reason != "" {
		fmt.Fprintf(&b, ":REASON: %s\n", r.Reason)
	}
	if r.Comment != "" {
		fmt.Fprintf(&b, ":COMMENT: %s\n", r.Comment)
	}
	b.WriteString(":END:\n")
	return b.String()
}

// FormatRecordsOrg renders multiple bookings separated by blank lines.
func FormatRecordsOrg(recs []Record) string {
	parts := make([]string, len(recs))
	for i, r := range recs {
		parts[i] = FormatRecordOrg(r)
	}
	return strings.Join(parts, "\n")
}

// FormatScheduleOrg renders a coupon schedule as an Org table.
func FormatScheduleOrg(s coupon.Schedule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Coupon schedule %s\n", s.ISIN)
	b.WriteString("| # | Date | Coupon | Principal |\n")
	b.WriteString("|---+------+--------+-----------|\n")
	for _, e := range s.Entries {
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", e.Number, e.Date.Format(time.DateOnly), e.Amount.StringFixed(4), e.Principal.StringFixed(2))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
