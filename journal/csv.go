// journal/csv.go
package journal

import (
	"encoding/csv"
	"io"
	"time"
)

var csvHeader = []string{
	"transaction_id", "counterparty_id", "counterparty_type", "product_type", "amount",
	"currency", "isin", "trade_date", "status", "reason", "comment", "booked_at",
}

// WriteCSV writes records with a header row.
func WriteCSV(w io.Writer, recs []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range recs {
		if err := cw.Write([]string{
			r.TransactionID,
			r.CounterpartyID,
			string(r.CounterpartyType),
			string(r.Product),
			r.Amount.String(),
			r.Currency,
			r.ISIN,
			day(r.TradeDate),
			string(r.Status),
			r.Reason,
			r.Comment,
			r.BookedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func day(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
