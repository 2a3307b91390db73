package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/treasury/exposure"
	"github.com/rustyeddy/treasury/risk"
	"github.com/shopspring/decimal"
)

type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// NewSQLite opens (creating if needed) the database at path and applies
// the schema. A single connection serializes writers at the driver level.
func NewSQLite(path string) (*SQLite, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

// SumAmount totals the amounts of bookings that count as exposure. Amounts
// are stored as decimal text and summed in Go to keep them exact.
func (j *SQLite) SumAmount(ctx context.Context, s exposure.Scope) (decimal.Decimal, error) {
	q := `
		SELECT amount FROM transactions
		WHERE counterparty_id = ? AND counterparty_type = ? AND currency = ?
		AND status IN (?, ?)`
	args := []any{s.CounterpartyID, string(s.CounterpartyType), s.Currency,
		string(risk.StatusAccepted), string(risk.StatusApproved)}
	if s.Product != nil {
		q += ` AND product_type = ?`
		args = append(args, string(*s.Product))
	}

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amt decimal.Decimal
		if err := rows.Scan(&amt); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(amt)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// Persist inserts a booking. The insert is a single statement, so a failure
// leaves nothing behind.
func (j *SQLite) Persist(ctx context.Context, b risk.Booking) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO transactions
		(transaction_id, counterparty_id, counterparty_type, product_type, amount, currency,
		 isin, trade_date, status, reason, booked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.TransactionID, b.CounterpartyID, string(b.CounterpartyType), string(b.Product),
		b.Amount.String(), b.Currency, b.ISIN, nullTime(b.TradeDate),
		string(b.Status), b.Reason, b.BookedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", b.TransactionID, err)
	}
	return nil
}

// UpdateStatus approves or rejects an accepted booking.
func (j *SQLite) UpdateStatus(ctx context.Context, u StatusUpdate) error {
	if err := u.Validate(); err != nil {
		return err
	}
	at := u.At
	if at.IsZero() {
		at = time.Now()
	}

	res, err := j.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = ?, comment = ?, authorized_by = ?, authorized_at = ?
		WHERE transaction_id = ? AND status = ?`,
		string(u.Status), u.Comment, u.AuthorizedBy, at.UTC(),
		u.TransactionID, string(risk.StatusAccepted),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	rec, err := j.GetRecord(ctx, u.TransactionID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %s", ErrStatusTransition, u.TransactionID, rec.Status)
}

// RecordColumns is the column list ScanRecord expects.
const RecordColumns = `
	transaction_id, counterparty_id, counterparty_type, product_type, amount, currency,
	isin, trade_date, status, reason, comment, authorized_by, booked_at, authorized_at`

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

func ScanRecord(s Scanner) (Record, error) {
	var (
		rec          Record
		cpType, prod string
		status       string
		tradeDate    sql.NullTime
		authorizedAt sql.NullTime
	)
	err := s.Scan(
		&rec.TransactionID, &rec.CounterpartyID, &cpType, &prod, &rec.Amount, &rec.Currency,
		&rec.ISIN, &tradeDate, &status, &rec.Reason, &rec.Comment, &rec.AuthorizedBy,
		&rec.BookedAt, &authorizedAt,
	)
	if err != nil {
		return Record{}, err
	}
	rec.CounterpartyType = risk.CounterpartyType(cpType)
	rec.Product = risk.ProductType(prod)
	rec.Status = risk.Status(status)
	rec.TradeDate = tradeDate.Time
	rec.AuthorizedAt = authorizedAt.Time
	return rec, nil
}

// GetRecord returns a single booking by transaction ID.
func (j *SQLite) GetRecord(ctx context.Context, transactionID string) (Record, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT `+RecordColumns+` FROM transactions WHERE transaction_id = ?`, transactionID)
	rec, err := ScanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Record{}, fmt.Errorf("transaction %q: %w", transactionID, ErrNotFound)
		}
		return Record{}, err
	}
	return rec, nil
}

// ListRecords returns every booking for a limit key, oldest first.
func (j *SQLite) ListRecords(ctx context.Context, k risk.Key) ([]Record, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+RecordColumns+` FROM transactions
		WHERE counterparty_id = ? AND counterparty_type = ? AND currency = ?
		ORDER BY booked_at ASC, transaction_id ASC`,
		k.CounterpartyID, string(k.CounterpartyType), k.Currency)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := ScanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
