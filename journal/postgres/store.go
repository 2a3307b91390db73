// Package postgres is the PostgreSQL implementation of the transaction
// ledger, limit store and bond master.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rustyeddy/treasury/exposure"
	"github.com/rustyeddy/treasury/journal"
	"github.com/rustyeddy/treasury/risk"
	"github.com/shopspring/decimal"
)

// Config holds connection pool settings.
type Config struct {
	DSN             string        `yaml:"dsn" json:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	QueryTimeout    time.Duration `yaml:"query_timeout" json:"query_timeout"`
}

func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		QueryTimeout:    5 * time.Second,
	}
}

type Store struct {
	db      *sqlx.DB
	timeout time.Duration
}

var _ journal.Store = (*Store)(nil)

// Open connects and pings the database.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: postgres dsn is required", risk.ErrInvalidInput)
	}
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(db, cfg.QueryTimeout), nil
}

// New wraps an existing handle. A zero timeout leaves query deadlines to the
// caller's context.
func New(db *sqlx.DB, timeout time.Duration) *Store {
	return &Store{db: db, timeout: timeout}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Migrate(ctx context.Context) error {
	return Migrate(ctx, s.db.DB)
}

func (s *Store) Version(ctx context.Context) (int64, error) {
	return MigrationVersion(ctx, s.db.DB)
}

func (s *Store) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// SumAmount totals booked exposure in the database.
func (s *Store) SumAmount(ctx context.Context, sc exposure.Scope) (decimal.Decimal, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	q := `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE counterparty_id = ? AND counterparty_type = ? AND currency = ?
		AND status IN (?, ?)`
	args := []any{sc.CounterpartyID, string(sc.CounterpartyType), sc.Currency,
		string(risk.StatusAccepted), string(risk.StatusApproved)}
	if sc.Product != nil {
		q += ` AND product_type = ?`
		args = append(args, string(*sc.Product))
	}

	var total decimal.Decimal
	if err := s.db.QueryRowxContext(ctx, s.db.Rebind(q), args...).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum exposure for %s: %w", sc.Key, err)
	}
	return total, nil
}

func (s *Store) Persist(ctx context.Context, b risk.Booking) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions
		(transaction_id, counterparty_id, counterparty_type, product_type, amount, currency,
		 isin, trade_date, status, reason, booked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		b.TransactionID, b.CounterpartyID, string(b.CounterpartyType), string(b.Product),
		b.Amount.String(), b.Currency, b.ISIN, nullTime(b.TradeDate),
		string(b.Status), b.Reason, b.BookedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("duplicate transaction %s: %w", b.TransactionID, err)
		}
		return fmt.Errorf("insert transaction %s: %w", b.TransactionID, err)
	}
	return nil
}

// UpdateStatus approves or rejects an accepted booking.
func (s *Store) UpdateStatus(ctx context.Context, u journal.StatusUpdate) error {
	if err := u.Validate(); err != nil {
		return err
	}
	at := u.At
	if at.IsZero() {
		at = time.Now()
	}

	qctx, cancel := s.ctx(ctx)
	defer cancel()
	res, err := s.db.ExecContext(qctx, `
		UPDATE transactions
		SET status = $1, comment = $2, authorized_by = $3, authorized_at = $4
		WHERE transaction_id = $5 AND status = $6`,
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

	rec, err := s.GetRecord(ctx, u.TransactionID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %s", journal.ErrStatusTransition, u.TransactionID, rec.Status)
}

func (s *Store) GetRecord(ctx context.Context, transactionID string) (journal.Record, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	row := s.db.QueryRowxContext(ctx,
		`SELECT `+journal.RecordColumns+` FROM transactions WHERE transaction_id = $1`, transactionID)
	rec, err := journal.ScanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return journal.Record{}, fmt.Errorf("transaction %q: %w", transactionID, journal.ErrNotFound)
		}
		return journal.Record{}, err
	}
	return rec, nil
}

func (s *Store) ListRecords(ctx context.Context, k risk.Key) ([]journal.Record, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	rows, err := s.db.QueryxContext(ctx, `
		SELECT `+journal.RecordColumns+` FROM transactions
		WHERE counterparty_id = $1 AND counterparty_type = $2 AND currency = $3
		ORDER BY booked_at ASC, transaction_id ASC`,
		k.CounterpartyID, string(k.CounterpartyType), k.Currency)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []journal.Record
	for rows.Next() {
		rec, err := journal.ScanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetLimits returns the row for k, falling back to the currency-agnostic
// row, or (nil, nil) when neither exists.
func (s *Store) GetLimits(ctx context.Context, k risk.Key) (*risk.CounterpartyLimit, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	l := &risk.CounterpartyLimit{}
	var cpType string
	vals := journal.LimitValues(l)
	dest := []any{&l.CounterpartyID, &cpType, &l.Currency}
	for _, v := range vals {
		dest = append(dest, v)
	}

	err := s.db.QueryRowxContext(ctx, `
		SELECT counterparty_id, counterparty_type, currency, `+strings.Join(journal.LimitColumns(), ", ")+`
		FROM counterparty_limits
		WHERE counterparty_id = $1 AND counterparty_type = $2 AND (currency = $3 OR currency = '')
		ORDER BY (currency = '') ASC
		LIMIT 1`,
		k.CounterpartyID, string(k.CounterpartyType), k.Currency).Scan(dest...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get limits for %s: %w", k, err)
	}
	l.CounterpartyType = risk.CounterpartyType(cpType)
	journal.SetProductLimits(l, vals)
	return l, nil
}

func (s *Store) SaveLimits(ctx context.Context, l risk.CounterpartyLimit) error {
	if err := l.Validate(); err != nil {
		return err
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	cols := journal.LimitColumns()
	args := []any{l.CounterpartyID, string(l.CounterpartyType), l.Currency}
	for _, v := range journal.LimitValues(&l) {
		args = append(args, v.String())
	}
	args = append(args, time.Now().UTC())

	sets := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		sets = append(sets, c+" = EXCLUDED."+c)
	}
	sets = append(sets, "updated_at = EXCLUDED.updated_at")

	q := fmt.Sprintf(`
		INSERT INTO counterparty_limits
		(counterparty_id, counterparty_type, currency, %s, updated_at)
		VALUES (?, ?, ?%s, ?)
		ON CONFLICT (counterparty_id, counterparty_type, currency) DO UPDATE SET %s`,
		strings.Join(cols, ", "),
		strings.Repeat(", ?", len(cols)),
		strings.Join(sets, ", "))

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...); err != nil {
		return fmt.Errorf("save limits for %s/%s: %w", l.CounterpartyID, l.CounterpartyType, err)
	}
	return nil
}

func (s *Store) AddCounterparty(ctx context.Context, c journal.Counterparty) error {
	if _, err := risk.ParseCounterpartyType(string(c.Type)); err != nil {
		return err
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO counterparties (id, type, short_name) VALUES ($1, $2, $3)
		ON CONFLICT (id, type) DO UPDATE SET short_name = EXCLUDED.short_name`,
		c.ID, string(c.Type), c.ShortName)
	return err
}

type counterpartyRow struct {
	ID        string `db:"id"`
	Type      string `db:"type"`
	ShortName string `db:"short_name"`
}

func (s *Store) ListCounterparties(ctx context.Context) ([]journal.Counterparty, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	var rows []counterpartyRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, type, short_name FROM counterparties ORDER BY short_name, type, id`); err != nil {
		return nil, err
	}
	out := make([]journal.Counterparty, len(rows))
	for i, r := range rows {
		out[i] = journal.Counterparty{ID: r.ID, Type: risk.CounterpartyType(r.Type), ShortName: r.ShortName}
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
