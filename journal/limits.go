package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/treasury/risk"
	"github.com/shopspring/decimal"
)

func productColumn(p risk.ProductType) string {
	return "product_" + string(p) + "_limit"
}

// LimitColumns lists the limit value columns in a fixed order.
func LimitColumns() []string {
	cols := []string{"overall_exposure_limit", "currency_limit"}
	for _, p := range risk.Products {
		cols = append(cols, productColumn(p))
	}
	return append(cols, "tenor_limit", "settlement_risk_limit", "country_limit", "group_limit", "intraday_limit")
}

// LimitValues returns pointers matching LimitColumns. Product limits are
// copied out of l.Product; after scanning into them call SetProductLimits.
func LimitValues(l *risk.CounterpartyLimit) []*decimal.Decimal {
	if l.Product == nil {
		l.Product = map[risk.ProductType]decimal.Decimal{}
	}
	vals := []*decimal.Decimal{&l.OverallExposure, &l.CurrencyLimit}
	prods := make([]decimal.Decimal, len(risk.Products))
	for i, p := range risk.Products {
		prods[i] = l.Product[p]
		vals = append(vals, &prods[i])
	}
	vals = append(vals, &l.Tenor, &l.SettlementRisk, &l.Country, &l.Group, &l.Intraday)
	return vals
}

// SetProductLimits copies the non-zero product values scanned through vals
// back into l.Product.
func SetProductLimits(l *risk.CounterpartyLimit, vals []*decimal.Decimal) {
	if l.Product == nil {
		l.Product = map[risk.ProductType]decimal.Decimal{}
	}
	for i, p := range risk.Products {
		if v := *vals[2+i]; !v.IsZero() {
			l.Product[p] = v
		}
	}
}

// GetLimits returns the limit row for k, falling back to the
// currency-agnostic row. It returns (nil, nil) when neither exists.
func (j *SQLite) GetLimits(ctx context.Context, k risk.Key) (*risk.CounterpartyLimit, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT counterparty_id, counterparty_type, currency, `+strings.Join(LimitColumns(), ", ")+`
		FROM counterparty_limits
		WHERE counterparty_id = ? AND counterparty_type = ? AND (currency = ? OR currency = '')
		ORDER BY currency = '' ASC
		LIMIT 1`,
		k.CounterpartyID, string(k.CounterpartyType), k.Currency)

	l := &risk.CounterpartyLimit{}
	var cpType string
	vals := LimitValues(l)
	dest := []any{&l.CounterpartyID, &cpType, &l.Currency}
	for _, v := range vals {
		dest = append(dest, v)
	}
	if err := row.Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	l.CounterpartyType = risk.CounterpartyType(cpType)
	SetProductLimits(l, vals)
	return l, nil
}

// SaveLimits inserts or replaces the row for the limit's key.
func (j *SQLite) SaveLimits(ctx context.Context, l risk.CounterpartyLimit) error {
	if err := l.Validate(); err != nil {
		return err
	}
	cols := LimitColumns()
	args := []any{l.CounterpartyID, string(l.CounterpartyType), l.Currency}
	for _, v := range LimitValues(&l) {
		args = append(args, v.String())
	}
	args = append(args, time.Now().UTC())

	sets := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		sets = append(sets, c+" = excluded."+c)
	}
	sets = append(sets, "updated_at = excluded.updated_at")

	q := fmt.Sprintf(`
		INSERT INTO counterparty_limits
		(counterparty_id, counterparty_type, currency, %s, updated_at)
		VALUES (?, ?, ?%s, ?)
		ON CONFLICT(counterparty_id, counterparty_type, currency) DO UPDATE SET %s`,
		strings.Join(cols, ", "),
		strings.Repeat(", ?", len(cols)),
		strings.Join(sets, ", "))

	if _, err := j.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("save limits for %s/%s: %w", l.CounterpartyID, l.CounterpartyType, err)
	}
	return nil
}

func (j *SQLite) AddCounterparty(ctx context.Context, c Counterparty) error {
	if _, err := risk.ParseCounterpartyType(string(c.Type)); err != nil {
		return err
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO counterparties (id, type, short_name) VALUES (?, ?, ?)
		ON CONFLICT(id, type) DO UPDATE SET short_name = excluded.short_name`,
		c.ID, string(c.Type), c.ShortName)
	return err
}

// ListCounterparties returns individual and joint counterparties by name.
func (j *SQLite) ListCounterparties(ctx context.Context) ([]Counterparty, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, type, short_name FROM counterparties ORDER BY short_name, type, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Counterparty
	for rows.Next() {
		var c Counterparty
		var typ string
		if err := rows.Scan(&c.ID, &typ, &c.ShortName); err != nil {
			return nil, err
		}
		c.Type = risk.CounterpartyType(typ)
		out = append(out, c)
	}
	return out, rows.Err()
}
