package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rustyeddy/treasury/coupon"
)

// CreateInstrument stores a bond and its generated coupon schedule in one
// transaction. The assigned row ID is returned with the schedule.
func (j *SQLite) CreateInstrument(ctx context.Context, in coupon.Instrument) (int64, coupon.Schedule, error) {
	sched, err := in.Schedule()
	if err != nil {
		return 0, coupon.Schedule{}, err
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, coupon.Schedule{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO isin_master
		(isin_issuer, isin_number, issue_date, maturity_date, coupon_rate, series,
		 coupon_date_1, coupon_date_2, day_basis, currency)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Issuer, in.ISIN, coupon.Day(in.IssueDate), coupon.Day(in.Maturity), in.CouponRate.String(),
		in.Series, in.CouponDate1, in.CouponDate2, in.DayBasis, in.Currency)
	if err != nil {
		return 0, coupon.Schedule{}, fmt.Errorf("insert instrument %s: %w", in.ISIN, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, coupon.Schedule{}, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO isin_coupon_schedule (isin, coupon_number, coupon_date, coupon_amount, principal)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, coupon.Schedule{}, err
	}
	defer stmt.Close()

	for _, e := range sched.Entries {
		if _, err := stmt.ExecContext(ctx, e.ISIN, e.Number, e.Date, e.Amount.String(), e.Principal.String()); err != nil {
			return 0, coupon.Schedule{}, fmt.Errorf("insert coupon %d for %s: %w", e.Number, e.ISIN, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, coupon.Schedule{}, err
	}
	return id, sched, nil
}

func (j *SQLite) GetInstrument(ctx context.Context, isin string) (coupon.Instrument, error) {
	var in coupon.Instrument
	err := j.db.QueryRowContext(ctx, `
		SELECT id, isin_issuer, isin_number, issue_date, maturity_date, coupon_rate, series,
		       coupon_date_1, coupon_date_2, day_basis, currency
		FROM isin_master WHERE isin_number = ?`, isin).Scan(
		&in.ID, &in.Issuer, &in.ISIN, &in.IssueDate, &in.Maturity, &in.CouponRate, &in.Series,
		&in.CouponDate1, &in.CouponDate2, &in.DayBasis, &in.Currency,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return coupon.Instrument{}, fmt.Errorf("isin %q: %w", isin, ErrNotFound)
		}
		return coupon.Instrument{}, err
	}
	return in, nil
}

// CouponSchedule loads the stored schedule for isin.
func (j *SQLite) CouponSchedule(ctx context.Context, isin string) (coupon.Schedule, error) {
	in, err := j.GetInstrument(ctx, isin)
	if err != nil {
		return coupon.Schedule{}, err
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT isin, coupon_number, coupon_date, coupon_amount, principal
		FROM isin_coupon_schedule WHERE isin = ? ORDER BY coupon_number`, isin)
	if err != nil {
		return coupon.Schedule{}, err
	}
	defer rows.Close()

	s := coupon.Schedule{ISIN: isin, Issue: coupon.Day(in.IssueDate)}
	for rows.Next() {
		var e coupon.Entry
		if err := rows.Scan(&e.ISIN, &e.Number, &e.Date, &e.Amount, &e.Principal); err != nil {
			return coupon.Schedule{}, err
		}
		e.Date = coupon.Day(e.Date)
		s.Entries = append(s.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return coupon.Schedule{}, err
	}
	return s, nil
}
