package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rustyeddy/treasury/coupon"
	"github.com/rustyeddy/treasury/journal"
)

// CreateInstrument stores a bond and its coupon schedule atomically.
func (s *Store) CreateInstrument(ctx context.Context, in coupon.Instrument) (int64, coupon.Schedule, error) {
	sched, err := in.Schedule()
	if err != nil {
		return 0, coupon.Schedule{}, err
	}

	ctx, cancel := s.ctx(ctx)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, coupon.Schedule{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO isin_master
		(isin_issuer, isin_number, issue_date, maturity_date, coupon_rate, series,
		 coupon_date_1, coupon_date_2, day_basis, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		in.Issuer, in.ISIN, coupon.Day(in.IssueDate), coupon.Day(in.Maturity), in.CouponRate.String(),
		in.Series, in.CouponDate1, in.CouponDate2, in.DayBasis, in.Currency).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, coupon.Schedule{}, fmt.Errorf("duplicate isin %s: %w", in.ISIN, err)
		}
		return 0, coupon.Schedule{}, fmt.Errorf("insert instrument %s: %w", in.ISIN, err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO isin_coupon_schedule (isin, coupon_number, coupon_date, coupon_amount, principal)
		VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return 0, coupon.Schedule{}, fmt.Errorf("prepare coupon insert: %w", err)
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

func (s *Store) GetInstrument(ctx context.Context, isin string) (coupon.Instrument, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	var in coupon.Instrument
	err := s.db.QueryRowxContext(ctx, `
		SELECT id, isin_issuer, isin_number, issue_date, maturity_date, coupon_rate, series,
		       coupon_date_1, coupon_date_2, day_basis, currency
		FROM isin_master WHERE isin_number = $1`, isin).Scan(
		&in.ID, &in.Issuer, &in.ISIN, &in.IssueDate, &in.Maturity, &in.CouponRate, &in.Series,
		&in.CouponDate1, &in.CouponDate2, &in.DayBasis, &in.Currency,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return coupon.Instrument{}, fmt.Errorf("isin %q: %w", isin, journal.ErrNotFound)
		}
		return coupon.Instrument{}, err
	}
	return in, nil
}

func (s *Store) CouponSchedule(ctx context.Context, isin string) (coupon.Schedule, error) {
	in, err := s.GetInstrument(ctx, isin)
	if err != nil {
		return coupon.Schedule{}, err
	}

	ctx, cancel := s.ctx(ctx)
	defer cancel()

	rows, err := s.db.QueryxContext(ctx, `
		SELECT isin, coupon_number, coupon_date, coupon_amount, principal
		FROM isin_coupon_schedule WHERE isin = $1 ORDER BY coupon_number`, isin)
	if err != nil {
		return coupon.Schedule{}, err
	}
	defer rows.Close()

	sched := coupon.Schedule{ISIN: isin, Issue: coupon.Day(in.IssueDate)}
	for rows.Next() {
		var e coupon.Entry
		if err := rows.Scan(&e.ISIN, &e.Number, &e.Date, &e.Amount, &e.Principal); err != nil {
			return coupon.Schedule{}, err
		}
		e.Date = coupon.Day(e.Date)
		sched.Entries = append(sched.Entries, e)
	}
	return sched, rows.Err()
}
