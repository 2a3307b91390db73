package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/treasury/exposure"
	"github.com/rustyeddy/treasury/risk"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j, path
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var keyA = risk.Key{CounterpartyID: "101", CounterpartyType: risk.Individual, Currency: "LKR"}

func booking(id string, k risk.Key, p risk.ProductType, amount string, st risk.Status) risk.Booking {
	return risk.Booking{
		Proposal: risk.Proposal{
			TransactionID:    id,
			CounterpartyID:   k.CounterpartyID,
			CounterpartyType: k.CounterpartyType,
			Currency:         k.Currency,
			Product:          p,
			Amount:           dec(amount),
		},
		Status:   st,
		BookedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table'`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	for _, table := range []string{"counterparties", "counterparty_limits", "transactions", "isin_master", "isin_coupon_schedule"} {
		assert.True(t, found[table], table)
	}
}

func TestSumAmountCountsOnlyBookedStatuses(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	ctx := context.Background()
	keyB := risk.Key{CounterpartyID: "101", CounterpartyType: risk.Joint, Currency: "LKR"}
	keyUSD := risk.Key{CounterpartyID: "101", CounterpartyType: risk.Individual, Currency: "USD"}

	for _, b := range []risk.Booking{
		booking("T1", keyA, risk.GSec, "100.25", risk.StatusAccepted),
		booking("T2", keyA, risk.Repo, "50", risk.StatusAccepted),
		booking("T3", keyA, risk.GSec, "999", risk.StatusRejected),
		booking("T4", keyA, risk.GSec, "10", risk.StatusApproved),
		booking("T5", keyB, risk.GSec, "7", risk.StatusAccepted),
		booking("T6", keyUSD, risk.GSec, "3", risk.StatusAccepted),
	} {
		require.NoError(t, j.Persist(ctx, b))
	}

	gsec := risk.GSec
	got, err := j.SumAmount(ctx, exposure.Scope{Key: keyA, Product: &gsec})
	require.NoError(t, err)
	assert.True(t, dec("110.25").Equal(got), "got %s", got)

	got, err = j.SumAmount(ctx, exposure.Scope{Key: keyA})
	require.NoError(t, err)
	assert.True(t, dec("160.25").Equal(got), "got %s", got)

	fx := risk.FX
	got, err = j.SumAmount(ctx, exposure.Scope{Key: keyA, Product: &fx})
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestPersistDuplicateIDFails(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, j.Persist(ctx, booking("DUP", keyA, risk.FX, "1", risk.StatusAccepted)))
	assert.Error(t, j.Persist(ctx, booking("DUP", keyA, risk.FX, "1", risk.StatusAccepted)))

	got, err := j.SumAmount(ctx, exposure.Scope{Key: keyA})
	require.NoError(t, err)
	assert.True(t, dec("1").Equal(got))
}

func TestGetRecordRoundTrip(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	ctx := context.Background()

	b := booking("T1", keyA, risk.GSec, "1234.5678", risk.StatusAccepted)
	b.ISIN = "LK0412A28106"
	b.TradeDate = time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC)
	require.NoError(t, j.Persist(ctx, b))

	rec, err := j.GetRecord(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, b.TransactionID, rec.TransactionID)
	assert.Equal(t, b.CounterpartyType, rec.CounterpartyType)
	assert.Equal(t, b.Product, rec.Product)
	assert.True(t, b.Amount.Equal(rec.Amount))
	assert.Equal(t, b.ISIN, rec.ISIN)
	assert.True(t, b.TradeDate.Equal(rec.TradeDate))
	assert.True(t, b.BookedAt.Equal(rec.BookedAt))
	assert.Equal(t, risk.StatusAccepted, rec.Status)

	_, err = j.GetRecord(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, j.Persist(ctx, booking("T1", keyA, risk.GSec, "10", risk.StatusAccepted)))
	require.NoError(t, j.Persist(ctx, booking("T2", keyA, risk.GSec, "20", risk.StatusAccepted)))

	err := j.UpdateStatus(ctx, StatusUpdate{TransactionID: "T1", Status: risk.StatusRejected})
	assert.ErrorIs(t, err, risk.ErrInvalidInput, "rejection needs a comment")

	err = j.UpdateStatus(ctx, StatusUpdate{TransactionID: "T1", Status: risk.StatusAccepted})
	assert.ErrorIs(t, err, risk.ErrInvalidInput)

	require.NoError(t, j.UpdateStatus(ctx, StatusUpdate{TransactionID: "T1", Status: risk.StatusRejected, Comment: "wrong ISIN", AuthorizedBy: "checker"}))
	require.NoError(t, j.UpdateStatus(ctx, StatusUpdate{TransactionID: "T2", Status: risk.StatusApproved, AuthorizedBy: "checker"}))

	got, err := j.SumAmount(ctx, exposure.Scope{Key: keyA})
	require.NoError(t, err)
	assert.True(t, dec("20").Equal(got), "rejected booking drops out of exposure")

	err = j.UpdateStatus(ctx, StatusUpdate{TransactionID: "T1", Status: risk.StatusApproved})
	assert.ErrorIs(t, err, ErrStatusTransition)

	err = j.UpdateStatus(ctx, StatusUpdate{TransactionID: "nope", Status: risk.StatusApproved})
	assert.ErrorIs(t, err, ErrNotFound)

	rec, err := j.GetRecord(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "wrong ISIN", rec.Comment)
	assert.Equal(t, "checker", rec.AuthorizedBy)
	assert.False(t, rec.AuthorizedAt.IsZero())
}

func TestListRecords(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, j.Persist(ctx, booking("T2", keyA, risk.GSec, "1", risk.StatusAccepted)))
	require.NoError(t, j.Persist(ctx, booking("T1", keyA, risk.Repo, "2", risk.StatusRejected)))

	recs, err := j.ListRecords(ctx, keyA)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "T1", recs[0].TransactionID)
	assert.Equal(t, "T2", recs[1].TransactionID)
}
