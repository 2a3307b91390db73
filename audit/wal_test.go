package audit

import (
	"sync"
	"testing"
	"time"

	"github.com/rustyeddy/treasury/risk"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestWAL(t *testing.T) *WAL {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Dir = t.TempDir()
	w, err := Open(cfg)
	require.NoError(t, err, "Failed to open audit WAL")
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func proposal(id string) risk.Proposal {
	return risk.Proposal{
		TransactionID:    id,
		CounterpartyID:   "101",
		CounterpartyType: risk.Individual,
		Product:          risk.GSec,
		Amount:           decimal.RequireFromString("1500.25"),
		Currency:         "LKR",
	}
}

func TestWAL_RecordAndRead(t *testing.T) {
	w := openTestWAL(t)
	at := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	require.NoError(t, w.Record(proposal("T1"), risk.Allow(), at))
	deny := risk.Decision{
		Reason:          "exceeds gsec limit (2000 > 1000)",
		Dimension:       risk.DimensionProduct,
		CurrentExposure: decimal.NewFromInt(500),
		Limit:           decimal.NewFromInt(1000),
		Exceeded:        decimal.NewFromInt(1000),
	}
	require.NoError(t, w.Record(proposal("T2"), deny, at.Add(time.Second)))

	got, err := w.Entries()
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "T1", got[0].TransactionID)
	assert.True(t, got[0].Allowed)
	assert.True(t, decimal.RequireFromString("1500.25").Equal(got[0].Amount))
	assert.True(t, at.Equal(got[0].At))

	assert.Equal(t, "T2", got[1].TransactionID)
	assert.False(t, got[1].Allowed)
	assert.Equal(t, risk.DimensionProduct, got[1].Dimension)
	assert.True(t, decimal.NewFromInt(1000).Equal(got[1].Exceeded))
}

func TestWAL_Empty(t *testing.T) {
	w := openTestWAL(t)

	_, err := w.Entries()
	assert.ErrorIs(t, err, ErrNoData)
}

func TestWAL_ConcurrentRecord(t *testing.T) {
	w := openTestWAL(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Record(proposal("T"), risk.Allow(), time.Now()))
		}()
	}
	wg.Wait()

	got, err := w.Entries()
	require.NoError(t, err)
	assert.Len(t, got, 20)
}
