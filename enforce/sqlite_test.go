package enforce

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rustyeddy/treasury/exposure"
	"github.com/rustyeddy/treasury/journal"
	"github.com/rustyeddy/treasury/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentProposalsOnSQLite(t *testing.T) {
	t.Parallel()

	j, err := journal.NewSQLite(filepath.Join(t.TempDir(), "treasury.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	// 0.1 does not add up exactly in floating point; seven of them must.
	require.NoError(t, j.SaveLimits(context.Background(), *limitRow(keyA, "0.7", nil)))

	const (
		n = 40
		k = 7
	)
	c := New(j, j, DefaultConfig())
	c.cfg.AcquireTimeout = 0

	var allowed atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			d, err := c.Evaluate(context.Background(), proposal(keyA, risk.MoneyMarket, "0.1"))
			if assert.NoError(t, err) && d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(k), allowed.Load())

	recs, err := j.ListRecords(context.Background(), keyA)
	require.NoError(t, err)
	assert.Len(t, recs, k)

	total, err := j.SumAmount(context.Background(), exposure.Scope{Key: keyA})
	require.NoError(t, err)
	assert.True(t, dec("0.7").Equal(total), "got %s", total)
	assert.Equal(t, 0, c.ActiveKeys())
}
