package enforce

import (
	"context"
	"hash/maphash"
	"sync"

	"github.com/rustyeddy/treasury/risk"
)

// LockTable hands out one mutual-exclusion scope per limit key.
//
// The key space is split over shards; a shard mutex only guards map
// bookkeeping and is never held while a scope is held or awaited, so keys
// in the same shard do not serialize each other. Entries are reference
// counted and removed once no holder or waiter refers to them.
type LockTable struct {
	seed   maphash.Seed
	shards []lockShard
}

type lockShard struct {
	mu sync.Mutex
	m  map[risk.Key]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

const DefaultShards = 64

func NewLockTable(shards int) *LockTable {
	if shards <= 0 {
		shards = DefaultShards
	}
	t := &LockTable{seed: maphash.MakeSeed(), shards: make([]lockShard, shards)}
	for i := range t.shards {
		t.shards[i].m = make(map[risk.Key]*keyLock)
	}
	return t
}

func (t *LockTable) shard(k risk.Key) *lockShard {
	h := maphash.String(t.seed, k.String())
	return &t.shards[h%uint64(len(t.shards))]
}

// Acquire blocks until the scope for k is held or ctx is done. The returned
// release func is safe to call more than once.
func (t *LockTable) Acquire(ctx context.Context, k risk.Key) (release func(), err error) {
	sh := t.shard(k)

	sh.mu.Lock()
	kl, ok := sh.m[k]
	if !ok {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		sh.m[k] = kl
	}
	kl.refs++
	sh.mu.Unlock()

	select {
	case kl.sem <- struct{}{}:
	case <-ctx.Done():
		t.unref(sh, k, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.sem
			t.unref(sh, k, kl)
		})
	}, nil
}

func (t *LockTable) unref(sh *lockShard, k risk.Key, kl *keyLock) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	kl.refs--
	if kl.refs == 0 && sh.m[k] == kl {
		delete(sh.m, k)
	}
}

// Len returns the number of keys currently held or awaited.
func (t *LockTable) Len() int {
	n := 0
	for i := range t.shards {
		sh := &t.shards[i]
		sh.mu.Lock()
		n += len(sh.m)
		sh.mu.Unlock()
	}
	return n
}
