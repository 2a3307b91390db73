// Package audit keeps an append-only log of limit decisions on disk.
package audit

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rustyeddy/treasury/risk"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/gowal"
)

var ErrNoData = errors.New("no data in audit log")

const (
	keyAllowed = "allowed"
	keyDenied  = "denied"
)

type Config struct {
	Dir              string `yaml:"dir" json:"dir"`
	SegmentThreshold int    `yaml:"segment_threshold" json:"segment_threshold"`
	MaxSegments      int    `yaml:"max_segments" json:"max_segments"`
	Sync             bool   `yaml:"sync" json:"sync"`
}

func DefaultConfig() Config {
	return Config{
		Dir:              "auditlog",
		SegmentThreshold: 1000,
		MaxSegments:      10,
		Sync:             true,
	}
}

// Entry is one decision as written to the log.
type Entry struct {
	TransactionID    string                `json:"transaction_id"`
	CounterpartyID   string                `json:"counterparty_id"`
	CounterpartyType risk.CounterpartyType `json:"counterparty_type"`
	Currency         string                `json:"currency"`
	Product          risk.ProductType      `json:"product_type"`
	Amount           decimal.Decimal       `json:"amount"`
	Allowed          bool                  `json:"allowed"`
	Reason           string                `json:"reason,omitempty"`
	Dimension        risk.Dimension        `json:"dimension,omitempty"`
	Current          decimal.Decimal       `json:"current_exposure"`
	Limit            decimal.Decimal       `json:"limit"`
	Exceeded         decimal.Decimal       `json:"exceeded"`
	At               time.Time             `json:"at"`
}

// WAL records decisions to a segmented write-ahead log.
type WAL struct {
	mu  sync.Mutex
	wal *gowal.Wal
}

func Open(cfg Config) (*WAL, error) {
	w, err := gowal.NewWAL(gowal.Config{
		Dir:              cfg.Dir,
		Prefix:           "audit_",
		SegmentThreshold: cfg.SegmentThreshold,
		MaxSegments:      cfg.MaxSegments,
		IsInSyncDiskMode: cfg.Sync,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error init audit wal")
	}
	return &WAL{wal: w}, nil
}

// Record appends a decision. It satisfies enforce.Recorder.
func (w *WAL) Record(p risk.Proposal, d risk.Decision, at time.Time) error {
	b, err := json.Marshal(Entry{
		TransactionID:    p.TransactionID,
		CounterpartyID:   p.CounterpartyID,
		CounterpartyType: p.CounterpartyType,
		Currency:         p.Currency,
		Product:          p.Product,
		Amount:           p.Amount,
		Allowed:          d.Allowed,
		Reason:           d.Reason,
		Dimension:        d.Dimension,
		Current:          d.CurrentExposure,
		Limit:            d.Limit,
		Exceeded:         d.Exceeded,
		At:               at.UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "error marshal audit entry")
	}

	key := keyDenied
	if d.Allowed {
		key = keyAllowed
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.wal.Write(w.wal.CurrentIndex()+1, key, b); err != nil {
		return errors.Wrapf(err, "error write audit entry %s", p.TransactionID)
	}
	return nil
}

// Entries returns every retained decision, oldest first.
func (w *WAL) Entries() ([]Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.wal.CurrentIndex() == 0 {
		return nil, ErrNoData
	}

	var out []Entry
	for m := range w.wal.Iterator() {
		var e Entry
		if err := json.Unmarshal(m.Value, &e); err != nil {
			return nil, errors.Wrapf(err, "error unmarshal audit entry %q", m.Key)
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.wal.Close()
}
