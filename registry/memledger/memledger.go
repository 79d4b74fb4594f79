// Package memledger is an in-process, mutex-guarded ledger transport. It
// backs tests and single-process CLI use; nothing survives a restart.
package memledger

import (
	"context"
	"sync"

	"github.com/codethor0/DecentraFile/fingerprint"
	"github.com/codethor0/DecentraFile/registry"
)

// Ledger implements registry.Transport in memory.
type Ledger struct {
	mu      sync.Mutex
	records map[fingerprint.Fingerprint]registry.FileRecord
	byOwner map[string][]fingerprint.Fingerprint
}

var _ registry.Transport = (*Ledger)(nil)

func New() *Ledger {
	return &Ledger{
		records: make(map[fingerprint.Fingerprint]registry.FileRecord),
		byOwner: make(map[string][]fingerprint.Fingerprint),
	}
}

func (l *Ledger) Append(ctx context.Context, sub registry.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := registry.VerifySubmission(sub); err != nil {
		return err
	}

	rec := sub.Record
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.records[rec.Fingerprint]; ok {
		return registry.ErrAlreadyExists
	}
	if len(l.byOwner[rec.Owner]) >= registry.MaxPerOwner {
		return registry.ErrQuotaExceeded
	}
	rec.Blob = append([]byte(nil), rec.Blob...)
	l.records[rec.Fingerprint] = rec
	l.byOwner[rec.Owner] = append(l.byOwner[rec.Owner], rec.Fingerprint)
	return nil
}

func (l *Ledger) Record(ctx context.Context, fp fingerprint.Fingerprint) (registry.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return registry.FileRecord{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[fp]
	if !ok {
		return registry.FileRecord{}, registry.ErrNotFound
	}
	// Callers must not be able to rewrite ledger state through the
	// returned record.
	rec.Blob = append([]byte(nil), rec.Blob...)
	return rec, nil
}

func (l *Ledger) Has(ctx context.Context, fp fingerprint.Fingerprint) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.records[fp]
	return ok, nil
}

func (l *Ledger) ListOwner(ctx context.Context, owner string) ([]fingerprint.Fingerprint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fps := l.byOwner[owner]
	out := make([]fingerprint.Fingerprint, len(fps))
	copy(out, fps)
	return out, nil
}

func (l *Ledger) CountOwner(ctx context.Context, owner string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byOwner[owner]), nil
}
