package testkit

import (
	"context"
	"sync"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/codethor0/DecentraFile/storage"
)

// MemStore is an in-memory BlobStore for tests.
//
// The optional Delay is applied before each operation while still honoring
// the context, which lets tests exercise timeout paths deterministically.
type MemStore struct {
	// Delay is the simulated latency per operation.
	Delay time.Duration

	mu    sync.RWMutex
	blobs map[cid.Cid][]byte
}

var _ storage.BlobStore = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[cid.Cid][]byte)}
}

func (m *MemStore) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	if err := m.wait(ctx); err != nil {
		return cid.Undef, err
	}
	id, err := storage.LocatorCID(data)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, storage.ErrInvalidLocator
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[id]; !ok {
		m.blobs[id] = append([]byte(nil), data...)
	}
	return id, nil
}

func (m *MemStore) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if !id.Defined() {
		return nil, storage.ErrInvalidLocator
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *MemStore) Has(ctx context.Context, id cid.Cid) bool {
	if m.wait(ctx) != nil || !id.Defined() {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[id]
	return ok
}

func (m *MemStore) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
