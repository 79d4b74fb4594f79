package storage

import (
	"context"
	"errors"

	"github.com/ipfs/go-cid"
)

// FallbackStore provides deterministic, ordered fallback across multiple
// blob stores.
//
// Read order is the slice order in Stores; callers MUST supply a fixed order.
// This avoids map-iteration nondeterminism and makes the retrieval strategy
// explicit.
//
// Put is defined to write only to the first store.
type FallbackStore struct {
	Stores []BlobStore
}

func (f FallbackStore) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	if len(f.Stores) == 0 {
		return cid.Undef, errors.New("storage: FallbackStore has no stores")
	}
	return f.Stores[0].Put(ctx, data)
}

func (f FallbackStore) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	for _, s := range f.Stores {
		b, err := s.Get(ctx, id)
		if err == nil {
			return b, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (f FallbackStore) Has(ctx context.Context, id cid.Cid) bool {
	for _, s := range f.Stores {
		if s.Has(ctx, id) {
			return true
		}
	}
	return false
}
