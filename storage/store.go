package storage

import (
	"context"

	"github.com/ipfs/go-cid"
)

// BlobStore is a minimal content-addressed blob store interface.
//
// Contract:
// - Put MUST be idempotent.
// - Stored blobs MUST be immutable.
// - Locators MUST be derived from the bytes written (CIDv1 raw + sha2-256).
// - Get MUST return ErrNotFound when the locator is absent.
// - Implementations MUST honor ctx cancellation and deadlines on any
//   operation that can block on I/O; callers bound every external call
//   with a timeout.
type BlobStore interface {
	Put(ctx context.Context, data []byte) (cid.Cid, error)
	Get(ctx context.Context, id cid.Cid) ([]byte, error)
	Has(ctx context.Context, id cid.Cid) bool
}
