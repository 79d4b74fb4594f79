package registry

import (
	"context"

	"github.com/codethor0/DecentraFile/fingerprint"
)

// Transport is an append-only ledger of file records. Implementations must
// make Append atomic: signature verification, the already-exists check, the
// owner quota check, and the write happen under one mutex or transaction, so
// concurrent submissions can never overwrite a fingerprint or push an owner
// past MaxPerOwner.
//
// Implementations: memledger (in-process), sqliteledger (durable),
// grpcledger (remote).
type Transport interface {
	// Append verifies and stores a submission. Returns ErrAlreadyExists,
	// ErrQuotaExceeded, ErrBadSignature, or a validation sentinel on
	// rejection.
	Append(ctx context.Context, sub Submission) error

	// Record returns the stored record for fp, or ErrNotFound.
	Record(ctx context.Context, fp fingerprint.Fingerprint) (FileRecord, error)

	// Has reports whether fp is registered.
	Has(ctx context.Context, fp fingerprint.Fingerprint) (bool, error)

	// ListOwner returns the fingerprints registered by owner in insertion
	// order. An unknown owner yields an empty slice, not an error.
	ListOwner(ctx context.Context, owner string) ([]fingerprint.Fingerprint, error)

	// CountOwner returns how many records owner has registered.
	CountOwner(ctx context.Context, owner string) (int, error)
}
