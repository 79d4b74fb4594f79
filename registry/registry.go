// Package registry maintains the append-only index of published files.
//
// Each entry maps a 32-byte fingerprint to an opaque blob (at most 1024
// bytes, typically an encoded key-protection envelope) and an owner
// identity. Entries are written once and never modified; resubmitting a
// fingerprint fails even when the payload is identical. Owners are capped at
// MaxPerOwner records.
//
// Storage is delegated to a Transport (ledger). Writes travel as signed
// Submissions; transports verify the signature against the owner identity
// before appending.
package registry

import (
	"context"
	"time"

	"github.com/codethor0/DecentraFile/fingerprint"
	"github.com/codethor0/DecentraFile/keys"
)

// Registry validates, signs, and routes operations to a ledger transport,
// emitting notifications on state changes and access decisions.
type Registry struct {
	transport Transport
	notifier  Notifier
	now       func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithNotifier routes events to n instead of discarding them.
func WithNotifier(n Notifier) Option {
	return func(r *Registry) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithClock overrides the timestamp source (tests).
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// New builds a Registry over the given transport.
func New(transport Transport, opts ...Option) *Registry {
	r := &Registry{
		transport: transport,
		notifier:  NopNotifier{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Put registers blob under fp, owned by the signer's identity. The record is
// timestamped, signed, and appended atomically; any resubmission of fp fails
// with ErrAlreadyExists regardless of owner or payload.
func (r *Registry) Put(ctx context.Context, fp fingerprint.Fingerprint, blob []byte, signer keys.Signer) (FileRecord, error) {
	if signer == nil {
		return FileRecord{}, ErrNoOwner
	}
	rec := FileRecord{
		Fingerprint: fp,
		Blob:        blob,
		Owner:       signer.Identity(),
		Timestamp:   r.now().UnixMilli(),
	}
	if err := validateRecord(rec); err != nil {
		return FileRecord{}, err
	}
	sub, err := SignSubmission(signer, rec)
	if err != nil {
		return FileRecord{}, err
	}
	if err := r.transport.Append(ctx, sub); err != nil {
		return FileRecord{}, err
	}
	r.notifier.Notify(EventRegistered, fp, rec.Owner)
	return rec, nil
}

// GetBlob is the open, unauthenticated read: anyone holding a fingerprint
// can fetch its blob. Contents stay opaque, so this leaks nothing beyond
// existence.
func (r *Registry) GetBlob(ctx context.Context, fp fingerprint.Fingerprint) ([]byte, error) {
	rec, err := r.transport.Record(ctx, fp)
	if err != nil {
		return nil, err
	}
	return rec.Blob, nil
}

// Retrieve is the authenticated read. Only the record owner may call it; any
// other caller gets ErrUnauthorized and an AccessDenied notification. The
// record itself is untouched either way.
func (r *Registry) Retrieve(ctx context.Context, fp fingerprint.Fingerprint, caller string) (FileRecord, error) {
	rec, err := r.transport.Record(ctx, fp)
	if err != nil {
		return FileRecord{}, err
	}
	if caller == "" || caller != rec.Owner {
		r.notifier.Notify(EventAccessDenied, fp, caller)
		return FileRecord{}, ErrUnauthorized
	}
	r.notifier.Notify(EventRetrieved, fp, caller)
	return rec, nil
}

// ListOwned returns the fingerprints registered by owner in insertion order.
// An empty owner yields an empty list. Deliberately unauthenticated: the
// listing reveals fingerprints only, and blobs stay encrypted.
func (r *Registry) ListOwned(ctx context.Context, owner string) ([]fingerprint.Fingerprint, error) {
	if owner == "" {
		return nil, nil
	}
	return r.transport.ListOwner(ctx, owner)
}

// Exists reports whether fp is registered.
func (r *Registry) Exists(ctx context.Context, fp fingerprint.Fingerprint) (bool, error) {
	return r.transport.Has(ctx, fp)
}

// Count returns how many records owner has registered.
func (r *Registry) Count(ctx context.Context, owner string) (int, error) {
	if owner == "" {
		return 0, nil
	}
	return r.transport.CountOwner(ctx, owner)
}
