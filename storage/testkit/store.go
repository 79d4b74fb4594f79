package testkit

import (
	"bytes"
	"context"
	"testing"

	"github.com/ipfs/go-cid"

	"github.com/codethor0/DecentraFile/storage"
)

// NewBlobStore constructs a fresh, empty store instance for a test.
// The returned store MUST be isolated from other tests.
type NewBlobStore func(t *testing.T) storage.BlobStore

// RunBlobStoreConformance exercises the storage.BlobStore contract against an
// implementation. Every backend package runs this suite.
func RunBlobStoreConformance(t *testing.T, newStore NewBlobStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		store := newStore(t)
		want := []byte("hello, blob storage")

		id, err := store.Put(ctx, want)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		wantID, err := storage.LocatorCID(want)
		if err != nil {
			t.Fatalf("LocatorCID failed: %v", err)
		}
		if id != wantID {
			t.Fatalf("Put locator mismatch: got %s want %s", id, wantID)
		}

		got, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch")
		}

		gotID, err := storage.LocatorCID(got)
		if err != nil {
			t.Fatalf("LocatorCID(got) failed: %v", err)
		}
		if gotID != id {
			t.Fatalf("Get returned bytes not matching requested locator")
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		store := newStore(t)
		b := []byte("same bytes")

		id1, err := store.Put(ctx, b)
		if err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		id2, err := store.Put(ctx, b)
		if err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		if id1 != id2 {
			t.Fatalf("Put not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		store := newStore(t)
		b := []byte("missing")
		id, err := storage.LocatorCID(b)
		if err != nil {
			t.Fatalf("LocatorCID failed: %v", err)
		}

		if store.Has(ctx, id) {
			t.Fatalf("Has returned true for missing locator")
		}
		_, err = store.Get(ctx, id)
		if !storage.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}

		if _, err := store.Put(ctx, b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !store.Has(ctx, id) {
			t.Fatalf("Has returned false after Put")
		}
	})

	t.Run("RejectUndefLocator", func(t *testing.T) {
		store := newStore(t)
		var undef cid.Cid
		if store.Has(ctx, undef) {
			t.Fatalf("Has should be false for undefined locator")
		}
		if _, err := store.Get(ctx, undef); err == nil {
			t.Fatalf("Get should fail for undefined locator")
		}
	})
}
