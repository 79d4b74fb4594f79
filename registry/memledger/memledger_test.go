package memledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/codethor0/DecentraFile/registry"
	"github.com/codethor0/DecentraFile/registry/testkit"
)

func TestConformance(t *testing.T) {
	testkit.RunTransportConformance(t, func(t *testing.T) registry.Transport {
		return New()
	})
}

func TestOwnerQuota(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping quota fill in -short mode")
	}
	ctx := context.Background()
	ledger := New()
	signer := testkit.NewSigner(t)

	for i := 0; i < registry.MaxPerOwner; i++ {
		fp := testkit.Fingerprint(t, fmt.Sprintf("quota-%d", i))
		if err := ledger.Append(ctx, testkit.Submission(t, signer, fp, []byte("b"))); err != nil {
			t.Fatalf("Append #%d failed: %v", i, err)
		}
	}

	fp := testkit.Fingerprint(t, "quota-overflow")
	err := ledger.Append(ctx, testkit.Submission(t, signer, fp, []byte("b")))
	if !errors.Is(err, registry.ErrQuotaExceeded) {
		t.Fatalf("over-quota append: got err=%v want ErrQuotaExceeded", err)
	}

	// A different owner is unaffected.
	other := testkit.NewSigner(t)
	if err := ledger.Append(ctx, testkit.Submission(t, other, fp, []byte("b"))); err != nil {
		t.Fatalf("other owner blocked by quota: %v", err)
	}
}

func TestConcurrentAppendSingleWinner(t *testing.T) {
	ctx := context.Background()
	ledger := New()
	fp := testkit.Fingerprint(t, "contested")

	const n = 8
	subs := make([]registry.Submission, n)
	for i := range subs {
		signer := testkit.NewSigner(t)
		subs[i] = testkit.Submission(t, signer, fp, []byte(fmt.Sprintf("payload-%d", i)))
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = ledger.Append(ctx, subs[i])
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, registry.ErrAlreadyExists):
		default:
			t.Fatalf("unexpected append error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winning append, got %d", wins)
	}
}

func TestRecordBlobIsNotAliased(t *testing.T) {
	ctx := context.Background()
	ledger := New()
	signer := testkit.NewSigner(t)
	fp := testkit.Fingerprint(t, "aliased")

	sub := testkit.Submission(t, signer, fp, []byte("original"))
	if err := ledger.Append(ctx, sub); err != nil {
		t.Fatalf("Append: %v", err)
	}
	// Mutating the caller's submission after Append must not reach the ledger.
	sub.Record.Blob[0] = 'X'

	rec, err := ledger.Record(ctx, fp)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if string(rec.Blob) != "original" {
		t.Fatalf("stored record shares the submission's blob: %q", rec.Blob)
	}

	// Mutating a returned record must not rewrite the stored one.
	rec.Blob[0] = 'X'
	again, err := ledger.Record(ctx, fp)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if string(again.Blob) != "original" {
		t.Fatalf("stored record mutated through returned blob: %q", again.Blob)
	}
}

func TestCanceledContext(t *testing.T) {
	ledger := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	signer := testkit.NewSigner(t)
	fp := testkit.Fingerprint(t, "canceled")
	if err := ledger.Append(ctx, testkit.Submission(t, signer, fp, []byte("b"))); !errors.Is(err, context.Canceled) {
		t.Fatalf("Append with canceled ctx: got %v", err)
	}
	if _, err := ledger.Record(ctx, fp); !errors.Is(err, context.Canceled) {
		t.Fatalf("Record with canceled ctx: got %v", err)
	}
}
