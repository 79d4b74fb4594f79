package sqliteledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/codethor0/DecentraFile/registry"
	"github.com/codethor0/DecentraFile/registry/testkit"
)

func openLedger(t *testing.T, path string) *Ledger {
	t.Helper()
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestConformance(t *testing.T) {
	testkit.RunTransportConformance(t, func(t *testing.T) registry.Transport {
		return openLedger(t, filepath.Join(t.TempDir(), "ledger.db"))
	})
}

func TestRecordsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	signer := testkit.NewSigner(t)
	fp := testkit.Fingerprint(t, "durable")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	sub := testkit.Submission(t, signer, fp, []byte("durable blob"))
	if err := l.Append(ctx, sub); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := openLedger(t, path)
	rec, err := reopened.Record(ctx, fp)
	if err != nil {
		t.Fatalf("Record after reopen failed: %v", err)
	}
	if string(rec.Blob) != "durable blob" || rec.Owner != signer.Identity() {
		t.Fatalf("record mismatch after reopen: %+v", rec)
	}

	// Append-only holds across restarts too.
	err = reopened.Append(ctx, testkit.Submission(t, signer, fp, []byte("other")))
	if err == nil {
		t.Fatalf("resubmission after reopen succeeded")
	}
}
