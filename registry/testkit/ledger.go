// Package testkit provides a shared conformance suite for ledger transports.
package testkit

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/codethor0/DecentraFile/fingerprint"
	"github.com/codethor0/DecentraFile/keys"
	"github.com/codethor0/DecentraFile/registry"
)

// NewTransport constructs a fresh, empty transport instance for a test.
// The returned transport MUST be isolated from other tests.
type NewTransport func(t *testing.T) registry.Transport

// NewSigner returns a fresh signer with a unique identity.
func NewSigner(t *testing.T) keys.Signer {
	t.Helper()
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		t.Fatalf("rand.Read failed: %v", err)
	}
	signer, err := keys.NewEd25519Signer(seed)
	if err != nil {
		t.Fatalf("NewEd25519Signer failed: %v", err)
	}
	return signer
}

// Fingerprint derives a fingerprint from an arbitrary test label.
func Fingerprint(t *testing.T, label string) fingerprint.Fingerprint {
	t.Helper()
	fp, err := fingerprint.Derive(label)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	return fp
}

// Submission builds a valid signed submission for tests.
func Submission(t *testing.T, signer keys.Signer, fp fingerprint.Fingerprint, blob []byte) registry.Submission {
	t.Helper()
	sub, err := registry.SignSubmission(signer, registry.FileRecord{
		Fingerprint: fp,
		Blob:        blob,
		Owner:       signer.Identity(),
		Timestamp:   time.Now().UnixMilli(),
	})
	if err != nil {
		t.Fatalf("SignSubmission failed: %v", err)
	}
	return sub
}

// RunTransportConformance exercises the registry.Transport contract against
// an implementation. Every ledger package runs this suite.
func RunTransportConformance(t *testing.T, newTransport NewTransport) {
	t.Helper()
	ctx := context.Background()

	t.Run("AppendAndRecord", func(t *testing.T) {
		tr := newTransport(t)
		signer := NewSigner(t)
		fp := Fingerprint(t, "append-and-record")
		sub := Submission(t, signer, fp, []byte("blob"))

		if err := tr.Append(ctx, sub); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		rec, err := tr.Record(ctx, fp)
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if rec.Fingerprint != fp || !bytes.Equal(rec.Blob, sub.Record.Blob) ||
			rec.Owner != signer.Identity() || rec.Timestamp != sub.Record.Timestamp {
			t.Fatalf("stored record mismatch: %+v", rec)
		}
	})

	t.Run("AppendOnlyNoOverwrite", func(t *testing.T) {
		tr := newTransport(t)
		signer := NewSigner(t)
		fp := Fingerprint(t, "no-overwrite")

		if err := tr.Append(ctx, Submission(t, signer, fp, []byte("first"))); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		// Identical resubmission by the same owner still fails.
		err := tr.Append(ctx, Submission(t, signer, fp, []byte("first")))
		if !errors.Is(err, registry.ErrAlreadyExists) {
			t.Fatalf("resubmission: got err=%v want ErrAlreadyExists", err)
		}
		// A different owner cannot steal the fingerprint either.
		other := NewSigner(t)
		err = tr.Append(ctx, Submission(t, other, fp, []byte("second")))
		if !errors.Is(err, registry.ErrAlreadyExists) {
			t.Fatalf("cross-owner overwrite: got err=%v want ErrAlreadyExists", err)
		}

		rec, err := tr.Record(ctx, fp)
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if string(rec.Blob) != "first" {
			t.Fatalf("record was overwritten: %q", rec.Blob)
		}
	})

	t.Run("RejectForgedSignature", func(t *testing.T) {
		tr := newTransport(t)
		signer := NewSigner(t)
		fp := Fingerprint(t, "forged")
		sub := Submission(t, signer, fp, []byte("blob"))
		sub.Signature[0] ^= 0x01

		err := tr.Append(ctx, sub)
		if !errors.Is(err, registry.ErrBadSignature) {
			t.Fatalf("forged submission: got err=%v want ErrBadSignature", err)
		}
		if ok, _ := tr.Has(ctx, fp); ok {
			t.Fatalf("forged submission was stored")
		}
	})

	t.Run("RecordNotFound", func(t *testing.T) {
		tr := newTransport(t)
		fp := Fingerprint(t, "absent")
		if _, err := tr.Record(ctx, fp); !registry.IsNotFound(err) {
			t.Fatalf("Record missing: got err=%v want ErrNotFound", err)
		}
		ok, err := tr.Has(ctx, fp)
		if err != nil {
			t.Fatalf("Has failed: %v", err)
		}
		if ok {
			t.Fatalf("Has returned true for absent fingerprint")
		}
	})

	t.Run("ListOwnerInsertionOrder", func(t *testing.T) {
		tr := newTransport(t)
		signer := NewSigner(t)

		var want []fingerprint.Fingerprint
		for i := 0; i < 5; i++ {
			fp := Fingerprint(t, fmt.Sprintf("ordered-%d", i))
			want = append(want, fp)
			if err := tr.Append(ctx, Submission(t, signer, fp, []byte("b"))); err != nil {
				t.Fatalf("Append #%d failed: %v", i, err)
			}
		}

		got, err := tr.ListOwner(ctx, signer.Identity())
		if err != nil {
			t.Fatalf("ListOwner failed: %v", err)
		}
		if len(got) != len(want) {
			t.Fatalf("ListOwner length: got %d want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("ListOwner order broken at %d: got %s want %s", i, got[i], want[i])
			}
		}

		n, err := tr.CountOwner(ctx, signer.Identity())
		if err != nil {
			t.Fatalf("CountOwner failed: %v", err)
		}
		if n != len(want) {
			t.Fatalf("CountOwner: got %d want %d", n, len(want))
		}
	})

	t.Run("UnknownOwnerEmpty", func(t *testing.T) {
		tr := newTransport(t)
		fps, err := tr.ListOwner(ctx, "ed25519:unknown")
		if err != nil {
			t.Fatalf("ListOwner failed: %v", err)
		}
		if len(fps) != 0 {
			t.Fatalf("ListOwner for unknown owner: got %d entries", len(fps))
		}
		n, err := tr.CountOwner(ctx, "ed25519:unknown")
		if err != nil {
			t.Fatalf("CountOwner failed: %v", err)
		}
		if n != 0 {
			t.Fatalf("CountOwner for unknown owner: got %d", n)
		}
	})
}
