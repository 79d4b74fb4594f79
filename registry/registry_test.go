package registry_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/codethor0/DecentraFile/fingerprint"
	"github.com/codethor0/DecentraFile/registry"
	"github.com/codethor0/DecentraFile/registry/memledger"
	"github.com/codethor0/DecentraFile/registry/testkit"
)

type capturingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *capturingNotifier) Notify(event string, fp fingerprint.Fingerprint, owner string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *capturingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

func newRegistry(t *testing.T, opts ...registry.Option) *registry.Registry {
	t.Helper()
	return registry.New(memledger.New(), opts...)
}

func TestPutAndRetrieve(t *testing.T) {
	ctx := context.Background()
	notifier := &capturingNotifier{}
	reg := newRegistry(t, registry.WithNotifier(notifier))
	signer := testkit.NewSigner(t)
	fp := testkit.Fingerprint(t, "put-retrieve")
	blob := []byte("protection envelope bytes")

	before := time.Now().UnixMilli()
	rec, err := reg.Put(ctx, fp, blob, signer)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if rec.Timestamp < before || rec.Timestamp <= 0 {
		t.Fatalf("bad timestamp: %d", rec.Timestamp)
	}
	if rec.Owner != signer.Identity() {
		t.Fatalf("owner mismatch: %q", rec.Owner)
	}

	got, err := reg.Retrieve(ctx, fp, signer.Identity())
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if !bytes.Equal(got.Blob, blob) {
		t.Fatalf("blob mismatch")
	}

	events := notifier.all()
	if len(events) != 2 || events[0] != registry.EventRegistered || events[1] != registry.EventRetrieved {
		t.Fatalf("events: %v", events)
	}
}

func TestPutValidation(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	signer := testkit.NewSigner(t)
	fp := testkit.Fingerprint(t, "validation")

	cases := []struct {
		name string
		fp   fingerprint.Fingerprint
		blob []byte
		want error
	}{
		{"zero fingerprint", fingerprint.Zero, []byte("b"), registry.ErrZeroFingerprint},
		{"empty blob", fp, nil, registry.ErrEmptyBlob},
		{"oversized blob", fp, make([]byte, registry.MaxBlobSize+1), registry.ErrBlobTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := reg.Put(ctx, tc.fp, tc.blob, signer); !errors.Is(err, tc.want) {
				t.Fatalf("got err=%v want %v", err, tc.want)
			}
		})
	}

	t.Run("nil signer", func(t *testing.T) {
		if _, err := reg.Put(ctx, fp, []byte("b"), nil); !errors.Is(err, registry.ErrNoOwner) {
			t.Fatalf("got err=%v want ErrNoOwner", err)
		}
	})

	t.Run("max size blob accepted", func(t *testing.T) {
		if _, err := reg.Put(ctx, fp, make([]byte, registry.MaxBlobSize), signer); err != nil {
			t.Fatalf("1024-byte blob rejected: %v", err)
		}
	})
}

func TestResubmissionAlwaysFails(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	signer := testkit.NewSigner(t)
	fp := testkit.Fingerprint(t, "resubmit")
	blob := []byte("same bytes")

	if _, err := reg.Put(ctx, fp, blob, signer); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	// Identical payload, same owner: still rejected.
	if _, err := reg.Put(ctx, fp, blob, signer); !errors.Is(err, registry.ErrAlreadyExists) {
		t.Fatalf("identical resubmission: got err=%v want ErrAlreadyExists", err)
	}
}

func TestRetrieveAuthorization(t *testing.T) {
	ctx := context.Background()
	notifier := &capturingNotifier{}
	reg := newRegistry(t, registry.WithNotifier(notifier))
	owner := testkit.NewSigner(t)
	stranger := testkit.NewSigner(t)
	fp := testkit.Fingerprint(t, "authz")

	if _, err := reg.Put(ctx, fp, []byte("b"), owner); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if _, err := reg.Retrieve(ctx, fp, stranger.Identity()); !errors.Is(err, registry.ErrUnauthorized) {
		t.Fatalf("stranger Retrieve: got err=%v want ErrUnauthorized", err)
	}
	if _, err := reg.Retrieve(ctx, fp, ""); !errors.Is(err, registry.ErrUnauthorized) {
		t.Fatalf("anonymous Retrieve: got err=%v want ErrUnauthorized", err)
	}

	events := notifier.all()
	var denied int
	for _, e := range events {
		if e == registry.EventAccessDenied {
			denied++
		}
	}
	if denied != 2 {
		t.Fatalf("expected 2 AccessDenied events, got %d (%v)", denied, events)
	}

	// The open read stays available to anyone.
	blob, err := reg.GetBlob(ctx, fp)
	if err != nil {
		t.Fatalf("GetBlob failed: %v", err)
	}
	if string(blob) != "b" {
		t.Fatalf("GetBlob mismatch: %q", blob)
	}
}

func TestRetrieveMissing(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	fp := testkit.Fingerprint(t, "missing")

	if _, err := reg.Retrieve(ctx, fp, "ed25519:whoever"); !registry.IsNotFound(err) {
		t.Fatalf("Retrieve missing: got err=%v want ErrNotFound", err)
	}
	if _, err := reg.GetBlob(ctx, fp); !registry.IsNotFound(err) {
		t.Fatalf("GetBlob missing: got err=%v want ErrNotFound", err)
	}
}

func TestListOwnedAndCount(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	signer := testkit.NewSigner(t)

	var want []fingerprint.Fingerprint
	for _, label := range []string{"one", "two", "three"} {
		fp := testkit.Fingerprint(t, label)
		want = append(want, fp)
		if _, err := reg.Put(ctx, fp, []byte("b"), signer); err != nil {
			t.Fatalf("Put %s failed: %v", label, err)
		}
	}

	got, err := reg.ListOwned(ctx, signer.Identity())
	if err != nil {
		t.Fatalf("ListOwned failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("ListOwned length: got %d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("insertion order broken at %d", i)
		}
	}

	n, err := reg.Count(ctx, signer.Identity())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != len(want) {
		t.Fatalf("Count: got %d want %d", n, len(want))
	}

	// Null owner reads are defined, not errors.
	empty, err := reg.ListOwned(ctx, "")
	if err != nil || len(empty) != 0 {
		t.Fatalf("ListOwned(\"\"): got %v, err=%v", empty, err)
	}
	zero, err := reg.Count(ctx, "")
	if err != nil || zero != 0 {
		t.Fatalf("Count(\"\"): got %d, err=%v", zero, err)
	}
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	signer := testkit.NewSigner(t)
	fp := testkit.Fingerprint(t, "exists")

	ok, err := reg.Exists(ctx, fp)
	if err != nil || ok {
		t.Fatalf("Exists before Put: ok=%v err=%v", ok, err)
	}
	if _, err := reg.Put(ctx, fp, []byte("b"), signer); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	ok, err = reg.Exists(ctx, fp)
	if err != nil || !ok {
		t.Fatalf("Exists after Put: ok=%v err=%v", ok, err)
	}
}

func TestSubmissionCodecDeterministic(t *testing.T) {
	signer := testkit.NewSigner(t)
	rec := registry.FileRecord{
		Fingerprint: testkit.Fingerprint(t, "codec"),
		Blob:        []byte("payload"),
		Owner:       signer.Identity(),
		Timestamp:   time.Now().UnixMilli(),
	}

	a, err := registry.EncodeRecord(rec)
	if err != nil {
		t.Fatalf("EncodeRecord failed: %v", err)
	}
	b, err := registry.EncodeRecord(rec)
	if err != nil {
		t.Fatalf("EncodeRecord failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("record encoding is not deterministic")
	}

	sub, err := registry.SignSubmission(signer, rec)
	if err != nil {
		t.Fatalf("SignSubmission failed: %v", err)
	}
	wire, err := registry.EncodeSubmission(sub)
	if err != nil {
		t.Fatalf("EncodeSubmission failed: %v", err)
	}
	decoded, err := registry.DecodeSubmission(wire)
	if err != nil {
		t.Fatalf("DecodeSubmission failed: %v", err)
	}
	if err := registry.VerifySubmission(decoded); err != nil {
		t.Fatalf("decoded submission does not verify: %v", err)
	}
}

func TestSignSubmissionOwnerMismatch(t *testing.T) {
	signer := testkit.NewSigner(t)
	other := testkit.NewSigner(t)
	rec := registry.FileRecord{
		Fingerprint: testkit.Fingerprint(t, "mismatch"),
		Blob:        []byte("b"),
		Owner:       other.Identity(),
		Timestamp:   time.Now().UnixMilli(),
	}
	if _, err := registry.SignSubmission(signer, rec); err == nil {
		t.Fatalf("signed a record owned by someone else")
	}
}
