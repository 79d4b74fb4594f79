package envelope

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"sync"
	"testing"
)

var (
	testRSAOnce sync.Once
	testRSAKey  *rsa.PrivateKey
)

// testRecipient returns a shared 2048-bit keypair; generating one per test
// would dominate the suite's runtime.
func testRecipient(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testRSAOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("rsa.GenerateKey: %v", err)
		}
		testRSAKey = k
	})
	return testRSAKey
}

func TestWrapUnwrapRoundTrip(t *testing.T) {
	recipient := testRecipient(t)
	key := mustKey(t)

	blob, err := Wrap(key, &recipient.PublicKey)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if len(blob) == 0 || len(blob) > MaxWrappedSize {
		t.Fatalf("wrapped blob size %d out of (0, %d]", len(blob), MaxWrappedSize)
	}

	got, err := Unwrap(blob, recipient)
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Fatalf("unwrapped key differs from original")
	}
}

func TestWrapRejectsBadInput(t *testing.T) {
	recipient := testRecipient(t)

	if _, err := Wrap([]byte("short"), &recipient.PublicKey); !errors.Is(err, ErrKeySize) {
		t.Fatalf("short key: got %v", err)
	}
	if _, err := Wrap(mustKey(t), nil); !errors.Is(err, ErrBadPublicKey) {
		t.Fatalf("nil public key: got %v", err)
	}

	weak, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("rsa.GenerateKey(1024): %v", err)
	}
	if _, err := Wrap(mustKey(t), &weak.PublicKey); !errors.Is(err, ErrBadPublicKey) {
		t.Fatalf("weak public key: got %v", err)
	}
}

func TestUnwrapFailsUniformly(t *testing.T) {
	recipient := testRecipient(t)
	key := mustKey(t)
	blob, err := Wrap(key, &recipient.PublicKey)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}

	mutated := append([]byte(nil), blob...)
	mutated[10] ^= 0x01

	cases := []struct {
		name string
		blob []byte
		priv *rsa.PrivateKey
	}{
		{"empty blob", nil, recipient},
		{"oversized blob", make([]byte, MaxWrappedSize+1), recipient},
		{"nil private key", blob, nil},
		{"wrong recipient", blob, other},
		{"mutated blob", mutated, recipient},
	}
	for _, tc := range cases {
		if _, err := Unwrap(tc.blob, tc.priv); !errors.Is(err, ErrKeyUnwrapFailed) {
			t.Fatalf("%s: got %v, want ErrKeyUnwrapFailed", tc.name, err)
		}
	}
}
