package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

// Identity algorithms.
const (
	AlgEd25519    = "ed25519"
	AlgDilithium3 = "dilithium3"
)

var (
	ErrInvalidIdentity = errors.New("keys: invalid owner identity")
	ErrBadSignature    = errors.New("keys: signature invalid")
	ErrUnsupportedAlg  = errors.New("keys: unsupported identity algorithm")
)

// IdentityFromPublicKey encodes an Ed25519 public key into an owner identity
// string.
func IdentityFromPublicKey(pub ed25519.PublicKey) (string, error) {
	if l := len(pub); l != ed25519.PublicKeySize {
		return "", fmt.Errorf("keys: ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, l)
	}
	return AlgEd25519 + ":" + base64.StdEncoding.EncodeToString(pub), nil
}

// IdentityFromSeed returns the owner identity for an Ed25519 seed.
func IdentityFromSeed(seed []byte) string {
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return AlgEd25519 + ":" + base64.StdEncoding.EncodeToString(pub)
}

// IdentityFromDilithium3 encodes a Dilithium3 public key into an owner
// identity string.
func IdentityFromDilithium3(pub *mode3.PublicKey) (string, error) {
	if pub == nil {
		return "", ErrInvalidIdentity
	}
	raw, err := pub.MarshalBinary()
	if err != nil {
		return "", err
	}
	return AlgDilithium3 + ":" + base64.StdEncoding.EncodeToString(raw), nil
}

// ParseIdentity splits and validates an owner identity string, returning the
// algorithm and raw public key bytes.
func ParseIdentity(owner string) (alg string, pub []byte, err error) {
	alg, enc, ok := strings.Cut(owner, ":")
	if !ok {
		return "", nil, ErrInvalidIdentity
	}
	pub, err = decodeBase64(enc)
	if err != nil {
		return "", nil, fmt.Errorf("keys: invalid identity base64: %w", ErrInvalidIdentity)
	}

	switch alg {
	case AlgEd25519:
		if len(pub) != ed25519.PublicKeySize {
			return "", nil, fmt.Errorf("keys: invalid ed25519 public key length: %w", ErrInvalidIdentity)
		}
	case AlgDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return "", nil, fmt.Errorf("keys: invalid dilithium3 public key: %w", ErrInvalidIdentity)
		}
	default:
		return "", nil, ErrUnsupportedAlg
	}
	return alg, pub, nil
}

// VerifyIdentitySignature checks sig over sha256(message) against the public
// key embedded in the owner identity.
func VerifyIdentitySignature(owner string, message, sig []byte) error {
	alg, pub, err := ParseIdentity(owner)
	if err != nil {
		return err
	}
	digest := sha256.Sum256(message)

	switch alg {
	case AlgEd25519:
		if len(sig) != ed25519.SignatureSize {
			return ErrBadSignature
		}
		if !ed25519.Verify(ed25519.PublicKey(pub), digest[:], sig) {
			return ErrBadSignature
		}
		return nil
	case AlgDilithium3:
		if len(sig) != mode3.SignatureSize {
			return ErrBadSignature
		}
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return ErrInvalidIdentity
		}
		if !mode3.Verify(&pk, digest[:], sig) {
			return ErrBadSignature
		}
		return nil
	default:
		return ErrUnsupportedAlg
	}
}

func decodeBase64(s string) ([]byte, error) {
	// Prefer standard padded encoding, but accept raw encoding too.
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
