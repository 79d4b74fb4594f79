// Package fingerprint derives the fixed-width one-way digest of an external
// storage locator. The fingerprint is the primary key of the registry and the
// mapping store; it cannot be inverted back into the locator.
package fingerprint

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/multiformats/go-multihash"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"
)

// Size is the digest width in bytes. Every supported algorithm must produce
// exactly this many bytes; Derive fails fast otherwise.
const Size = 32

// Supported digest algorithms. SHA2-256 is the default and the only one used
// on the write path; the others exist for read-side interop.
const (
	AlgSHA2256 = "sha2-256"
	AlgSHA3256 = "sha3-256"
	AlgBLAKE3  = "blake3"
)

var (
	ErrEmptyLocator = errors.New("fingerprint: empty locator")
	ErrBadHex       = errors.New("fingerprint: invalid hex encoding")
	ErrBadWidth     = errors.New("fingerprint: digest is not 32 bytes")
)

// Fingerprint is a 32-byte one-way digest. The zero value is reserved as
// "no fingerprint" and is rejected everywhere a real one is required.
type Fingerprint [Size]byte

// Zero is the reserved all-zero fingerprint.
var Zero Fingerprint

// Derive computes the default (sha2-256) fingerprint of a locator.
func Derive(locator string) (Fingerprint, error) {
	return DeriveAlg(locator, AlgSHA2256)
}

// DeriveAlg computes the fingerprint of a locator under the named algorithm.
func DeriveAlg(locator, alg string) (Fingerprint, error) {
	if locator == "" {
		return Zero, ErrEmptyLocator
	}
	var fp Fingerprint
	switch alg {
	case AlgSHA2256:
		sum, err := multihash.Sum([]byte(locator), multihash.SHA2_256, -1)
		if err != nil {
			return Zero, err
		}
		dec, err := multihash.Decode(sum)
		if err != nil {
			return Zero, err
		}
		if len(dec.Digest) != Size {
			return Zero, ErrBadWidth
		}
		copy(fp[:], dec.Digest)
	case AlgSHA3256:
		fp = sha3.Sum256([]byte(locator))
	case AlgBLAKE3:
		fp = blake3.Sum256([]byte(locator))
	default:
		return Zero, fmt.Errorf("fingerprint: unsupported algorithm %q", alg)
	}
	if fp == Zero {
		// Unreachable for real digests; guards the registry's non-zero invariant.
		return Zero, ErrBadWidth
	}
	return fp, nil
}

// IsZero reports whether fp is the reserved zero fingerprint.
func (fp Fingerprint) IsZero() bool { return fp == Zero }

// Hex returns the lowercase hex encoding (64 characters).
func (fp Fingerprint) Hex() string { return hex.EncodeToString(fp[:]) }

// String implements fmt.Stringer; identical to Hex.
func (fp Fingerprint) String() string { return fp.Hex() }

// ParseHex decodes a 64-character hex fingerprint.
func ParseHex(s string) (Fingerprint, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Zero, ErrBadHex
	}
	if len(b) != Size {
		return Zero, ErrBadWidth
	}
	var fp Fingerprint
	copy(fp[:], b)
	return fp, nil
}

// Masked returns a redacted form safe for logs: the first 8 hex characters
// followed by an ellipsis. Full fingerprints never reach log sinks.
func (fp Fingerprint) Masked() string {
	return fp.Hex()[:8] + "…"
}
