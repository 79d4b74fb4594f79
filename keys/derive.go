package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveRoleSeed deterministically derives a role-specific Ed25519 seed from
// a root seed using HKDF-SHA256. The same (rootSeed, role) pair always
// yields the same seed, so role keys can be re-derived instead of stored.
func DeriveRoleSeed(rootSeed []byte, role string) ([]byte, error) {
	if len(rootSeed) != ed25519.SeedSize {
		return nil, errSeedSize
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}

	h := hkdf.New(sha256.New, rootSeed, nil, []byte("decentrafile-kms-lite-v1:role:"+role))
	out := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(h, out); err != nil {
		return nil, err
	}
	return out, nil
}
