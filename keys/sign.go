package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

// Signer produces submission signatures bound to an owner identity.
// Signatures are computed over sha256(message), matching
// VerifyIdentitySignature.
type Signer interface {
	Identity() string
	Sign(message []byte) ([]byte, error)
}

// Ed25519Signer signs with an Ed25519 private key.
type Ed25519Signer struct {
	identity string
	priv     ed25519.PrivateKey
}

// NewEd25519Signer builds a signer from a 32-byte seed.
func NewEd25519Signer(seed []byte) (*Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, errors.New("keys: ed25519 seed must be 32 bytes")
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Ed25519Signer{
		identity: IdentityFromSeed(seed),
		priv:     priv,
	}, nil
}

func (s *Ed25519Signer) Identity() string { return s.identity }

func (s *Ed25519Signer) Sign(message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	return ed25519.Sign(s.priv, digest[:]), nil
}

// Dilithium3Signer signs with a Dilithium3 private key (post-quantum).
type Dilithium3Signer struct {
	identity string
	priv     *mode3.PrivateKey
}

// GenerateDilithium3Signer returns a fresh Dilithium3 signer.
func GenerateDilithium3Signer(rand io.Reader) (*Dilithium3Signer, error) {
	pub, priv, err := mode3.GenerateKey(rand)
	if err != nil {
		return nil, err
	}
	identity, err := IdentityFromDilithium3(pub)
	if err != nil {
		return nil, err
	}
	return &Dilithium3Signer{identity: identity, priv: priv}, nil
}

func (s *Dilithium3Signer) Identity() string { return s.identity }

func (s *Dilithium3Signer) Sign(message []byte) ([]byte, error) {
	if s.priv == nil {
		return nil, errors.New("keys: missing private key")
	}
	digest := sha256.Sum256(message)
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(s.priv, digest[:], sig)
	return sig, nil
}
