// Package envelope implements the authenticated encryption envelope used for
// file payloads: AES-256-GCM with a 16-byte IV and 16-byte authentication tag,
// plus RSA-OAEP wrapping of the symmetric key for a single recipient.
//
// Key material handling contract: every caller that obtains a key from
// GenerateKey or Unwrap owns it until it passes the key to Zero, and must do
// so exactly once on every path, including error paths.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
)

const (
	// KeySize is the symmetric key size in bytes.
	KeySize = 32
	// IVSize is the per-seal initialization vector size in bytes.
	IVSize = 16
	// TagSize is the GCM authentication tag size in bytes.
	TagSize = 16
)

var (
	ErrEmptyPlaintext = errors.New("envelope: empty plaintext")
	ErrKeySize        = errors.New("envelope: key must be exactly 32 bytes")

	// ErrDecryptionFailed is returned for every Open failure, regardless of
	// whether the key, IV, tag, or ciphertext was at fault. Callers never
	// learn which input was wrong; the uniformity denies a decryption oracle.
	ErrDecryptionFailed = errors.New("envelope: decryption failed")
)

// Envelope is the output of Seal: ciphertext plus the IV and authentication
// tag needed to open it. The tag binds ciphertext and IV together, so a
// mutation of either is detected.
type Envelope struct {
	Ciphertext []byte
	IV         []byte
	AuthTag    []byte
}

// GenerateKey returns a fresh 32-byte symmetric key from crypto/rand.
// It fails only when the entropy source fails.
func GenerateKey() ([]byte, error) {
	k := make([]byte, KeySize)
	if _, err := rand.Read(k); err != nil {
		return nil, err
	}
	return k, nil
}

// Seal encrypts plaintext under key with a fresh random 16-byte IV.
// Two Seal calls on identical inputs never produce the same IV or ciphertext.
func Seal(plaintext, key []byte) (Envelope, error) {
	if len(plaintext) == 0 {
		return Envelope{}, ErrEmptyPlaintext
	}
	if len(key) != KeySize {
		return Envelope{}, ErrKeySize
	}

	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return Envelope{}, err
	}
	aead, err := newAEAD(key)
	if err != nil {
		return Envelope{}, err
	}

	sealed := aead.Seal(nil, iv, plaintext, nil)
	n := len(sealed) - TagSize
	return Envelope{
		Ciphertext: sealed[:n:n],
		IV:         iv,
		AuthTag:    sealed[n:],
	}, nil
}

// Open decrypts and authenticates a sealed payload. Input lengths are
// validated before any cipher work. Every failure maps to
// ErrDecryptionFailed; do not branch on anything finer.
func Open(ciphertext, key, iv, authTag []byte) ([]byte, error) {
	if len(key) != KeySize || len(iv) != IVSize || len(authTag) != TagSize || len(ciphertext) == 0 {
		return nil, ErrDecryptionFailed
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, authTag...)
	plain, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plain, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, IVSize)
}
