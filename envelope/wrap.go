package envelope

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
)

// MaxWrappedSize caps the wrapped-key blob at 1024 bytes. An RSA modulus
// above 8192 bits would produce a larger OAEP ciphertext and is rejected.
const MaxWrappedSize = 1024

// minModulusBits rejects recipient keys too weak to protect a 256-bit key.
const minModulusBits = 2048

var (
	ErrBadPublicKey = errors.New("envelope: invalid recipient public key")

	// ErrKeyUnwrapFailed is the uniform Unwrap failure. Like
	// ErrDecryptionFailed, it carries no root cause on purpose.
	ErrKeyUnwrapFailed = errors.New("envelope: key unwrap failed")
)

// wrapLabel ties OAEP ciphertexts to this purpose; a blob produced under any
// other label will not unwrap.
var wrapLabel = []byte("decentrafile/key-wrap/v1")

// Wrap encrypts a 32-byte symmetric key to the recipient with
// RSA-OAEP (SHA-256). The output is bounded by MaxWrappedSize.
func Wrap(key []byte, recipient *rsa.PublicKey) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	if recipient == nil || recipient.N == nil || recipient.N.BitLen() < minModulusBits {
		return nil, ErrBadPublicKey
	}
	if recipient.Size() > MaxWrappedSize {
		return nil, fmt.Errorf("envelope: wrapped key would exceed %d bytes: %w", MaxWrappedSize, ErrBadPublicKey)
	}
	blob, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, recipient, key, wrapLabel)
	if err != nil {
		return nil, fmt.Errorf("envelope: wrap: %w", err)
	}
	if len(blob) > MaxWrappedSize {
		return nil, fmt.Errorf("envelope: wrapped key is %d bytes, exceeds %d", len(blob), MaxWrappedSize)
	}
	return blob, nil
}

// Unwrap reverses Wrap. Every failure -- nil key, oversized blob, wrong
// recipient, mutated blob, or an unwrapped payload that is not exactly
// 32 bytes -- yields ErrKeyUnwrapFailed.
func Unwrap(blob []byte, recipient *rsa.PrivateKey) ([]byte, error) {
	if len(blob) == 0 || len(blob) > MaxWrappedSize || recipient == nil {
		return nil, ErrKeyUnwrapFailed
	}
	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, recipient, blob, wrapLabel)
	if err != nil {
		return nil, ErrKeyUnwrapFailed
	}
	if len(key) != KeySize {
		Zero(key)
		return nil, ErrKeyUnwrapFailed
	}
	return key, nil
}
