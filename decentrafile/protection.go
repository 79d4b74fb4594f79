package decentrafile

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/codethor0/DecentraFile/envelope"
)

// Protection modes. ModeWrapped is the default; ModePlaintextKey exists for
// deployments without a recipient RSA key and must be enabled explicitly.
const (
	ModeWrapped      = "wrapped"
	ModePlaintextKey = "plaintext-key"
)

// MaxProtectionSize bounds the encoded protection blob, matching the
// registry's blob limit so every encodable protection is also registrable.
const MaxProtectionSize = 1024

// KeyProtection is the registry payload for one published file: everything a
// reader needs, beyond the ciphertext itself, to open the envelope. The IV
// and auth tag are not secret and always travel in the clear; only the
// symmetric key is protected, by RSA wrapping in the default mode.
type KeyProtection struct {
	Mode    string `cbor:"1,keyasint"`
	IV      []byte `cbor:"2,keyasint"`
	AuthTag []byte `cbor:"3,keyasint"`

	// WrappedKey is the RSA-OAEP blob in ModeWrapped.
	WrappedKey []byte `cbor:"4,keyasint,omitempty"`

	// Key is the raw symmetric key in ModePlaintextKey. Anyone who reads
	// the registry record can decrypt the file; that is the point of the
	// mode and the reason it is off by default.
	Key []byte `cbor:"5,keyasint,omitempty"`
}

var (
	protEncMode cbor.EncMode
	protDecMode cbor.DecMode
)

func init() {
	var err error
	protEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	protDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

func (p KeyProtection) validate() error {
	if len(p.IV) != envelope.IVSize {
		return newError(KindValidation, "DF-VAL-010", "protection IV must be 16 bytes")
	}
	if len(p.AuthTag) != envelope.TagSize {
		return newError(KindValidation, "DF-VAL-011", "protection auth tag must be 16 bytes")
	}
	switch p.Mode {
	case ModeWrapped:
		if len(p.WrappedKey) == 0 || len(p.WrappedKey) > envelope.MaxWrappedSize {
			return newError(KindValidation, "DF-VAL-012", "wrapped key missing or oversized")
		}
		if len(p.Key) != 0 {
			return newError(KindValidation, "DF-VAL-013", "wrapped protection must not carry a raw key")
		}
	case ModePlaintextKey:
		if len(p.Key) != envelope.KeySize {
			return newError(KindValidation, "DF-VAL-014", "plaintext protection key must be 32 bytes")
		}
		if len(p.WrappedKey) != 0 {
			return newError(KindValidation, "DF-VAL-015", "plaintext protection must not carry a wrapped key")
		}
	default:
		return newError(KindValidation, "DF-VAL-016", fmt.Sprintf("unknown protection mode %q", p.Mode))
	}
	return nil
}

// EncodeProtection serializes a protection blob (deterministic CBOR) and
// enforces the registry size bound.
func EncodeProtection(p KeyProtection) ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	encoded, err := protEncMode.Marshal(p)
	if err != nil {
		return nil, wrapError(KindInternal, "DF-VAL-017", "protection encoding failed", err)
	}
	if len(encoded) > MaxProtectionSize {
		return nil, newError(KindValidation, "DF-VAL-018",
			fmt.Sprintf("encoded protection is %d bytes, exceeds %d", len(encoded), MaxProtectionSize))
	}
	return encoded, nil
}

// DecodeProtection parses and validates a registry protection blob.
func DecodeProtection(data []byte) (KeyProtection, error) {
	if len(data) == 0 || len(data) > MaxProtectionSize {
		return KeyProtection{}, newError(KindValidation, "DF-VAL-019", "protection blob missing or oversized")
	}
	var p KeyProtection
	if err := protDecMode.Unmarshal(data, &p); err != nil {
		return KeyProtection{}, wrapError(KindValidation, "DF-VAL-019", "malformed protection blob", err)
	}
	if err := p.validate(); err != nil {
		return KeyProtection{}, err
	}
	return p, nil
}
