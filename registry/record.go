package registry

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/codethor0/DecentraFile/fingerprint"
	"github.com/codethor0/DecentraFile/keys"
)

// Size limits enforced on every submission.
const (
	// MaxBlobSize bounds the opaque blob attached to a record.
	MaxBlobSize = 1024

	// MaxPerOwner bounds how many records a single owner may register.
	MaxPerOwner = 1000
)

// FileRecord is one immutable registry entry. Records are append-only: a
// fingerprint is written at most once and never updated or deleted.
type FileRecord struct {
	Fingerprint fingerprint.Fingerprint `cbor:"1,keyasint"`
	Blob        []byte                  `cbor:"2,keyasint"`
	Owner       string                  `cbor:"3,keyasint"`
	// Timestamp is unix milliseconds at registration, always > 0.
	Timestamp int64 `cbor:"4,keyasint"`
}

// Submission is a signed record as it travels to a ledger transport. The
// signature covers the deterministic CBOR encoding of the record and is
// verified against the public key embedded in Record.Owner.
type Submission struct {
	Record    FileRecord `cbor:"1,keyasint"`
	Signature []byte     `cbor:"2,keyasint"`
}

// Deterministic CBOR so that the signed bytes are reproducible on both ends.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

// EncodeRecord returns the deterministic CBOR encoding of rec. This is the
// exact byte string submissions are signed over.
func EncodeRecord(rec FileRecord) ([]byte, error) {
	return encMode.Marshal(rec)
}

// EncodeSubmission serializes a submission for a wire transport.
func EncodeSubmission(sub Submission) ([]byte, error) {
	return encMode.Marshal(sub)
}

// DecodeSubmission parses a wire submission.
func DecodeSubmission(data []byte) (Submission, error) {
	var sub Submission
	if err := decMode.Unmarshal(data, &sub); err != nil {
		return Submission{}, fmt.Errorf("registry: decode submission: %w", err)
	}
	return sub, nil
}

// DecodeRecord parses a wire record.
func DecodeRecord(data []byte) (FileRecord, error) {
	var rec FileRecord
	if err := decMode.Unmarshal(data, &rec); err != nil {
		return FileRecord{}, fmt.Errorf("registry: decode record: %w", err)
	}
	return rec, nil
}

// EncodeFingerprints serializes a fingerprint list for a wire transport.
func EncodeFingerprints(fps []fingerprint.Fingerprint) ([]byte, error) {
	return encMode.Marshal(fps)
}

// DecodeFingerprints parses a wire fingerprint list.
func DecodeFingerprints(data []byte) ([]fingerprint.Fingerprint, error) {
	var fps []fingerprint.Fingerprint
	if err := decMode.Unmarshal(data, &fps); err != nil {
		return nil, fmt.Errorf("registry: decode fingerprints: %w", err)
	}
	return fps, nil
}

// SignSubmission signs rec with signer. The record's Owner must match the
// signer's identity.
func SignSubmission(signer keys.Signer, rec FileRecord) (Submission, error) {
	if signer == nil {
		return Submission{}, ErrNoOwner
	}
	if rec.Owner != signer.Identity() {
		return Submission{}, fmt.Errorf("registry: record owner %q does not match signer identity", rec.Owner)
	}
	encoded, err := EncodeRecord(rec)
	if err != nil {
		return Submission{}, err
	}
	sig, err := signer.Sign(encoded)
	if err != nil {
		return Submission{}, err
	}
	return Submission{Record: rec, Signature: sig}, nil
}

// VerifySubmission checks the submission's signature and shape. Transports
// call this before appending, so unsigned or forged records never reach a
// ledger.
func VerifySubmission(sub Submission) error {
	if err := validateRecord(sub.Record); err != nil {
		return err
	}
	encoded, err := EncodeRecord(sub.Record)
	if err != nil {
		return err
	}
	if err := keys.VerifyIdentitySignature(sub.Record.Owner, encoded, sub.Signature); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return nil
}

func validateRecord(rec FileRecord) error {
	if rec.Fingerprint.IsZero() {
		return ErrZeroFingerprint
	}
	if len(rec.Blob) == 0 {
		return ErrEmptyBlob
	}
	if len(rec.Blob) > MaxBlobSize {
		return ErrBlobTooLarge
	}
	if rec.Owner == "" {
		return ErrNoOwner
	}
	if rec.Timestamp <= 0 {
		return fmt.Errorf("registry: timestamp must be positive, got %d", rec.Timestamp)
	}
	return nil
}
