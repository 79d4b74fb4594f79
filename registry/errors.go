package registry

import "errors"

// Every rejection has its own sentinel so callers can branch with errors.Is
// instead of matching strings.
var (
	// ErrZeroFingerprint rejects the all-zero fingerprint as a key.
	ErrZeroFingerprint = errors.New("registry: fingerprint must not be zero")

	// ErrEmptyBlob rejects zero-length blobs.
	ErrEmptyBlob = errors.New("registry: blob must not be empty")

	// ErrBlobTooLarge rejects blobs over MaxBlobSize bytes.
	ErrBlobTooLarge = errors.New("registry: blob exceeds maximum size")

	// ErrNoOwner rejects submissions without an owner identity.
	ErrNoOwner = errors.New("registry: owner identity required")

	// ErrAlreadyExists rejects any write to an existing fingerprint,
	// including an identical resubmission by the same owner.
	ErrAlreadyExists = errors.New("registry: fingerprint already registered")

	// ErrQuotaExceeded rejects a submission that would push an owner past
	// MaxPerOwner records.
	ErrQuotaExceeded = errors.New("registry: owner quota exceeded")

	// ErrNotFound reports an absent fingerprint on reads.
	ErrNotFound = errors.New("registry: fingerprint not registered")

	// ErrUnauthorized reports a Retrieve by a caller other than the owner.
	ErrUnauthorized = errors.New("registry: caller is not the record owner")

	// ErrBadSignature reports a submission whose signature does not verify
	// against the owner identity.
	ErrBadSignature = errors.New("registry: submission signature invalid")
)

// IsNotFound reports whether err indicates an absent record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
