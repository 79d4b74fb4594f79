// Package decentrafile is the publishing service: it composes the crypto
// envelope, the blob store, the registry, and the locator mapping into the
// two user-facing operations, Put and Get.
//
// A file never leaves the process unencrypted: Put seals the content, stores
// only ciphertext, and registers a key-protection blob under the locator's
// fingerprint. Get reverses the pipeline. Symmetric keys are zeroed on every
// exit path of both operations.
package decentrafile

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/codethor0/DecentraFile/cidmap"
	"github.com/codethor0/DecentraFile/envelope"
	"github.com/codethor0/DecentraFile/fingerprint"
	"github.com/codethor0/DecentraFile/keys"
	"github.com/codethor0/DecentraFile/registry"
	"github.com/codethor0/DecentraFile/storage"
)

// Config assembles a Service. Registry, Store, and CIDMap are required.
type Config struct {
	Registry *registry.Registry
	Store    storage.BlobStore
	CIDMap   *cidmap.Store

	// Recipient enables ModeWrapped: every published key is RSA-wrapped to
	// this public key.
	Recipient *rsa.PublicKey

	// RecipientKey lets Get unwrap ModeWrapped protections. A service
	// without it can publish but not read back.
	RecipientKey *rsa.PrivateKey

	// AllowPlaintextKey permits ModePlaintextKey when no Recipient is
	// configured. Off by default; see KeyProtection.Key.
	AllowPlaintextKey bool

	// CallTimeout bounds each external call (blob store, ledger) when the
	// caller's context carries no deadline of its own.
	CallTimeout time.Duration
}

// Service implements the put/get pipelines.
type Service struct {
	cfg Config
}

// Seams for the key-lifecycle tests, which need to observe the symmetric
// key buffer after an operation returns.
var (
	generateKey = envelope.GenerateKey
	unwrapKey   = envelope.Unwrap
)

// NewService validates cfg and returns a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Registry == nil {
		return nil, errors.New("decentrafile: registry is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("decentrafile: blob store is required")
	}
	if cfg.CIDMap == nil {
		return nil, errors.New("decentrafile: cidmap is required")
	}
	if cfg.Recipient == nil && !cfg.AllowPlaintextKey {
		return nil, errors.New("decentrafile: a recipient key is required unless AllowPlaintextKey is set")
	}
	return &Service{cfg: cfg}, nil
}

// PutResult identifies a published file.
type PutResult struct {
	Fingerprint fingerprint.Fingerprint
	Locator     string
}

// Put publishes content owned by signer: seal, store ciphertext, register
// the key protection under the locator fingerprint, persist the mapping.
//
// The generated key is zeroed before Put returns, on success and on every
// failure path, by the single deferred guard below.
func (s *Service) Put(ctx context.Context, content []byte, signer keys.Signer) (PutResult, error) {
	if len(content) == 0 {
		return PutResult{}, newError(KindValidation, "DF-VAL-001", "content must not be empty")
	}
	if signer == nil {
		return PutResult{}, newError(KindValidation, "DF-VAL-002", "a signing identity is required")
	}

	key, err := generateKey()
	if err != nil {
		return PutResult{}, wrapError(KindInternal, "DF-CRYPTO-003", "key generation failed", err)
	}
	defer envelope.Zero(key)

	env, err := envelope.Seal(content, key)
	if err != nil {
		return PutResult{}, wrapError(KindInternal, "DF-CRYPTO-004", "seal failed", err)
	}

	storeCtx, cancel := s.callCtx(ctx)
	id, err := s.cfg.Store.Put(storeCtx, env.Ciphertext)
	cancel()
	if err != nil {
		return PutResult{}, s.wrapStoreErr(err, "storing ciphertext")
	}
	locator := id.String()

	fp, err := fingerprint.Derive(locator)
	if err != nil {
		// Derive only fails on an empty locator or a digest that is not
		// 32 bytes; either means the pipeline itself is broken.
		return PutResult{}, wrapError(KindInternal, "DF-VAL-003", "fingerprint derivation failed", err)
	}

	protection, err := s.buildProtection(key, env)
	if err != nil {
		return PutResult{}, err
	}
	blob, err := EncodeProtection(protection)
	if err != nil {
		return PutResult{}, err
	}

	regCtx, cancel := s.callCtx(ctx)
	_, err = s.cfg.Registry.Put(regCtx, fp, blob, signer)
	cancel()
	if err != nil {
		return PutResult{}, s.wrapRegistryErr(err)
	}

	// No transaction spans the registry and the mapping file. A crash
	// between the two leaves a registered fingerprint without a mapping,
	// surfaced later as PersistenceLost; the window is accepted.
	if err := s.cfg.CIDMap.Set(fp, locator); err != nil {
		return PutResult{}, wrapError(KindInternal, "DF-MAP-003", "persisting locator mapping failed", err)
	}

	return PutResult{Fingerprint: fp, Locator: locator}, nil
}

// Get resolves fp back to plaintext. With a caller identity the registry
// read is authenticated (owner-only); without one it is the open read.
//
// The unwrapped key is zeroed before Get returns, on success and on every
// failure path, by the single deferred guard below.
func (s *Service) Get(ctx context.Context, fp fingerprint.Fingerprint, caller string) ([]byte, error) {
	if fp.IsZero() {
		return nil, newError(KindValidation, "DF-VAL-004", "fingerprint must not be zero")
	}

	var blob []byte
	regCtx, cancel := s.callCtx(ctx)
	var err error
	if caller != "" {
		var rec registry.FileRecord
		rec, err = s.cfg.Registry.Retrieve(regCtx, fp, caller)
		blob = rec.Blob
	} else {
		blob, err = s.cfg.Registry.GetBlob(regCtx, fp)
	}
	cancel()
	if err != nil {
		return nil, s.wrapRegistryErr(err)
	}

	protection, err := DecodeProtection(blob)
	if err != nil {
		return nil, err
	}

	var key []byte
	defer func() { envelope.Zero(key) }()

	switch protection.Mode {
	case ModeWrapped:
		if s.cfg.RecipientKey == nil {
			return nil, newError(KindKeyUnwrap, "DF-CRYPTO-005", "no recipient private key configured")
		}
		key, err = unwrapKey(protection.WrappedKey, s.cfg.RecipientKey)
		if err != nil {
			return nil, wrapError(KindKeyUnwrap, "DF-CRYPTO-002", "key unwrap failed", err)
		}
	case ModePlaintextKey:
		key = append([]byte(nil), protection.Key...)
	}

	// The fingerprint is registered, so the mapping must exist. Its absence
	// is data loss, never a plain NotFound.
	locator, ok, err := s.cfg.CIDMap.Get(fp)
	if err != nil {
		return nil, wrapError(KindInternal, "DF-MAP-003", "reading locator mapping failed", err)
	}
	if !ok {
		return nil, newError(KindPersistenceLost, "DF-MAP-001",
			fmt.Sprintf("no locator mapping for registered fingerprint %s", fp.Masked()))
	}

	id, err := cid.Decode(locator)
	if err != nil {
		return nil, wrapError(KindPersistenceLost, "DF-MAP-002", "mapped locator is malformed", err)
	}

	storeCtx, cancel := s.callCtx(ctx)
	ciphertext, err := s.cfg.Store.Get(storeCtx, id)
	cancel()
	if err != nil {
		if storage.IsNotFound(err) {
			// Registered and mapped, but the blob is gone.
			return nil, wrapError(KindPersistenceLost, "DF-STORE-003", "stored ciphertext is missing", err)
		}
		return nil, s.wrapStoreErr(err, "fetching ciphertext")
	}

	plaintext, err := envelope.Open(ciphertext, key, protection.IV, protection.AuthTag)
	if err != nil {
		return nil, wrapError(KindDecryption, "DF-CRYPTO-001", "decryption failed", err)
	}
	return plaintext, nil
}

// ListOwned, Exists, and Count pass through to the registry with the
// service's timeout policy.

func (s *Service) ListOwned(ctx context.Context, owner string) ([]fingerprint.Fingerprint, error) {
	regCtx, cancel := s.callCtx(ctx)
	defer cancel()
	fps, err := s.cfg.Registry.ListOwned(regCtx, owner)
	if err != nil {
		return nil, s.wrapRegistryErr(err)
	}
	return fps, nil
}

func (s *Service) Exists(ctx context.Context, fp fingerprint.Fingerprint) (bool, error) {
	regCtx, cancel := s.callCtx(ctx)
	defer cancel()
	ok, err := s.cfg.Registry.Exists(regCtx, fp)
	if err != nil {
		return false, s.wrapRegistryErr(err)
	}
	return ok, nil
}

func (s *Service) Count(ctx context.Context, owner string) (int, error) {
	regCtx, cancel := s.callCtx(ctx)
	defer cancel()
	n, err := s.cfg.Registry.Count(regCtx, owner)
	if err != nil {
		return 0, s.wrapRegistryErr(err)
	}
	return n, nil
}

func (s *Service) buildProtection(key []byte, env envelope.Envelope) (KeyProtection, error) {
	if s.cfg.Recipient != nil {
		wrapped, err := envelope.Wrap(key, s.cfg.Recipient)
		if err != nil {
			return KeyProtection{}, wrapError(KindInternal, "DF-CRYPTO-006", "key wrap failed", err)
		}
		return KeyProtection{
			Mode:       ModeWrapped,
			IV:         env.IV,
			AuthTag:    env.AuthTag,
			WrappedKey: wrapped,
		}, nil
	}
	if !s.cfg.AllowPlaintextKey {
		return KeyProtection{}, newError(KindValidation, "DF-VAL-005", "no recipient key and plaintext keys are disabled")
	}
	return KeyProtection{
		Mode:    ModePlaintextKey,
		IV:      env.IV,
		AuthTag: env.AuthTag,
		Key:     append([]byte(nil), key...),
	}, nil
}

func (s *Service) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline || s.cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.CallTimeout)
}

func (s *Service) wrapRegistryErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, registry.ErrAlreadyExists):
		return wrapError(KindAlreadyExists, "DF-REG-001", "fingerprint already registered", err)
	case errors.Is(err, registry.ErrQuotaExceeded):
		return wrapError(KindQuota, "DF-REG-002", "owner quota exceeded", err)
	case errors.Is(err, registry.ErrUnauthorized):
		return wrapError(KindUnauthorized, "DF-REG-003", "caller is not the record owner", err)
	case registry.IsNotFound(err):
		return wrapError(KindNotFound, "DF-REG-004", "fingerprint not registered", err)
	case errors.Is(err, registry.ErrZeroFingerprint),
		errors.Is(err, registry.ErrEmptyBlob),
		errors.Is(err, registry.ErrBlobTooLarge),
		errors.Is(err, registry.ErrNoOwner),
		errors.Is(err, registry.ErrBadSignature):
		return wrapError(KindValidation, "DF-REG-005", "submission rejected", err)
	case errors.Is(err, context.DeadlineExceeded):
		return wrapError(KindTimeout, "DF-REG-006", "ledger call timed out", err)
	default:
		return wrapError(KindInternal, "DF-REG-007", "ledger call failed", err)
	}
}

func (s *Service) wrapStoreErr(err error, doing string) error {
	switch {
	case err == nil:
		return nil
	case storage.IsTimeout(err):
		return wrapError(KindTimeout, "DF-STORE-002", doing+" timed out", err)
	case storage.IsNotFound(err):
		return wrapError(KindNotFound, "DF-STORE-001", doing+" found nothing", err)
	default:
		return wrapError(KindInternal, "DF-STORE-004", doing+" failed", err)
	}
}
