// Package keys provides owner identity helpers for the registry.
//
// An owner identity is a self-describing string, "<alg>:" + base64 of the
// public key, with alg one of "ed25519" or "dilithium3". The identity is
// both the registry's owner column and the verification key for signed
// submissions.
//
// API stability:
//
// Stable:
//   - Pure, deterministic primitives for identity formatting, parsing, and
//     signature verification.
//
// Experimental:
//   - Filesystem-backed key storage and convenience helpers (KeyStore and
//     related functions). These are local-first utilities and are not part
//     of the long-term protocol contract.
package keys
