// Package seal provides decentralized identity-based encryption with
// threshold decryption.
//
// Data is encrypted directly against an arbitrary identity byte string, with
// no prior key exchange, under the public keys of N independent key servers.
// Each server holds its own master secret; a server willing to authorize an
// identity extracts a user secret key for it. Decryption requires user secret
// keys for the identity from at least T of the N servers named by the
// ciphertext, so no single server can decrypt alone and the system survives
// servers going offline.
//
// The scheme is Boneh-Franklin identity-based encryption over the BLS12-381
// pairing curve, combined with Shamir secret sharing over the curve's scalar
// field. The payload itself is sealed with a symmetric envelope (AES-256-GCM,
// AES-256-CTR with HMAC-SHA-256, or a key-derivation-only mode) keyed by the
// threshold-shared secret.
package seal

import "errors"

var (
	// ErrInvalidParameters is returned when a caller-supplied parameter set is
	// unusable: a zero or out-of-range threshold, duplicate server references,
	// an empty identity, or mismatched key lists. It is detected before any
	// cryptographic operation runs.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrInsufficientShares is returned when fewer than the threshold number
	// of valid user secret keys are available for decryption.
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrAuthentication is returned when envelope authentication fails or the
	// reconstructed shares are inconsistent with the encrypted object. No
	// plaintext is ever returned alongside it.
	ErrAuthentication = errors.New("authentication failure")

	// ErrMalformedObject is returned when encrypted object bytes are
	// truncated, carry trailing data, or are structurally invalid.
	ErrMalformedObject = errors.New("malformed encrypted object")
)
