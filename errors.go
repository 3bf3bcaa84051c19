package vault

import "errors"

// Cryptographic and document errors. None of these are retryable: the same
// inputs will fail the same way, so callers surface them immediately.
var (
	// ErrEncryptionFailure means key or nonce generation failed at encrypt time.
	ErrEncryptionFailure = errors.New("vault: encryption failure")

	// ErrDecryptionFailure means the authentication tag did not verify: wrong
	// key, wrong IV, or corrupted ciphertext. There is no separate integrity
	// check; this is the only way a key mismatch is detected.
	ErrDecryptionFailure = errors.New("vault: decryption failure")

	// ErrKeyMismatch means a wrapped key did not open under the wrapping key
	// derived from the presented identity, or the grant bytes are corrupted.
	ErrKeyMismatch = errors.New("vault: wrapping key mismatch")

	// ErrGrantNotFound means the document holds no grant for the caller.
	ErrGrantNotFound = errors.New("vault: grant not found")

	// ErrGrantExpired means the grant's expiry is in the past.
	ErrGrantExpired = errors.New("vault: grant expired")

	// ErrViewLimitExceeded means the grant has no views remaining.
	ErrViewLimitExceeded = errors.New("vault: view limit exceeded")

	// ErrMalformedDocument means fetched bytes did not parse as a GrantDocument.
	ErrMalformedDocument = errors.New("vault: malformed grant document")
)
