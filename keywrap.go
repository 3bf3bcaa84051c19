package vault

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"time"

	"golang.org/x/crypto/nacl/secretbox"
)

const wrapNonceSize = 24

// DeriveWrappingKey derives a recipient's wrapping key as SHA-512 of the
// identity bytes truncated to 256 bits.
//
// The input is a wallet's public key, which anyone can know, so anyone can
// derive the same wrapping key and open that wallet's grant. A corrected
// scheme would derive from something only the holder can produce, such as a
// signature over a server-issued nonce. The observed behavior is preserved
// here deliberately.
func DeriveWrappingKey(identity Identity) [32]byte {
	sum := sha512.Sum512(identity)
	var key [32]byte
	copy(key[:], sum[:32])
	return key
}

// WrapKey seals the content key for a recipient with a secretbox under the
// recipient's derived wrapping key and a fresh 24-byte nonce. Expiry and
// view-limit fields are left unset; the caller applies them.
func WrapKey(key ContentKey, identity Identity) (KeyGrant, error) {
	wrapping := DeriveWrappingKey(identity)

	var nonce [wrapNonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return KeyGrant{}, fmt.Errorf("%w: %v", ErrEncryptionFailure, err)
	}

	sealed := secretbox.Seal(nil, key, &nonce, &wrapping)
	return KeyGrant{
		WrappedKey: base64.StdEncoding.EncodeToString(sealed),
		Nonce:      base64.StdEncoding.EncodeToString(nonce[:]),
	}, nil
}

// UnwrapKey recovers the content key from a grant using the wrapping key
// derived from identity. Expiry and view limits are checked first, so a grant
// whose box would verify still fails once expired or exhausted. UnwrapKey has
// no side effects: decrementing ViewsRemaining and republishing the document
// is the caller's job.
func UnwrapKey(grant KeyGrant, identity Identity) (ContentKey, error) {
	if grant.ExpiresAt != nil && grant.ExpiresAt.Before(time.Now()) {
		return nil, ErrGrantExpired
	}
	if grant.ViewsRemaining != nil && *grant.ViewsRemaining == 0 {
		return nil, ErrViewLimitExceeded
	}

	sealed, err := base64.StdEncoding.DecodeString(grant.WrappedKey)
	if err != nil {
		return nil, ErrKeyMismatch
	}
	nonceBytes, err := base64.StdEncoding.DecodeString(grant.Nonce)
	if err != nil || len(nonceBytes) != wrapNonceSize {
		return nil, ErrKeyMismatch
	}
	var nonce [wrapNonceSize]byte
	copy(nonce[:], nonceBytes)

	wrapping := DeriveWrappingKey(identity)
	key, ok := secretbox.Open(nil, sealed, &nonce, &wrapping)
	if !ok {
		return nil, ErrKeyMismatch
	}
	return ContentKey(key), nil
}
