package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

const (
	contentKeySize = 32
	contentIVSize  = 12
)

// EncryptContent seals plaintext under a fresh 256-bit key with AES-256-GCM
// and a fresh 96-bit IV. The IV is generated per call and never reused with
// the same key; the key itself lives for exactly one publish. The caller owns
// zeroing the returned key.
func EncryptContent(plaintext []byte) (ciphertext []byte, key ContentKey, iv []byte, err error) {
	key = make(ContentKey, contentKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrEncryptionFailure, err)
	}

	iv = make([]byte, contentIVSize)
	if _, err := rand.Read(iv); err != nil {
		key.Zero()
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrEncryptionFailure, err)
	}

	aead, err := newContentAEAD(key)
	if err != nil {
		key.Zero()
		return nil, nil, nil, err
	}

	ciphertext = aead.Seal(nil, iv, plaintext, nil)
	return ciphertext, key, iv, nil
}

// DecryptContent opens ciphertext produced by EncryptContent. A failed
// authentication tag yields ErrDecryptionFailure whether the key, the IV or
// the ciphertext is at fault; the three cases are indistinguishable.
func DecryptContent(ciphertext []byte, key ContentKey, iv []byte) ([]byte, error) {
	if len(iv) != contentIVSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes", ErrDecryptionFailure, contentIVSize)
	}

	aead, err := newContentAEAD(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailure
	}
	return plaintext, nil
}

func newContentAEAD(key ContentKey) (cipher.AEAD, error) {
	if len(key) != contentKeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes", ErrDecryptionFailure, contentKeySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailure, err)
	}
	return cipher.NewGCM(block)
}
