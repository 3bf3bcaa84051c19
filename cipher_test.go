package vault

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("hello"),
		{},
		bytes.Repeat([]byte{0xab}, 1<<16),
		{0x00},
	}

	for _, plaintext := range payloads {
		ciphertext, key, iv, err := EncryptContent(plaintext)
		if err != nil {
			t.Fatalf("encrypt failed: %v", err)
		}
		if len(key) != 32 {
			t.Fatalf("expected 32 byte key, got %d", len(key))
		}
		if len(iv) != 12 {
			t.Fatalf("expected 12 byte iv, got %d", len(iv))
		}

		recovered, err := DecryptContent(ciphertext, key, iv)
		if err != nil {
			t.Fatalf("decrypt failed: %v", err)
		}
		if !bytes.Equal(recovered, plaintext) {
			t.Fatalf("round trip mismatch: got %d bytes, want %d", len(recovered), len(plaintext))
		}
	}
}

func TestEncryptUsesFreshKeyAndIV(t *testing.T) {
	_, key1, iv1, err := EncryptContent([]byte("same input"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	_, key2, iv2, err := EncryptContent([]byte("same input"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	if bytes.Equal(key1, key2) {
		t.Fatalf("expected distinct keys per encrypt")
	}
	if bytes.Equal(iv1, iv2) {
		t.Fatalf("expected distinct ivs per encrypt")
	}
}

func TestDecryptWrongKey(t *testing.T) {
	ciphertext, _, iv, err := EncryptContent([]byte("secret"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	wrongKey := make(ContentKey, 32)
	_, err = DecryptContent(ciphertext, wrongKey, iv)
	if !errors.Is(err, ErrDecryptionFailure) {
		t.Fatalf("expected ErrDecryptionFailure, got %v", err)
	}
}

func TestDecryptCorruptedCiphertext(t *testing.T) {
	ciphertext, key, iv, err := EncryptContent([]byte("secret"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	ciphertext[0] ^= 0xff
	_, err = DecryptContent(ciphertext, key, iv)
	if !errors.Is(err, ErrDecryptionFailure) {
		t.Fatalf("expected ErrDecryptionFailure, got %v", err)
	}
}

func TestDecryptWrongIV(t *testing.T) {
	ciphertext, key, _, err := EncryptContent([]byte("secret"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	wrongIV := make([]byte, 12)
	_, err = DecryptContent(ciphertext, key, wrongIV)
	if !errors.Is(err, ErrDecryptionFailure) {
		t.Fatalf("expected ErrDecryptionFailure, got %v", err)
	}
}
