package vault

import (
	"fmt"
	"time"

	"github.com/mr-tron/base58"
)

const (
	// Symbol tags documents produced by this application.
	Symbol = "MVLT"
	// AppName is recorded in document properties so galleries can filter.
	AppName = "MemoryVault"

	// AlgorithmAESGCM is the only content algorithm in use.
	AlgorithmAESGCM = "AES-GCM"
)

// IdentitySize is the length of a wallet public key in bytes.
const IdentitySize = 32

// Identity is the raw public key of a wallet. It is the only thing a grant
// is keyed on; the core never sees a private key or a signature.
type Identity []byte

// ParseIdentity decodes a base58 wallet address into an Identity.
func ParseIdentity(address string) (Identity, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet address %q: %v", address, err)
	}
	if len(raw) != IdentitySize {
		return nil, fmt.Errorf("invalid wallet address %q: got %d bytes", address, len(raw))
	}
	return Identity(raw), nil
}

// String renders the identity as a base58 wallet address.
func (id Identity) String() string {
	return base58.Encode(id)
}

// ContentKey is the symmetric key encrypting one piece of content. It is
// generated fresh per publish and must never be persisted unwrapped.
type ContentKey []byte

// Zero overwrites the key material in place. Call it as soon as the key has
// been wrapped or the plaintext recovered.
func (k ContentKey) Zero() {
	for i := range k {
		k[i] = 0
	}
}

// EncryptionParams describes how the ciphertext at ContentAddress was
// produced. IV is base64.
type EncryptionParams struct {
	IV        string `json:"iv"`
	Algorithm string `json:"algorithm"`
}

// KeyGrant is one recipient's wrapped copy of the content key. WrappedKey and
// Nonce are base64. ExpiresAt, ViewLimit and ViewsRemaining are optional and
// enforced only at unwrap time; they are UX hints, not a security boundary.
type KeyGrant struct {
	WrappedKey     string     `json:"encrypted_key"`
	Nonce          string     `json:"nonce"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	ViewLimit      *uint      `json:"view_limit,omitempty"`
	ViewsRemaining *uint      `json:"views_remaining,omitempty"`
}

// FileRef points at one stored file belonging to a document.
type FileRef struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
}

// Descriptive carries the caller-supplied display fields of a document. The
// core copies them through untouched.
type Descriptive struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	FileType     string `json:"fileType"`
	OriginalSize uint64 `json:"originalSize"`
}

// DocumentProperties is the access-control payload of a GrantDocument.
type DocumentProperties struct {
	Files            []FileRef           `json:"files"`
	Category         string              `json:"category"`
	App              string              `json:"app"`
	Owner            string              `json:"owner"`
	ContentAddress   string              `json:"encrypted_content_cid"`
	EncryptionParams EncryptionParams    `json:"encryption_params"`
	OwnerGrant       KeyGrant            `json:"owner_grant"`
	ViewerGrants     map[string]KeyGrant `json:"allowed_viewers"`
	OriginalSize     uint64              `json:"original_size"`
	UploadDate       time.Time           `json:"upload_date"`
}

// GrantDocument is the published metadata record binding a content address to
// the owner grant and all viewer grants. It is content addressed and
// immutable: every change produces a new document at a new address. Which
// address is current is tracked by an external registry, not here.
type GrantDocument struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Symbol      string             `json:"symbol"`
	Image       string             `json:"image"`
	Properties  DocumentProperties `json:"properties"`
}
