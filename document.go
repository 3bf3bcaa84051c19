package vault

import (
	"crypto/sha256"
	"encoding/json"
	"time"

	"github.com/mr-tron/base58"
)

// NewGrantDocument composes the metadata document for freshly published
// content. The owner grant is always present; viewer grants start empty. The
// owner wallet is recorded so later snapshots keep their provenance even when
// republished by a viewer action.
func NewGrantDocument(contentAddress string, owner Identity, params EncryptionParams, ownerGrant KeyGrant, desc Descriptive) GrantDocument {
	return GrantDocument{
		Name:        desc.Name,
		Description: desc.Description,
		Symbol:      Symbol,
		Image:       ComposeContentURI(contentAddress),
		Properties: DocumentProperties{
			Files: []FileRef{
				{URI: ComposeContentURI(contentAddress), Type: desc.FileType},
			},
			Category:         "image",
			App:              AppName,
			Owner:            owner.String(),
			ContentAddress:   contentAddress,
			EncryptionParams: params,
			OwnerGrant:       ownerGrant,
			ViewerGrants:     map[string]KeyGrant{},
			OriginalSize:     desc.OriginalSize,
			UploadDate:       time.Now().UTC(),
		},
	}
}

// DecodeGrantDocument parses published metadata bytes. Anything that does not
// look like a document produced by this application is ErrMalformedDocument.
func DecodeGrantDocument(raw []byte) (GrantDocument, error) {
	var doc GrantDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return GrantDocument{}, ErrMalformedDocument
	}
	if doc.Properties.ContentAddress == "" || doc.Properties.OwnerGrant.WrappedKey == "" {
		return GrantDocument{}, ErrMalformedDocument
	}
	return doc, nil
}

// Encode renders the document as the JSON that gets published. The encoding
// is what the content address is computed over, so it must stay stable for a
// given document value.
func (d GrantDocument) Encode() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// AddressOf computes the content address of a blob: base58 of its SHA-256.
func AddressOf(raw []byte) string {
	sum := sha256.Sum256(raw)
	return base58.Encode(sum[:])
}

// ResolveGrant returns the grant that applies to the caller: the owner grant
// when callerIsOwner, otherwise the caller's viewer grant. Ownership itself
// is decided by the caller against the external registry, not here.
func (d GrantDocument) ResolveGrant(caller Identity, callerIsOwner bool) (KeyGrant, error) {
	if callerIsOwner {
		return d.Properties.OwnerGrant, nil
	}
	grant, ok := d.Properties.ViewerGrants[caller.String()]
	if !ok {
		return KeyGrant{}, ErrGrantNotFound
	}
	return grant, nil
}

// WithViewerGrant returns a new document with the viewer's grant set. The
// receiver is never mutated; the caller publishes the result and moves the
// external pointer. Two concurrent calls against the same base document race
// at the pointer, not here.
func (d GrantDocument) WithViewerGrant(identity Identity, grant KeyGrant) GrantDocument {
	next := d
	next.Properties.ViewerGrants = cloneGrants(d.Properties.ViewerGrants)
	next.Properties.ViewerGrants[identity.String()] = grant
	return next
}

// WithDecrementedView returns a new document with that viewer's remaining
// views reduced by one. ErrGrantNotFound if the viewer has no grant,
// ErrViewLimitExceeded if the count is already zero. A grant without a view
// limit passes through unchanged.
func (d GrantDocument) WithDecrementedView(identity Identity) (GrantDocument, error) {
	grant, ok := d.Properties.ViewerGrants[identity.String()]
	if !ok {
		return GrantDocument{}, ErrGrantNotFound
	}
	if grant.ViewsRemaining == nil {
		return d, nil
	}
	if *grant.ViewsRemaining == 0 {
		return GrantDocument{}, ErrViewLimitExceeded
	}

	remaining := *grant.ViewsRemaining - 1
	grant.ViewsRemaining = &remaining

	next := d
	next.Properties.ViewerGrants = cloneGrants(d.Properties.ViewerGrants)
	next.Properties.ViewerGrants[identity.String()] = grant
	return next, nil
}

func cloneGrants(grants map[string]KeyGrant) map[string]KeyGrant {
	out := make(map[string]KeyGrant, len(grants))
	for k, g := range grants {
		if g.ExpiresAt != nil {
			t := *g.ExpiresAt
			g.ExpiresAt = &t
		}
		if g.ViewLimit != nil {
			v := *g.ViewLimit
			g.ViewLimit = &v
		}
		if g.ViewsRemaining != nil {
			v := *g.ViewsRemaining
			g.ViewsRemaining = &v
		}
		out[k] = g
	}
	return out
}
