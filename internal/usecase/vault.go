package usecase

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/memoryvault/vault"
	"github.com/memoryvault/vault/internal/domain"
)

// VaultUsecase composes the cipher, the key wrap and the document model into
// the publish / view / grant flows. It never holds key material beyond a
// single call.
type VaultUsecase struct {
	store   ContentStore
	fetcher ContentFetcher
	pointer PointerResolver
	log     DocumentLogRepository
}

func NewVaultUsecase(store ContentStore, fetcher ContentFetcher, pointer PointerResolver, log DocumentLogRepository) *VaultUsecase {
	return &VaultUsecase{
		store:   store,
		fetcher: fetcher,
		pointer: pointer,
		log:     log,
	}
}

// GrantOptions are the owner-chosen limits on a viewer grant. Zero values
// mean unlimited.
type GrantOptions struct {
	ExpiresIn time.Duration
	ViewLimit uint
}

// PublishResult reports where freshly published content and its document
// landed. The caller points the external registry at Address.
type PublishResult struct {
	Document       vault.GrantDocument
	Address        string
	ContentAddress string
}

// Publish encrypts plaintext under a fresh content key, wraps the key for the
// owner and stores ciphertext and grant document. The content key is zeroed
// before return and exists nowhere but inside the grants afterwards.
func (uc *VaultUsecase) Publish(ctx context.Context, plaintext []byte, owner vault.Identity, desc vault.Descriptive) (PublishResult, error) {
	ctx, span := tracer.Start(ctx, "Vault.Publish")
	defer span.End()

	ciphertext, key, iv, err := vault.EncryptContent(plaintext)
	if err != nil {
		return PublishResult{}, err
	}
	defer key.Zero()

	ownerGrant, err := vault.WrapKey(key, owner)
	if err != nil {
		return PublishResult{}, err
	}

	contentAddress, err := uc.store.Put(ctx, ciphertext, desc.Name)
	if err != nil {
		return PublishResult{}, fmt.Errorf("failed to store ciphertext: %w", err)
	}
	span.SetAttributes(attribute.String("content.address", contentAddress))

	params := vault.EncryptionParams{
		IV:        base64.StdEncoding.EncodeToString(iv),
		Algorithm: vault.AlgorithmAESGCM,
	}
	doc := vault.NewGrantDocument(contentAddress, owner, params, ownerGrant, desc)

	address, err := uc.publishDocument(ctx, doc, owner.String())
	if err != nil {
		return PublishResult{}, err
	}

	return PublishResult{Document: doc, Address: address, ContentAddress: contentAddress}, nil
}

// GrantResult reports the new document snapshot produced by a grant change.
type GrantResult struct {
	Document vault.GrantDocument
	Address  string
}

// Grant issues a viewer their own wrapped copy of the content key: the owner
// grant is unwrapped, the key rewrapped for the viewer with the requested
// limits, and a new document snapshot published. The previous snapshot is
// untouched; the external pointer decides which one is current.
func (uc *VaultUsecase) Grant(ctx context.Context, contentRef string, owner vault.Identity, viewerWallet string, opts GrantOptions) (GrantResult, error) {
	ctx, span := tracer.Start(ctx, "Vault.Grant")
	defer span.End()

	viewer, err := vault.ParseIdentity(viewerWallet)
	if err != nil {
		return GrantResult{}, err
	}

	address, doc, err := uc.currentDocument(ctx, contentRef)
	if err != nil {
		return GrantResult{}, err
	}

	ownerGrant, err := doc.ResolveGrant(owner, true)
	if err != nil {
		return GrantResult{}, err
	}
	key, err := vault.UnwrapKey(ownerGrant, owner)
	if err != nil {
		return GrantResult{}, err
	}
	defer key.Zero()

	grant, err := vault.WrapKey(key, viewer)
	if err != nil {
		return GrantResult{}, err
	}
	if opts.ExpiresIn > 0 {
		expires := time.Now().UTC().Add(opts.ExpiresIn)
		grant.ExpiresAt = &expires
	}
	if opts.ViewLimit > 0 {
		limit := opts.ViewLimit
		remaining := opts.ViewLimit
		grant.ViewLimit = &limit
		grant.ViewsRemaining = &remaining
	}

	next := doc.WithViewerGrant(viewer, grant)
	newAddress, err := uc.publishDocument(ctx, next, owner.String())
	if err != nil {
		return GrantResult{}, err
	}

	if err := uc.pointer.Advance(ctx, contentRef, address, newAddress); err != nil {
		return GrantResult{}, fmt.Errorf("failed to advance document pointer: %w", err)
	}

	return GrantResult{Document: next, Address: newAddress}, nil
}

// Register binds a stable content ref to the first published document
// snapshot. Later snapshots advance the pointer automatically; only the
// initial binding comes from outside.
func (uc *VaultUsecase) Register(ctx context.Context, contentRef, address string) error {
	return uc.pointer.Advance(ctx, contentRef, "", address)
}

// ViewResult carries recovered plaintext. NewAddress is set when exercising
// a view-limited grant forced a decremented snapshot to be republished.
type ViewResult struct {
	Plaintext  []byte
	FileType   string
	NewAddress string
}

// View runs the whole read path: fetch the current document, resolve the
// caller's grant, unwrap the content key, fetch the ciphertext, decrypt.
// A ciphertext fetch failure after a successful metadata fetch is reported as
// such, distinct from a metadata failure.
func (uc *VaultUsecase) View(ctx context.Context, contentRef string, caller vault.Identity, callerIsOwner bool) (ViewResult, error) {
	ctx, span := tracer.Start(ctx, "Vault.View")
	defer span.End()

	address, doc, err := uc.currentDocument(ctx, contentRef)
	if err != nil {
		return ViewResult{}, err
	}

	grant, err := doc.ResolveGrant(caller, callerIsOwner)
	if err != nil {
		return ViewResult{}, err
	}

	key, err := vault.UnwrapKey(grant, caller)
	if err != nil {
		return ViewResult{}, err
	}
	defer key.Zero()

	ciphertext, err := uc.fetcher.Fetch(ctx, doc.Properties.ContentAddress)
	if err != nil {
		return ViewResult{}, fmt.Errorf("metadata fetched but ciphertext retrieval failed: %w", err)
	}

	iv, err := base64.StdEncoding.DecodeString(doc.Properties.EncryptionParams.IV)
	if err != nil {
		return ViewResult{}, vault.ErrMalformedDocument
	}

	plaintext, err := vault.DecryptContent(ciphertext, key, iv)
	if err != nil {
		return ViewResult{}, err
	}

	result := ViewResult{Plaintext: plaintext}
	if len(doc.Properties.Files) > 0 {
		result.FileType = doc.Properties.Files[0].Type
	}

	// Exercising a view-limited grant consumes one view: republish the
	// decremented snapshot and move the pointer.
	if !callerIsOwner && grant.ViewsRemaining != nil {
		next, err := doc.WithDecrementedView(caller)
		if err != nil {
			return ViewResult{}, err
		}
		newAddress, err := uc.publishDocument(ctx, next, doc.Properties.Owner)
		if err != nil {
			return ViewResult{}, err
		}
		if err := uc.pointer.Advance(ctx, contentRef, address, newAddress); err != nil {
			return ViewResult{}, fmt.Errorf("failed to advance document pointer: %w", err)
		}
		result.NewAddress = newAddress
	}

	return result, nil
}

// FetchDocument resolves and parses the current grant document for a content
// ref without touching any key material.
func (uc *VaultUsecase) FetchDocument(ctx context.Context, contentRef string) (vault.GrantDocument, string, error) {
	address, doc, err := uc.currentDocument(ctx, contentRef)
	if err != nil {
		return vault.GrantDocument{}, "", err
	}
	return doc, address, nil
}

func (uc *VaultUsecase) currentDocument(ctx context.Context, contentRef string) (string, vault.GrantDocument, error) {
	address, err := uc.pointer.Current(ctx, contentRef)
	if err != nil {
		return "", vault.GrantDocument{}, fmt.Errorf("failed to resolve current document: %w", err)
	}

	raw, err := uc.fetcher.Fetch(ctx, address)
	if err != nil {
		return "", vault.GrantDocument{}, fmt.Errorf("failed to fetch grant document: %w", err)
	}

	doc, err := vault.DecodeGrantDocument(raw)
	if err != nil {
		return "", vault.GrantDocument{}, err
	}
	return address, doc, nil
}

func (uc *VaultUsecase) publishDocument(ctx context.Context, doc vault.GrantDocument, ownerWallet string) (string, error) {
	raw, err := doc.Encode()
	if err != nil {
		return "", fmt.Errorf("failed to encode grant document: %w", err)
	}

	address, err := uc.store.Put(ctx, raw, "metadata.json")
	if err != nil {
		return "", fmt.Errorf("failed to store grant document: %w", err)
	}

	viewers := make([]string, 0, len(doc.Properties.ViewerGrants))
	for wallet := range doc.Properties.ViewerGrants {
		viewers = append(viewers, wallet)
	}
	entry := domain.PublishedDocument{
		Address:        address,
		ContentAddress: doc.Properties.ContentAddress,
		OwnerWallet:    ownerWallet,
		ViewerWallets:  viewers,
		PublishedAt:    time.Now().UTC(),
	}
	if err := uc.log.Record(ctx, entry); err != nil {
		return "", fmt.Errorf("failed to record published document: %w", err)
	}

	return address, nil
}
