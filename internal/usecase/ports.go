package usecase

import (
	"context"

	"github.com/memoryvault/vault/internal/domain"
)

// RequestRepository defines persistence for access requests.
type RequestRepository interface {
	GetByPair(ctx context.Context, requesterWallet, contentRef string) (domain.AccessRequest, error)
	GetByID(ctx context.Context, id string) (domain.AccessRequest, error)
	Upsert(ctx context.Context, req domain.AccessRequest) error
	SetStatus(ctx context.Context, id string, status domain.RequestStatus) error
	ListByOwner(ctx context.Context, ownerWallet string) ([]domain.AccessRequest, error)
	ListByRequester(ctx context.Context, requesterWallet string) ([]domain.AccessRequest, error)
}

// SharedAccessRepository defines persistence for shared-access bookkeeping.
type SharedAccessRepository interface {
	Create(ctx context.Context, rec domain.SharedAccess) error
	Find(ctx context.Context, viewerWallet, contentRef string) (domain.SharedAccess, error)
	ListByViewer(ctx context.Context, viewerWallet string) ([]domain.SharedAccess, error)
}

// DocumentLogRepository records every published document snapshot.
type DocumentLogRepository interface {
	Record(ctx context.Context, entry domain.PublishedDocument) error
}

// ContentStore is the write side of the external content-addressed store.
type ContentStore interface {
	Put(ctx context.Context, data []byte, name string) (string, error)
}

// ContentFetcher is the read side: resolve a content address to bytes. The
// bytes are opaque here; callers decide how to parse them.
type ContentFetcher interface {
	Fetch(ctx context.Context, address string) ([]byte, error)
}

// PointerResolver maps a stable content ref to the address of its current
// grant document. The authoritative pointer lives in an external registry;
// Advance receives the previous address so implementations can
// compare-and-swap.
type PointerResolver interface {
	Current(ctx context.Context, contentRef string) (string, error)
	Advance(ctx context.Context, contentRef, prevAddress, newAddress string) error
}

// Signal fans request lifecycle events out to realtime subscribers.
type Signal interface {
	PublishRequestEvent(ctx context.Context, ev domain.RequestEvent) error
}
