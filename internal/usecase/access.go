package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/memoryvault/vault/internal/domain"
)

var tracer = otel.Tracer("usecase")

// AccessUsecase drives the request/approve/deny workflow that gates grant
// issuance. It owns only the bookkeeping; the actual rewrap-and-republish on
// approval is the owner-side VaultUsecase.Grant call.
type AccessUsecase struct {
	requests RequestRepository
	shared   SharedAccessRepository
	signal   Signal
}

func NewAccessUsecase(requests RequestRepository, shared SharedAccessRepository, signal Signal) *AccessUsecase {
	return &AccessUsecase{
		requests: requests,
		shared:   shared,
		signal:   signal,
	}
}

// CreateOrRefresh files a request for access to contentRef. A pending request
// for the pair is a duplicate; a resolved one is reset to pending with the
// new message, so a requester can ask again after a denial.
func (uc *AccessUsecase) CreateOrRefresh(ctx context.Context, requesterWallet, ownerWallet, contentRef, message string) (domain.AccessRequest, error) {
	ctx, span := tracer.Start(ctx, "Access.CreateOrRefresh")
	defer span.End()

	if requesterWallet == ownerWallet {
		return domain.AccessRequest{}, domain.ErrSelfRequest
	}

	now := time.Now().UTC()

	existing, err := uc.requests.GetByPair(ctx, requesterWallet, contentRef)
	switch {
	case err == nil:
		if existing.Status == domain.StatusPending {
			return domain.AccessRequest{}, domain.ErrDuplicateRequest
		}
		existing.Status = domain.StatusPending
		existing.Message = message
		existing.UpdatedAt = now
		if err := uc.requests.Upsert(ctx, existing); err != nil {
			return domain.AccessRequest{}, fmt.Errorf("failed to refresh access request: %w", err)
		}
		uc.notify(ctx, domain.EventRequestCreated, existing.OwnerWallet, existing)
		return existing, nil

	case isNotFound(err):
		req := domain.AccessRequest{
			ID:              uuid.New().String(),
			RequesterWallet: requesterWallet,
			OwnerWallet:     ownerWallet,
			ContentRef:      contentRef,
			Message:         message,
			Status:          domain.StatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := uc.requests.Upsert(ctx, req); err != nil {
			return domain.AccessRequest{}, fmt.Errorf("failed to create access request: %w", err)
		}
		uc.notify(ctx, domain.EventRequestCreated, req.OwnerWallet, req)
		return req, nil

	default:
		return domain.AccessRequest{}, fmt.Errorf("failed to look up access request: %w", err)
	}
}

// Respond resolves a pending request. Approve or deny happens exactly once:
// any further respond on the same id fails with ErrAlreadyResolved. On
// approval a SharedAccess row is created; issuing the viewer's grant is the
// caller's next step.
func (uc *AccessUsecase) Respond(ctx context.Context, requestID string, decision domain.Decision) (domain.AccessRequest, error) {
	ctx, span := tracer.Start(ctx, "Access.Respond")
	defer span.End()

	var status domain.RequestStatus
	switch decision {
	case domain.DecisionApprove:
		status = domain.StatusApproved
	case domain.DecisionDeny:
		status = domain.StatusDenied
	default:
		return domain.AccessRequest{}, fmt.Errorf("invalid decision %q", decision)
	}

	req, err := uc.requests.GetByID(ctx, requestID)
	if err != nil {
		if isNotFound(err) {
			return domain.AccessRequest{}, domain.ErrRequestNotFound
		}
		return domain.AccessRequest{}, fmt.Errorf("failed to load access request: %w", err)
	}

	if req.Status != domain.StatusPending {
		return domain.AccessRequest{}, domain.ErrAlreadyResolved
	}

	if err := uc.requests.SetStatus(ctx, req.ID, status); err != nil {
		return domain.AccessRequest{}, fmt.Errorf("failed to update access request: %w", err)
	}
	req.Status = status
	req.UpdatedAt = time.Now().UTC()

	if status == domain.StatusApproved {
		rec := domain.SharedAccess{
			OwnerWallet:  req.OwnerWallet,
			ViewerWallet: req.RequesterWallet,
			ContentRef:   req.ContentRef,
			Status:       domain.SharedActive,
			CreatedAt:    req.UpdatedAt,
		}
		if err := uc.shared.Create(ctx, rec); err != nil {
			// The row may exist from an earlier approval cycle.
			slog.WarnContext(ctx, "shared access record not created",
				slog.String("viewer", rec.ViewerWallet),
				slog.String("error", err.Error()),
			)
		}
	}

	uc.notify(ctx, domain.EventRequestResponded, req.RequesterWallet, req)
	return req, nil
}

// Status reports the request state for a (requester, contentRef) pair, for
// the requester-side polling view.
func (uc *AccessUsecase) Status(ctx context.Context, requesterWallet, contentRef string) (domain.AccessRequest, error) {
	req, err := uc.requests.GetByPair(ctx, requesterWallet, contentRef)
	if err != nil {
		if isNotFound(err) {
			return domain.AccessRequest{}, domain.ErrRequestNotFound
		}
		return domain.AccessRequest{}, fmt.Errorf("failed to look up access request: %w", err)
	}
	return req, nil
}

// ListPending returns all requests addressed to an owner, pending first and
// newest first within each status.
func (uc *AccessUsecase) ListPending(ctx context.Context, ownerWallet string) ([]domain.AccessRequest, error) {
	reqs, err := uc.requests.ListByOwner(ctx, ownerWallet)
	if err != nil {
		return nil, fmt.Errorf("failed to list access requests: %w", err)
	}
	orderRequests(reqs)
	return reqs, nil
}

// ListForRequester returns all requests a wallet has filed, same ordering as
// the owner view.
func (uc *AccessUsecase) ListForRequester(ctx context.Context, requesterWallet string) ([]domain.AccessRequest, error) {
	reqs, err := uc.requests.ListByRequester(ctx, requesterWallet)
	if err != nil {
		return nil, fmt.Errorf("failed to list access requests: %w", err)
	}
	orderRequests(reqs)
	return reqs, nil
}

// SharedWith lists active shared-access records for a viewer.
func (uc *AccessUsecase) SharedWith(ctx context.Context, viewerWallet string) ([]domain.SharedAccess, error) {
	recs, err := uc.shared.ListByViewer(ctx, viewerWallet)
	if err != nil {
		return nil, fmt.Errorf("failed to list shared access: %w", err)
	}
	return recs, nil
}

// CheckShared reports whether a viewer holds an active shared-access record
// for contentRef. This is the listing shortcut, not the decryption authority.
func (uc *AccessUsecase) CheckShared(ctx context.Context, viewerWallet, contentRef string) (bool, error) {
	rec, err := uc.shared.Find(ctx, viewerWallet, contentRef)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check shared access: %w", err)
	}
	return rec.Status == domain.SharedActive, nil
}

func (uc *AccessUsecase) notify(ctx context.Context, eventType, wallet string, req domain.AccessRequest) {
	if uc.signal == nil {
		return
	}
	ev := domain.RequestEvent{
		Type:    eventType,
		Wallet:  wallet,
		Request: req,
	}
	if err := uc.signal.PublishRequestEvent(ctx, ev); err != nil {
		slog.WarnContext(ctx, "request event not published",
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
	}
}

func orderRequests(reqs []domain.AccessRequest) {
	sort.SliceStable(reqs, func(i, j int) bool {
		a, b := reqs[i], reqs[j]
		if (a.Status == domain.StatusPending) != (b.Status == domain.StatusPending) {
			return a.Status == domain.StatusPending
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
