package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/memoryvault/vault/internal/domain"
)

// --- mocks ---

type mockRequestRepo struct {
	byPair map[string]domain.AccessRequest
	byID   map[string]domain.AccessRequest
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{
		byPair: map[string]domain.AccessRequest{},
		byID:   map[string]domain.AccessRequest{},
	}
}

func pairKey(requester, contentRef string) string { return requester + "/" + contentRef }

func (m *mockRequestRepo) GetByPair(ctx context.Context, requester, contentRef string) (domain.AccessRequest, error) {
	req, ok := m.byPair[pairKey(requester, contentRef)]
	if !ok {
		return domain.AccessRequest{}, domain.ErrRequestNotFound
	}
	return req, nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id string) (domain.AccessRequest, error) {
	req, ok := m.byID[id]
	if !ok {
		return domain.AccessRequest{}, domain.ErrRequestNotFound
	}
	return req, nil
}

func (m *mockRequestRepo) Upsert(ctx context.Context, req domain.AccessRequest) error {
	m.byPair[pairKey(req.RequesterWallet, req.ContentRef)] = req
	m.byID[req.ID] = req
	return nil
}

func (m *mockRequestRepo) SetStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	req, ok := m.byID[id]
	if !ok {
		return domain.ErrRequestNotFound
	}
	if req.Status != domain.StatusPending {
		return domain.ErrAlreadyResolved
	}
	req.Status = status
	req.UpdatedAt = time.Now().UTC()
	m.byID[id] = req
	m.byPair[pairKey(req.RequesterWallet, req.ContentRef)] = req
	return nil
}

func (m *mockRequestRepo) ListByOwner(ctx context.Context, owner string) ([]domain.AccessRequest, error) {
	var out []domain.AccessRequest
	for _, req := range m.byID {
		if req.OwnerWallet == owner {
			out = append(out, req)
		}
	}
	return out, nil
}

func (m *mockRequestRepo) ListByRequester(ctx context.Context, requester string) ([]domain.AccessRequest, error) {
	var out []domain.AccessRequest
	for _, req := range m.byID {
		if req.RequesterWallet == requester {
			out = append(out, req)
		}
	}
	return out, nil
}

type mockSharedRepo struct {
	created []domain.SharedAccess
}

func (m *mockSharedRepo) Create(ctx context.Context, rec domain.SharedAccess) error {
	m.created = append(m.created, rec)
	return nil
}

func (m *mockSharedRepo) Find(ctx context.Context, viewer, contentRef string) (domain.SharedAccess, error) {
	for _, rec := range m.created {
		if rec.ViewerWallet == viewer && rec.ContentRef == contentRef {
			return rec, nil
		}
	}
	return domain.SharedAccess{}, domain.NotFoundError{Resource: "shared access"}
}

func (m *mockSharedRepo) ListByViewer(ctx context.Context, viewer string) ([]domain.SharedAccess, error) {
	var out []domain.SharedAccess
	for _, rec := range m.created {
		if rec.ViewerWallet == viewer {
			out = append(out, rec)
		}
	}
	return out, nil
}

type mockSignal struct {
	events []domain.RequestEvent
}

func (m *mockSignal) PublishRequestEvent(ctx context.Context, ev domain.RequestEvent) error {
	m.events = append(m.events, ev)
	return nil
}

func newAccessUC() (*AccessUsecase, *mockRequestRepo, *mockSharedRepo, *mockSignal) {
	requests := newMockRequestRepo()
	shared := &mockSharedRepo{}
	signal := &mockSignal{}
	return NewAccessUsecase(requests, shared, signal), requests, shared, signal
}

// --- tests ---

func TestCreateOrRefreshSelfRequest(t *testing.T) {
	uc, _, _, _ := newAccessUC()

	_, err := uc.CreateOrRefresh(context.Background(), "walletA", "walletA", "ref1", "")
	if !errors.Is(err, domain.ErrSelfRequest) {
		t.Fatalf("expected ErrSelfRequest, got %v", err)
	}
}

func TestCreateOrRefreshDuplicatePending(t *testing.T) {
	uc, _, _, _ := newAccessUC()
	ctx := context.Background()

	if _, err := uc.CreateOrRefresh(ctx, "req", "owner", "ref1", "please"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err := uc.CreateOrRefresh(ctx, "req", "owner", "ref1", "again")
	if !errors.Is(err, domain.ErrDuplicateRequest) {
		t.Fatalf("expected ErrDuplicateRequest, got %v", err)
	}
}

func TestRespondApproveCreatesSharedAccess(t *testing.T) {
	uc, _, shared, signal := newAccessUC()
	ctx := context.Background()

	req, err := uc.CreateOrRefresh(ctx, "req", "owner", "ref1", "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	resolved, err := uc.Respond(ctx, req.ID, domain.DecisionApprove)
	if err != nil {
		t.Fatalf("respond failed: %v", err)
	}
	if resolved.Status != domain.StatusApproved {
		t.Fatalf("expected approved, got %s", resolved.Status)
	}

	if len(shared.created) != 1 {
		t.Fatalf("expected one shared access record, got %d", len(shared.created))
	}
	rec := shared.created[0]
	if rec.ViewerWallet != "req" || rec.ContentRef != "ref1" || rec.Status != domain.SharedActive {
		t.Fatalf("unexpected shared access record: %+v", rec)
	}

	// created + responded
	if len(signal.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(signal.events))
	}
	if signal.events[1].Type != domain.EventRequestResponded || signal.events[1].Wallet != "req" {
		t.Fatalf("unexpected response event: %+v", signal.events[1])
	}
}

func TestRespondDenyCreatesNoSharedAccess(t *testing.T) {
	uc, _, shared, _ := newAccessUC()
	ctx := context.Background()

	req, err := uc.CreateOrRefresh(ctx, "req", "owner", "ref1", "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	resolved, err := uc.Respond(ctx, req.ID, domain.DecisionDeny)
	if err != nil {
		t.Fatalf("respond failed: %v", err)
	}
	if resolved.Status != domain.StatusDenied {
		t.Fatalf("expected denied, got %s", resolved.Status)
	}
	if len(shared.created) != 0 {
		t.Fatalf("deny must not create shared access")
	}
}

func TestRespondTwiceFails(t *testing.T) {
	uc, _, _, _ := newAccessUC()
	ctx := context.Background()

	req, err := uc.CreateOrRefresh(ctx, "req", "owner", "ref1", "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := uc.Respond(ctx, req.ID, domain.DecisionApprove); err != nil {
		t.Fatalf("first respond failed: %v", err)
	}

	_, err = uc.Respond(ctx, req.ID, domain.DecisionDeny)
	if !errors.Is(err, domain.ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
}

// staleRequestRepo serves reads from a snapshot taken before a concurrent
// response resolved the row, so the status check passes on stale data and the
// conditional update has to lose the race.
type staleRequestRepo struct {
	*mockRequestRepo
	snapshot domain.AccessRequest
}

func (m *staleRequestRepo) GetByID(ctx context.Context, id string) (domain.AccessRequest, error) {
	if id == m.snapshot.ID {
		return m.snapshot, nil
	}
	return m.mockRequestRepo.GetByID(ctx, id)
}

func TestRespondLosesRaceToConcurrentResponse(t *testing.T) {
	requests := newMockRequestRepo()
	stale := &staleRequestRepo{mockRequestRepo: requests}
	uc := NewAccessUsecase(stale, &mockSharedRepo{}, &mockSignal{})
	ctx := context.Background()

	req, err := uc.CreateOrRefresh(ctx, "req", "owner", "ref1", "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	stale.snapshot = req

	if err := requests.SetStatus(ctx, req.ID, domain.StatusApproved); err != nil {
		t.Fatalf("concurrent resolve failed: %v", err)
	}

	_, err = uc.Respond(ctx, req.ID, domain.DecisionDeny)
	if !errors.Is(err, domain.ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
}

func TestRespondUnknownRequest(t *testing.T) {
	uc, _, _, _ := newAccessUC()

	_, err := uc.Respond(context.Background(), "missing", domain.DecisionApprove)
	if !errors.Is(err, domain.ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestRespondInvalidDecision(t *testing.T) {
	uc, _, _, _ := newAccessUC()

	_, err := uc.Respond(context.Background(), "any", domain.Decision("maybe"))
	if err == nil {
		t.Fatalf("expected error for invalid decision")
	}
}

func TestReRequestAfterResolution(t *testing.T) {
	uc, _, _, _ := newAccessUC()
	ctx := context.Background()

	req, err := uc.CreateOrRefresh(ctx, "req", "owner", "ref1", "first")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := uc.Respond(ctx, req.ID, domain.DecisionDeny); err != nil {
		t.Fatalf("respond failed: %v", err)
	}

	refreshed, err := uc.CreateOrRefresh(ctx, "req", "owner", "ref1", "second try")
	if err != nil {
		t.Fatalf("re-request after denial failed: %v", err)
	}
	if refreshed.Status != domain.StatusPending {
		t.Fatalf("expected pending after refresh, got %s", refreshed.Status)
	}
	if refreshed.Message != "second try" {
		t.Fatalf("message not replaced: %q", refreshed.Message)
	}
	if refreshed.ID != req.ID {
		t.Fatalf("refresh must reuse the request row")
	}
}

func TestStatusLookup(t *testing.T) {
	uc, _, _, _ := newAccessUC()
	ctx := context.Background()

	if _, err := uc.Status(ctx, "req", "ref1"); !errors.Is(err, domain.ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}

	created, err := uc.CreateOrRefresh(ctx, "req", "owner", "ref1", "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	got, err := uc.Status(ctx, "req", "ref1")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if got.ID != created.ID || got.Status != domain.StatusPending {
		t.Fatalf("unexpected status result: %+v", got)
	}
}

func TestListOrdering(t *testing.T) {
	uc, requests, _, _ := newAccessUC()
	ctx := context.Background()

	base := time.Now().UTC()
	seed := []domain.AccessRequest{
		{ID: "a", RequesterWallet: "r1", OwnerWallet: "owner", ContentRef: "c1", Status: domain.StatusDenied, CreatedAt: base.Add(3 * time.Hour)},
		{ID: "b", RequesterWallet: "r2", OwnerWallet: "owner", ContentRef: "c2", Status: domain.StatusPending, CreatedAt: base.Add(1 * time.Hour)},
		{ID: "c", RequesterWallet: "r3", OwnerWallet: "owner", ContentRef: "c3", Status: domain.StatusPending, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "d", RequesterWallet: "r4", OwnerWallet: "owner", ContentRef: "c4", Status: domain.StatusApproved, CreatedAt: base.Add(4 * time.Hour)},
	}
	for _, req := range seed {
		if err := requests.Upsert(ctx, req); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	got, err := uc.ListPending(ctx, "owner")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	wantOrder := []string{"c", "b", "d", "a"}
	if len(got) != len(wantOrder) {
		t.Fatalf("expected %d requests, got %d", len(wantOrder), len(got))
	}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestCheckShared(t *testing.T) {
	uc, _, _, _ := newAccessUC()
	ctx := context.Background()

	ok, err := uc.CheckShared(ctx, "viewer", "ref1")
	if err != nil || ok {
		t.Fatalf("expected no access, got %v %v", ok, err)
	}

	req, err := uc.CreateOrRefresh(ctx, "viewer", "owner", "ref1", "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := uc.Respond(ctx, req.ID, domain.DecisionApprove); err != nil {
		t.Fatalf("respond failed: %v", err)
	}

	ok, err = uc.CheckShared(ctx, "viewer", "ref1")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected active shared access")
	}
}
