package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/bradfitz/gomemcache/memcache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/memoryvault/vault/internal/domain"
	"github.com/memoryvault/vault/internal/infrastructure/database/models"
)

// requestCacheTTL keeps polled requests out of postgres for a few seconds.
// Responses invalidate the entry, so staleness is bounded by the TTL only
// for writes that raced the poll.
const requestCacheTTL = 10

type RequestRepository struct {
	db *gorm.DB
	mc *memcache.Client
}

func NewRequestRepository(db *gorm.DB, mc *memcache.Client) *RequestRepository {
	return &RequestRepository{db: db, mc: mc}
}

func (r *RequestRepository) GetByPair(ctx context.Context, requesterWallet, contentRef string) (domain.AccessRequest, error) {
	var req models.AccessRequest
	err := r.db.WithContext(ctx).
		Where("requester_wallet = ? AND content_ref = ?", requesterWallet, contentRef).
		Take(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.AccessRequest{}, domain.ErrRequestNotFound
		}
		return domain.AccessRequest{}, err
	}
	return requestFromModel(req), nil
}

func (r *RequestRepository) GetByID(ctx context.Context, id string) (domain.AccessRequest, error) {

	if cached, err := r.mc.Get(requestCacheKey(id)); err == nil {
		var req domain.AccessRequest
		if err := json.Unmarshal(cached.Value, &req); err == nil {
			return req, nil
		}
	}

	var req models.AccessRequest
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.AccessRequest{}, domain.ErrRequestNotFound
		}
		return domain.AccessRequest{}, err
	}

	result := requestFromModel(req)
	r.cacheRequest(ctx, result)

	return result, nil
}

func (r *RequestRepository) Upsert(ctx context.Context, req domain.AccessRequest) error {
	model := models.AccessRequest{
		ID:              req.ID,
		RequesterWallet: req.RequesterWallet,
		OwnerWallet:     req.OwnerWallet,
		ContentRef:      req.ContentRef,
		Message:         req.Message,
		Status:          string(req.Status),
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "requester_wallet"}, {Name: "content_ref"}},
		DoUpdates: clause.AssignmentColumns([]string{"message", "status", "owner_wallet", "mdate"}),
	}).Create(&model).Error
	if err != nil {
		return err
	}

	r.invalidate(ctx, req.ID)
	return nil
}

// SetStatus resolves a pending request. Only the pending row matches, so a
// concurrent response loses the race and reports ErrAlreadyResolved.
func (r *RequestRepository) SetStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.AccessRequest{}).
		Where("id = ? AND status = ?", id, string(domain.StatusPending)).
		Update("status", string(status))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&models.AccessRequest{}).
			Where("id = ?", id).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrRequestNotFound
		}
		return domain.ErrAlreadyResolved
	}

	r.invalidate(ctx, id)
	return nil
}

func (r *RequestRepository) ListByOwner(ctx context.Context, ownerWallet string) ([]domain.AccessRequest, error) {
	var reqs []models.AccessRequest
	err := r.db.WithContext(ctx).
		Where("owner_wallet = ?", ownerWallet).
		Order("cdate desc").
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	return requestsFromModels(reqs), nil
}

func (r *RequestRepository) ListByRequester(ctx context.Context, requesterWallet string) ([]domain.AccessRequest, error) {
	var reqs []models.AccessRequest
	err := r.db.WithContext(ctx).
		Where("requester_wallet = ?", requesterWallet).
		Order("cdate desc").
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	return requestsFromModels(reqs), nil
}

func (r *RequestRepository) cacheRequest(ctx context.Context, req domain.AccessRequest) {
	value, err := json.Marshal(req)
	if err != nil {
		return
	}
	err = r.mc.Set(&memcache.Item{
		Key:        requestCacheKey(req.ID),
		Value:      value,
		Expiration: requestCacheTTL,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to cache access request", slog.String("error", err.Error()))
	}
}

func (r *RequestRepository) invalidate(ctx context.Context, id string) {
	err := r.mc.Delete(requestCacheKey(id))
	if err != nil && err != memcache.ErrCacheMiss {
		slog.WarnContext(ctx, "failed to invalidate request cache", slog.String("error", err.Error()))
	}
}

func requestCacheKey(id string) string {
	return "request:" + id
}

func requestFromModel(m models.AccessRequest) domain.AccessRequest {
	return domain.AccessRequest{
		ID:              m.ID,
		RequesterWallet: m.RequesterWallet,
		OwnerWallet:     m.OwnerWallet,
		ContentRef:      m.ContentRef,
		Message:         m.Message,
		Status:          domain.RequestStatus(m.Status),
		CreatedAt:       m.CDate,
		UpdatedAt:       m.MDate,
	}
}

func requestsFromModels(ms []models.AccessRequest) []domain.AccessRequest {
	reqs := make([]domain.AccessRequest, 0, len(ms))
	for _, m := range ms {
		reqs = append(reqs, requestFromModel(m))
	}
	return reqs
}
