package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/memoryvault/vault/internal/domain"
	"github.com/memoryvault/vault/internal/infrastructure/database/models"
)

type SharedAccessRepository struct {
	db *gorm.DB
}

func NewSharedAccessRepository(db *gorm.DB) *SharedAccessRepository {
	return &SharedAccessRepository{db: db}
}

func (r *SharedAccessRepository) Create(ctx context.Context, rec domain.SharedAccess) error {
	model := models.SharedAccess{
		ViewerWallet: rec.ViewerWallet,
		ContentRef:   rec.ContentRef,
		OwnerWallet:  rec.OwnerWallet,
		Status:       string(rec.Status),
	}
	err := r.db.WithContext(ctx).Create(&model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicateRequest
	}
	return err
}

func (r *SharedAccessRepository) Find(ctx context.Context, viewerWallet, contentRef string) (domain.SharedAccess, error) {
	var rec models.SharedAccess
	err := r.db.WithContext(ctx).
		Where("viewer_wallet = ? AND content_ref = ?", viewerWallet, contentRef).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.SharedAccess{}, domain.NotFoundError{Resource: "shared access"}
		}
		return domain.SharedAccess{}, err
	}
	return sharedFromModel(rec), nil
}

func (r *SharedAccessRepository) ListByViewer(ctx context.Context, viewerWallet string) ([]domain.SharedAccess, error) {
	var recs []models.SharedAccess
	err := r.db.WithContext(ctx).
		Where("viewer_wallet = ? AND status = ?", viewerWallet, string(domain.SharedActive)).
		Order("cdate desc").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	shared := make([]domain.SharedAccess, 0, len(recs))
	for _, rec := range recs {
		shared = append(shared, sharedFromModel(rec))
	}
	return shared, nil
}

func sharedFromModel(m models.SharedAccess) domain.SharedAccess {
	return domain.SharedAccess{
		OwnerWallet:  m.OwnerWallet,
		ViewerWallet: m.ViewerWallet,
		ContentRef:   m.ContentRef,
		Status:       domain.SharedStatus(m.Status),
		CreatedAt:    m.CDate,
	}
}
