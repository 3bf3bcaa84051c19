package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/memoryvault/vault/internal/domain"
	"github.com/memoryvault/vault/internal/infrastructure/database/models"
)

type DocumentLogRepository struct {
	db *gorm.DB
}

func NewDocumentLogRepository(db *gorm.DB) *DocumentLogRepository {
	return &DocumentLogRepository{db: db}
}

// Record is idempotent per address. Republishing an identical document
// produces the same address, and the earlier row stands.
func (r *DocumentLogRepository) Record(ctx context.Context, entry domain.PublishedDocument) error {
	model := models.DocumentLog{
		Address:        entry.Address,
		ContentAddress: entry.ContentAddress,
		OwnerWallet:    entry.OwnerWallet,
		Viewers:        entry.ViewerWallets,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		DoNothing: true,
	}).Create(&model).Error
}

// History lists every snapshot recorded for a content address, newest first.
func (r *DocumentLogRepository) History(ctx context.Context, contentAddress string) ([]domain.PublishedDocument, error) {
	var rows []models.DocumentLog
	err := r.db.WithContext(ctx).
		Where("content_address = ?", contentAddress).
		Order("cdate desc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]domain.PublishedDocument, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.PublishedDocument{
			Address:        row.Address,
			ContentAddress: row.ContentAddress,
			OwnerWallet:    row.OwnerWallet,
			ViewerWallets:  row.Viewers,
			PublishedAt:    row.CDate,
		})
	}
	return entries, nil
}
