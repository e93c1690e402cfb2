package repo

import (
	"context"
	"fmt"

	"audience/internal/models"

	"gorm.io/gorm"
)

// RecentLimit — размер окна GET /audience.
const RecentLimit = 50

type AudienceStore struct {
	db *gorm.DB
}

func NewAudienceStore(db *gorm.DB) *AudienceStore {
	return &AudienceStore{db: db}
}

func (s *AudienceStore) Create(ctx context.Context, rec *models.AudienceRecord) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("insert audience record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest (highest id) first.
func (s *AudienceStore) Recent(ctx context.Context, limit int) ([]models.AudienceRecord, error) {
	if limit <= 0 || limit > RecentLimit {
		limit = RecentLimit
	}
	out := []models.AudienceRecord{}
	err := s.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list audience records: %w", err)
	}
	return out, nil
}

func (s *AudienceStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.AudienceRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count audience records: %w", err)
	}
	return n, nil
}
