package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"hotel-concierge/internal/model"
)

type ArchiveRepository struct {
	db *gorm.DB
}

func NewArchiveRepository(db *gorm.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

func (r *ArchiveRepository) CreateTranscriptEntry(ctx context.Context, entry *model.TranscriptEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("create transcript entry failed: %w", err)
	}
	return nil
}

func (r *ArchiveRepository) CreateEscalation(ctx context.Context, record *model.EscalationRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("create escalation record failed: %w", err)
	}
	return nil
}
