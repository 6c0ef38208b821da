package repository

import (
	"context"
	"time"

	"panpos/internal/model"

	"gorm.io/gorm"
)

// AppliedActionRepository records which pending-action ids have already been
// executed remotely. Mark is called inside the same transaction as the
// compound write it protects, so the unique-key conflict on a second replay
// rolls the duplicate attempt back wholesale.
type AppliedActionRepository interface {
	Mark(ctx context.Context, actionID string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) error
}

type appliedActionRepository struct {
	db *gorm.DB
}

func NewAppliedActionRepository(db *gorm.DB) AppliedActionRepository {
	return &appliedActionRepository{db: db}
}

func (r *appliedActionRepository) Mark(ctx context.Context, actionID string) error {
	return GetDB(ctx, r.db).Create(&model.AppliedAction{
		ID:        actionID,
		AppliedAt: time.Now(),
	}).Error
}

func (r *appliedActionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) error {
	return GetDB(ctx, r.db).Where("applied_at < ?", cutoff).Delete(&model.AppliedAction{}).Error
}
