package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"formazing-backend/internal/model"
)

// RunStore persists the workflow run journal.
type RunStore struct {
	db *gorm.DB
}

// NewRunStore creates a GORM-backed run journal.
func NewRunStore(db *gorm.DB) *RunStore {
	return &RunStore{db: db}
}

// Record stores one finished run.
func (s *RunStore) Record(ctx context.Context, run *model.WorkflowRun) error {
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// List returns the most recent runs, optionally restricted to one training.
func (s *RunStore) List(ctx context.Context, trainingID string, limit int) ([]model.WorkflowRun, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := s.db.WithContext(ctx).Order("finished_at DESC").Limit(limit)
	if trainingID != "" {
		q = q.Where("training_id = ?", trainingID)
	}

	var runs []model.WorkflowRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}
