package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type callLogRepo struct {
	db *gorm.DB
}

func (r *callLogRepo) Append(ctx context.Context, entry *LLMCallLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("append call log: %w", err)
	}
	return nil
}

func (r *callLogRepo) Recent(ctx context.Context, limit int) ([]LLMCallLog, error) {
	var entries []LLMCallLog
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("recent call log: %w", err)
	}
	return entries, nil
}
