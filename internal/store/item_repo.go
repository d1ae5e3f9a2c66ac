package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type itemRepo struct {
	db *gorm.DB
}

func (r *itemRepo) Create(ctx context.Context, item *GeneratedItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

func (r *itemRepo) Get(ctx context.Context, id uuid.UUID) (*GeneratedItem, error) {
	var item GeneratedItem
	err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "item", Key: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &item, nil
}

func (r *itemRepo) ListPrompts(ctx context.Context, sessionID uuid.UUID, kind ItemKind) ([]string, error) {
	var items []GeneratedItem
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND kind = ?", sessionID, kind).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list item prompts: %w", err)
	}

	prompts := make([]string, 0, len(items))
	for _, item := range items {
		var payload struct {
			Prompt string `json:"prompt"`
		}
		if err := json.Unmarshal(item.Payload, &payload); err != nil || payload.Prompt == "" {
			continue
		}
		prompts = append(prompts, payload.Prompt)
	}
	return prompts, nil
}
