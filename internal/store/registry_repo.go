package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type registryRepo struct {
	db *gorm.DB
}

func (r *registryRepo) Contains(ctx context.Context, sessionID uuid.UUID, kind ItemKind, fingerprint string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ItemFingerprint{}).
		Where("session_id = ? AND kind = ? AND fingerprint = ?", sessionID, kind, fingerprint).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("registry contains: %w", err)
	}
	return count > 0, nil
}

// Insert relies on the unique index rather than a read-then-write: two
// racing writers for the same fingerprint resolve to exactly one true.
func (r *registryRepo) Insert(ctx context.Context, sessionID uuid.UUID, kind ItemKind, fingerprint string) (bool, error) {
	row := &ItemFingerprint{
		SessionID:   sessionID,
		Kind:        kind,
		Fingerprint: fingerprint,
	}
	err := r.db.WithContext(ctx).Create(row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("registry insert: %w", err)
	}
	return true, nil
}
