package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type messageRepo struct {
	db *gorm.DB
}

// Append assigns the next sequence number inside a transaction and
// inserts the message. Sequences are gapless from 1 per session; the
// unique index on (session_id, sequence) backstops the single-writer
// rule enforced by the turn lock.
func (r *messageRepo) Append(ctx context.Context, m *ConversationMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int64
		err := tx.Model(&ConversationMessage{}).
			Where("session_id = ?", m.SessionID).
			Select("COALESCE(MAX(sequence), 0)").
			Scan(&maxSeq).Error
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		m.Sequence = maxSeq + 1
		if err := tx.Create(m).Error; err != nil {
			return fmt.Errorf("append message: %w", err)
		}
		return nil
	})
}

func (r *messageRepo) List(ctx context.Context, sessionID uuid.UUID) ([]ConversationMessage, error) {
	var msgs []ConversationMessage
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sequence ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

func (r *messageRepo) Tail(ctx context.Context, sessionID uuid.UUID, n int) ([]ConversationMessage, error) {
	var msgs []ConversationMessage
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sequence DESC").
		Limit(n).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("tail messages: %w", err)
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Sequence < msgs[j].Sequence })
	return msgs, nil
}
