package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type syllabusRepo struct {
	db *gorm.DB
}

// masterKey derives the uniqueness key guaranteeing at most one master
// per (topic, level). Level matching is case-insensitive, so the key is
// lowercased.
func masterKey(topic, level string) string {
	return strings.ToLower(strings.TrimSpace(topic)) + "|" + strings.ToLower(strings.TrimSpace(level))
}

// forkKey derives the uniqueness key for one fork per (topic, level, user).
func forkKey(topic, level, userID string) string {
	return masterKey(topic, level) + "|" + userID
}

func (r *syllabusRepo) FindMaster(ctx context.Context, topic, level string) (*Syllabus, error) {
	var s Syllabus
	key := masterKey(topic, level)
	err := r.db.WithContext(ctx).First(&s, "master_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find master syllabus: %w", err)
	}
	return &s, nil
}

func (r *syllabusRepo) FindFork(ctx context.Context, topic, level, userID string) (*Syllabus, error) {
	var s Syllabus
	key := forkKey(topic, level, userID)
	err := r.db.WithContext(ctx).First(&s, "fork_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find fork syllabus: %w", err)
	}
	return &s, nil
}

func (r *syllabusRepo) Get(ctx context.Context, uid uuid.UUID) (*Syllabus, error) {
	var s Syllabus
	err := r.db.WithContext(ctx).First(&s, "uid = ?", uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "syllabus", Key: uid.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("get syllabus: %w", err)
	}
	return &s, nil
}

// Insert derives the uniqueness key from the row's shape before writing:
// masters get a master_key, forks a fork_key. A duplicate-key rejection
// surfaces as *ConflictError so callers can re-read the winning row.
func (r *syllabusRepo) Insert(ctx context.Context, s *Syllabus) error {
	if s.IsMaster {
		key := masterKey(s.Topic, s.Level)
		s.MasterKey = &key
		s.ForkKey = nil
	} else {
		if s.UserID == nil || *s.UserID == "" {
			return fmt.Errorf("fork syllabus requires a user id")
		}
		key := forkKey(s.Topic, s.Level, *s.UserID)
		s.ForkKey = &key
		s.MasterKey = nil
	}

	err := r.db.WithContext(ctx).Create(s).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		key := ""
		if s.MasterKey != nil {
			key = *s.MasterKey
		} else if s.ForkKey != nil {
			key = *s.ForkKey
		}
		return &ConflictError{Entity: "syllabus", Key: key, Err: err}
	}
	if err != nil {
		return fmt.Errorf("insert syllabus: %w", err)
	}
	return nil
}
