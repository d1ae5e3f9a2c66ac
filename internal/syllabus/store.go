package syllabus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/npatel023/tutorgraph/internal/generation"
	"github.com/npatel023/tutorgraph/internal/store"
)

// Store resolves curriculum documents using the master/fork model: one
// shared master per (topic, level), lazily synthesized, with per-learner
// forks that diverge without losing their origin.
type Store struct {
	repo store.SyllabusRepo
	svc  generation.Service
	log  *zap.SugaredLogger
}

// NewStore creates a syllabus version store.
func NewStore(repo store.SyllabusRepo, svc generation.Service, log *zap.SugaredLogger) *Store {
	return &Store{repo: repo, svc: svc, log: log}
}

// Resolve returns the syllabus for (topic, level, userID): the learner's
// fork when one exists, else the shared master, else a freshly
// synthesized master. Two concurrent resolutions for a never-seen topic
// create exactly one master; the loser of the insert race re-reads the
// winner's row.
func (s *Store) Resolve(ctx context.Context, topic, level, userID string) (*store.Syllabus, error) {
	if userID != "" {
		fork, err := s.repo.FindFork(ctx, topic, level, userID)
		if err != nil {
			return nil, err
		}
		if fork != nil {
			return fork, nil
		}
	}

	master, err := s.repo.FindMaster(ctx, topic, level)
	if err != nil {
		return nil, err
	}
	if master != nil {
		return master, nil
	}

	return s.createMaster(ctx, topic, level)
}

func (s *Store) createMaster(ctx context.Context, topic, level string) (*store.Syllabus, error) {
	cur, err := s.svc.GenerateCurriculum(ctx, topic, level)
	if err != nil {
		return nil, err
	}

	modules, err := json.Marshal(cur.Modules)
	if err != nil {
		return nil, fmt.Errorf("marshal modules: %w", err)
	}

	master := &store.Syllabus{
		Topic:    topic,
		Level:    level,
		IsMaster: true,
		Modules:  datatypes.JSON(modules),
	}

	err = s.repo.Insert(ctx, master)
	if err == nil {
		s.log.Infow("synthesized master syllabus",
			"uid", master.UID,
			"topic", topic,
			"level", level,
		)
		return master, nil
	}

	// A concurrent resolution won the insert race; its master is ours.
	var conflict *store.ConflictError
	if errors.As(err, &conflict) {
		existing, readErr := s.repo.FindMaster(ctx, topic, level)
		if readErr != nil {
			return nil, readErr
		}
		if existing == nil {
			return nil, fmt.Errorf("master conflict with no surviving row for (%s, %s)", topic, level)
		}
		return existing, nil
	}

	return nil, err
}

// Get loads a syllabus by uid.
func (s *Store) Get(ctx context.Context, uid uuid.UUID) (*store.Syllabus, error) {
	return s.repo.Get(ctx, uid)
}

// ForkForUser deep-copies a syllabus into a personal fork for the given
// learner. Lineage stays at most one hop from a master: forking a fork
// preserves the original parent rather than chaining. Forking the same
// syllabus for the same learner twice returns the existing fork.
func (s *Store) ForkForUser(ctx context.Context, source *store.Syllabus, userID string) (*store.Syllabus, error) {
	if userID == "" {
		return nil, fmt.Errorf("fork requires a user id")
	}

	parent := source.UID
	if !source.IsMaster && source.ParentUID != nil {
		parent = *source.ParentUID
	}

	modules := make(datatypes.JSON, len(source.Modules))
	copy(modules, source.Modules)

	fork := &store.Syllabus{
		Topic:     source.Topic,
		Level:     source.Level,
		IsMaster:  false,
		ParentUID: &parent,
		UserID:    &userID,
		Modules:   modules,
	}

	err := s.repo.Insert(ctx, fork)
	if err == nil {
		s.log.Infow("forked syllabus",
			"uid", fork.UID,
			"parent_uid", parent,
			"user_id", userID,
		)
		return fork, nil
	}

	var conflict *store.ConflictError
	if errors.As(err, &conflict) {
		existing, readErr := s.repo.FindFork(ctx, source.Topic, source.Level, userID)
		if readErr != nil {
			return nil, readErr
		}
		if existing == nil {
			return nil, fmt.Errorf("fork conflict with no surviving row for user %s", userID)
		}
		return existing, nil
	}

	return nil, err
}

// Outline decodes a syllabus's modules into their structured form.
func Outline(s *store.Syllabus) ([]generation.CurriculumModule, error) {
	var modules []generation.CurriculumModule
	if err := json.Unmarshal(s.Modules, &modules); err != nil {
		return nil, fmt.Errorf("decode syllabus modules: %w", err)
	}
	return modules, nil
}

// FirstLesson returns the title of the first lesson in the outline, or
// "" when the outline is empty.
func FirstLesson(modules []generation.CurriculumModule) string {
	for _, m := range modules {
		if len(m.Lessons) > 0 {
			return m.Lessons[0].Title
		}
	}
	return ""
}

// LessonBefore returns the lesson immediately preceding the named
// lesson in outline order, crossing module boundaries. Returns "" when
// the lesson is first or not found.
func LessonBefore(modules []generation.CurriculumModule, title string) string {
	prev := ""
	for _, m := range modules {
		for _, l := range m.Lessons {
			if l.Title == title {
				return prev
			}
			prev = l.Title
		}
	}
	return ""
}
