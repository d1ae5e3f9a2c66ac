package syllabus

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/npatel023/tutorgraph/internal/generation"
	"github.com/npatel023/tutorgraph/internal/logging"
	"github.com/npatel023/tutorgraph/internal/store"
)

// memSyllabusRepo enforces the master and fork uniqueness constraints
// in memory, mirroring the database unique indexes.
type memSyllabusRepo struct {
	rows []*store.Syllabus
}

func masterKey(topic, level string) string {
	return strings.ToLower(topic) + "|" + strings.ToLower(level)
}

func (r *memSyllabusRepo) FindMaster(_ context.Context, topic, level string) (*store.Syllabus, error) {
	for _, row := range r.rows {
		if row.IsMaster && masterKey(row.Topic, row.Level) == masterKey(topic, level) {
			return row, nil
		}
	}
	return nil, nil
}

func (r *memSyllabusRepo) FindFork(_ context.Context, topic, level, userID string) (*store.Syllabus, error) {
	for _, row := range r.rows {
		if !row.IsMaster && row.UserID != nil && *row.UserID == userID &&
			masterKey(row.Topic, row.Level) == masterKey(topic, level) {
			return row, nil
		}
	}
	return nil, nil
}

func (r *memSyllabusRepo) Get(_ context.Context, uid uuid.UUID) (*store.Syllabus, error) {
	for _, row := range r.rows {
		if row.UID == uid {
			return row, nil
		}
	}
	return nil, &store.NotFoundError{Entity: "syllabus", Key: uid.String()}
}

func (r *memSyllabusRepo) Insert(_ context.Context, s *store.Syllabus) error {
	for _, row := range r.rows {
		sameKey := masterKey(row.Topic, row.Level) == masterKey(s.Topic, s.Level)
		if s.IsMaster && row.IsMaster && sameKey {
			return &store.ConflictError{Entity: "syllabus", Key: masterKey(s.Topic, s.Level)}
		}
		if !s.IsMaster && !row.IsMaster && sameKey &&
			row.UserID != nil && s.UserID != nil && *row.UserID == *s.UserID {
			return &store.ConflictError{Entity: "syllabus", Key: masterKey(s.Topic, s.Level) + "|" + *s.UserID}
		}
	}
	if s.UID == uuid.Nil {
		s.UID = uuid.New()
	}
	r.rows = append(r.rows, s)
	return nil
}

// curriculumService returns a fixed outline and counts calls.
type curriculumService struct {
	generation.Service
	calls int
	err   error
}

func (s *curriculumService) GenerateCurriculum(_ context.Context, topic, level string) (*generation.Curriculum, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &generation.Curriculum{Modules: []generation.CurriculumModule{
		{Title: "Foundations", Lessons: []generation.CurriculumLesson{
			{Title: "Getting started"},
			{Title: "Core concepts"},
		}},
		{Title: "Practice", Lessons: []generation.CurriculumLesson{
			{Title: "Applying it"},
		}},
	}}, nil
}

func TestResolve_SynthesizesMasterOnce(t *testing.T) {
	repo := &memSyllabusRepo{}
	svc := &curriculumService{}
	s := NewStore(repo, svc, logging.Nop())

	first, err := s.Resolve(context.Background(), "Go", "beginner", "")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.True(t, first.IsMaster)

	second, err := s.Resolve(context.Background(), "Go", "beginner", "")
	require.NoError(t, err)
	assert.Equal(t, first.UID, second.UID)
	assert.Equal(t, 1, svc.calls)
}

func TestResolve_LevelMatchingCaseInsensitive(t *testing.T) {
	repo := &memSyllabusRepo{}
	svc := &curriculumService{}
	s := NewStore(repo, svc, logging.Nop())

	first, err := s.Resolve(context.Background(), "Go", "Beginner", "")
	require.NoError(t, err)

	second, err := s.Resolve(context.Background(), "go", "BEGINNER", "")
	require.NoError(t, err)
	assert.Equal(t, first.UID, second.UID)
	assert.Equal(t, 1, svc.calls)
}

func TestResolve_PrefersUserFork(t *testing.T) {
	repo := &memSyllabusRepo{}
	svc := &curriculumService{}
	s := NewStore(repo, svc, logging.Nop())

	master, err := s.Resolve(context.Background(), "Go", "beginner", "")
	require.NoError(t, err)

	fork, err := s.ForkForUser(context.Background(), master, "learner-1")
	require.NoError(t, err)

	got, err := s.Resolve(context.Background(), "Go", "beginner", "learner-1")
	require.NoError(t, err)
	assert.Equal(t, fork.UID, got.UID)

	// Other learners still see the master.
	other, err := s.Resolve(context.Background(), "Go", "beginner", "learner-2")
	require.NoError(t, err)
	assert.Equal(t, master.UID, other.UID)
}

// raceRepo rejects the first master insert as if a concurrent writer
// had just committed, and materializes that writer's row.
type raceRepo struct {
	memSyllabusRepo
	raced bool
}

func (r *raceRepo) Insert(ctx context.Context, s *store.Syllabus) error {
	if s.IsMaster && !r.raced {
		r.raced = true
		winner := &store.Syllabus{
			Topic:    s.Topic,
			Level:    s.Level,
			IsMaster: true,
			Modules:  s.Modules,
		}
		if err := r.memSyllabusRepo.Insert(ctx, winner); err != nil {
			return err
		}
		return &store.ConflictError{Entity: "syllabus", Key: masterKey(s.Topic, s.Level)}
	}
	return r.memSyllabusRepo.Insert(ctx, s)
}

func TestResolve_InsertRaceReturnsWinner(t *testing.T) {
	repo := &raceRepo{}
	svc := &curriculumService{}
	s := NewStore(repo, svc, logging.Nop())

	got, err := s.Resolve(context.Background(), "Go", "beginner", "")
	require.NoError(t, err)
	require.NotNil(t, got)

	winner, err := repo.FindMaster(context.Background(), "Go", "beginner")
	require.NoError(t, err)
	assert.Equal(t, winner.UID, got.UID)
	assert.Len(t, repo.rows, 1)
}

func TestForkForUser_OneHopLineage(t *testing.T) {
	repo := &memSyllabusRepo{}
	svc := &curriculumService{}
	s := NewStore(repo, svc, logging.Nop())

	master, err := s.Resolve(context.Background(), "Go", "beginner", "")
	require.NoError(t, err)

	fork, err := s.ForkForUser(context.Background(), master, "learner-1")
	require.NoError(t, err)
	require.NotNil(t, fork.ParentUID)
	assert.Equal(t, master.UID, *fork.ParentUID)

	// Forking a fork still points at the master, not the fork.
	forkOfFork, err := s.ForkForUser(context.Background(), fork, "learner-2")
	require.NoError(t, err)
	require.NotNil(t, forkOfFork.ParentUID)
	assert.Equal(t, master.UID, *forkOfFork.ParentUID)
}

func TestForkForUser_IdempotentPerUser(t *testing.T) {
	repo := &memSyllabusRepo{}
	svc := &curriculumService{}
	s := NewStore(repo, svc, logging.Nop())

	master, err := s.Resolve(context.Background(), "Go", "beginner", "")
	require.NoError(t, err)

	first, err := s.ForkForUser(context.Background(), master, "learner-1")
	require.NoError(t, err)

	second, err := s.ForkForUser(context.Background(), master, "learner-1")
	require.NoError(t, err)
	assert.Equal(t, first.UID, second.UID)
}

func TestForkForUser_RequiresUserID(t *testing.T) {
	s := NewStore(&memSyllabusRepo{}, &curriculumService{}, logging.Nop())
	_, err := s.ForkForUser(context.Background(), &store.Syllabus{}, "")
	require.Error(t, err)
}

func TestOutlineHelpers(t *testing.T) {
	modules := []generation.CurriculumModule{
		{Title: "Foundations", Lessons: []generation.CurriculumLesson{
			{Title: "Getting started"},
			{Title: "Core concepts"},
		}},
		{Title: "Practice", Lessons: []generation.CurriculumLesson{
			{Title: "Applying it"},
		}},
	}

	assert.Equal(t, "Getting started", FirstLesson(modules))
	assert.Equal(t, "", LessonBefore(modules, "Getting started"))
	assert.Equal(t, "Core concepts", LessonBefore(modules, "Applying it"))
	assert.Equal(t, "", LessonBefore(modules, "Unknown lesson"))
	assert.Equal(t, "", FirstLesson(nil))
}
