package tutor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/npatel023/tutorgraph/internal/generation"
	"github.com/npatel023/tutorgraph/internal/logging"
	"github.com/npatel023/tutorgraph/internal/novelty"
	"github.com/npatel023/tutorgraph/internal/store"
	"github.com/npatel023/tutorgraph/internal/syllabus"
)

// --- in-memory repos ---

type memSessions struct {
	rows map[uuid.UUID]store.LessonSession
}

func newMemSessions() *memSessions {
	return &memSessions{rows: map[uuid.UUID]store.LessonSession{}}
}

func (m *memSessions) Create(_ context.Context, s *store.LessonSession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.rows[s.ID] = *s
	return nil
}

// Get returns a copy, as a database read would. Mutations only land
// through Save.
func (m *memSessions) Get(_ context.Context, id uuid.UUID) (*store.LessonSession, error) {
	row, ok := m.rows[id]
	if !ok {
		return nil, &store.NotFoundError{Entity: "session", Key: id.String()}
	}
	return &row, nil
}

func (m *memSessions) Save(_ context.Context, s *store.LessonSession) error {
	m.rows[s.ID] = *s
	return nil
}

type memMessages struct {
	rows []store.ConversationMessage
}

func (m *memMessages) Append(_ context.Context, msg *store.ConversationMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	var seq int64
	for _, row := range m.rows {
		if row.SessionID == msg.SessionID {
			seq = row.Sequence
		}
	}
	msg.Sequence = seq + 1
	m.rows = append(m.rows, *msg)
	return nil
}

func (m *memMessages) List(_ context.Context, sessionID uuid.UUID) ([]store.ConversationMessage, error) {
	var out []store.ConversationMessage
	for _, row := range m.rows {
		if row.SessionID == sessionID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memMessages) Tail(ctx context.Context, sessionID uuid.UUID, n int) ([]store.ConversationMessage, error) {
	all, _ := m.List(ctx, sessionID)
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}

type memItems struct {
	rows map[uuid.UUID]store.GeneratedItem
}

func newMemItems() *memItems {
	return &memItems{rows: map[uuid.UUID]store.GeneratedItem{}}
}

func (m *memItems) Create(_ context.Context, item *store.GeneratedItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	m.rows[item.ID] = *item
	return nil
}

func (m *memItems) Get(_ context.Context, id uuid.UUID) (*store.GeneratedItem, error) {
	row, ok := m.rows[id]
	if !ok {
		return nil, &store.NotFoundError{Entity: "item", Key: id.String()}
	}
	return &row, nil
}

func (m *memItems) ListPrompts(_ context.Context, _ uuid.UUID, _ store.ItemKind) ([]string, error) {
	return nil, nil
}

type memRegistry struct {
	seen map[string]bool
}

func (m *memRegistry) Contains(_ context.Context, sessionID uuid.UUID, kind store.ItemKind, fp string) (bool, error) {
	return m.seen[sessionID.String()+string(kind)+fp], nil
}

func (m *memRegistry) Insert(_ context.Context, sessionID uuid.UUID, kind store.ItemKind, fp string) (bool, error) {
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	k := sessionID.String() + string(kind) + fp
	if m.seen[k] {
		return false, nil
	}
	m.seen[k] = true
	return true, nil
}

type memSyllabi struct {
	rows []*store.Syllabus
}

func (r *memSyllabi) FindMaster(_ context.Context, topic, level string) (*store.Syllabus, error) {
	for _, row := range r.rows {
		if row.IsMaster && strings.EqualFold(row.Topic, topic) && strings.EqualFold(row.Level, level) {
			return row, nil
		}
	}
	return nil, nil
}

func (r *memSyllabi) FindFork(_ context.Context, topic, level, userID string) (*store.Syllabus, error) {
	for _, row := range r.rows {
		if !row.IsMaster && row.UserID != nil && *row.UserID == userID &&
			strings.EqualFold(row.Topic, topic) && strings.EqualFold(row.Level, level) {
			return row, nil
		}
	}
	return nil, nil
}

func (r *memSyllabi) Get(_ context.Context, uid uuid.UUID) (*store.Syllabus, error) {
	for _, row := range r.rows {
		if row.UID == uid {
			return row, nil
		}
	}
	return nil, &store.NotFoundError{Entity: "syllabus", Key: uid.String()}
}

func (r *memSyllabi) Insert(_ context.Context, s *store.Syllabus) error {
	if s.UID == uuid.Nil {
		s.UID = uuid.New()
	}
	r.rows = append(r.rows, s)
	return nil
}

// --- scriptable generation service ---

type fakeService struct {
	classifyFn   func(text string) (generation.Intent, error)
	chatFn       func() (string, error)
	exerciseFn   func(excluded []string) (*generation.Item, error)
	assessmentFn func(excluded []string) (*generation.Item, error)
	evaluateFn   func(answer string) (*generation.Evaluation, error)
}

func (f *fakeService) ClassifyIntent(_ context.Context, _ []generation.Turn, text string) (generation.Intent, error) {
	if f.classifyFn != nil {
		return f.classifyFn(text)
	}
	return generation.IntentOtherChat, nil
}

func (f *fakeService) ChatReply(_ context.Context, _ generation.LessonContext, _ []generation.Turn) (string, error) {
	if f.chatFn != nil {
		return f.chatFn()
	}
	return "Here's how that works.", nil
}

func (f *fakeService) GenerateExercise(_ context.Context, _ generation.LessonContext, excluded []string) (*generation.Item, error) {
	if f.exerciseFn != nil {
		return f.exerciseFn(excluded)
	}
	return &generation.Item{ItemType: generation.TypeShortAnswer, Prompt: "Practice this.", Answer: "42"}, nil
}

func (f *fakeService) GenerateAssessmentQuestion(_ context.Context, _ generation.LessonContext, excluded []string) (*generation.Item, error) {
	if f.assessmentFn != nil {
		return f.assessmentFn(excluded)
	}
	return &generation.Item{ItemType: generation.TypeShortAnswer, Prompt: "Quiz question.", Answer: "yes"}, nil
}

func (f *fakeService) EvaluateAnswer(_ context.Context, _ *generation.Item, answer string) (*generation.Evaluation, error) {
	if f.evaluateFn != nil {
		return f.evaluateFn(answer)
	}
	return &generation.Evaluation{Score: 1.0, IsCorrect: true, Feedback: "Correct!"}, nil
}

func (f *fakeService) GenerateCurriculum(_ context.Context, _, _ string) (*generation.Curriculum, error) {
	return &generation.Curriculum{Modules: []generation.CurriculumModule{
		{Title: "Module 1", Lessons: []generation.CurriculumLesson{
			{Title: "Lesson one"},
			{Title: "Lesson two"},
		}},
	}}, nil
}

// --- harness ---

type harness struct {
	machine  *Machine
	sessions *memSessions
	messages *memMessages
	items    *memItems
	svc      *fakeService
}

func newHarness(t *testing.T, svc *fakeService) *harness {
	t.Helper()
	log := logging.Nop()
	sessions := newMemSessions()
	messages := &memMessages{}
	items := newMemItems()
	gen := novelty.NewGenerator(svc, items, &memRegistry{}, novelty.DefaultConfig(), log)
	syllabi := syllabus.NewStore(&memSyllabi{}, svc, log)
	machine := NewMachine(sessions, messages, items, syllabi, svc, gen, DefaultConfig(), log)
	return &harness{machine: machine, sessions: sessions, messages: messages, items: items, svc: svc}
}

func (h *harness) start(t *testing.T) *store.LessonSession {
	t.Helper()
	session, out, err := h.machine.StartSession(context.Background(), "Go", "beginner", "learner-1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	return session
}

func (h *harness) turn(t *testing.T, sessionID uuid.UUID, text string) []store.ConversationMessage {
	t.Helper()
	out, err := h.machine.ProcessTurn(context.Background(), sessionID, UserMessage{Text: text})
	require.NoError(t, err)
	return out
}

// --- tests ---

func TestStartSession_GreetsAndEntersChatting(t *testing.T) {
	h := newHarness(t, &fakeService{})

	session, out, err := h.machine.StartSession(context.Background(), "Go", "beginner", "learner-1")
	require.NoError(t, err)

	assert.Equal(t, store.ModeChatting, session.Mode)
	assert.Equal(t, "Lesson one", session.LessonTitle)
	require.NotNil(t, session.SyllabusUID)

	require.Len(t, out, 1)
	assert.Equal(t, store.MessageChatAssistant, out[0].Type)
	assert.Contains(t, out[0].Content, "Lesson one")
	assert.Equal(t, int64(1), out[0].Sequence)
}

func TestStartSession_RejectsBlankTopic(t *testing.T) {
	h := newHarness(t, &fakeService{})

	_, _, err := h.machine.StartSession(context.Background(), "  ", "beginner", "")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestProcessTurn_ChatFlow(t *testing.T) {
	h := newHarness(t, &fakeService{})
	session := h.start(t)

	out := h.turn(t, session.ID, "How do slices grow?")
	require.Len(t, out, 1)
	assert.Equal(t, store.MessageChatAssistant, out[0].Type)

	all, err := h.messages.List(context.Background(), session.ID)
	require.NoError(t, err)
	// Greeting, user message, reply — gapless from 1.
	require.Len(t, all, 3)
	for i, msg := range all {
		assert.Equal(t, int64(i+1), msg.Sequence)
	}
	assert.Equal(t, store.MessageChatUser, all[1].Type)
}

func TestProcessTurn_RejectsEmptyText(t *testing.T) {
	h := newHarness(t, &fakeService{})
	session := h.start(t)

	_, err := h.machine.ProcessTurn(context.Background(), session.ID, UserMessage{Text: "   "})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestProcessTurn_UnknownSession(t *testing.T) {
	h := newHarness(t, &fakeService{})

	_, err := h.machine.ProcessTurn(context.Background(), uuid.New(), UserMessage{Text: "hello"})
	var nf *store.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestProcessTurn_ExerciseRequestSetsPending(t *testing.T) {
	svc := &fakeService{
		classifyFn: func(string) (generation.Intent, error) {
			return generation.IntentRequestExercise, nil
		},
	}
	h := newHarness(t, svc)
	session := h.start(t)

	out := h.turn(t, session.ID, "give me an exercise")
	require.Len(t, out, 1)
	assert.Equal(t, store.MessageExercisePrompt, out[0].Type)
	assert.Contains(t, out[0].Metadata, "item_id")

	saved, err := h.sessions.Get(context.Background(), session.ID)
	require.NoError(t, err)
	require.NotNil(t, saved.PendingItemID)
	// The session rests in chatting between turns; the pending ref is
	// what routes the next message to evaluation.
	assert.Equal(t, store.ModeChatting, saved.Mode)
}

func TestProcessTurn_QuizRequestUsesAssessmentPrompt(t *testing.T) {
	svc := &fakeService{
		classifyFn: func(string) (generation.Intent, error) {
			return generation.IntentRequestQuiz, nil
		},
	}
	h := newHarness(t, svc)
	session := h.start(t)

	out := h.turn(t, session.ID, "quiz me")
	require.Len(t, out, 1)
	assert.Equal(t, store.MessageAssessmentPrompt, out[0].Type)
}

func TestProcessTurn_PendingItemClaimsNextMessage(t *testing.T) {
	classified := 0
	svc := &fakeService{
		classifyFn: func(string) (generation.Intent, error) {
			classified++
			return generation.IntentRequestExercise, nil
		},
		evaluateFn: func(string) (*generation.Evaluation, error) {
			return &generation.Evaluation{Score: 0.9, IsCorrect: true, Feedback: "Right."}, nil
		},
	}
	h := newHarness(t, svc)
	session := h.start(t)

	h.turn(t, session.ID, "exercise please")
	require.Equal(t, 1, classified)

	// Even a message that reads like a new request is the answer.
	out := h.turn(t, session.ID, "another exercise please")
	require.Len(t, out, 1)
	assert.Equal(t, store.MessageExerciseFeedback, out[0].Type)
	assert.Equal(t, true, out[0].Metadata["correct"])
	// No second classification: the pending ref short-circuits routing.
	assert.Equal(t, 1, classified)

	saved, _ := h.sessions.Get(context.Background(), session.ID)
	assert.Nil(t, saved.PendingItemID)
}

func TestProcessTurn_WrongStreakSuggestsPrerequisite(t *testing.T) {
	svc := &fakeService{
		classifyFn: func(string) (generation.Intent, error) {
			return generation.IntentRequestExercise, nil
		},
		evaluateFn: func(string) (*generation.Evaluation, error) {
			return &generation.Evaluation{Score: 0.2, IsCorrect: false, Feedback: "Not quite."}, nil
		},
		exerciseFn: func(excluded []string) (*generation.Item, error) {
			return &generation.Item{
				ItemType: generation.TypeShortAnswer,
				Prompt:   "Attempt " + strings.Repeat("x", len(excluded)+1),
				Answer:   "a",
			}, nil
		},
	}
	h := newHarness(t, svc)
	session := h.start(t)

	// First wrong answer: feedback only.
	h.turn(t, session.ID, "exercise")
	out := h.turn(t, session.ID, "wrong answer")
	require.Len(t, out, 1)

	// Second consecutive wrong answer hits the threshold.
	h.turn(t, session.ID, "exercise")
	out = h.turn(t, session.ID, "wrong again")
	require.Len(t, out, 2)
	assert.Equal(t, store.MessageExerciseFeedback, out[0].Type)
	assert.Equal(t, store.MessageSystemInfo, out[1].Type)
	assert.Contains(t, out[1].Content, "tricky")

	// Third wrong answer: past the threshold, no repeat suggestion.
	h.turn(t, session.ID, "exercise")
	out = h.turn(t, session.ID, "still wrong")
	require.Len(t, out, 1)

	saved, _ := h.sessions.Get(context.Background(), session.ID)
	assert.Equal(t, 3, saved.ConsecutiveWrong)
}

func TestProcessTurn_CorrectAnswerResetsStreak(t *testing.T) {
	wrong := true
	svc := &fakeService{
		classifyFn: func(string) (generation.Intent, error) {
			return generation.IntentRequestExercise, nil
		},
		evaluateFn: func(string) (*generation.Evaluation, error) {
			if wrong {
				return &generation.Evaluation{Score: 0.1, IsCorrect: false, Feedback: "No."}, nil
			}
			return &generation.Evaluation{Score: 1.0, IsCorrect: true, Feedback: "Yes."}, nil
		},
		exerciseFn: func(excluded []string) (*generation.Item, error) {
			return &generation.Item{
				ItemType: generation.TypeShortAnswer,
				Prompt:   "Attempt " + strings.Repeat("y", len(excluded)+1),
				Answer:   "a",
			}, nil
		},
	}
	h := newHarness(t, svc)
	session := h.start(t)

	h.turn(t, session.ID, "exercise")
	h.turn(t, session.ID, "wrong")
	wrong = false
	h.turn(t, session.ID, "exercise")
	h.turn(t, session.ID, "right")

	saved, _ := h.sessions.Get(context.Background(), session.ID)
	assert.Equal(t, 0, saved.ConsecutiveWrong)
}

func TestProcessTurn_GenerationFailureLeavesSessionUntouched(t *testing.T) {
	svc := &fakeService{
		classifyFn: func(string) (generation.Intent, error) {
			return generation.IntentRequestExercise, nil
		},
		exerciseFn: func([]string) (*generation.Item, error) {
			return nil, &generation.Error{Op: "generate-exercise", Err: errors.New("provider down")}
		},
	}
	h := newHarness(t, svc)
	session := h.start(t)

	out := h.turn(t, session.ID, "exercise please")
	require.Len(t, out, 1)
	assert.Equal(t, store.MessageError, out[0].Type)
	assert.Equal(t, store.RoleSystem, out[0].Role)

	// The failed transition never persisted.
	saved, _ := h.sessions.Get(context.Background(), session.ID)
	assert.Equal(t, store.ModeChatting, saved.Mode)
	assert.Nil(t, saved.PendingItemID)

	// The session stays usable: a retry succeeds.
	svc.exerciseFn = nil
	out = h.turn(t, session.ID, "exercise please")
	assert.Equal(t, store.MessageExercisePrompt, out[0].Type)
}

func TestProcessTurn_ClassifierFailureFallsBackToChat(t *testing.T) {
	svc := &fakeService{
		classifyFn: func(string) (generation.Intent, error) {
			return "", &generation.Error{Op: "classify-intent", Err: errors.New("timeout")}
		},
	}
	h := newHarness(t, svc)
	session := h.start(t)

	out := h.turn(t, session.ID, "hmm")
	require.Len(t, out, 1)
	assert.Equal(t, store.MessageChatAssistant, out[0].Type)
}

func TestProcessTurn_ErrorMessagesHiddenFromHistory(t *testing.T) {
	var sawHistory []generation.Turn
	svc := &fakeService{
		chatFn: func() (string, error) {
			return "", &generation.Error{Op: "chat-reply", Err: errors.New("down")}
		},
	}
	h := newHarness(t, svc)
	session := h.start(t)

	// Failed turn appends an ERROR message.
	h.turn(t, session.ID, "first try")

	svc.chatFn = func() (string, error) { return "recovered", nil }
	svc.classifyFn = func(string) (generation.Intent, error) {
		return generation.IntentOtherChat, nil
	}
	origClassify := svc.classifyFn
	svc.classifyFn = func(text string) (generation.Intent, error) {
		history, err := h.machine.historyTail(context.Background(), session.ID)
		require.NoError(t, err)
		sawHistory = history
		return origClassify(text)
	}

	h.turn(t, session.ID, "second try")
	for _, turn := range sawHistory {
		assert.NotContains(t, turn.Content, "couldn't come up with a response")
	}
}

func TestProcessTurn_ConcurrentTurnRefused(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var startOnce sync.Once
	svc := &fakeService{
		chatFn: func() (string, error) {
			startOnce.Do(func() { close(started) })
			<-release
			return "slow reply", nil
		},
	}
	h := newHarness(t, svc)
	session := h.start(t)

	done := make(chan error, 1)
	go func() {
		_, err := h.machine.ProcessTurn(context.Background(), session.ID, UserMessage{Text: "slow one"})
		done <- err
	}()

	<-started
	_, err := h.machine.ProcessTurn(context.Background(), session.ID, UserMessage{Text: "too eager"})
	assert.ErrorIs(t, err, ErrTurnInFlight)

	close(release)
	require.NoError(t, <-done)

	// The lock frees once the turn completes.
	out := h.turn(t, session.ID, "try again")
	require.Len(t, out, 1)
}

func TestRenderItem_MultipleChoice(t *testing.T) {
	text := renderItem(&generation.Item{
		ItemType: generation.TypeMultipleChoice,
		Prompt:   "Which keyword declares a constant?",
		Choices:  []string{"const", "var", "let", "static"},
	})
	assert.Contains(t, text, "A. const")
	assert.Contains(t, text, "D. static")
}

func TestRenderItem_Ordering(t *testing.T) {
	text := renderItem(&generation.Item{
		ItemType: generation.TypeOrdering,
		Prompt:   "Order the build steps.",
		Choices:  []string{"parse", "compile", "link"},
	})
	assert.Contains(t, text, "Put these in order:")
	assert.Contains(t, text, "- link")
}
