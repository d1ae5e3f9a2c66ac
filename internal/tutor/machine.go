package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/npatel023/tutorgraph/internal/generation"
	"github.com/npatel023/tutorgraph/internal/novelty"
	"github.com/npatel023/tutorgraph/internal/store"
	"github.com/npatel023/tutorgraph/internal/syllabus"
)

// Machine is the session state machine: it consumes one inbound event
// per turn, consults the generation service, updates the session, and
// emits outbound messages. One turn per session runs at a time.
type Machine struct {
	sessions store.SessionRepo
	messages store.MessageRepo
	items    store.ItemRepo
	syllabi  *syllabus.Store
	svc      generation.Service
	gen      *novelty.Generator
	cfg      Config
	log      *zap.SugaredLogger
	locks    *turnLocks
}

// NewMachine wires a session state machine.
func NewMachine(
	sessions store.SessionRepo,
	messages store.MessageRepo,
	items store.ItemRepo,
	syllabi *syllabus.Store,
	svc generation.Service,
	gen *novelty.Generator,
	cfg Config,
	log *zap.SugaredLogger,
) *Machine {
	return &Machine{
		sessions: sessions,
		messages: messages,
		items:    items,
		syllabi:  syllabi,
		svc:      svc,
		gen:      gen,
		cfg:      cfg,
		log:      log,
		locks:    newTurnLocks(),
	}
}

// StartSession resolves the syllabus for (topic, level, userID), creates
// a fresh session, and runs its Start turn. The syllabus is consulted
// once here, not on every turn.
func (m *Machine) StartSession(ctx context.Context, topic, level, userID string) (*store.LessonSession, []store.ConversationMessage, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, nil, &ValidationError{Reason: "topic must not be empty"}
	}
	if strings.TrimSpace(level) == "" {
		return nil, nil, &ValidationError{Reason: "level must not be empty"}
	}

	syl, err := m.syllabi.Resolve(ctx, topic, level, userID)
	if err != nil {
		return nil, nil, err
	}

	lessonTitle := ""
	if modules, err := syllabus.Outline(syl); err == nil {
		lessonTitle = syllabus.FirstLesson(modules)
	}

	session := &store.LessonSession{
		UserID:      userID,
		Topic:       topic,
		Level:       level,
		LessonTitle: lessonTitle,
		SyllabusUID: &syl.UID,
		Mode:        store.ModeGreeting,
	}
	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, nil, err
	}

	out, err := m.ProcessTurn(ctx, session.ID, Start{})
	if err != nil {
		return nil, nil, err
	}
	session.Mode = store.ModeChatting
	return session, out, nil
}

// ProcessTurn runs one turn for the session and returns the outbound
// messages it produced. Generation failures become a single ERROR
// message with the session left untouched, so the caller may simply
// retry. A second concurrent turn for the same session is refused with
// ErrTurnInFlight.
func (m *Machine) ProcessTurn(ctx context.Context, sessionID uuid.UUID, ev Event) ([]store.ConversationMessage, error) {
	if !m.locks.acquire(sessionID) {
		return nil, ErrTurnInFlight
	}
	defer m.locks.release(sessionID)

	session, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch ev := ev.(type) {
	case Start:
		return m.handleStart(ctx, session)
	case UserMessage:
		if strings.TrimSpace(ev.Text) == "" {
			return nil, &ValidationError{Reason: "message text must not be empty"}
		}
		return m.handleUserMessage(ctx, session, ev.Text)
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown event type %T", ev)}
	}
}

func (m *Machine) handleStart(ctx context.Context, session *store.LessonSession) ([]store.ConversationMessage, error) {
	if session.Mode != store.ModeGreeting {
		return nil, &ValidationError{Reason: "session already started"}
	}

	greeting, err := m.append(ctx, session.ID, store.RoleAssistant, store.MessageChatAssistant, greetingText(session.LessonTitle), nil)
	if err != nil {
		return nil, err
	}

	session.Mode = store.ModeChatting
	if err := m.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	return []store.ConversationMessage{*greeting}, nil
}

func (m *Machine) handleUserMessage(ctx context.Context, session *store.LessonSession, text string) ([]store.ConversationMessage, error) {
	if session.Mode == store.ModeGreeting {
		return nil, &ValidationError{Reason: "session not started"}
	}

	// The classifier sees the conversation as it stood before this turn.
	history, err := m.historyTail(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	if _, err := m.append(ctx, session.ID, store.RoleUser, store.MessageChatUser, text, nil); err != nil {
		return nil, err
	}

	// A pending item claims the next message as its answer.
	if session.PendingItemID != nil {
		return m.evaluatePending(ctx, session, text)
	}

	intent, err := m.svc.ClassifyIntent(ctx, history, text)
	if err != nil {
		// Ambiguity never fails a turn; fall through to plain chat.
		m.log.Warnw("intent classification failed, defaulting to chat",
			"session_id", session.ID,
			"error", err,
		)
		intent = generation.IntentOtherChat
	}

	switch intent {
	case generation.IntentRequestExercise:
		return m.handleItemRequest(ctx, session, store.KindExercise)
	case generation.IntentRequestQuiz:
		return m.handleItemRequest(ctx, session, store.KindAssessmentQuestion)
	default:
		return m.handleChat(ctx, session, history, text)
	}
}

func (m *Machine) handleChat(ctx context.Context, session *store.LessonSession, history []generation.Turn, text string) ([]store.ConversationMessage, error) {
	history = append(history, generation.Turn{Role: "user", Content: text})

	reply, err := m.svc.ChatReply(ctx, m.lessonContext(session), history)
	if err != nil {
		return m.failTurn(ctx, session, err)
	}

	msg, err := m.append(ctx, session.ID, store.RoleAssistant, store.MessageChatAssistant, reply, nil)
	if err != nil {
		return nil, err
	}
	return []store.ConversationMessage{*msg}, nil
}

func (m *Machine) handleItemRequest(ctx context.Context, session *store.LessonSession, kind store.ItemKind) ([]store.ConversationMessage, error) {
	// The mode transition is committed only with the presented item;
	// a failed generation leaves the session exactly as it was.
	if kind == store.KindAssessmentQuestion {
		session.Mode = store.ModeQuiz
	} else {
		session.Mode = store.ModeExercise
	}

	record, item, err := m.gen.GenerateItem(ctx, session.ID, kind, m.lessonContext(session))
	if err != nil {
		return m.failTurn(ctx, session, err)
	}

	msgType := store.MessageExercisePrompt
	if kind == store.KindAssessmentQuestion {
		msgType = store.MessageAssessmentPrompt
	}

	meta := datatypes.JSONMap{"item_id": record.ID.String()}
	if record.Duplicate {
		meta["duplicate"] = true
	}

	msg, err := m.append(ctx, session.ID, store.RoleAssistant, msgType, renderItem(item), meta)
	if err != nil {
		return nil, err
	}

	// Presented and awaiting an answer: tracking moves to the pending
	// ref and the mode returns to chatting.
	session.PendingItemID = &record.ID
	session.Mode = store.ModeChatting
	if err := m.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	return []store.ConversationMessage{*msg}, nil
}

func (m *Machine) evaluatePending(ctx context.Context, session *store.LessonSession, answer string) ([]store.ConversationMessage, error) {
	record, err := m.items.Get(ctx, *session.PendingItemID)
	if err != nil {
		return nil, err
	}

	var item generation.Item
	if err := json.Unmarshal(record.Payload, &item); err != nil {
		return nil, fmt.Errorf("decode pending item payload: %w", err)
	}

	eval, err := m.svc.EvaluateAnswer(ctx, &item, answer)
	if err != nil {
		return m.failTurn(ctx, session, err)
	}

	msgType := store.MessageExerciseFeedback
	if record.Kind == store.KindAssessmentQuestion {
		msgType = store.MessageAssessmentFeedback
	}

	content := eval.Feedback
	if !eval.IsCorrect && eval.Explanation != "" {
		content += "\n\n" + eval.Explanation
	}

	feedback, err := m.append(ctx, session.ID, store.RoleAssistant, msgType, content, datatypes.JSONMap{
		"item_id": record.ID.String(),
		"score":   eval.Score,
		"correct": eval.IsCorrect,
	})
	if err != nil {
		return nil, err
	}
	out := []store.ConversationMessage{*feedback}

	if eval.IsCorrect {
		session.ConsecutiveWrong = 0
	} else {
		session.ConsecutiveWrong++
		if session.ConsecutiveWrong == m.cfg.WrongStreakThreshold {
			info, err := m.append(ctx, session.ID, store.RoleSystem, store.MessageSystemInfo, m.prerequisiteSuggestion(ctx, session), nil)
			if err != nil {
				return nil, err
			}
			out = append(out, *info)
		}
	}

	session.PendingItemID = nil
	session.Mode = store.ModeChatting
	if err := m.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	return out, nil
}

// failTurn converts a generation failure into a single learner-facing
// ERROR message. The session is not saved: mode and pending item ride
// through unchanged and the caller may retry the turn.
func (m *Machine) failTurn(ctx context.Context, session *store.LessonSession, cause error) ([]store.ConversationMessage, error) {
	m.log.Errorw("turn failed",
		"session_id", session.ID,
		"error", cause,
	)

	msg, err := m.append(ctx, session.ID, store.RoleSystem, store.MessageError,
		"Sorry, I couldn't come up with a response just now. Please send that again.",
		datatypes.JSONMap{"error": cause.Error()},
	)
	if err != nil {
		return nil, err
	}
	return []store.ConversationMessage{*msg}, nil
}

func (m *Machine) append(ctx context.Context, sessionID uuid.UUID, role store.Role, msgType store.MessageType, content string, meta datatypes.JSONMap) (*store.ConversationMessage, error) {
	msg := &store.ConversationMessage{
		SessionID: sessionID,
		Role:      role,
		Type:      msgType,
		Content:   content,
		Metadata:  meta,
	}
	if err := m.messages.Append(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// historyTail loads the recent conversation as generation turns,
// keeping only chat-visible content.
func (m *Machine) historyTail(ctx context.Context, sessionID uuid.UUID) ([]generation.Turn, error) {
	msgs, err := m.messages.Tail(ctx, sessionID, m.cfg.HistoryTail)
	if err != nil {
		return nil, err
	}

	turns := make([]generation.Turn, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Type {
		case store.MessageSystemInfo, store.MessageError:
			continue
		}
		role := "user"
		if msg.Role == store.RoleAssistant {
			role = "assistant"
		}
		turns = append(turns, generation.Turn{Role: role, Content: msg.Content})
	}
	return turns, nil
}

func (m *Machine) lessonContext(session *store.LessonSession) generation.LessonContext {
	return generation.LessonContext{
		Topic:       session.Topic,
		Level:       session.Level,
		LessonTitle: session.LessonTitle,
	}
}

// prerequisiteSuggestion names the lesson to revisit, walking the
// session's syllabus outline when available.
func (m *Machine) prerequisiteSuggestion(ctx context.Context, session *store.LessonSession) string {
	if session.SyllabusUID != nil {
		if syl, err := m.syllabi.Get(ctx, *session.SyllabusUID); err == nil {
			if modules, err := syllabus.Outline(syl); err == nil {
				if prev := syllabus.LessonBefore(modules, session.LessonTitle); prev != "" {
					return fmt.Sprintf("That one's been tricky a few times in a row. Revisiting %q might make this click — or just keep going, your call.", prev)
				}
			}
		}
	}
	return "That one's been tricky a few times in a row. It might help to review the earlier material before continuing — or just keep going, your call."
}

// renderItem formats a generated item for presentation.
func renderItem(item *generation.Item) string {
	var b strings.Builder
	b.WriteString(item.Prompt)

	switch item.ItemType {
	case generation.TypeMultipleChoice:
		labels := []string{"A", "B", "C", "D", "E", "F"}
		for i, choice := range item.Choices {
			if i >= len(labels) {
				break
			}
			fmt.Fprintf(&b, "\n%s. %s", labels[i], choice)
		}
	case generation.TypeOrdering:
		b.WriteString("\nPut these in order:")
		for _, el := range item.Choices {
			fmt.Fprintf(&b, "\n- %s", el)
		}
	}

	return b.String()
}
