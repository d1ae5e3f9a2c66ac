package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Mode is the session state machine mode. Exactly one value is active
// at a time for a session.
type Mode string

const (
	ModeGreeting Mode = "greeting"
	ModeChatting Mode = "chatting"
	ModeExercise Mode = "exercise"
	ModeQuiz     Mode = "quiz"
)

// Role is the conversation message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// MessageType classifies a conversation message. The set is closed;
// handlers switch over it exhaustively.
type MessageType string

const (
	MessageChatUser           MessageType = "CHAT_USER"
	MessageChatAssistant      MessageType = "CHAT_ASSISTANT"
	MessageExercisePrompt     MessageType = "EXERCISE_PROMPT"
	MessageExerciseFeedback   MessageType = "EXERCISE_FEEDBACK"
	MessageAssessmentPrompt   MessageType = "ASSESSMENT_PROMPT"
	MessageAssessmentFeedback MessageType = "ASSESSMENT_FEEDBACK"
	MessageSystemInfo         MessageType = "SYSTEM_INFO"
	MessageError              MessageType = "ERROR"
)

// ItemKind distinguishes the two families of generated practice content.
type ItemKind string

const (
	KindExercise           ItemKind = "exercise"
	KindAssessmentQuestion ItemKind = "assessment_question"
)

// LessonSession is one learner's run through one lesson. Created on the
// first turn, mutated once per turn, never deleted.
type LessonSession struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string     `gorm:"column:user_id;index" json:"user_id"`
	Topic            string     `gorm:"column:topic;not null" json:"topic"`
	Level            string     `gorm:"column:level;not null" json:"level"`
	LessonTitle      string     `gorm:"column:lesson_title" json:"lesson_title"`
	SyllabusUID      *uuid.UUID `gorm:"type:uuid;column:syllabus_uid" json:"syllabus_uid,omitempty"`
	Mode             Mode       `gorm:"column:mode;not null" json:"mode"`
	PendingItemID    *uuid.UUID `gorm:"type:uuid;column:pending_item_id" json:"pending_item_id,omitempty"`
	ConsecutiveWrong int        `gorm:"column:consecutive_wrong;not null;default:0" json:"consecutive_wrong"`
	CreatedAt        time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"not null" json:"updated_at"`
}

// ConversationMessage is an immutable turn record. Sequence values are
// strictly increasing and gapless from 1 within a session.
type ConversationMessage struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID         `gorm:"type:uuid;not null;index:idx_message_seq,unique,priority:1" json:"session_id"`
	Sequence  int64             `gorm:"column:sequence;not null;index:idx_message_seq,unique,priority:2" json:"sequence"`
	Role      Role              `gorm:"column:role;not null" json:"role"`
	Type      MessageType       `gorm:"column:message_type;not null" json:"message_type"`
	Content   string            `gorm:"column:content;not null" json:"content"`
	Metadata  datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null" json:"created_at"`
}

// GeneratedItem is a unit of practice content produced for a session.
// Within a session no two items of the same kind share a fingerprint
// unless Duplicate is set.
type GeneratedItem struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"session_id"`
	Kind        ItemKind       `gorm:"column:kind;not null" json:"kind"`
	ItemType    string         `gorm:"column:item_type;not null" json:"item_type"`
	Payload     datatypes.JSON `gorm:"column:payload;not null" json:"payload"`
	Fingerprint string         `gorm:"column:fingerprint;not null" json:"fingerprint"`
	Duplicate   bool           `gorm:"column:duplicate;not null;default:false" json:"duplicate"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

// ItemFingerprint is the novelty registry row. The unique index is the
// atomic check-and-insert guard for duplicate detection.
type ItemFingerprint struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID   uuid.UUID `gorm:"type:uuid;not null;index:idx_fingerprint,unique,priority:1" json:"session_id"`
	Kind        ItemKind  `gorm:"column:kind;not null;index:idx_fingerprint,unique,priority:2" json:"kind"`
	Fingerprint string    `gorm:"column:fingerprint;not null;index:idx_fingerprint,unique,priority:3" json:"fingerprint"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

// Syllabus is a curriculum document. Masters have IsMaster set, no
// UserID and no ParentUID; forks carry both. MasterKey and ForkKey are
// the uniqueness guards: at most one master per (topic, level) and at
// most one fork per (topic, level, user), case-insensitive on level.
type Syllabus struct {
	UID       uuid.UUID      `gorm:"type:uuid;primaryKey" json:"uid"`
	Topic     string         `gorm:"column:topic;not null" json:"topic"`
	Level     string         `gorm:"column:level;not null" json:"level"`
	IsMaster  bool           `gorm:"column:is_master;not null" json:"is_master"`
	MasterKey *string        `gorm:"column:master_key;uniqueIndex" json:"-"`
	ForkKey   *string        `gorm:"column:fork_key;uniqueIndex" json:"-"`
	ParentUID *uuid.UUID     `gorm:"type:uuid;column:parent_uid" json:"parent_uid,omitempty"`
	UserID    *string        `gorm:"column:user_id;index" json:"user_id,omitempty"`
	Modules   datatypes.JSON `gorm:"column:modules;not null" json:"modules"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

// LLMCallLog records one generation-service request for observability.
type LLMCallLog struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Provider     string    `gorm:"column:provider;not null" json:"provider"`
	Model        string    `gorm:"column:model;not null" json:"model"`
	Purpose      string    `gorm:"column:purpose;not null;index" json:"purpose"`
	InputTokens  int       `gorm:"column:input_tokens;not null" json:"input_tokens"`
	OutputTokens int       `gorm:"column:output_tokens;not null" json:"output_tokens"`
	LatencyMs    int64     `gorm:"column:latency_ms;not null" json:"latency_ms"`
	Success      bool      `gorm:"column:success;not null" json:"success"`
	ErrorMessage string    `gorm:"column:error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (s *LessonSession) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (m *ConversationMessage) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (i *GeneratedItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (f *ItemFingerprint) BeforeCreate(_ *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

func (s *Syllabus) BeforeCreate(_ *gorm.DB) error {
	if s.UID == uuid.Nil {
		s.UID = uuid.New()
	}
	return nil
}

func (l *LLMCallLog) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
