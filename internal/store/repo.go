package store

import (
	"context"

	"github.com/google/uuid"
)

// SessionRepo manages LessonSession rows.
type SessionRepo interface {
	// Create inserts a new session.
	Create(ctx context.Context, s *LessonSession) error

	// Get loads a session by id. Returns *NotFoundError if missing.
	Get(ctx context.Context, id uuid.UUID) (*LessonSession, error)

	// Save persists the mutable fields of an existing session.
	Save(ctx context.Context, s *LessonSession) error
}

// MessageRepo provides append-only access to the conversation log.
type MessageRepo interface {
	// Append writes a message, assigning the next sequence number for
	// its session. The (session_id, sequence) unique index rejects
	// concurrent writers; callers hold the per-session turn lock.
	Append(ctx context.Context, m *ConversationMessage) error

	// List returns all messages for a session ordered by sequence.
	List(ctx context.Context, sessionID uuid.UUID) ([]ConversationMessage, error)

	// Tail returns the last n messages for a session in sequence order.
	Tail(ctx context.Context, sessionID uuid.UUID, n int) ([]ConversationMessage, error)
}

// ItemRepo manages generated practice content.
type ItemRepo interface {
	// Create inserts a new generated item.
	Create(ctx context.Context, item *GeneratedItem) error

	// Get loads an item by id. Returns *NotFoundError if missing.
	Get(ctx context.Context, id uuid.UUID) (*GeneratedItem, error)

	// ListPrompts returns the prompt text of every item of the given
	// kind already generated for a session, oldest first. Used as the
	// exclusion list for novelty-constrained generation.
	ListPrompts(ctx context.Context, sessionID uuid.UUID, kind ItemKind) ([]string, error)
}

// RegistryRepo is the novelty registry: a per-session set of content
// fingerprints per item kind.
type RegistryRepo interface {
	// Contains reports whether the fingerprint is already registered.
	Contains(ctx context.Context, sessionID uuid.UUID, kind ItemKind, fingerprint string) (bool, error)

	// Insert registers a fingerprint. Returns false if it was already
	// present; the unique index makes this an atomic check-and-insert.
	Insert(ctx context.Context, sessionID uuid.UUID, kind ItemKind, fingerprint string) (bool, error)
}

// SyllabusRepo manages curriculum documents.
type SyllabusRepo interface {
	// FindMaster returns the master for (topic, level), or nil if none
	// exists. Level matching is case-insensitive.
	FindMaster(ctx context.Context, topic, level string) (*Syllabus, error)

	// FindFork returns the fork for (topic, level, userID), or nil.
	FindFork(ctx context.Context, topic, level, userID string) (*Syllabus, error)

	// Get loads a syllabus by uid. Returns *NotFoundError if missing.
	Get(ctx context.Context, uid uuid.UUID) (*Syllabus, error)

	// Insert persists a new syllabus. Returns *ConflictError when the
	// master or fork uniqueness constraint rejects the row.
	Insert(ctx context.Context, s *Syllabus) error
}

// CallLogRepo provides append access to the LLM call log.
type CallLogRepo interface {
	// Append records an LLM request.
	Append(ctx context.Context, entry *LLMCallLog) error

	// Recent returns the most recent entries, newest first.
	Recent(ctx context.Context, limit int) ([]LLMCallLog, error)
}
