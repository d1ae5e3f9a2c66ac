package generation

import (
	"context"
	"fmt"
)

// Service is the generation boundary consumed by the session state
// machine and the syllabus store. Every method is a request/response
// call to the text-generation backend; every failure is a *Error that
// callers retry or surface without distinguishing further.
type Service interface {
	// ClassifyIntent labels a learner message given recent history.
	ClassifyIntent(ctx context.Context, history []Turn, userText string) (Intent, error)

	// ChatReply produces an assistant reply grounded in the lesson.
	ChatReply(ctx context.Context, lesson LessonContext, history []Turn) (string, error)

	// GenerateExercise produces a practice exercise avoiding the
	// excluded prompts.
	GenerateExercise(ctx context.Context, lesson LessonContext, excluded []string) (*Item, error)

	// GenerateAssessmentQuestion produces a quiz question avoiding the
	// excluded prompts.
	GenerateAssessmentQuestion(ctx context.Context, lesson LessonContext, excluded []string) (*Item, error)

	// EvaluateAnswer scores a learner's answer to an item.
	EvaluateAnswer(ctx context.Context, item *Item, userAnswer string) (*Evaluation, error)

	// GenerateCurriculum synthesizes a module/lesson outline for a
	// never-seen (topic, level).
	GenerateCurriculum(ctx context.Context, topic, level string) (*Curriculum, error)
}

// Error wraps any upstream generation failure: timeout, malformed
// output, or provider error.
type Error struct {
	Op  string // the service call that failed, e.g. "classify-intent"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generation %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
