package generation

// Intent is the classified purpose of a learner's chat message.
type Intent string

const (
	IntentAskQuestion     Intent = "ask_question"
	IntentRequestExercise Intent = "request_exercise"
	IntentRequestQuiz     Intent = "request_quiz"
	IntentOtherChat       Intent = "other_chat"
)

// ParseIntent maps a raw label to a known Intent, defaulting to
// IntentOtherChat for anything unrecognized. Ambiguous classifier output
// must not fail a turn.
func ParseIntent(s string) Intent {
	switch Intent(s) {
	case IntentAskQuestion, IntentRequestExercise, IntentRequestQuiz, IntentOtherChat:
		return Intent(s)
	default:
		return IntentOtherChat
	}
}

// ItemType describes how a generated item is answered.
type ItemType string

const (
	TypeMultipleChoice ItemType = "multiple_choice"
	TypeShortAnswer    ItemType = "short_answer"
	TypeOrdering       ItemType = "ordering"
)

// Turn is one message of conversation history passed to the classifier
// and chat responder.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// LessonContext carries the curriculum framing for a generation call.
type LessonContext struct {
	Topic       string
	Level       string
	LessonTitle string

	// Exposition is the lesson material the chat responder grounds its
	// answers in. May be empty for a lesson with no prepared text.
	Exposition string
}

// Item is a generated exercise or assessment question before persistence.
type Item struct {
	// ItemType selects the answering format.
	ItemType ItemType `json:"item_type"`

	// Prompt is the question text shown to the learner.
	Prompt string `json:"prompt"`

	// Choices holds the options for multiple_choice and the scrambled
	// elements for ordering. Empty for short_answer.
	Choices []string `json:"choices,omitempty"`

	// Answer is the canonical correct answer.
	Answer string `json:"answer"`

	// Explanation is a worked solution shown with feedback.
	Explanation string `json:"explanation"`
}

// Evaluation is the evaluator's verdict on a learner's answer.
type Evaluation struct {
	// Score is in [0, 1].
	Score float64 `json:"score"`

	// IsCorrect is score >= CorrectThreshold. Recomputed locally in case
	// the model omits or contradicts it.
	IsCorrect bool `json:"is_correct"`

	// Feedback is shown to the learner.
	Feedback string `json:"feedback"`

	// Explanation is an optional worked solution.
	Explanation string `json:"explanation,omitempty"`
}

// CorrectThreshold is the score at or above which an answer counts as
// correct.
const CorrectThreshold = 0.8

// Curriculum is the generated module/lesson outline for a topic.
type Curriculum struct {
	Modules []CurriculumModule `json:"modules"`
}

// CurriculumModule is one ordered unit of a curriculum.
type CurriculumModule struct {
	Title   string             `json:"title"`
	Lessons []CurriculumLesson `json:"lessons"`
}

// CurriculumLesson is one lesson within a module.
type CurriculumLesson struct {
	Title string `json:"title"`
}
