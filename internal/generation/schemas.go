package generation

import "github.com/npatel023/tutorgraph/internal/llm"

// IntentSchema defines the JSON schema for intent classification responses.
var IntentSchema = &llm.Schema{
	Name:        "turn-intent",
	Description: "The classified intent of the learner's latest message",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"intent": map[string]any{
				"type":        "string",
				"enum":        []any{"ask_question", "request_exercise", "request_quiz", "other_chat"},
				"description": "What the learner wants from this message",
			},
		},
		"required":             []any{"intent"},
		"additionalProperties": false,
	},
}

// ChatReplySchema defines the JSON schema for chat responder output.
var ChatReplySchema = &llm.Schema{
	Name:        "chat-reply",
	Description: "A tutoring chat reply grounded in the lesson material",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "The assistant reply shown to the learner",
			},
		},
		"required":             []any{"text"},
		"additionalProperties": false,
	},
}

// ItemSchema defines the JSON schema for generated exercises and
// assessment questions. Both kinds share one shape; the prompt differs.
var ItemSchema = &llm.Schema{
	Name:        "practice-item",
	Description: "A single practice item with answer and explanation",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"item_type": map[string]any{
				"type":        "string",
				"enum":        []any{"multiple_choice", "short_answer", "ordering"},
				"description": "How the learner answers this item",
			},
			"prompt": map[string]any{
				"type":        "string",
				"description": "The question text shown to the learner, plain text",
			},
			"choices": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "string",
				},
				"description": "Exactly 4 options for multiple_choice, the scrambled elements for ordering, empty for short_answer",
			},
			"answer": map[string]any{
				"type":        "string",
				"description": "The correct answer. For multiple_choice: the text of the correct option. For ordering: the elements in correct order, comma-separated.",
			},
			"explanation": map[string]any{
				"type":        "string",
				"description": "Step-by-step worked solution",
			},
		},
		"required":             []any{"item_type", "prompt", "choices", "answer", "explanation"},
		"additionalProperties": false,
	},
}

// EvaluationSchema defines the JSON schema for answer evaluation output.
var EvaluationSchema = &llm.Schema{
	Name:        "answer-evaluation",
	Description: "A scored verdict on the learner's answer",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score": map[string]any{
				"type":        "number",
				"minimum":     0,
				"maximum":     1,
				"description": "Correctness score from 0.0 to 1.0",
			},
			"is_correct": map[string]any{
				"type":        "boolean",
				"description": "Whether the answer counts as correct (score >= 0.8)",
			},
			"feedback": map[string]any{
				"type":        "string",
				"description": "Short feedback shown to the learner",
			},
			"explanation": map[string]any{
				"type":        "string",
				"description": "Optional worked solution. Empty string if not needed.",
			},
		},
		"required":             []any{"score", "is_correct", "feedback", "explanation"},
		"additionalProperties": false,
	},
}

// CurriculumSchema defines the JSON schema for curriculum generation output.
var CurriculumSchema = &llm.Schema{
	Name:        "curriculum-outline",
	Description: "An ordered module and lesson outline for a topic and level",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"modules": map[string]any{
				"type":        "array",
				"minItems":    1,
				"description": "Ordered list of modules",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title": map[string]any{
							"type":        "string",
							"description": "Module title",
						},
						"lessons": map[string]any{
							"type":        "array",
							"minItems":    1,
							"description": "Ordered list of lessons in this module",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"title": map[string]any{
										"type":        "string",
										"description": "Lesson title",
									},
								},
								"required":             []any{"title"},
								"additionalProperties": false,
							},
						},
					},
					"required":             []any{"title", "lessons"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"modules"},
		"additionalProperties": false,
	},
}
