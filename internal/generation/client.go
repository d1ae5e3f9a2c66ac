package generation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/npatel023/tutorgraph/internal/llm"
)

// Config controls the Client's prompting limits.
type Config struct {
	// MaxTokens is the token budget per response.
	MaxTokens int

	// Temperature controls output randomness for content generation.
	// Classification and evaluation always run at 0.
	Temperature float64

	// MaxHistory is the number of conversation turns included in
	// classifier and chat prompts.
	MaxHistory int

	// MaxExclusions is the number of prior items included in the
	// exclusion list for novelty-constrained generation.
	MaxExclusions int
}

// DefaultConfig returns a Config with recommended defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:     1024,
		Temperature:   0.7,
		MaxHistory:    12,
		MaxExclusions: 10,
	}
}

// Client implements Service on top of an llm.Provider.
type Client struct {
	provider llm.Provider
	cfg      Config
}

// NewClient creates a generation client.
func NewClient(provider llm.Provider, cfg Config) *Client {
	return &Client{provider: provider, cfg: cfg}
}

func (c *Client) ClassifyIntent(ctx context.Context, history []Turn, userText string) (Intent, error) {
	ctx = llm.WithPurpose(ctx, "intent")

	req := llm.Request{
		System: intentSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildIntentUserMessage(history, userText, c.cfg.MaxHistory)},
		},
		Schema:    IntentSchema,
		MaxTokens: 64,
	}

	resp, err := c.provider.Generate(ctx, req)
	if err != nil {
		return "", &Error{Op: "classify-intent", Err: err}
	}

	var out struct {
		Intent string `json:"intent"`
	}
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return "", &Error{Op: "classify-intent", Err: fmt.Errorf("parse response: %w", err)}
	}

	return ParseIntent(out.Intent), nil
}

func (c *Client) ChatReply(ctx context.Context, lesson LessonContext, history []Turn) (string, error) {
	ctx = llm.WithPurpose(ctx, "chat")

	if max := c.cfg.MaxHistory; max > 0 && len(history) > max {
		history = history[len(history)-max:]
	}

	messages := []llm.Message{
		{Role: llm.RoleUser, Content: buildLessonHeader(lesson)},
		{Role: llm.RoleAssistant, Content: "Understood. I will tutor this lesson."},
	}
	for _, t := range history {
		role := llm.RoleUser
		if t.Role == "assistant" {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: t.Content})
	}

	req := llm.Request{
		System:      chatSystemPrompt,
		Messages:    messages,
		Schema:      ChatReplySchema,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	resp, err := c.provider.Generate(ctx, req)
	if err != nil {
		return "", &Error{Op: "chat-reply", Err: err}
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return "", &Error{Op: "chat-reply", Err: fmt.Errorf("parse response: %w", err)}
	}
	if out.Text == "" {
		return "", &Error{Op: "chat-reply", Err: fmt.Errorf("empty reply text")}
	}

	return out.Text, nil
}

func (c *Client) GenerateExercise(ctx context.Context, lesson LessonContext, excluded []string) (*Item, error) {
	ctx = llm.WithPurpose(ctx, "exercise")
	return c.generateItem(ctx, "generate-exercise", exerciseSystemPrompt, lesson, excluded)
}

func (c *Client) GenerateAssessmentQuestion(ctx context.Context, lesson LessonContext, excluded []string) (*Item, error) {
	ctx = llm.WithPurpose(ctx, "assessment")
	return c.generateItem(ctx, "generate-assessment", assessmentSystemPrompt, lesson, excluded)
}

func (c *Client) generateItem(ctx context.Context, op, system string, lesson LessonContext, excluded []string) (*Item, error) {
	req := llm.Request{
		System: system,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildItemUserMessage(lesson, excluded, c.cfg.MaxExclusions)},
		},
		Schema:      ItemSchema,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	resp, err := c.provider.Generate(ctx, req)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}

	var item Item
	if err := json.Unmarshal(resp.Content, &item); err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("parse response: %w", err)}
	}
	if item.Prompt == "" {
		return nil, &Error{Op: op, Err: fmt.Errorf("empty item prompt")}
	}

	return &item, nil
}

func (c *Client) EvaluateAnswer(ctx context.Context, item *Item, userAnswer string) (*Evaluation, error) {
	ctx = llm.WithPurpose(ctx, "evaluation")

	req := llm.Request{
		System: evaluationSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildEvaluationUserMessage(item, userAnswer)},
		},
		Schema:    EvaluationSchema,
		MaxTokens: c.cfg.MaxTokens,
	}

	resp, err := c.provider.Generate(ctx, req)
	if err != nil {
		return nil, &Error{Op: "evaluate-answer", Err: err}
	}

	var eval Evaluation
	if err := json.Unmarshal(resp.Content, &eval); err != nil {
		return nil, &Error{Op: "evaluate-answer", Err: fmt.Errorf("parse response: %w", err)}
	}

	// The threshold is ours, not the model's.
	eval.IsCorrect = eval.Score >= CorrectThreshold

	return &eval, nil
}

func (c *Client) GenerateCurriculum(ctx context.Context, topic, level string) (*Curriculum, error) {
	ctx = llm.WithPurpose(ctx, "curriculum")

	req := llm.Request{
		System: curriculumSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildCurriculumUserMessage(topic, level)},
		},
		Schema:      CurriculumSchema,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	resp, err := c.provider.Generate(ctx, req)
	if err != nil {
		return nil, &Error{Op: "generate-curriculum", Err: err}
	}

	var cur Curriculum
	if err := json.Unmarshal(resp.Content, &cur); err != nil {
		return nil, &Error{Op: "generate-curriculum", Err: fmt.Errorf("parse response: %w", err)}
	}
	if len(cur.Modules) == 0 {
		return nil, &Error{Op: "generate-curriculum", Err: fmt.Errorf("no modules in response")}
	}

	return &cur, nil
}
