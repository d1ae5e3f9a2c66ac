package generation

import (
	"fmt"
	"strings"
)

const intentSystemPrompt = `You are the intent router for a tutoring conversation.

Classify the learner's latest message into exactly one intent:
- "ask_question": the learner asks about the lesson material or wants something explained.
- "request_exercise": the learner wants to practice with an exercise.
- "request_quiz": the learner wants to be tested with a quiz question.
- "other_chat": anything else (greetings, meta questions, off-topic chat).

Judge only the latest message; the preceding history is context. When in doubt, choose "other_chat".`

const chatSystemPrompt = `You are a patient tutor chatting with a learner about one lesson.

Rules:
- Ground your answer in the lesson material provided. If the question goes beyond it, answer briefly and steer back to the lesson.
- Be concise and encouraging. Plain text, no markdown headings.
- Never invent facts about the learner's progress.`

const exerciseSystemPrompt = `You are a tutor writing one practice exercise for a learner.

Rules:
- The exercise must be about the given lesson, appropriate for the given level.
- Choose "short_answer" for recall and computation, "multiple_choice" for concept checks (exactly 4 options, one correct, distractors reflecting common mistakes), "ordering" for sequences and processes.
- Plain text only. The prompt must be self-contained.
- The explanation walks through the solution step by step.
- Do not repeat any item from the "already generated" list, and avoid close paraphrases of them.`

const assessmentSystemPrompt = `You are a tutor writing one quiz question to assess a learner.

Rules:
- The question must test the given lesson at the given level, without hints in the prompt.
- Choose "multiple_choice" (exactly 4 options, one correct) or "short_answer" for most questions; "ordering" when sequence matters.
- Plain text only. The prompt must be self-contained.
- The explanation justifies the correct answer.
- Do not repeat any item from the "already generated" list, and avoid close paraphrases of them.`

const evaluationSystemPrompt = `You are grading one learner answer to one practice item.

Rules:
- Score from 0.0 (completely wrong) to 1.0 (fully correct). Partial credit is allowed for short answers that are close.
- An answer is correct when the score is at least 0.8.
- Feedback is one or two sentences, specific and encouraging, never sarcastic.
- For wrong answers, include a worked explanation; for correct answers the explanation may be empty.`

const curriculumSystemPrompt = `You are designing a curriculum outline for a self-paced course.

Rules:
- Produce 3 to 6 modules, each with 2 to 6 lessons, ordered from fundamentals to advanced.
- Titles are short and specific. No numbering in titles; ordering is positional.
- Match the depth to the stated level.`

// buildHistory renders conversation turns for a prompt, oldest first.
func buildHistory(history []Turn) string {
	if len(history) == 0 {
		return "(no history)"
	}
	var b strings.Builder
	for _, t := range history {
		fmt.Fprintf(&b, "[%s] %s\n", t.Role, t.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// buildExclusions formats already-generated prompts for the exclusion
// list, keeping only the most recent max entries. Returns "None" when
// there is nothing to exclude.
func buildExclusions(excluded []string, max int) string {
	if len(excluded) == 0 {
		return "None"
	}
	if max > 0 && len(excluded) > max {
		excluded = excluded[len(excluded)-max:]
	}
	var b strings.Builder
	for i, e := range excluded {
		fmt.Fprintf(&b, "%d. %s\n", i+1, e)
	}
	return strings.TrimRight(b.String(), "\n")
}

// buildLessonHeader renders the shared lesson framing block.
func buildLessonHeader(lesson LessonContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", lesson.Topic)
	fmt.Fprintf(&b, "Level: %s\n", lesson.Level)
	fmt.Fprintf(&b, "Lesson: %s\n", lesson.LessonTitle)
	if lesson.Exposition != "" {
		b.WriteString("\nLesson material:\n")
		b.WriteString(lesson.Exposition)
		b.WriteString("\n")
	}
	return b.String()
}

func buildIntentUserMessage(history []Turn, userText string, maxHistory int) string {
	if maxHistory > 0 && len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	b.WriteString(buildHistory(history))
	b.WriteString("\n\nLatest learner message:\n")
	b.WriteString(userText)
	return b.String()
}

func buildItemUserMessage(lesson LessonContext, excluded []string, maxExclusions int) string {
	var b strings.Builder
	b.WriteString(buildLessonHeader(lesson))
	b.WriteString("\nAlready generated in this session:\n")
	b.WriteString(buildExclusions(excluded, maxExclusions))
	return b.String()
}

func buildEvaluationUserMessage(item *Item, userAnswer string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Item type: %s\n", item.ItemType)
	fmt.Fprintf(&b, "Question: %s\n", item.Prompt)
	if len(item.Choices) > 0 {
		fmt.Fprintf(&b, "Choices: %s\n", strings.Join(item.Choices, " | "))
	}
	fmt.Fprintf(&b, "Correct answer: %s\n", item.Answer)
	fmt.Fprintf(&b, "\nLearner's answer: %s\n", userAnswer)
	return b.String()
}

func buildCurriculumUserMessage(topic, level string) string {
	return fmt.Sprintf("Topic: %s\nLevel: %s\n", topic, level)
}
