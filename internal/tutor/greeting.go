package tutor

import "fmt"

// greetingText is the canned session opener. No generation call is made
// for the first turn.
func greetingText(lessonTitle string) string {
	if lessonTitle == "" {
		return "Welcome back! Ask me a question about the lesson, try an exercise, or take a quiz question — your choice."
	}
	return fmt.Sprintf(
		"Welcome! We're looking at %q. You can ask me a question about it, try an exercise, or take a quiz question — your choice.",
		lessonTitle,
	)
}
