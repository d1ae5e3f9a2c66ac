package tutor

// Config controls the session state machine.
type Config struct {
	// WrongStreakThreshold is the consecutive-wrong count at which a
	// prerequisite suggestion is appended. The session is never
	// hard-stopped.
	WrongStreakThreshold int

	// HistoryTail is the number of recent messages passed to the
	// intent classifier and chat responder.
	HistoryTail int
}

// DefaultConfig returns a Config with recommended defaults.
func DefaultConfig() Config {
	return Config{
		WrongStreakThreshold: 2,
		HistoryTail:          12,
	}
}
