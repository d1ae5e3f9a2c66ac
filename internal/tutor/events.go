package tutor

// Event is one inbound trigger for the session state machine. The set
// is closed: Start for the first turn, UserMessage for every turn after.
type Event interface {
	isEvent()
}

// Start signals the first turn of a fresh session.
type Start struct{}

func (Start) isEvent() {}

// UserMessage carries one learner message.
type UserMessage struct {
	Text string
}

func (UserMessage) isEvent() {}
