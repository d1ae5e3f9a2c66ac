package tutor

import (
	"errors"
	"fmt"
)

// ErrTurnInFlight is returned when a second turn arrives for a session
// whose previous turn has not finished. Turns within a session are
// strictly sequential; the caller should retry after the in-flight turn
// completes.
var ErrTurnInFlight = errors.New("a turn is already in flight for this session")

// ValidationError indicates a malformed inbound event: a caller bug,
// surfaced unchanged rather than converted to a learner-facing message.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid turn event: %s", e.Reason)
}
