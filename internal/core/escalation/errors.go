package escalation

import "errors"

var (
	// ErrInvalidLevel is returned when a level is missing from the table.
	ErrInvalidLevel = errors.New("invalid escalation level")

	// ErrInvalidAction is returned for an unknown confirmation action.
	ErrInvalidAction = errors.New("invalid escalation action")

	// ErrInvalidUrgency is returned for an unknown urgency value.
	ErrInvalidUrgency = errors.New("invalid urgency")

	// ErrInvalidTransition is returned when an action is not allowed in the current status.
	ErrInvalidTransition = errors.New("invalid escalation transition")

	// ErrEscalationClosed is returned for actions on a resolved escalation.
	ErrEscalationClosed = errors.New("escalation is resolved")

	// ErrEscalationOpen is returned when creating an escalation while one is awaiting confirmation.
	ErrEscalationOpen = errors.New("escalation already open")

	// ErrNoNextLevel is returned when escalating past the top of the ladder.
	ErrNoNextLevel = errors.New("no higher escalation level")
)
