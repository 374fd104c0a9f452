package bridge

import "errors"

// Domain errors for the bridge package.
var (
	// ErrInvalidTopic is returned when a command topic does not match the
	// junghome/command/{datapoint_id} shape.
	ErrInvalidTopic = errors.New("bridge: invalid command topic")

	// ErrInvalidPayload is returned when a command payload cannot be parsed.
	ErrInvalidPayload = errors.New("bridge: invalid command payload")

	// ErrUnknownCommand is returned when a command name is not recognised.
	ErrUnknownCommand = errors.New("bridge: unknown command")

	// ErrInvalidParameters is returned when a command carries missing or
	// out-of-range parameters.
	ErrInvalidParameters = errors.New("bridge: invalid command parameters")
)
