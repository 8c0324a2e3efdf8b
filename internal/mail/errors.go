package mail

import "errors"

var (
	// ErrUnknownRequestType is returned when the delivery actor receives
	// an unknown message type.
	ErrUnknownRequestType = errors.New("unknown request type")

	// ErrNoRecipients is returned when a task resolves to no addresses.
	ErrNoRecipients = errors.New("mail task has no recipients")
)
