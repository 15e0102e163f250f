package chat

import (
	"errors"
	"fmt"
)

var (
	ErrDecode            = errors.New("malformed envelope")
	ErrUnknownEnvelope   = errors.New("unknown envelope type")
	ErrFrameFailed       = errors.New("frame handling failed")
	ErrSessionClosed     = errors.New("session closed")
	ErrAlreadyRegistered = errors.New("connection already registered")
)

// NameReason classifies why a display name was rejected.
type NameReason int

const (
	ReasonEmpty NameReason = iota + 1
	ReasonTooLong
	ReasonTaken
)

// NameError is returned by Registry.Register when a name fails validation.
// Its Error text is shown to the requesting client as is.
type NameError struct {
	Reason NameReason
	Name   string
}

var (
	ErrNameEmpty   = &NameError{Reason: ReasonEmpty}
	ErrNameTooLong = &NameError{Reason: ReasonTooLong}
	ErrNameTaken   = &NameError{Reason: ReasonTaken}
)

func (e *NameError) Error() string {
	switch e.Reason {
	case ReasonEmpty:
		return "Name cannot be empty"
	case ReasonTooLong:
		return fmt.Sprintf("Name must be %d characters or less", MaxNameLength)
	case ReasonTaken:
		return "Name is already taken"
	default:
		return "Invalid name"
	}
}

// Is matches any NameError with the same Reason, so callers can write
// errors.Is(err, ErrNameTaken).
func (e *NameError) Is(target error) bool {
	t, ok := target.(*NameError)
	return ok && t.Reason == e.Reason
}
