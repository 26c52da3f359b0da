package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeUnknownRoom     = "unknown_room"
	ErrCodeUnknownIdentity = "unknown_identity"
	ErrCodeDJConflict      = "dj_conflict"
	ErrCodeForbidden       = "forbidden"
	ErrCodeNotFound        = "not_found"
	ErrCodeBadRequest      = "bad_request"
)

var (
	ErrUnknownRoom     = errors.New("unknown room")
	ErrUnknownIdentity = errors.New("unknown client")
	ErrDJConflict      = errors.New("room already has a DJ")
	ErrForbidden       = errors.New("only the DJ can do that")
)

// Error wraps a code and human-readable message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// AsError maps a domain sentinel to a coded Error.
func AsError(err error) *Error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnknownRoom):
		return &Error{Code: ErrCodeUnknownRoom, Message: err.Error()}
	case errors.Is(err, ErrUnknownIdentity):
		return &Error{Code: ErrCodeUnknownIdentity, Message: err.Error()}
	case errors.Is(err, ErrDJConflict):
		return &Error{Code: ErrCodeDJConflict, Message: err.Error()}
	case errors.Is(err, ErrForbidden):
		return &Error{Code: ErrCodeForbidden, Message: err.Error()}
	default:
		return &Error{Code: ErrCodeBadRequest, Message: err.Error()}
	}
}
