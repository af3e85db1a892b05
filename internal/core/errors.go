package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeUnknownConnection = "unknown_connection"
	ErrCodeBusy              = "busy"
	ErrCodeNoSuchSession     = "no_such_session"
	ErrCodeMalformedPayload  = "malformed_payload"
	ErrCodeBadRequest        = "bad_request"
	ErrCodeUnauthorized      = "unauthorized"
)

var (
	// ErrUnknownConnection means an operation referenced a connection id that
	// is not currently registered, e.g. an event arriving after disconnect.
	ErrUnknownConnection = errors.New("unknown connection")
	// ErrBusy means a call was initiated against a user already in a call.
	ErrBusy = errors.New("user is busy")
	// ErrNoSuchSession means a signaling event referenced a call pair with no
	// matching non-terminal session.
	ErrNoSuchSession = errors.New("no such call session")
	ErrBadRequest    = errors.New("bad request")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// CodeFor maps a sentinel error to its wire code.
func CodeFor(err error) string {
	switch {
	case errors.Is(err, ErrUnknownConnection):
		return ErrCodeUnknownConnection
	case errors.Is(err, ErrBusy):
		return ErrCodeBusy
	case errors.Is(err, ErrNoSuchSession):
		return ErrCodeNoSuchSession
	}
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrCodeBadRequest
}
