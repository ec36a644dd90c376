package wire

import "fmt"

// StatusError is an error carrying the wire status it maps to. Handlers
// return it to pick the status of the error frame; the client returns it
// for every non-OK response. errors.Is sees through it to the cause.
type StatusError struct {
	Status Status
	Msg    string
	Err    error
}

// NewStatusError returns a StatusError with a formatted message.
func NewStatusError(status Status, err error, format string, args ...any) *StatusError {
	return &StatusError{Status: status, Msg: fmt.Sprintf(format, args...), Err: err}
}

func (e *StatusError) Error() string {
	if e.Err != nil && e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Msg)
}

// Code returns the numeric wire status.
func (e *StatusError) Code() uint32 { return uint32(e.Status) }

// Message returns the text sent in the error frame.
func (e *StatusError) Message() string {
	if e.Msg == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Msg
}

// Unwrap returns the underlying cause.
func (e *StatusError) Unwrap() error { return e.Err }

// Is matches another *StatusError with the same status, so callers can
// test errors.Is(err, &StatusError{Status: StatusBadFileHandle}).
func (e *StatusError) Is(target error) bool {
	t, ok := target.(*StatusError)
	return ok && t.Status == e.Status && t.Msg == "" && t.Err == nil
}
