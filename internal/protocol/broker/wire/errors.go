package wire

import "errors"

var (
	// ErrTruncatedMessage means a body ended before its command's fixed
	// layout was complete.
	ErrTruncatedMessage = errors.New("truncated message")

	// ErrBadHeader means an envelope header failed validation.
	ErrBadHeader = errors.New("bad message header")

	// ErrFrameTooLarge means an envelope announced more bytes than the
	// receiver accepts.
	ErrFrameTooLarge = errors.New("frame too large")
)
