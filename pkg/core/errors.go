package core

import (
	"errors"
	"fmt"
)

// Error is the canonical error for live-session operations.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    string    `json:"code,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorType categorizes errors.
type ErrorType string

const (
	// ErrConnection covers rejected credentials, failed handshakes, and
	// remote closes with an incompatibility reason.
	ErrConnection ErrorType = "connection_error"

	// ErrNotConnected is returned by send/signal operations attempted
	// without a live session, after any bounded reconnect attempt failed.
	ErrNotConnected ErrorType = "not_connected_error"

	// ErrEmptyMessage is returned when a text send carries no text, no
	// frame attachment, and no open audio activity.
	ErrEmptyMessage ErrorType = "empty_message_error"

	// ErrSend is a transport-level failure transmitting one payload. It
	// does not necessarily tear down the session.
	ErrSend ErrorType = "send_error"

	// ErrFrameCapture is a failure rasterizing a video frame. Logged and
	// non-fatal to an accompanying text send.
	ErrFrameCapture ErrorType = "frame_capture_error"

	// ErrDecode is a malformed inbound fragment. The payload is dropped
	// and turn assembly continues.
	ErrDecode ErrorType = "decode_error"
)

// NewConnectionError creates a connection error.
func NewConnectionError(message string) *Error {
	return &Error{
		Type:    ErrConnection,
		Message: message,
	}
}

// NewConnectionErrorWithCode creates a connection error with a machine code.
func NewConnectionErrorWithCode(message, code string) *Error {
	return &Error{
		Type:    ErrConnection,
		Message: message,
		Code:    code,
	}
}

// NewNotConnectedError creates a not-connected error.
func NewNotConnectedError(message string) *Error {
	return &Error{
		Type:    ErrNotConnected,
		Message: message,
	}
}

// NewEmptyMessageError creates an empty-message error.
func NewEmptyMessageError(message string) *Error {
	return &Error{
		Type:    ErrEmptyMessage,
		Message: message,
	}
}

// NewSendError creates a send error.
func NewSendError(message string) *Error {
	return &Error{
		Type:    ErrSend,
		Message: message,
	}
}

// NewFrameCaptureError creates a frame-capture error.
func NewFrameCaptureError(message string) *Error {
	return &Error{
		Type:    ErrFrameCapture,
		Message: message,
	}
}

// NewDecodeError creates a decode error.
func NewDecodeError(message string) *Error {
	return &Error{
		Type:    ErrDecode,
		Message: message,
	}
}

// IsType reports whether err is (or wraps) a canonical Error of the given type.
func IsType(err error, t ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == t
}

// IsRecoverable reports whether turn processing may continue past the error.
// Decode and frame-capture failures are recovered locally; everything else
// surfaces to the caller.
func (e *Error) IsRecoverable() bool {
	switch e.Type {
	case ErrDecode, ErrFrameCapture:
		return true
	default:
		return false
	}
}
