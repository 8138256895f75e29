package mojo

import (
	"fmt"
	"net/url"

	"github.com/sixtyoneeighty/mojolive/pkg/core"
)

// SDK-level error type that wraps core errors
type Error = core.Error

// Error types
const (
	ErrConnection   = core.ErrConnection
	ErrNotConnected = core.ErrNotConnected
	ErrEmptyMessage = core.ErrEmptyMessage
	ErrSend         = core.ErrSend
	ErrFrameCapture = core.ErrFrameCapture
	ErrDecode       = core.ErrDecode
)

// Error constructors
var (
	NewConnectionError   = core.NewConnectionError
	NewNotConnectedError = core.NewNotConnectedError
	NewEmptyMessageError = core.NewEmptyMessageError
	NewSendError         = core.NewSendError
)

// TransportError represents websocket transport-level failures (DNS, dial
// timeouts, connection reset, TLS handshake, etc.) while talking to the
// live endpoint.
//
// Use errors.As(err, &TransportError{}) to distinguish transport failures
// from canonical session errors (*core.Error).
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Op != "" && e.URL != "":
		return fmt.Sprintf("transport error during %s %s: %v", e.Op, redactCredential(e.URL), e.Err)
	case e.Op != "":
		return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("transport error: %v", e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// redactCredential strips the API key query parameter so credentials never
// reach logs or error strings.
func redactCredential(raw string) string {
	if raw == "" {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed == nil {
		return raw
	}
	parsed.User = nil
	query := parsed.Query()
	if query.Has("key") {
		query.Set("key", "REDACTED")
		parsed.RawQuery = query.Encode()
	}
	return parsed.String()
}
