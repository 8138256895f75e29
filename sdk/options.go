package mojo

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithModel overrides the dialog model requested at connect time.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithBaseURL overrides the live endpoint base URL. http(s) schemes are
// converted to their websocket equivalents when dialing.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithVoice sets the initial voice preference. Unknown names are ignored in
// favor of the default; use SetVoice for validated switching at runtime.
func WithVoice(name string) ClientOption {
	return func(c *Client) {
		if ValidVoice(name) {
			c.voice = name
		}
	}
}

// WithSystemPrompt replaces the default persona instruction sent in setup.
func WithSystemPrompt(prompt string) ClientOption {
	return func(c *Client) {
		c.systemPrompt = prompt
	}
}

// WithResponseModalities sets the requested response modalities
// (protocol.ModalityAudio and/or protocol.ModalityText).
func WithResponseModalities(modalities ...string) ClientOption {
	return func(c *Client) {
		c.modalities = modalities
	}
}

// WithContextCompression sets the context-compaction thresholds sent in
// setup: older turns are summarized or dropped once the context passes
// triggerTokens, aiming for targetTokens afterwards. Zero disables.
func WithContextCompression(triggerTokens, targetTokens int) ClientOption {
	return func(c *Client) {
		c.compressionTrigger = triggerTokens
		c.compressionTarget = targetTokens
	}
}

// WithDialer sets a custom websocket dialer.
func WithDialer(d *websocket.Dialer) ClientOption {
	return func(c *Client) {
		c.dialer = d
	}
}

// WithLogger sets the logger for the client.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithTurnTimeout bounds how long SendText waits for the model to complete a
// turn. Zero disables the timeout.
func WithTurnTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.turnTimeout = d
	}
}

// WithConnectTimeout bounds the dial-plus-handshake phase of Connect.
func WithConnectTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.connectTimeout = d
	}
}
