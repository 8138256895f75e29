package mojo

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/sixtyoneeighty/mojolive/pkg/core"
	"github.com/sixtyoneeighty/mojolive/pkg/live/protocol"
)

// SendText transmits a user text turn, optionally attaching a single still
// frame captured from the supplied video source, and waits for the model's
// resulting turn so callers get request/response semantics over the
// streaming transport.
//
// If no session is live, exactly one reconnect is attempted with the
// last-known credential before the call fails with a not-connected error.
// Frame capture or frame transmission failures are logged and do not abort
// the text portion already sent.
func (c *Client) SendText(ctx context.Context, text string, frame FrameSource) (*Turn, error) {
	trimmed := strings.TrimSpace(text)

	c.mu.Lock()
	if trimmed == "" && frame == nil && !c.activityOpen {
		c.mu.Unlock()
		return nil, core.NewEmptyMessageError("nothing to send: no text, no frame, no open audio activity")
	}

	sess := c.sess
	if sess == nil || c.state != StateConnected {
		if c.credential == "" {
			c.mu.Unlock()
			return nil, core.NewNotConnectedError("no live session and no credential to reconnect with")
		}
		c.logger.Info("not connected, attempting one reconnect before send")
		if err := c.connectLocked(ctx, c.credential); err != nil {
			c.mu.Unlock()
			return nil, core.NewNotConnectedError(fmt.Sprintf("reconnect failed: %v", err))
		}
		sess = c.sess
	}
	if trimmed != "" {
		c.transcript.Append(trimmed, true)
	}
	c.mu.Unlock()

	waiter := sess.registerWaiter()

	content := protocol.ClientMessage{
		ClientContent: &protocol.ClientContent{
			Turns:        []protocol.Content{protocol.TextContent(trimmed)},
			TurnComplete: true,
		},
	}
	if err := sess.sendJSON(content); err != nil {
		sess.cancelWaiter(waiter)
		return nil, core.NewSendError(fmt.Sprintf("send text: %v", err))
	}

	if frame != nil {
		if err := c.sendFrame(sess, frame); err != nil {
			c.logger.Warn("frame attachment skipped", "error", err)
		}
	}

	return c.awaitTurn(ctx, sess, waiter)
}

// awaitTurn blocks until the assembler seals the turn triggered by the send,
// the per-turn timeout elapses, the context is canceled, or the session goes
// away mid-turn.
func (c *Client) awaitTurn(ctx context.Context, sess *liveSession, waiter chan *Turn) (*Turn, error) {
	var timeout <-chan time.Time
	if c.turnTimeout > 0 {
		timer := time.NewTimer(c.turnTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case turn, ok := <-waiter:
		if !ok {
			return nil, core.NewNotConnectedError("transport closed before the turn completed")
		}
		return turn, nil
	case <-timeout:
		sess.cancelWaiter(waiter)
		return nil, core.NewSendError(fmt.Sprintf("no turn completion within %s", c.turnTimeout))
	case <-ctx.Done():
		sess.cancelWaiter(waiter)
		return nil, core.NewSendError(fmt.Sprintf("canceled while awaiting turn: %v", ctx.Err()))
	}
}

// sendFrame captures one still image from the source and transmits it as a
// realtime video input, distinct from the text payload.
func (c *Client) sendFrame(sess *liveSession, frame FrameSource) error {
	encoded, err := captureFrame(frame)
	if err != nil {
		return core.NewFrameCaptureError(err.Error())
	}
	msg := protocol.ClientMessage{
		RealtimeInput: &protocol.RealtimeInput{
			Video: &protocol.Blob{Data: encoded, MIMEType: protocol.FrameMIMEType},
		},
	}
	if err := sess.sendJSON(msg); err != nil {
		return core.NewSendError(fmt.Sprintf("send frame: %v", err))
	}
	c.logger.Debug("frame attachment sent")
	return nil
}

// SendAudioChunk transmits raw 16-bit little-endian PCM mono audio sampled
// at 16 kHz as a realtime audio input. Fails when no session is live; audio
// streaming never triggers a reconnect.
func (c *Client) SendAudioChunk(pcm []byte) error {
	sess, err := c.currentSession()
	if err != nil {
		return err
	}
	msg := protocol.ClientMessage{
		RealtimeInput: &protocol.RealtimeInput{
			Audio: &protocol.Blob{
				Data:     base64.StdEncoding.EncodeToString(pcm),
				MIMEType: protocol.AudioInMIMEType,
			},
		},
	}
	if err := sess.sendJSON(msg); err != nil {
		return core.NewSendError(fmt.Sprintf("send audio chunk: %v", err))
	}
	return nil
}

// SignalActivityStart marks the beginning of user voice activity, for use
// when server-side automatic voice detection is disabled.
func (c *Client) SignalActivityStart() error {
	sess, err := c.currentSession()
	if err != nil {
		return err
	}
	msg := protocol.ClientMessage{
		RealtimeInput: &protocol.RealtimeInput{ActivityStart: &protocol.ActivityStart{}},
	}
	if err := sess.sendJSON(msg); err != nil {
		return core.NewSendError(fmt.Sprintf("signal activity start: %v", err))
	}
	c.mu.Lock()
	c.activityOpen = true
	c.mu.Unlock()
	return nil
}

// SignalActivityEnd marks the end of user voice activity.
func (c *Client) SignalActivityEnd() error {
	sess, err := c.currentSession()
	if err != nil {
		return err
	}
	msg := protocol.ClientMessage{
		RealtimeInput: &protocol.RealtimeInput{ActivityEnd: &protocol.ActivityEnd{}},
	}
	if err := sess.sendJSON(msg); err != nil {
		return core.NewSendError(fmt.Sprintf("signal activity end: %v", err))
	}
	c.mu.Lock()
	c.activityOpen = false
	c.mu.Unlock()
	return nil
}

// SetVoice switches the active voice. A no-op when the voice is unchanged.
// While connected this forces a reconnect with the same credential and the
// new voice; if that reconnect fails the preference rolls back to its
// previous value and the error is surfaced. While disconnected the
// preference is simply recorded for the next Connect.
func (c *Client) SetVoice(ctx context.Context, name string) error {
	if !ValidVoice(name) {
		return &core.Error{Type: core.ErrSend, Message: fmt.Sprintf("unknown voice %q", name), Code: "unknown_voice"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if name == c.voice {
		return nil
	}
	if c.state != StateConnected || c.sess == nil {
		c.voice = name
		c.logger.Info("voice preference recorded for next connect", "voice", name)
		return nil
	}

	previous := c.voice
	c.voice = name
	c.logger.Info("voice changed, reconnecting", "from", previous, "to", name)

	c.disconnectLocked()
	if err := c.connectLocked(ctx, c.credential); err != nil {
		c.voice = previous
		return err
	}
	return nil
}

// currentSession returns the live session or a not-connected error.
func (c *Client) currentSession() (*liveSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || c.state != StateConnected {
		return nil, core.NewNotConnectedError("no live session")
	}
	return c.sess, nil
}
