package mojo

import (
	"encoding/base64"
	"strings"

	"github.com/sixtyoneeighty/mojolive/pkg/live/protocol"
)

// Fragment is one decoded unit of the model's streamed reply: optional text,
// optional binary payload with its MIME tag, an optional external file
// reference, and the turn-completion flag.
type Fragment struct {
	Text         string
	Data         []byte
	MIMEType     string
	FileURI      string
	TurnComplete bool
}

// Empty reports whether the fragment carries no content at all. Empty
// fragments are decoded but never published to subscribers.
func (f Fragment) Empty() bool {
	return f.Text == "" && len(f.Data) == 0 && f.FileURI == ""
}

// Turn is one complete logical reply from the model: an ordered fragment
// sequence ending in, and including, the fragment whose completion flag is
// set.
type Turn struct {
	Fragments []Fragment
}

// Text returns the turn's text fragments concatenated in arrival order.
func (t *Turn) Text() string {
	var b strings.Builder
	for _, frag := range t.Fragments {
		b.WriteString(frag.Text)
	}
	return b.String()
}

// PCM returns the turn's raw audio payload: every fragment's inline data
// whose MIME tag indicates raw PCM, concatenated in arrival order.
func (t *Turn) PCM() []byte {
	var out []byte
	for _, frag := range t.Fragments {
		if len(frag.Data) > 0 && IsRawPCM(frag.MIMEType) {
			out = append(out, frag.Data...)
		}
	}
	return out
}

// WAV returns the turn's audio wrapped in a canonical WAV header at the
// provider's fixed output rate, or nil when the turn carried no PCM audio.
func (t *Turn) WAV() []byte {
	pcm := t.PCM()
	if len(pcm) == 0 {
		return nil
	}
	rate := LiveOutputSampleRate
	for _, frag := range t.Fragments {
		if len(frag.Data) > 0 && IsRawPCM(frag.MIMEType) {
			rate = SampleRateFromMIME(frag.MIMEType, LiveOutputSampleRate)
			break
		}
	}
	return PCMToWAV(pcm, rate, 16, 1)
}

// decodeFragment extracts text, inline payload, and file references from one
// server content frame. An undecodable inline payload is logged and dropped;
// the rest of the fragment survives.
func (c *Client) decodeFragment(sc *protocol.ServerContent) Fragment {
	frag := Fragment{TurnComplete: sc.TurnComplete}
	if sc.ModelTurn == nil {
		return frag
	}
	var text strings.Builder
	for _, part := range sc.ModelTurn.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.InlineData != nil && part.InlineData.Data != "" && len(frag.Data) == 0 {
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				c.logger.Warn("dropping undecodable inline payload",
					"mime_type", part.InlineData.MIMEType, "error", err)
				continue
			}
			frag.Data = data
			frag.MIMEType = part.InlineData.MIMEType
		}
		if part.FileData != nil && part.FileData.FileURI != "" && frag.FileURI == "" {
			frag.FileURI = part.FileData.FileURI
		}
	}
	frag.Text = text.String()
	return frag
}

// assemble is the single consumer for one session's fragment queue. It
// publishes each non-empty fragment as it is decoded, accumulates fragments
// into the current turn, and seals the turn when the completion flag
// arrives. When the transport closes mid-turn the partial accumulator is
// discarded and any blocked sender is failed rather than left hanging.
func (c *Client) assemble(sess *liveSession) {
	defer close(sess.done)

	acc := &Turn{}
	for msg := range sess.queue {
		if msg.GoAway != nil {
			c.logger.Warn("server going away", "time_left", msg.GoAway.TimeLeft)
			continue
		}
		if msg.ServerContent == nil {
			continue
		}

		frag := c.decodeFragment(msg.ServerContent)
		if !frag.Empty() {
			c.publishFragment(frag)
		}
		acc.Fragments = append(acc.Fragments, frag)

		if frag.TurnComplete {
			turn := acc
			acc = &Turn{}
			if text := turn.Text(); text != "" {
				c.transcript.Append(text, false)
			}
			c.publishTurn(turn)
			sess.deliverTurn(turn)
		}
	}

	sess.failWaiter()

	c.mu.Lock()
	if c.sess == sess {
		c.sess = nil
		c.activityOpen = false
		if c.state == StateConnected || c.state == StateConnecting {
			c.state = StateDisconnected
		}
		if err := sess.lastErr(); err != nil {
			c.lastErr = err
			c.logger.Warn("live session ended unexpectedly", "error", err)
		}
	}
	c.mu.Unlock()
}
