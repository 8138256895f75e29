package mojo

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sixtyoneeighty/mojolive/pkg/core"
	"github.com/sixtyoneeighty/mojolive/pkg/live/protocol"
)

// liveSession owns one websocket connection. The read loop pushes raw server
// messages onto the FIFO queue; the client's assembler goroutine is the
// single consumer.
type liveSession struct {
	conn *websocket.Conn

	queue chan protocol.ServerMessage
	done  chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	waitMu sync.Mutex
	waiter chan *Turn

	errMu sync.Mutex
	err   error
}

func newLiveSession(conn *websocket.Conn) *liveSession {
	return &liveSession{
		conn:  conn,
		queue: make(chan protocol.ServerMessage, 256),
		done:  make(chan struct{}),
	}
}

func (s *liveSession) sendJSON(v any) error {
	if s.closed.Load() {
		return core.NewNotConnectedError("live session is closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *liveSession) close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
}

func (s *liveSession) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *liveSession) lastErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// registerWaiter installs a one-shot channel that receives the next sealed
// turn. Only one sender awaits a turn at a time; a second registration
// displaces the first.
func (s *liveSession) registerWaiter() chan *Turn {
	ch := make(chan *Turn, 1)
	s.waitMu.Lock()
	s.waiter = ch
	s.waitMu.Unlock()
	return ch
}

func (s *liveSession) cancelWaiter(ch chan *Turn) {
	s.waitMu.Lock()
	if s.waiter == ch {
		s.waiter = nil
	}
	s.waitMu.Unlock()
}

func (s *liveSession) deliverTurn(turn *Turn) {
	s.waitMu.Lock()
	ch := s.waiter
	s.waiter = nil
	s.waitMu.Unlock()
	if ch != nil {
		ch <- turn
	}
}

// failWaiter closes any pending waiter so a blocked SendText fails instead
// of hanging when the transport goes away mid-turn.
func (s *liveSession) failWaiter() {
	s.waitMu.Lock()
	ch := s.waiter
	s.waiter = nil
	s.waitMu.Unlock()
	if ch != nil {
		close(ch)
	}
}

// readLoop delivers inbound frames to the queue in transport order. Malformed
// frames are logged and skipped; the stream stays alive.
func (s *liveSession) readLoop(logger *slog.Logger) {
	defer close(s.queue)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.setErr(err)
			}
			return
		}
		msg, err := protocol.DecodeServerMessage(data)
		if err != nil {
			logger.Warn("dropping malformed server frame", "error", err)
			continue
		}
		s.queue <- msg
	}
}

// Connect establishes a live session using the supplied credential, sending
// the setup block (model, response modality, voice, system instruction,
// context-compaction thresholds) and waiting for the server's
// acknowledgement.
//
// Any previous session is torn down first, discarding its buffered fragments
// and partially assembled turn. On failure the session moves to StateError
// and the error is retained for LastErr.
func (c *Client) Connect(ctx context.Context, credential string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx, credential)
}

func (c *Client) connectLocked(ctx context.Context, credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		err := core.NewConnectionError("credential must not be empty")
		c.state = StateError
		c.lastErr = err
		return err
	}

	if c.sess != nil {
		c.sess.close()
		c.sess = nil
	}
	c.state = StateConnecting
	c.activityOpen = false

	wsURL, err := c.liveEndpoint(credential)
	if err != nil {
		c.state = StateError
		c.lastErr = err
		return err
	}

	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.connectTimeout > 0 {
		dialCtx, cancel = context.WithTimeout(ctx, c.connectTimeout)
		defer cancel()
	}

	dialer := c.dialer
	if dialer == nil {
		dialer = &websocket.Dialer{}
	}

	c.logger.Info("connecting to live endpoint", "model", c.model, "voice", c.voice)
	conn, resp, err := dialer.DialContext(dialCtx, wsURL, nil)
	if err != nil {
		te := &TransportError{Op: "GET", URL: wsURL, Err: err}
		if resp != nil {
			te.Err = fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		connErr := core.NewConnectionError(te.Error())
		c.state = StateError
		c.lastErr = te
		return connErr
	}

	if err := conn.WriteJSON(protocol.ClientMessage{Setup: c.setupLocked()}); err != nil {
		_ = conn.Close()
		connErr := core.NewConnectionError(fmt.Sprintf("send setup: %v", err))
		c.state = StateError
		c.lastErr = connErr
		return connErr
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.connectTimeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		// A close during setup carries the incompatibility reason, e.g. a
		// rejected credential or an unsupported voice configuration.
		connErr := core.NewConnectionErrorWithCode(fmt.Sprintf("setup rejected: %v", err), "setup_rejected")
		c.state = StateError
		c.lastErr = connErr
		return connErr
	}
	_ = conn.SetReadDeadline(time.Time{})

	ack, err := protocol.DecodeServerMessage(payload)
	if err != nil || ack.SetupComplete == nil {
		_ = conn.Close()
		connErr := core.NewConnectionErrorWithCode("setup was not acknowledged", "no_setup_complete")
		c.state = StateError
		c.lastErr = connErr
		return connErr
	}

	sess := newLiveSession(conn)
	c.sess = sess
	c.state = StateConnected
	c.credential = credential
	c.lastErr = nil

	go sess.readLoop(c.logger)
	go c.assemble(sess)

	c.logger.Info("live session established", "voice", c.voice)
	return nil
}

// Disconnect closes the live session if one is open and releases all
// session-scoped buffers. Idempotent; safe to call when already disconnected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectLocked()
}

func (c *Client) disconnectLocked() {
	if c.sess != nil {
		c.sess.close()
		c.sess = nil
	}
	c.activityOpen = false
	c.state = StateDisconnected
}

// setupLocked builds the initial configuration block from the accumulated
// client configuration. Caller holds c.mu.
func (c *Client) setupLocked() *protocol.Setup {
	setup := &protocol.Setup{
		Model: c.model,
		GenerationConfig: &protocol.GenerationConfig{
			ResponseModalities: c.modalities,
			SpeechConfig: &protocol.SpeechConfig{
				VoiceConfig: &protocol.VoiceConfig{
					PrebuiltVoiceConfig: &protocol.PrebuiltVoiceConfig{VoiceName: c.voice},
				},
			},
		},
		RealtimeInputConfig: &protocol.RealtimeInputConfig{
			TurnCoverage: protocol.TurnCoverageAllInput,
		},
	}
	if c.systemPrompt != "" {
		setup.SystemInstruction = &protocol.Content{
			Parts: []protocol.Part{{Text: c.systemPrompt}},
		}
	}
	if c.compressionTrigger > 0 {
		setup.ContextWindowCompression = &protocol.ContextWindowCompression{
			TriggerTokens: fmt.Sprintf("%d", c.compressionTrigger),
		}
		if c.compressionTarget > 0 {
			setup.ContextWindowCompression.SlidingWindow = &protocol.SlidingWindow{
				TargetTokens: fmt.Sprintf("%d", c.compressionTarget),
			}
		}
	}
	return setup
}

// liveEndpoint builds the websocket URL, converting http(s) base URLs to
// their websocket schemes. The credential rides as a query parameter and is
// redacted from anything user-visible.
func (c *Client) liveEndpoint(credential string) (string, error) {
	base := c.baseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", core.NewConnectionError("invalid live base URL")
	}
	switch strings.ToLower(strings.TrimSpace(u.Scheme)) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// already websocket scheme.
	default:
		return "", core.NewConnectionError("live base URL must use http(s) or ws(s)")
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = livePath
	}
	query := u.Query()
	query.Set("key", credential)
	u.RawQuery = query.Encode()
	return u.String(), nil
}
