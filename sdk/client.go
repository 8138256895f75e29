// Package mojo provides a Go client for the Gemini Live duplex API: a
// session client that owns at most one websocket connection, streams user
// text/audio/video input to the model, and reassembles the model's streamed
// fragments into discrete turns.
package mojo

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sixtyoneeighty/mojolive/pkg/live/protocol"
)

const (
	// DefaultBaseURL is the hosted live endpoint.
	DefaultBaseURL = "wss://generativelanguage.googleapis.com"

	// livePath is the bidirectional generate-content websocket path.
	livePath = "/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	defaultConnectTimeout = 15 * time.Second
	defaultTurnTimeout    = 90 * time.Second

	// Default context-compaction thresholds, in tokens.
	defaultCompressionTrigger = 25600
	defaultCompressionTarget  = 12800
)

// ConnState is the session lifecycle state.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateError        ConnState = "error"
)

// Client manages the lifecycle of a live session and translates
// application-level intents into provider wire calls.
//
// At most one live session exists per Client; Connect tears down any
// previous session first. Lifecycle operations (Connect, Disconnect,
// SetVoice) serialize on an internal mutex, so concurrent callers queue
// rather than race.
type Client struct {
	model              string
	baseURL            string
	systemPrompt       string
	modalities         []string
	compressionTrigger int
	compressionTarget  int
	dialer             *websocket.Dialer
	logger             *slog.Logger
	turnTimeout        time.Duration
	connectTimeout     time.Duration

	mu           sync.Mutex
	state        ConnState
	sess         *liveSession
	credential   string
	voice        string
	lastErr      error
	activityOpen bool

	subMu     sync.Mutex
	fragSubs  []subscriber[Fragment]
	turnSubs  []subscriber[*Turn]
	nextSubID int64

	transcript *Transcript
}

type subscriber[T any] struct {
	id int64
	fn func(T)
}

// NewClient creates a disconnected client with the given options applied.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		model:              protocol.DefaultModel,
		baseURL:            DefaultBaseURL,
		systemPrompt:       DefaultSystemPrompt,
		modalities:         []string{protocol.ModalityAudio},
		compressionTrigger: defaultCompressionTrigger,
		compressionTarget:  defaultCompressionTarget,
		logger:             slog.Default(),
		turnTimeout:        defaultTurnTimeout,
		connectTimeout:     defaultConnectTimeout,
		state:              StateDisconnected,
		voice:              DefaultVoice,
		transcript:         NewTranscript(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialer == nil {
		c.dialer = websocket.DefaultDialer
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// State returns the current session lifecycle state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Voice returns the active voice preference.
func (c *Client) Voice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.voice
}

// LastErr returns the most recent session-level error, for observability.
// Per-send errors are returned to their call sites and are not recorded here.
func (c *Client) LastErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Transcript returns the append-only in-memory message log.
func (c *Client) Transcript() *Transcript {
	return c.transcript
}

// Stats is a point-in-time observability snapshot.
type Stats struct {
	State          ConnState
	Voice          string
	QueueDepth     int
	Subscribers    int
	TranscriptLen  int
	HasCredential  bool
	ActivityWindow bool
}

// Stats reports the current session state for debugging surfaces.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	queueDepth := 0
	if c.sess != nil {
		queueDepth = len(c.sess.queue)
	}
	s := Stats{
		State:          c.state,
		Voice:          c.voice,
		QueueDepth:     queueDepth,
		HasCredential:  c.credential != "",
		ActivityWindow: c.activityOpen,
	}
	c.mu.Unlock()

	c.subMu.Lock()
	s.Subscribers = len(c.fragSubs) + len(c.turnSubs)
	c.subMu.Unlock()

	s.TranscriptLen = c.transcript.Len()
	return s
}

// OnMessage registers a subscriber invoked once per decoded fragment that
// carries new text or audio, enabling progressive rendering. The returned
// function removes exactly that registration and is safe to call repeatedly.
//
// A panicking callback is logged and does not prevent other callbacks from
// running.
func (c *Client) OnMessage(fn func(Fragment)) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.nextSubID++
	id := c.nextSubID
	c.fragSubs = append(c.fragSubs, subscriber[Fragment]{id: id, fn: fn})
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		for i, sub := range c.fragSubs {
			if sub.id == id {
				c.fragSubs = append(c.fragSubs[:i], c.fragSubs[i+1:]...)
				return
			}
		}
	}
}

// OnTurn registers a subscriber invoked once per sealed turn, after the
// fragment carrying the completion flag has been appended.
func (c *Client) OnTurn(fn func(*Turn)) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.nextSubID++
	id := c.nextSubID
	c.turnSubs = append(c.turnSubs, subscriber[*Turn]{id: id, fn: fn})
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		for i, sub := range c.turnSubs {
			if sub.id == id {
				c.turnSubs = append(c.turnSubs[:i], c.turnSubs[i+1:]...)
				return
			}
		}
	}
}

func (c *Client) publishFragment(frag Fragment) {
	c.subMu.Lock()
	subs := make([]subscriber[Fragment], len(c.fragSubs))
	copy(subs, c.fragSubs)
	c.subMu.Unlock()

	for _, sub := range subs {
		c.safeInvoke(func() { sub.fn(frag) })
	}
}

func (c *Client) publishTurn(turn *Turn) {
	c.subMu.Lock()
	subs := make([]subscriber[*Turn], len(c.turnSubs))
	copy(subs, c.turnSubs)
	c.subMu.Unlock()

	for _, sub := range subs {
		c.safeInvoke(func() { sub.fn(turn) })
	}
}

// safeInvoke traps a subscriber panic so the dispatch loop survives.
func (c *Client) safeInvoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("message subscriber panicked", "panic", r)
		}
	}()
	fn()
}
