package mojo

import (
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/sixtyoneeighty/mojolive/pkg/live/protocol"
)

func textFragment(text string, complete bool) protocol.ServerMessage {
	return protocol.ServerMessage{
		ServerContent: &protocol.ServerContent{
			TurnComplete: complete,
			ModelTurn:    &protocol.ModelTurn{Parts: []protocol.Part{{Text: text}}},
		},
	}
}

// runAssembler feeds the messages through a detached assembler loop and
// returns once it has drained them all.
func runAssembler(t *testing.T, c *Client, msgs []protocol.ServerMessage) *liveSession {
	t.Helper()
	sess := &liveSession{
		queue: make(chan protocol.ServerMessage, len(msgs)+1),
		done:  make(chan struct{}),
	}
	for _, msg := range msgs {
		sess.queue <- msg
	}
	close(sess.queue)
	go c.assemble(sess)
	select {
	case <-sess.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("assembler did not drain queue")
	}
	return sess
}

func TestTurnSealedOnCompletionFlag(t *testing.T) {
	c := NewClient(WithLogger(testLogger(t)))

	var mu sync.Mutex
	var turns []*Turn
	c.OnTurn(func(turn *Turn) {
		mu.Lock()
		turns = append(turns, turn)
		mu.Unlock()
	})

	runAssembler(t, c, []protocol.ServerMessage{
		textFragment("Hi", false),
		textFragment(" there", true),
	})

	mu.Lock()
	defer mu.Unlock()
	if len(turns) != 1 {
		t.Fatalf("turns=%d want 1", len(turns))
	}
	turn := turns[0]
	if len(turn.Fragments) != 2 {
		t.Fatalf("fragments=%d want 2", len(turn.Fragments))
	}
	if got := turn.Text(); got != "Hi there" {
		t.Fatalf("turn text=%q", got)
	}
	if turn.Fragments[0].TurnComplete || !turn.Fragments[1].TurnComplete {
		t.Fatalf("completion flag must sit on the final fragment only")
	}
}

func TestFragmentsPublishedInArrivalOrder(t *testing.T) {
	c := NewClient(WithLogger(testLogger(t)))

	var mu sync.Mutex
	var seen []string
	c.OnMessage(func(frag Fragment) {
		mu.Lock()
		seen = append(seen, frag.Text)
		mu.Unlock()
	})

	msgs := []protocol.ServerMessage{
		textFragment("a", false),
		textFragment("b", false),
		textFragment("c", false),
		textFragment("d", true),
	}
	runAssembler(t, c, msgs)

	mu.Lock()
	defer mu.Unlock()
	want := []string{"a", "b", "c", "d"}
	if len(seen) != len(want) {
		t.Fatalf("published=%v want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("published=%v want %v", seen, want)
		}
	}
}

func TestEmptyFragmentProducesNoNotification(t *testing.T) {
	c := NewClient(WithLogger(testLogger(t)))

	var mu sync.Mutex
	published := 0
	c.OnMessage(func(Fragment) {
		mu.Lock()
		published++
		mu.Unlock()
	})
	var sealed *Turn
	c.OnTurn(func(turn *Turn) {
		mu.Lock()
		sealed = turn
		mu.Unlock()
	})

	runAssembler(t, c, []protocol.ServerMessage{
		{ServerContent: &protocol.ServerContent{}}, // neither text nor payload
		textFragment("done", true),
	})

	mu.Lock()
	defer mu.Unlock()
	if published != 1 {
		t.Fatalf("published=%d want 1 (empty fragment is a silent no-op)", published)
	}
	if sealed == nil || len(sealed.Fragments) != 2 {
		t.Fatalf("empty fragment still belongs to the turn: %+v", sealed)
	}
}

func TestUndecodableInlinePayloadIsDropped(t *testing.T) {
	c := NewClient(WithLogger(testLogger(t)))

	var mu sync.Mutex
	var frags []Fragment
	c.OnMessage(func(frag Fragment) {
		mu.Lock()
		frags = append(frags, frag)
		mu.Unlock()
	})

	runAssembler(t, c, []protocol.ServerMessage{
		{ServerContent: &protocol.ServerContent{
			TurnComplete: true,
			ModelTurn: &protocol.ModelTurn{Parts: []protocol.Part{
				{Text: "still here"},
				{InlineData: &protocol.Blob{Data: "!!!not-base64!!!", MIMEType: "audio/pcm;rate=24000"}},
			}},
		}},
	})

	mu.Lock()
	defer mu.Unlock()
	if len(frags) != 1 {
		t.Fatalf("fragments=%d want 1", len(frags))
	}
	if frags[0].Text != "still here" {
		t.Fatalf("text=%q", frags[0].Text)
	}
	if len(frags[0].Data) != 0 {
		t.Fatalf("undecodable payload must be dropped, got %d bytes", len(frags[0].Data))
	}
}

func TestAudioPartsAccumulateAcrossTurn(t *testing.T) {
	c := NewClient(WithLogger(testLogger(t)))

	chunk := func(pcm []byte, complete bool) protocol.ServerMessage {
		return protocol.ServerMessage{
			ServerContent: &protocol.ServerContent{
				TurnComplete: complete,
				ModelTurn: &protocol.ModelTurn{Parts: []protocol.Part{
					{InlineData: &protocol.Blob{
						Data:     base64.StdEncoding.EncodeToString(pcm),
						MIMEType: "audio/pcm;rate=24000",
					}},
				}},
			},
		}
	}

	var mu sync.Mutex
	var sealed *Turn
	c.OnTurn(func(turn *Turn) {
		mu.Lock()
		sealed = turn
		mu.Unlock()
	})

	runAssembler(t, c, []protocol.ServerMessage{
		chunk([]byte{1, 2}, false),
		chunk([]byte{3, 4}, true),
	})

	mu.Lock()
	defer mu.Unlock()
	if sealed == nil {
		t.Fatalf("no sealed turn")
	}
	pcm := sealed.PCM()
	if want := []byte{1, 2, 3, 4}; string(pcm) != string(want) {
		t.Fatalf("pcm=%v want %v", pcm, want)
	}
	wav := sealed.WAV()
	if len(wav) != 44+4 {
		t.Fatalf("wav length=%d want %d", len(wav), 44+4)
	}
}

func TestSeparateTurnsFromOneStream(t *testing.T) {
	c := NewClient(WithLogger(testLogger(t)))

	var mu sync.Mutex
	var texts []string
	c.OnTurn(func(turn *Turn) {
		mu.Lock()
		texts = append(texts, turn.Text())
		mu.Unlock()
	})

	runAssembler(t, c, []protocol.ServerMessage{
		textFragment("first", true),
		textFragment("sec", false),
		textFragment("ond", true),
	})

	mu.Lock()
	defer mu.Unlock()
	if len(texts) != 2 || texts[0] != "first" || texts[1] != "second" {
		t.Fatalf("turn texts=%v", texts)
	}
}

func TestPartialTurnDiscardedOnTransportClose(t *testing.T) {
	c := NewClient(WithLogger(testLogger(t)))

	var mu sync.Mutex
	sealedTurns := 0
	c.OnTurn(func(*Turn) {
		mu.Lock()
		sealedTurns++
		mu.Unlock()
	})

	sess := &liveSession{
		queue: make(chan protocol.ServerMessage, 4),
		done:  make(chan struct{}),
	}
	waiter := sess.registerWaiter()
	sess.queue <- textFragment("never finished", false)
	close(sess.queue) // transport gone mid-turn
	go c.assemble(sess)

	select {
	case _, ok := <-waiter:
		if ok {
			t.Fatalf("waiter must be failed, not satisfied with a partial turn")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("waiter still blocked after transport close")
	}

	<-sess.done
	mu.Lock()
	defer mu.Unlock()
	if sealedTurns != 0 {
		t.Fatalf("partial turn must not be replayed as a sealed turn")
	}
}

func TestModelTurnTextRecordedInTranscript(t *testing.T) {
	c := NewClient(WithLogger(testLogger(t)))
	runAssembler(t, c, []protocol.ServerMessage{textFragment("reply", true)})

	entries := c.Transcript().Entries()
	if len(entries) != 1 {
		t.Fatalf("entries=%d want 1", len(entries))
	}
	if entries[0].IsUser || entries[0].Content != "reply" {
		t.Fatalf("entry=%+v", entries[0])
	}
	if entries[0].ID == "" {
		t.Fatalf("entry needs an ID")
	}
}
