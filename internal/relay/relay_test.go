package relay

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldrgeek/frontrow/internal/domain"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    map[string][]*domain.SignalMessage
	offline map[string]bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		sent:    make(map[string][]*domain.SignalMessage),
		offline: make(map[string]bool),
	}
}

func (f *fakeSender) Send(connID string, msg interface{}) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline[connID] {
		return false
	}
	f.sent[connID] = append(f.sent[connID], msg.(*domain.SignalMessage))
	return true
}

func TestForwardAnnotatesSender(t *testing.T) {
	sender := newFakeSender()
	r := New(sender, zerolog.Nop())

	payload := json.RawMessage(`{"sdp":"v=0...","type":"offer"}`)
	r.Forward("conn-a", &domain.SignalMessage{
		Type:               domain.MsgTypeOffer,
		Payload:            payload,
		TargetConnectionID: "conn-b",
	})

	require.Len(t, sender.sent["conn-b"], 1)
	got := sender.sent["conn-b"][0]
	assert.Equal(t, domain.MsgTypeOffer, got.Type)
	assert.Equal(t, "conn-a", got.SenderConnectionID)
	assert.Empty(t, got.TargetConnectionID)
	// The payload passes through untouched.
	assert.JSONEq(t, string(payload), string(got.Payload))
}

func TestForwardDropsWithoutTarget(t *testing.T) {
	sender := newFakeSender()
	r := New(sender, zerolog.Nop())

	r.Forward("conn-a", &domain.SignalMessage{Type: domain.MsgTypeICECandidate})

	assert.Empty(t, sender.sent)
}

func TestForwardDropsUnreachableTarget(t *testing.T) {
	sender := newFakeSender()
	sender.offline["conn-gone"] = true
	r := New(sender, zerolog.Nop())

	r.Forward("conn-a", &domain.SignalMessage{
		Type:               domain.MsgTypeAnswer,
		TargetConnectionID: "conn-gone",
	})

	assert.Empty(t, sender.sent["conn-gone"])
}
