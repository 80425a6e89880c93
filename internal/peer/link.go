package peer

import (
	"sync"

	"github.com/pion/webrtc/v4"
)

// NegotiationState is the explicit state of one peer link's offer/answer
// exchange. Modelling it as a small state machine (rather than flags) keeps
// out-of-order signaling auditable.
type NegotiationState int

const (
	StateNone NegotiationState = iota
	StateOfferSent
	StateOfferReceived
	StateAnswerSent
	StateAnswerReceived
	StateEstablished
)

// String returns the string representation of NegotiationState.
func (s NegotiationState) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateOfferSent:
		return "offer-sent"
	case StateOfferReceived:
		return "offer-received"
	case StateAnswerSent:
		return "answer-sent"
	case StateAnswerReceived:
		return "answer-received"
	case StateEstablished:
		return "established"
	default:
		return "unknown"
	}
}

// Link is one negotiating or negotiated media channel to a single remote
// connection. ICE candidates that arrive before the remote description is
// set are buffered in order and applied once it is; duplicates are dropped.
type Link struct {
	remoteID string
	pc       *webrtc.PeerConnection

	mu        sync.Mutex
	state     NegotiationState
	remoteSet bool
	pending   []webrtc.ICECandidateInit
}

func newLink(remoteID string, pc *webrtc.PeerConnection) *Link {
	return &Link{remoteID: remoteID, pc: pc}
}

// RemoteID returns the remote connection id this link negotiates with.
func (l *Link) RemoteID() string {
	return l.remoteID
}

// State returns the link's negotiation state.
func (l *Link) State() NegotiationState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Link) setState(s NegotiationState) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// AddCandidate applies the candidate immediately when the remote
// description is set, otherwise buffers it. Re-adding a buffered candidate
// is a no-op.
func (l *Link) AddCandidate(c webrtc.ICECandidateInit) error {
	l.mu.Lock()
	if !l.remoteSet {
		for _, p := range l.pending {
			if p.Candidate == c.Candidate {
				l.mu.Unlock()
				return nil
			}
		}
		l.pending = append(l.pending, c)
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()
	return l.pc.AddICECandidate(c)
}

// PendingCandidates returns the number of buffered candidates.
func (l *Link) PendingCandidates() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// setRemoteDescription applies desc and flushes buffered candidates in
// arrival order.
func (l *Link) setRemoteDescription(desc webrtc.SessionDescription) error {
	if err := l.pc.SetRemoteDescription(desc); err != nil {
		return err
	}

	l.mu.Lock()
	pending := l.pending
	l.pending = nil
	l.remoteSet = true
	l.mu.Unlock()

	for _, c := range pending {
		if err := l.pc.AddICECandidate(c); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the link's peer connection.
func (l *Link) Close() error {
	return l.pc.Close()
}
