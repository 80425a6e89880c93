// Package peer implements the client-side connection lifecycle: one
// negotiation record per remote peer, driven by relayed signaling messages
// and local role events.
package peer

import (
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	pkglog "github.com/eldrgeek/frontrow/pkg/log"
)

// Signaler relays local negotiation messages to a specific remote
// connection. Implemented by the websocket signaling client.
type Signaler interface {
	SendOffer(targetID string, sdp webrtc.SessionDescription) error
	SendAnswer(targetID string, sdp webrtc.SessionDescription) error
	SendCandidate(targetID string, candidate webrtc.ICECandidateInit) error
}

// manager holds the per-remote links common to both roles. Each link is
// only ever touched by the one manager that owns it; peers coordinate
// exclusively through relayed messages.
type manager struct {
	signaler   Signaler
	iceServers []webrtc.ICEServer
	log        zerolog.Logger

	mu    sync.Mutex
	links map[string]*Link
}

func newManager(signaler Signaler, iceServers []webrtc.ICEServer, logger zerolog.Logger) manager {
	return manager{
		signaler:   signaler,
		iceServers: iceServers,
		log:        logger,
		links:      make(map[string]*Link),
	}
}

// Link returns the link for a remote connection, if one exists.
func (m *manager) Link(remoteID string) (*Link, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[remoteID]
	return l, ok
}

// HandleCandidate buffers or applies a relayed ICE candidate. Candidates
// for an unknown remote are dropped: they belong to a link that was torn
// down or never accepted.
func (m *manager) HandleCandidate(remoteID string, candidate webrtc.ICECandidateInit) {
	link, ok := m.Link(remoteID)
	if !ok {
		m.log.Debug().Str(pkglog.FieldTarget, remoteID).Msg("candidate for unknown peer dropped")
		return
	}
	if err := link.AddCandidate(candidate); err != nil {
		m.log.Warn().Err(err).Str(pkglog.FieldTarget, remoteID).Msg("failed to add ice candidate")
	}
}

// DropPeer disposes the link to remoteID. Safe when none exists. There is
// no renegotiation: a new link requires a fresh offer cycle.
func (m *manager) DropPeer(remoteID string) {
	m.mu.Lock()
	link, ok := m.links[remoteID]
	delete(m.links, remoteID)
	m.mu.Unlock()

	if !ok {
		return
	}
	if err := link.Close(); err != nil {
		m.log.Warn().Err(err).Str(pkglog.FieldTarget, remoteID).Msg("error closing peer link")
	}
	m.log.Info().Str(pkglog.FieldTarget, remoteID).Msg("peer link dropped")
}

// Teardown disposes every link. Safe to call with none open.
func (m *manager) Teardown() {
	m.mu.Lock()
	links := m.links
	m.links = make(map[string]*Link)
	m.mu.Unlock()

	for remoteID, link := range links {
		if err := link.Close(); err != nil {
			m.log.Warn().Err(err).Str(pkglog.FieldTarget, remoteID).Msg("error closing peer link")
		}
	}
	if len(links) > 0 {
		m.log.Info().Int("count", len(links)).Msg("peer links torn down")
	}
}

// LinkCount returns the number of open links.
func (m *manager) LinkCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links)
}

// watchConnectionState tears the link down once its transport fails or
// closes; recovery comes from a fresh offer cycle, never renegotiation.
func (m *manager) watchConnectionState(remoteID string, pc *webrtc.PeerConnection) {
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		m.log.Debug().
			Str(pkglog.FieldTarget, remoteID).
			Str("connection_state", state.String()).
			Msg("peer connection state changed")
		if state == webrtc.PeerConnectionStateFailed || state == webrtc.PeerConnectionStateClosed {
			m.DropPeer(remoteID)
		}
	})
}
