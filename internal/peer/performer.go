package peer

import (
	"fmt"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	pkglog "github.com/eldrgeek/frontrow/pkg/log"
)

// Performer originates one peer link per audience connection the server
// announces. It owns the local media tracks and the offer side of every
// negotiation.
type Performer struct {
	manager
	tracks []webrtc.TrackLocal
}

// NewPerformer creates a performer-role lifecycle manager broadcasting the
// given local tracks.
func NewPerformer(signaler Signaler, tracks []webrtc.TrackLocal, iceServers []webrtc.ICEServer, logger zerolog.Logger) *Performer {
	return &Performer{
		manager: newManager(signaler, iceServers, logger),
		tracks:  tracks,
	}
}

// EnsureLink originates a link to remoteID: create the peer connection,
// attach the local tracks, and relay an offer. An existing link is left
// untouched, so repeated announcements for the same remote are idempotent.
func (p *Performer) EnsureLink(remoteID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.links[remoteID]; ok {
		return nil
	}

	pc, err := newPeerConnection(p.iceServers)
	if err != nil {
		return fmt.Errorf("create peer connection: %w", err)
	}

	for _, track := range p.tracks {
		if _, err := pc.AddTrack(track); err != nil {
			pc.Close()
			return fmt.Errorf("add track: %w", err)
		}
	}

	link := newLink(remoteID, pc)

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		if err := p.signaler.SendCandidate(remoteID, c.ToJSON()); err != nil {
			p.log.Warn().Err(err).Str(pkglog.FieldTarget, remoteID).Msg("failed to relay ice candidate")
		}
	})
	p.watchConnectionState(remoteID, pc)

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		return fmt.Errorf("create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		pc.Close()
		return fmt.Errorf("set local description: %w", err)
	}

	link.setState(StateOfferSent)
	p.links[remoteID] = link

	if err := p.signaler.SendOffer(remoteID, offer); err != nil {
		return fmt.Errorf("relay offer: %w", err)
	}
	p.log.Info().Str(pkglog.FieldTarget, remoteID).Msg("offer sent")
	return nil
}

// HandleAnswer completes negotiation for a link awaiting its answer.
// An answer for an unknown remote or a link in any other state is dropped
// with a diagnostic; the relay forwards without checking legality, so this
// is where that check lives.
func (p *Performer) HandleAnswer(remoteID string, sdp webrtc.SessionDescription) error {
	link, ok := p.Link(remoteID)
	if !ok {
		p.log.Debug().Str(pkglog.FieldTarget, remoteID).Msg("answer from unknown peer dropped")
		return nil
	}
	if state := link.State(); state != StateOfferSent {
		p.log.Debug().
			Str(pkglog.FieldTarget, remoteID).
			Str("negotiation_state", state.String()).
			Msg("answer in unexpected state dropped")
		return nil
	}

	link.setState(StateAnswerReceived)
	if err := link.setRemoteDescription(sdp); err != nil {
		return fmt.Errorf("apply answer: %w", err)
	}
	link.setState(StateEstablished)
	p.log.Info().Str(pkglog.FieldTarget, remoteID).Msg("peer link established")
	return nil
}
