package peer

import (
	"fmt"
	"sync/atomic"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	pkglog "github.com/eldrgeek/frontrow/pkg/log"
)

// TrackHandler is called when the performer's media arrives.
type TrackHandler func(remoteID string, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)

// Audience answers offers from the performer. It never originates a link:
// an offer is only accepted while the local connection holds a seat and no
// link to the offerer exists yet.
type Audience struct {
	manager
	seated  atomic.Bool
	onTrack TrackHandler
}

// NewAudience creates an audience-role lifecycle manager.
func NewAudience(signaler Signaler, iceServers []webrtc.ICEServer, onTrack TrackHandler, logger zerolog.Logger) *Audience {
	return &Audience{
		manager: newManager(signaler, iceServers, logger),
		onTrack: onTrack,
	}
}

// SetSeated records whether the local connection holds a seat. Losing the
// seat does not tear down established links; it only stops new offers from
// being accepted.
func (a *Audience) SetSeated(seated bool) {
	a.seated.Store(seated)
}

// Seated reports whether the local connection holds a seat.
func (a *Audience) Seated() bool {
	return a.seated.Load()
}

// HandleOffer answers an offer from remoteID. An offer arriving outside
// the acceptance preconditions is dropped with a diagnostic, not an error:
// the performer will retry via a fresh cycle if it matters.
func (a *Audience) HandleOffer(remoteID string, sdp webrtc.SessionDescription) error {
	if !a.seated.Load() {
		a.log.Debug().Str(pkglog.FieldTarget, remoteID).Msg("offer dropped: not seated")
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.links[remoteID]; ok {
		a.log.Debug().Str(pkglog.FieldTarget, remoteID).Msg("offer dropped: link already exists")
		return nil
	}

	pc, err := newPeerConnection(a.iceServers)
	if err != nil {
		return fmt.Errorf("create peer connection: %w", err)
	}

	link := newLink(remoteID, pc)

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		a.log.Info().
			Str(pkglog.FieldTarget, remoteID).
			Str("codec", track.Codec().MimeType).
			Msg("remote track received")
		if a.onTrack != nil {
			a.onTrack(remoteID, track, receiver)
		}
	})
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		if err := a.signaler.SendCandidate(remoteID, c.ToJSON()); err != nil {
			a.log.Warn().Err(err).Str(pkglog.FieldTarget, remoteID).Msg("failed to relay ice candidate")
		}
	})
	a.watchConnectionState(remoteID, pc)

	link.setState(StateOfferReceived)
	if err := link.setRemoteDescription(sdp); err != nil {
		pc.Close()
		return fmt.Errorf("apply offer: %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		return fmt.Errorf("create answer: %w", err)
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		return fmt.Errorf("set local description: %w", err)
	}

	link.setState(StateAnswerSent)
	a.links[remoteID] = link

	if err := a.signaler.SendAnswer(remoteID, answer); err != nil {
		return fmt.Errorf("relay answer: %w", err)
	}
	link.setState(StateEstablished)
	a.log.Info().Str(pkglog.FieldTarget, remoteID).Msg("peer link established")
	return nil
}
