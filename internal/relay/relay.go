// Package relay forwards negotiation payloads between peers without
// interpreting them.
package relay

import (
	"github.com/rs/zerolog"

	"github.com/eldrgeek/frontrow/internal/domain"
	"github.com/eldrgeek/frontrow/internal/metrics"
	pkglog "github.com/eldrgeek/frontrow/pkg/log"
)

// Sender is the slice of the hub the relay needs.
type Sender interface {
	Send(connID string, msg interface{}) bool
}

// Relay is a stateless forwarder for offer, answer and ice-candidate
// messages. It validates only that the target is a live connection;
// negotiation legality is each peer's own concern.
type Relay struct {
	sender Sender
	log    zerolog.Logger
}

// New creates a Relay.
func New(sender Sender, logger zerolog.Logger) *Relay {
	return &Relay{sender: sender, log: logger}
}

// Forward delivers msg to its target, annotated with the sender's
// connection id so the receiver can associate the reply with the right peer
// link. An unreachable target drops the message: negotiation traffic is
// fire-and-forget, never queued.
func (r *Relay) Forward(senderID string, msg *domain.SignalMessage) {
	if msg.TargetConnectionID == "" {
		metrics.SignalsDropped.WithLabelValues(msg.Type).Inc()
		r.log.Warn().
			Str(pkglog.FieldConnID, senderID).
			Str(pkglog.FieldMsgType, msg.Type).
			Msg("signal without target dropped")
		return
	}

	out := &domain.SignalMessage{
		Type:               msg.Type,
		Payload:            msg.Payload,
		SenderConnectionID: senderID,
	}
	if !r.sender.Send(msg.TargetConnectionID, out) {
		metrics.SignalsDropped.WithLabelValues(msg.Type).Inc()
		r.log.Warn().
			Str(pkglog.FieldConnID, senderID).
			Str(pkglog.FieldTarget, msg.TargetConnectionID).
			Str(pkglog.FieldMsgType, msg.Type).
			Msg("signal target not connected, dropped")
		return
	}

	metrics.SignalsRelayed.WithLabelValues(msg.Type).Inc()
	r.log.Debug().
		Str(pkglog.FieldConnID, senderID).
		Str(pkglog.FieldTarget, msg.TargetConnectionID).
		Str(pkglog.FieldMsgType, msg.Type).
		Msg("signal relayed")
}
