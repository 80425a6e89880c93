// Package client is a headless signaling client: it speaks the server's
// websocket protocol and drives one role's peer lifecycle manager, standing
// in for the browser front-end at the signaling level.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/eldrgeek/frontrow/internal/domain"
	"github.com/eldrgeek/frontrow/internal/peer"
	pkglog "github.com/eldrgeek/frontrow/pkg/log"
)

// Role selects which lifecycle manager the client runs.
type Role string

const (
	RolePerformer Role = "performer"
	RoleAudience  Role = "audience"
)

// Options configures a Client.
type Options struct {
	// URL is the server websocket endpoint, e.g. ws://localhost:3001/ws.
	URL string
	// Role selects performer or audience behaviour.
	Role Role
	// Tracks are the local media tracks a performer broadcasts.
	Tracks []webrtc.TrackLocal
	// ICEServers configure the underlying peer connections.
	ICEServers []webrtc.ICEServer
	// OnTrack receives the performer's media (audience role).
	OnTrack peer.TrackHandler
	// Logger defaults to the global logger.
	Logger *zerolog.Logger
}

// Client is one signaling connection plus the peer lifecycle manager for
// its role.
type Client struct {
	conn *websocket.Conn
	log  zerolog.Logger
	role Role

	writeMu sync.Mutex

	performer *peer.Performer
	audience  *peer.Audience

	done chan struct{}
}

// Dial connects to the server and starts the read loop.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	logger := pkglog.L()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", opts.URL, err)
	}

	c := &Client{
		conn: conn,
		log:  logger,
		role: opts.Role,
		done: make(chan struct{}),
	}

	switch opts.Role {
	case RolePerformer:
		c.performer = peer.NewPerformer(c, opts.Tracks, opts.ICEServers, logger)
	case RoleAudience:
		c.audience = peer.NewAudience(c, opts.ICEServers, opts.OnTrack, logger)
	default:
		conn.Close()
		return nil, fmt.Errorf("unknown role %q", opts.Role)
	}

	go c.readLoop()
	return c, nil
}

// Performer returns the performer-role manager, nil for audience clients.
func (c *Client) Performer() *peer.Performer { return c.performer }

// Audience returns the audience-role manager, nil for performer clients.
func (c *Client) Audience() *peer.Audience { return c.audience }

// Done is closed when the read loop exits.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close tears down all peer links and the signaling connection.
func (c *Client) Close() error {
	c.teardown()
	return c.conn.Close()
}

// --- client commands ---

// SelectSeat claims a seat.
func (c *Client) SelectSeat(seatID, displayName, avatarImageRef string, mode domain.PresentationMode) error {
	return c.send(&domain.SelectSeatMessage{
		Type:             domain.MsgTypeSelectSeat,
		SeatID:           seatID,
		DisplayName:      displayName,
		AvatarImageRef:   avatarImageRef,
		PresentationMode: mode,
	})
}

// ReleaseSeat gives up a seat.
func (c *Client) ReleaseSeat(seatID string) error {
	if c.audience != nil {
		c.audience.SetSeated(false)
	}
	return c.send(&domain.ReleaseSeatMessage{Type: domain.MsgTypeReleaseSeat, SeatID: seatID})
}

// StartCountdown asks the server to begin the pre-show countdown.
func (c *Client) StartCountdown(seconds int) error {
	return c.send(&domain.StartCountdownMessage{Type: domain.MsgTypeStartCountdown, Seconds: seconds})
}

// StopCountdown cancels a running countdown.
func (c *Client) StopCountdown() error {
	return c.send(&domain.BaseMessage{Type: domain.MsgTypeStopCountdown})
}

// GoLive transitions the show to live.
func (c *Client) GoLive() error {
	return c.send(&domain.BaseMessage{Type: domain.MsgTypeGoLive})
}

// EndShow ends a live show.
func (c *Client) EndShow() error {
	return c.send(&domain.BaseMessage{Type: domain.MsgTypeEndShow})
}

// --- peer.Signaler ---

// SendOffer relays an SDP offer to a specific connection.
func (c *Client) SendOffer(targetID string, sdp webrtc.SessionDescription) error {
	return c.sendSignal(domain.MsgTypeOffer, targetID, sdp)
}

// SendAnswer relays an SDP answer to a specific connection.
func (c *Client) SendAnswer(targetID string, sdp webrtc.SessionDescription) error {
	return c.sendSignal(domain.MsgTypeAnswer, targetID, sdp)
}

// SendCandidate relays an ICE candidate to a specific connection.
func (c *Client) SendCandidate(targetID string, candidate webrtc.ICECandidateInit) error {
	return c.sendSignal(domain.MsgTypeICECandidate, targetID, candidate)
}

func (c *Client) sendSignal(msgType, targetID string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.send(&domain.SignalMessage{
		Type:               msgType,
		Payload:            raw,
		TargetConnectionID: targetID,
	})
}

func (c *Client) send(msg interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

// --- server events ---

func (c *Client) readLoop() {
	defer close(c.done)
	defer c.teardown()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Error().Err(err).Msg("signaling connection lost")
			}
			return
		}
		c.dispatch(message)
	}
}

func (c *Client) dispatch(message []byte) {
	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		c.log.Warn().Err(err).Msg("unparseable server message")
		return
	}

	switch base.Type {
	case domain.MsgTypeNewRemoteParticipant:
		if c.performer == nil {
			return
		}
		var msg domain.NewRemoteParticipantMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return
		}
		if err := c.performer.EnsureLink(msg.ConnectionID); err != nil {
			c.log.Error().Err(err).Str(pkglog.FieldTarget, msg.ConnectionID).Msg("failed to originate peer link")
		}

	case domain.MsgTypeOffer:
		if c.audience == nil {
			return
		}
		var msg domain.SignalMessage
		var sdp webrtc.SessionDescription
		if err := unmarshalSignal(message, &msg, &sdp); err != nil {
			c.log.Warn().Err(err).Msg("bad offer payload")
			return
		}
		if err := c.audience.HandleOffer(msg.SenderConnectionID, sdp); err != nil {
			c.log.Error().Err(err).Str(pkglog.FieldTarget, msg.SenderConnectionID).Msg("failed to answer offer")
		}

	case domain.MsgTypeAnswer:
		if c.performer == nil {
			return
		}
		var msg domain.SignalMessage
		var sdp webrtc.SessionDescription
		if err := unmarshalSignal(message, &msg, &sdp); err != nil {
			c.log.Warn().Err(err).Msg("bad answer payload")
			return
		}
		if err := c.performer.HandleAnswer(msg.SenderConnectionID, sdp); err != nil {
			c.log.Error().Err(err).Str(pkglog.FieldTarget, msg.SenderConnectionID).Msg("failed to apply answer")
		}

	case domain.MsgTypeICECandidate:
		var msg domain.SignalMessage
		var candidate webrtc.ICECandidateInit
		if err := unmarshalSignal(message, &msg, &candidate); err != nil {
			c.log.Warn().Err(err).Msg("bad candidate payload")
			return
		}
		if c.performer != nil {
			c.performer.HandleCandidate(msg.SenderConnectionID, candidate)
		}
		if c.audience != nil {
			c.audience.HandleCandidate(msg.SenderConnectionID, candidate)
		}

	case domain.MsgTypeSeatSelected:
		var msg domain.SeatSelectedMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return
		}
		if msg.Success {
			c.log.Info().Str(pkglog.FieldSeatID, msg.SeatID).Msg("seat confirmed")
			if c.audience != nil {
				c.audience.SetSeated(true)
			}
		} else {
			c.log.Warn().Str(pkglog.FieldSeatID, msg.SeatID).Str("reason", msg.Reason).Msg("seat rejected")
		}

	case domain.MsgTypeShowStatusUpdate:
		var msg domain.ShowStatusMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return
		}
		c.log.Info().Str(pkglog.FieldShowState, string(msg.Status)).Msg("show status changed")
		// The show winding down ends every negotiation; links are not
		// resumed, a new show starts a fresh offer cycle.
		if msg.Status == domain.StatusIdle || msg.Status == domain.StatusPostShow {
			c.teardown()
		}

	case domain.MsgTypeAllSeatsEmpty:
		if c.audience != nil {
			c.audience.SetSeated(false)
		}

	case domain.MsgTypeCountdownUpdate:
		var msg domain.CountdownMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return
		}
		c.log.Debug().Int("remaining", msg.Remaining).Msg("countdown")

	case domain.MsgTypeError:
		var msg domain.ErrorMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return
		}
		c.log.Warn().Str("code", msg.Code).Str("message", msg.Message).Msg("command rejected")
	}
}

func (c *Client) teardown() {
	if c.performer != nil {
		c.performer.Teardown()
	}
	if c.audience != nil {
		c.audience.Teardown()
	}
}

func unmarshalSignal(message []byte, msg *domain.SignalMessage, payload interface{}) error {
	if err := json.Unmarshal(message, msg); err != nil {
		return err
	}
	return json.Unmarshal(msg.Payload, payload)
}
