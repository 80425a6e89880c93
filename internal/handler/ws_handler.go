package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/eldrgeek/frontrow/internal/domain"
	"github.com/eldrgeek/frontrow/internal/hub"
	"github.com/eldrgeek/frontrow/internal/relay"
	"github.com/eldrgeek/frontrow/internal/show"
	pkglog "github.com/eldrgeek/frontrow/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// WSHandler upgrades connections and routes client messages to the
// orchestrator and the relay.
type WSHandler struct {
	hub          *hub.Hub
	orchestrator *show.Orchestrator
	relay        *relay.Relay
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(h *hub.Hub, o *show.Orchestrator, r *relay.Relay) *WSHandler {
	return &WSHandler{
		hub:          h,
		orchestrator: o,
		relay:        r,
	}
}

// HandleWebSocket handles WebSocket upgrade and message routing.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	l := pkglog.L()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &hub.Client{
		ID:   uuid.New().String(),
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
	}

	// Disconnect cleanup runs exactly once, even if the connection drops
	// mid-command: ReadPump invokes this before unregistering.
	client.SetDisconnectHandler(func(c *hub.Client) {
		h.orchestrator.HandleDisconnect(c.ID)
	})

	h.hub.Register(client)
	h.orchestrator.SyncConnection(client.ID)

	go client.WritePump()
	go client.ReadPump(h.handleMessage)
}

func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		h.hub.Send(client.ID, domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid message format"))
		return
	}

	switch base.Type {
	case domain.MsgTypeSelectSeat:
		var msg domain.SelectSeatMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.hub.Send(client.ID, domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid select-seat message"))
			return
		}
		h.orchestrator.SelectSeat(client.ID, msg.SeatID, domain.Occupant{
			DisplayName:      msg.DisplayName,
			AvatarImageRef:   msg.AvatarImageRef,
			PresentationMode: msg.PresentationMode,
		})

	case domain.MsgTypeReleaseSeat:
		var msg domain.ReleaseSeatMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.hub.Send(client.ID, domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid release-seat message"))
			return
		}
		h.orchestrator.ReleaseSeat(client.ID, msg.SeatID)

	case domain.MsgTypeStartCountdown:
		var msg domain.StartCountdownMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.hub.Send(client.ID, domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid start-countdown message"))
			return
		}
		h.orchestrator.StartCountdown(client.ID, msg.Seconds)

	case domain.MsgTypeStopCountdown:
		h.orchestrator.StopCountdown(client.ID)

	case domain.MsgTypeGoLive:
		h.orchestrator.GoLive(client.ID)

	case domain.MsgTypeEndShow:
		h.orchestrator.EndShow(client.ID)

	case domain.MsgTypeOffer, domain.MsgTypeAnswer, domain.MsgTypeICECandidate:
		var msg domain.SignalMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.hub.Send(client.ID, domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid signaling message"))
			return
		}
		h.relay.Forward(client.ID, &msg)

	default:
		h.hub.Send(client.ID, domain.NewErrorMessage(domain.ErrCodeBadRequest, "Unknown message type"))
	}
}

// RegisterRoutes registers the WebSocket route.
func (h *WSHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/ws", func(c *gin.Context) {
		h.HandleWebSocket(c.Writer, c.Request)
	})
}
