package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldrgeek/frontrow/internal/config"
	"github.com/eldrgeek/frontrow/internal/domain"
	"github.com/eldrgeek/frontrow/internal/hub"
	"github.com/eldrgeek/frontrow/internal/relay"
	"github.com/eldrgeek/frontrow/internal/show"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	wsHub := hub.NewHub(config.WebSocketConfig{
		PingInterval:   10 * time.Second,
		PongWait:       20 * time.Second,
		WriteWait:      5 * time.Second,
		MaxMessageSize: 1 << 20,
	})
	go wsHub.Run()

	o := show.New(show.Config{SeatCount: 3}, wsHub, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go o.Run(ctx)

	router := gin.New()
	NewWSHandler(wsHub, o, relay.New(wsHub, zerolog.Nop())).RegisterRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil decodes frames until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, wantType string) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %q", wantType)

		var base domain.BaseMessage
		require.NoError(t, json.Unmarshal(raw, &base))
		if base.Type == wantType {
			return raw
		}
	}
}

func sendJSON(t *testing.T, conn *websocket.Conn, msg interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

func TestConnectionReceivesInitialState(t *testing.T) {
	srv := newTestServer(t)
	conn := dialWS(t, srv)

	raw := readUntil(t, conn, domain.MsgTypeShowStatusUpdate)
	var status domain.ShowStatusMessage
	require.NoError(t, json.Unmarshal(raw, &status))
	assert.Equal(t, domain.StatusIdle, status.Status)
}

func TestSelectSeatOverWebSocket(t *testing.T) {
	srv := newTestServer(t)
	conn := dialWS(t, srv)
	readUntil(t, conn, domain.MsgTypeShowStatusUpdate)

	sendJSON(t, conn, &domain.SelectSeatMessage{
		Type:        domain.MsgTypeSelectSeat,
		SeatID:      "seat-1",
		DisplayName: "Alice",
	})

	raw := readUntil(t, conn, domain.MsgTypeSeatSelected)
	var ack domain.SeatSelectedMessage
	require.NoError(t, json.Unmarshal(raw, &ack))
	assert.True(t, ack.Success)
	assert.Equal(t, "seat-1", ack.SeatID)
}

func TestSeatUpdateBroadcastCarriesConnectionID(t *testing.T) {
	srv := newTestServer(t)
	seated := dialWS(t, srv)
	observer := dialWS(t, srv)
	readUntil(t, seated, domain.MsgTypeShowStatusUpdate)
	readUntil(t, observer, domain.MsgTypeShowStatusUpdate)

	sendJSON(t, seated, &domain.SelectSeatMessage{
		Type:        domain.MsgTypeSelectSeat,
		SeatID:      "seat-2",
		DisplayName: "Alice",
	})

	raw := readUntil(t, observer, domain.MsgTypeSeatUpdate)
	var update domain.SeatUpdateMessage
	require.NoError(t, json.Unmarshal(raw, &update))
	assert.Equal(t, "seat-2", update.SeatID)
	require.NotNil(t, update.Occupant)
	assert.Equal(t, "Alice", update.Occupant.DisplayName)
	assert.NotEmpty(t, update.Occupant.ConnectionID)
}

func TestSignalRelayBetweenConnections(t *testing.T) {
	srv := newTestServer(t)
	seated := dialWS(t, srv)
	caller := dialWS(t, srv)
	readUntil(t, seated, domain.MsgTypeShowStatusUpdate)
	readUntil(t, caller, domain.MsgTypeShowStatusUpdate)

	// The caller learns the other side's connection id from the seat-update
	// broadcast, the same way the performer's front-end does.
	sendJSON(t, seated, &domain.SelectSeatMessage{
		Type:        domain.MsgTypeSelectSeat,
		SeatID:      "seat-1",
		DisplayName: "Alice",
	})
	raw := readUntil(t, caller, domain.MsgTypeSeatUpdate)
	var update domain.SeatUpdateMessage
	require.NoError(t, json.Unmarshal(raw, &update))
	targetID := update.Occupant.ConnectionID

	payload := json.RawMessage(`{"type":"offer","sdp":"v=0..."}`)
	sendJSON(t, caller, &domain.SignalMessage{
		Type:               domain.MsgTypeOffer,
		Payload:            payload,
		TargetConnectionID: targetID,
	})

	raw = readUntil(t, seated, domain.MsgTypeOffer)
	var relayed domain.SignalMessage
	require.NoError(t, json.Unmarshal(raw, &relayed))
	assert.NotEmpty(t, relayed.SenderConnectionID)
	assert.NotEqual(t, targetID, relayed.SenderConnectionID)
	assert.JSONEq(t, string(payload), string(relayed.Payload))
}

func TestUnknownMessageTypeRejected(t *testing.T) {
	srv := newTestServer(t)
	conn := dialWS(t, srv)
	readUntil(t, conn, domain.MsgTypeShowStatusUpdate)

	sendJSON(t, conn, &domain.BaseMessage{Type: "juggle"})

	raw := readUntil(t, conn, domain.MsgTypeError)
	var errMsg domain.ErrorMessage
	require.NoError(t, json.Unmarshal(raw, &errMsg))
	assert.Equal(t, domain.ErrCodeBadRequest, errMsg.Code)
}

func TestCountdownOverWebSocket(t *testing.T) {
	srv := newTestServer(t)
	performer := dialWS(t, srv)
	viewer := dialWS(t, srv)
	readUntil(t, performer, domain.MsgTypeShowStatusUpdate)
	readUntil(t, viewer, domain.MsgTypeShowStatusUpdate)

	sendJSON(t, performer, &domain.StartCountdownMessage{
		Type:    domain.MsgTypeStartCountdown,
		Seconds: 1,
	})

	readUntil(t, viewer, domain.MsgTypeCountdownStarted)
	raw := readUntil(t, viewer, domain.MsgTypeCountdownUpdate)
	var update domain.CountdownMessage
	require.NoError(t, json.Unmarshal(raw, &update))
	assert.Equal(t, 0, update.Remaining)
	assert.Equal(t, 1, update.Total)

	readUntil(t, viewer, domain.MsgTypeCountdownFinished)
	raw = readUntil(t, viewer, domain.MsgTypeShowStatusUpdate)
	var status domain.ShowStatusMessage
	require.NoError(t, json.Unmarshal(raw, &status))
	assert.Equal(t, domain.StatusLive, status.Status)
}
