package domain

import "encoding/json"

// WebSocket message types from client.
const (
	MsgTypeSelectSeat     = "select-seat"
	MsgTypeReleaseSeat    = "release-seat"
	MsgTypeStartCountdown = "start-countdown"
	MsgTypeStopCountdown  = "stop-countdown"
	MsgTypeGoLive         = "go-live"
	MsgTypeEndShow        = "end-show"
)

// Signaling message types, relayed in both directions.
const (
	MsgTypeOffer        = "offer"
	MsgTypeAnswer       = "answer"
	MsgTypeICECandidate = "ice-candidate"
)

// WebSocket message types to client.
const (
	MsgTypeShowStatusUpdate     = "show-status-update"
	MsgTypeCountdownStarted     = "countdown-started"
	MsgTypeCountdownUpdate      = "countdown-update"
	MsgTypeCountdownFinished    = "countdown-finished"
	MsgTypeCountdownStopped     = "countdown-stopped"
	MsgTypeSeatUpdate           = "seat-update"
	MsgTypeAllSeatsEmpty        = "all-seats-empty"
	MsgTypeNewRemoteParticipant = "new-remote-participant"
	MsgTypeSeatSelected         = "seat-selected"
	MsgTypeError                = "error"
)

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server messages

// SelectSeatMessage is sent by a client to claim a seat.
type SelectSeatMessage struct {
	Type             string           `json:"type"`
	SeatID           string           `json:"seatId"`
	DisplayName      string           `json:"displayName"`
	AvatarImageRef   string           `json:"avatarImageRef,omitempty"`
	PresentationMode PresentationMode `json:"presentationMode,omitempty"`
}

// ReleaseSeatMessage is sent by a client to give up its seat.
type ReleaseSeatMessage struct {
	Type   string `json:"type"`
	SeatID string `json:"seatId"`
}

// StartCountdownMessage is sent by the performer to begin the pre-show countdown.
type StartCountdownMessage struct {
	Type    string `json:"type"`
	Seconds int    `json:"seconds"`
}

// SignalMessage carries an opaque negotiation payload between two peers.
// Client -> server it names a target; server -> client it names the sender.
type SignalMessage struct {
	Type               string          `json:"type"`
	Payload            json.RawMessage `json:"payload"`
	TargetConnectionID string          `json:"targetConnectionId,omitempty"`
	SenderConnectionID string          `json:"senderConnectionId,omitempty"`
}

// Server -> Client messages

// ShowStatusMessage announces a show phase transition.
type ShowStatusMessage struct {
	Type                  string `json:"type"`
	Status                Status `json:"status"`
	PerformerConnectionID string `json:"performerConnectionId,omitempty"`
}

// CountdownMessage carries countdown progress for the started/update events.
type CountdownMessage struct {
	Type      string `json:"type"`
	Remaining int    `json:"remaining"`
	Total     int    `json:"total"`
}

// SeatUpdateMessage announces a seat's new occupant; a nil occupant means
// the seat is now empty.
type SeatUpdateMessage struct {
	Type     string    `json:"type"`
	SeatID   string    `json:"seatId"`
	Occupant *Occupant `json:"occupant"`
}

// NewRemoteParticipantMessage tells the performer to originate a peer link.
type NewRemoteParticipantMessage struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connectionId"`
}

// SeatSelectedMessage is the direct reply to a select-seat request.
type SeatSelectedMessage struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	SeatID  string `json:"seatId,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// ErrorMessage is sent to the originating connection when a command is rejected.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeSeatTaken     = "SEAT_TAKEN"
	ErrCodeShowFull      = "SHOW_FULL"
	ErrCodeUnknownSeat   = "UNKNOWN_SEAT"
	ErrCodeAlreadySeated = "ALREADY_SEATED"
	ErrCodeInvalidState  = "INVALID_STATE"
)

// NewErrorMessage creates a new error message.
func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
