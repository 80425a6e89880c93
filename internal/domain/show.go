package domain

import "time"

// Status is the phase of the single process-wide show.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusPreShow  Status = "pre-show"
	StatusLive     Status = "live"
	StatusPostShow Status = "post-show"
)

// PresentationMode is how an occupant is rendered in their seat.
type PresentationMode string

const (
	ModePhoto PresentationMode = "photo"
	ModeVideo PresentationMode = "video"
)

// Occupant is the profile and connection currently bound to a seat.
type Occupant struct {
	DisplayName      string           `json:"displayName"`
	AvatarImageRef   string           `json:"avatarImageRef,omitempty"`
	ConnectionID     string           `json:"connectionId"`
	PresentationMode PresentationMode `json:"presentationMode,omitempty"`
}

// UserProfile is the per-connection ephemeral record. It exists only while
// the connection is alive; disconnect cascades to releasing the seat it
// references.
type UserProfile struct {
	DisplayName    string
	AvatarImageRef string
	SelectedSeatID string
}

// Countdown is the timed pre-show phase state.
type Countdown struct {
	Active    bool `json:"active"`
	Remaining int  `json:"remaining"`
	Total     int  `json:"total"`
}

// ShowSnapshot is a point-in-time copy of the orchestrator's state, used by
// the debug HTTP surface.
type ShowSnapshot struct {
	Status                Status               `json:"status"`
	PerformerConnectionID string               `json:"performerConnectionId,omitempty"`
	StartTime             *time.Time           `json:"startTime,omitempty"`
	Countdown             Countdown            `json:"countdown"`
	Seats                 map[string]*Occupant `json:"seats"`
}
