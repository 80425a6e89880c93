package show

import (
	"errors"
	"fmt"

	"github.com/eldrgeek/frontrow/internal/domain"
)

var (
	// ErrSeatTaken is returned when the seat already holds an occupant.
	ErrSeatTaken = errors.New("seat already taken")
	// ErrShowFull is returned when every seat is occupied. The fixed seat
	// count already bounds occupancy; this is defense in depth.
	ErrShowFull = errors.New("front row is full")
	// ErrUnknownSeat is returned for a seat id outside the fixed set.
	ErrUnknownSeat = errors.New("unknown seat")
	// ErrAlreadySeated is returned when the connection holds another seat.
	ErrAlreadySeated = errors.New("connection already holds a seat")
	// ErrNotOccupant is returned when a connection releases a seat it does
	// not hold.
	ErrNotOccupant = errors.New("seat held by another connection")
)

// SeatRegistry is the fixed set of audience seats. It is not safe for
// concurrent use: it is owned by the orchestrator and only touched from its
// event loop.
type SeatRegistry struct {
	ids       []string
	occupants map[string]*domain.Occupant
	byConn    map[string]string // connection id -> seat id
}

// NewSeatRegistry creates a registry of count seats with ids seat-1..seat-N.
func NewSeatRegistry(count int) *SeatRegistry {
	ids := make([]string, count)
	for i := range ids {
		ids[i] = fmt.Sprintf("seat-%d", i+1)
	}
	return &SeatRegistry{
		ids:       ids,
		occupants: make(map[string]*domain.Occupant, count),
		byConn:    make(map[string]string, count),
	}
}

// SeatIDs returns the seat ids in their fixed order.
func (r *SeatRegistry) SeatIDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Occupant returns the occupant of a seat, if any.
func (r *SeatRegistry) Occupant(seatID string) (*domain.Occupant, bool) {
	occ, ok := r.occupants[seatID]
	return occ, ok
}

// SeatOf returns the seat held by a connection, if any.
func (r *SeatRegistry) SeatOf(connID string) (string, bool) {
	seatID, ok := r.byConn[connID]
	return seatID, ok
}

// Occupied returns the number of occupied seats.
func (r *SeatRegistry) Occupied() int {
	return len(r.occupants)
}

// Select records occ as the occupant of seatID. A connection holds at most
// one seat and a seat holds at most one occupant.
func (r *SeatRegistry) Select(seatID string, occ *domain.Occupant) error {
	if !r.knownSeat(seatID) {
		return ErrUnknownSeat
	}
	if _, taken := r.occupants[seatID]; taken {
		return ErrSeatTaken
	}
	if _, seated := r.byConn[occ.ConnectionID]; seated {
		return ErrAlreadySeated
	}
	if len(r.occupants) >= len(r.ids) {
		return ErrShowFull
	}
	r.occupants[seatID] = occ
	r.byConn[occ.ConnectionID] = seatID
	return nil
}

// Release empties seatID on behalf of connID. Releasing an already-empty
// seat is a no-op, not an error; releasing someone else's seat is refused.
func (r *SeatRegistry) Release(seatID, connID string) (bool, error) {
	if !r.knownSeat(seatID) {
		return false, ErrUnknownSeat
	}
	occ, ok := r.occupants[seatID]
	if !ok {
		return false, nil
	}
	if occ.ConnectionID != connID {
		return false, ErrNotOccupant
	}
	delete(r.occupants, seatID)
	delete(r.byConn, connID)
	return true, nil
}

// ReleaseByConn empties whatever seat connID holds. Safe when it holds none.
func (r *SeatRegistry) ReleaseByConn(connID string) (string, bool) {
	seatID, ok := r.byConn[connID]
	if !ok {
		return "", false
	}
	delete(r.occupants, seatID)
	delete(r.byConn, connID)
	return seatID, true
}

// ForceAssign overwrites a seat's occupant without occupancy checks. It is
// the debug surface's privileged shortcut.
func (r *SeatRegistry) ForceAssign(seatID string, occ *domain.Occupant) error {
	if !r.knownSeat(seatID) {
		return ErrUnknownSeat
	}
	if prev, ok := r.occupants[seatID]; ok {
		delete(r.byConn, prev.ConnectionID)
	}
	r.occupants[seatID] = occ
	if occ.ConnectionID != "" {
		r.byConn[occ.ConnectionID] = seatID
	}
	return nil
}

// Occupants returns all occupants in seat order.
func (r *SeatRegistry) Occupants() []*domain.Occupant {
	out := make([]*domain.Occupant, 0, len(r.occupants))
	for _, id := range r.ids {
		if occ, ok := r.occupants[id]; ok {
			out = append(out, occ)
		}
	}
	return out
}

// Snapshot returns a copy of the occupancy map.
func (r *SeatRegistry) Snapshot() map[string]*domain.Occupant {
	out := make(map[string]*domain.Occupant, len(r.occupants))
	for id, occ := range r.occupants {
		c := *occ
		out[id] = &c
	}
	return out
}

// Clear empties every seat.
func (r *SeatRegistry) Clear() {
	r.occupants = make(map[string]*domain.Occupant, len(r.ids))
	r.byConn = make(map[string]string, len(r.ids))
}

func (r *SeatRegistry) knownSeat(seatID string) bool {
	for _, id := range r.ids {
		if id == seatID {
			return true
		}
	}
	return false
}
