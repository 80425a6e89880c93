package show

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldrgeek/frontrow/internal/domain"
)

func occ(connID, name string) *domain.Occupant {
	return &domain.Occupant{ConnectionID: connID, DisplayName: name}
}

func TestSeatRegistrySelect(t *testing.T) {
	r := NewSeatRegistry(3)
	require.Equal(t, []string{"seat-1", "seat-2", "seat-3"}, r.SeatIDs())

	require.NoError(t, r.Select("seat-1", occ("conn-a", "Alice")))
	require.Equal(t, 1, r.Occupied())

	got, ok := r.Occupant("seat-1")
	require.True(t, ok)
	assert.Equal(t, "Alice", got.DisplayName)

	seatID, ok := r.SeatOf("conn-a")
	require.True(t, ok)
	assert.Equal(t, "seat-1", seatID)
}

func TestSeatRegistrySelectRejections(t *testing.T) {
	r := NewSeatRegistry(3)
	require.NoError(t, r.Select("seat-1", occ("conn-a", "Alice")))

	assert.ErrorIs(t, r.Select("seat-1", occ("conn-b", "Bob")), ErrSeatTaken)
	assert.ErrorIs(t, r.Select("seat-2", occ("conn-a", "Alice")), ErrAlreadySeated)
	assert.ErrorIs(t, r.Select("seat-99", occ("conn-b", "Bob")), ErrUnknownSeat)

	// A failed select must not leave partial state behind.
	assert.Equal(t, 1, r.Occupied())
	_, seated := r.SeatOf("conn-b")
	assert.False(t, seated)
}

func TestSeatRegistryFull(t *testing.T) {
	r := NewSeatRegistry(2)
	require.NoError(t, r.Select("seat-1", occ("conn-a", "Alice")))
	require.NoError(t, r.Select("seat-2", occ("conn-b", "Bob")))

	err := r.Select("seat-1", occ("conn-c", "Carol"))
	assert.ErrorIs(t, err, ErrSeatTaken) // taken wins over full for a specific seat
	assert.Equal(t, 2, r.Occupied())
}

func TestSeatRegistryRelease(t *testing.T) {
	r := NewSeatRegistry(3)
	require.NoError(t, r.Select("seat-1", occ("conn-a", "Alice")))

	released, err := r.Release("seat-1", "conn-b")
	require.ErrorIs(t, err, ErrNotOccupant)
	assert.False(t, released)

	released, err = r.Release("seat-1", "conn-a")
	require.NoError(t, err)
	assert.True(t, released)
	assert.Equal(t, 0, r.Occupied())

	// Releasing an already-empty seat is a no-op, not an error.
	released, err = r.Release("seat-1", "conn-a")
	require.NoError(t, err)
	assert.False(t, released)

	_, err = r.Release("seat-99", "conn-a")
	assert.ErrorIs(t, err, ErrUnknownSeat)
}

func TestSeatRegistryReleaseByConn(t *testing.T) {
	r := NewSeatRegistry(3)
	require.NoError(t, r.Select("seat-2", occ("conn-a", "Alice")))

	seatID, ok := r.ReleaseByConn("conn-a")
	require.True(t, ok)
	assert.Equal(t, "seat-2", seatID)

	_, ok = r.ReleaseByConn("conn-a")
	assert.False(t, ok)
}

func TestSeatRegistryForceAssign(t *testing.T) {
	r := NewSeatRegistry(3)
	require.NoError(t, r.Select("seat-1", occ("conn-a", "Alice")))

	// Overwrite bypasses occupancy rules and unbinds the previous occupant.
	require.NoError(t, r.ForceAssign("seat-1", occ("conn-b", "Bob")))
	got, ok := r.Occupant("seat-1")
	require.True(t, ok)
	assert.Equal(t, "Bob", got.DisplayName)
	_, seated := r.SeatOf("conn-a")
	assert.False(t, seated)

	assert.ErrorIs(t, r.ForceAssign("seat-99", occ("conn-c", "Carol")), ErrUnknownSeat)
}

func TestSeatRegistryOccupantsOrder(t *testing.T) {
	r := NewSeatRegistry(5)
	require.NoError(t, r.Select("seat-4", occ("conn-d", "D")))
	require.NoError(t, r.Select("seat-1", occ("conn-a", "A")))
	require.NoError(t, r.Select("seat-3", occ("conn-c", "C")))

	var names []string
	for _, o := range r.Occupants() {
		names = append(names, o.DisplayName)
	}
	assert.Equal(t, []string{"A", "C", "D"}, names)
}

func TestSeatRegistrySnapshotIsCopy(t *testing.T) {
	r := NewSeatRegistry(2)
	require.NoError(t, r.Select("seat-1", occ("conn-a", "Alice")))

	snap := r.Snapshot()
	snap["seat-1"].DisplayName = "mutated"

	got, _ := r.Occupant("seat-1")
	assert.Equal(t, "Alice", got.DisplayName)
}

func TestSeatRegistryClear(t *testing.T) {
	r := NewSeatRegistry(3)
	for i := 1; i <= 3; i++ {
		require.NoError(t, r.Select(fmt.Sprintf("seat-%d", i), occ(fmt.Sprintf("conn-%d", i), "x")))
	}
	r.Clear()
	assert.Equal(t, 0, r.Occupied())
	_, seated := r.SeatOf("conn-1")
	assert.False(t, seated)
}
