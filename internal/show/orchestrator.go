package show

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldrgeek/frontrow/internal/domain"
	"github.com/eldrgeek/frontrow/internal/metrics"
	pkglog "github.com/eldrgeek/frontrow/pkg/log"
)

// Notifier delivers server -> client events. Implemented by the websocket hub.
type Notifier interface {
	// Broadcast sends a message to every live connection.
	Broadcast(msg interface{})
	// Send sends a message to one connection. It reports whether the target
	// was live at the time of the call.
	Send(connID string, msg interface{}) bool
	// IsConnected reports whether a connection id is live.
	IsConnected(connID string) bool
	// Connections returns all live connection ids.
	Connections() []string
}

// Config holds the orchestrator's tunables.
type Config struct {
	SeatCount        int
	TickInterval     time.Duration
	PostShowCooldown time.Duration
	MaxCountdown     int
}

// Orchestrator is the single writer for all show state. Commands are
// enqueued onto one serialized loop, so every handler runs to completion
// without interleaving and no locking is needed for show invariants. The
// countdown ticker and the post-show cooldown deliver their expiry through
// the same queue, which linearizes them against user commands.
type Orchestrator struct {
	cfg      Config
	notifier Notifier
	log      zerolog.Logger

	ops chan func()

	// Owned by the Run loop.
	status        domain.Status
	performerID   string
	startTime     time.Time
	countdown     domain.Countdown
	countdownGen  uint64
	countdownStop chan struct{}
	cooldownGen   uint64
	seats         *SeatRegistry
	profiles      map[string]*domain.UserProfile
}

// New creates an Orchestrator in the idle state.
func New(cfg Config, notifier Notifier, logger zerolog.Logger) *Orchestrator {
	if cfg.SeatCount <= 0 {
		cfg.SeatCount = 9
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.PostShowCooldown <= 0 {
		cfg.PostShowCooldown = 5 * time.Second
	}
	return &Orchestrator{
		cfg:      cfg,
		notifier: notifier,
		log:      logger,
		ops:      make(chan func(), 64),
		status:   domain.StatusIdle,
		seats:    NewSeatRegistry(cfg.SeatCount),
		profiles: make(map[string]*domain.UserProfile),
	}
}

// Run drains the command queue until ctx is cancelled. All state mutation
// happens on this goroutine.
func (o *Orchestrator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			o.cancelCountdown()
			return
		case fn := <-o.ops:
			fn()
		}
	}
}

func (o *Orchestrator) enqueue(fn func()) {
	o.ops <- fn
}

// do enqueues fn and waits for the loop to execute it.
func (o *Orchestrator) do(fn func()) {
	done := make(chan struct{})
	o.enqueue(func() {
		fn()
		close(done)
	})
	<-done
}

// SelectSeat claims a seat for connID. The outcome is reported back to the
// requester as a seat-selected message; success is broadcast as a
// seat-update.
func (o *Orchestrator) SelectSeat(connID, seatID string, occ domain.Occupant) {
	o.enqueue(func() { o.handleSelectSeat(connID, seatID, occ) })
}

// ReleaseSeat empties the seat connID occupies. Releasing an empty seat is
// a no-op.
func (o *Orchestrator) ReleaseSeat(connID, seatID string) {
	o.enqueue(func() { o.handleReleaseSeat(connID, seatID) })
}

// StartCountdown begins the pre-show countdown. The sender is adopted as
// performer if none is set.
func (o *Orchestrator) StartCountdown(connID string, seconds int) {
	o.enqueue(func() { o.handleStartCountdown(connID, seconds) })
}

// StopCountdown cancels a running countdown and returns the show to idle.
func (o *Orchestrator) StopCountdown(connID string) {
	o.enqueue(func() { o.handleStopCountdown(connID) })
}

// GoLive transitions the show to live, bypassing any countdown.
func (o *Orchestrator) GoLive(connID string) {
	o.enqueue(func() { o.handleGoLive(connID) })
}

// EndShow transitions live -> post-show; the cooldown then clears the
// auditorium and returns to idle.
func (o *Orchestrator) EndShow(connID string) {
	o.enqueue(func() { o.handleEndShow(connID) })
}

// HandleDisconnect releases any seat held by connID and deletes its
// profile. Safe when no profile exists.
func (o *Orchestrator) HandleDisconnect(connID string) {
	o.enqueue(func() { o.handleDisconnect(connID) })
}

// SyncConnection sends the current show status and seat occupancy to a
// newly connected client so it does not have to rebuild state from future
// events alone.
func (o *Orchestrator) SyncConnection(connID string) {
	o.enqueue(func() {
		o.notifier.Send(connID, o.statusMessage())
		for _, seatID := range o.seats.SeatIDs() {
			if occ, ok := o.seats.Occupant(seatID); ok {
				o.notifier.Send(connID, &domain.SeatUpdateMessage{
					Type:     domain.MsgTypeSeatUpdate,
					SeatID:   seatID,
					Occupant: occ,
				})
			}
		}
	})
}

// Snapshot returns a copy of the current state. Because it round-trips
// through the command queue it also acts as a barrier: all previously
// enqueued commands have completed when it returns.
func (o *Orchestrator) Snapshot() domain.ShowSnapshot {
	var snap domain.ShowSnapshot
	o.do(func() {
		snap = domain.ShowSnapshot{
			Status:                o.status,
			PerformerConnectionID: o.performerID,
			Countdown:             o.countdown,
			Seats:                 o.seats.Snapshot(),
		}
		if !o.startTime.IsZero() {
			t := o.startTime
			snap.StartTime = &t
		}
	})
	return snap
}

// ForceReset is the debug surface's privileged reset to idle.
func (o *Orchestrator) ForceReset() {
	o.do(func() {
		o.log.Warn().Msg("forced reset")
		o.reset()
	})
}

// ForceStatus is the debug surface's privileged status override. It
// broadcasts the new status but runs none of the transition side effects.
func (o *Orchestrator) ForceStatus(status domain.Status) error {
	switch status {
	case domain.StatusIdle, domain.StatusPreShow, domain.StatusLive, domain.StatusPostShow:
	default:
		return fmt.Errorf("invalid status %q", status)
	}
	o.do(func() {
		o.log.Warn().Str(pkglog.FieldShowState, string(status)).Msg("forced status")
		o.status = status
		o.notifier.Broadcast(o.statusMessage())
	})
	return nil
}

// ForceSeat is the debug surface's privileged seat assignment. It bypasses
// the occupancy rules clients are held to.
func (o *Orchestrator) ForceSeat(seatID string, occ domain.Occupant) error {
	var err error
	o.do(func() {
		err = o.seats.ForceAssign(seatID, &occ)
		if err != nil {
			return
		}
		o.log.Warn().Str(pkglog.FieldSeatID, seatID).Str(pkglog.FieldConnID, occ.ConnectionID).Msg("forced seat assignment")
		metrics.SeatsOccupied.Set(float64(o.seats.Occupied()))
		o.notifier.Broadcast(&domain.SeatUpdateMessage{
			Type:     domain.MsgTypeSeatUpdate,
			SeatID:   seatID,
			Occupant: &occ,
		})
	})
	return err
}

// --- command handlers, run-loop only ---

func (o *Orchestrator) handleSelectSeat(connID, seatID string, occ domain.Occupant) {
	occ.ConnectionID = connID
	if err := o.seats.Select(seatID, &occ); err != nil {
		o.log.Warn().Err(err).
			Str(pkglog.FieldConnID, connID).
			Str(pkglog.FieldSeatID, seatID).
			Msg("seat select rejected")
		o.notifier.Send(connID, &domain.SeatSelectedMessage{
			Type:    domain.MsgTypeSeatSelected,
			Success: false,
			SeatID:  seatID,
			Reason:  seatReason(err),
		})
		return
	}

	o.profiles[connID] = &domain.UserProfile{
		DisplayName:    occ.DisplayName,
		AvatarImageRef: occ.AvatarImageRef,
		SelectedSeatID: seatID,
	}
	metrics.SeatsOccupied.Set(float64(o.seats.Occupied()))

	o.notifier.Broadcast(&domain.SeatUpdateMessage{
		Type:     domain.MsgTypeSeatUpdate,
		SeatID:   seatID,
		Occupant: &occ,
	})
	o.notifier.Send(connID, &domain.SeatSelectedMessage{
		Type:    domain.MsgTypeSeatSelected,
		Success: true,
		SeatID:  seatID,
	})
	o.log.Info().
		Str(pkglog.FieldConnID, connID).
		Str(pkglog.FieldSeatID, seatID).
		Msg("seat selected")

	// A performer already live originates a peer link to the new occupant.
	if o.status == domain.StatusLive && o.performerID != "" {
		o.notifier.Send(o.performerID, &domain.NewRemoteParticipantMessage{
			Type:         domain.MsgTypeNewRemoteParticipant,
			ConnectionID: connID,
		})
	}
}

func (o *Orchestrator) handleReleaseSeat(connID, seatID string) {
	released, err := o.seats.Release(seatID, connID)
	if err != nil {
		code := domain.ErrCodeUnknownSeat
		if errors.Is(err, ErrNotOccupant) {
			code = domain.ErrCodeForbidden
		}
		o.notifier.Send(connID, domain.NewErrorMessage(code, err.Error()))
		return
	}
	if !released {
		return
	}

	if p := o.profiles[connID]; p != nil {
		p.SelectedSeatID = ""
	}
	metrics.SeatsOccupied.Set(float64(o.seats.Occupied()))
	o.notifier.Broadcast(&domain.SeatUpdateMessage{
		Type:     domain.MsgTypeSeatUpdate,
		SeatID:   seatID,
		Occupant: nil,
	})
	o.log.Info().
		Str(pkglog.FieldConnID, connID).
		Str(pkglog.FieldSeatID, seatID).
		Msg("seat released")
}

func (o *Orchestrator) handleStartCountdown(connID string, seconds int) {
	if seconds <= 0 || (o.cfg.MaxCountdown > 0 && seconds > o.cfg.MaxCountdown) {
		o.notifier.Send(connID, domain.NewErrorMessage(domain.ErrCodeBadRequest,
			fmt.Sprintf("countdown must be between 1 and %d seconds", o.cfg.MaxCountdown)))
		return
	}
	if o.status != domain.StatusIdle && o.status != domain.StatusPreShow {
		o.log.Warn().
			Str(pkglog.FieldConnID, connID).
			Str(pkglog.FieldShowState, string(o.status)).
			Msg("start-countdown rejected: show not idle")
		o.notifier.Send(connID, domain.NewErrorMessage(domain.ErrCodeInvalidState,
			fmt.Sprintf("cannot start countdown while show is %s", o.status)))
		return
	}
	if o.performerID == "" {
		o.performerID = connID
	} else if o.performerID != connID {
		o.notifier.Send(connID, domain.NewErrorMessage(domain.ErrCodeForbidden,
			"only the performer can start the countdown"))
		return
	}

	// Restarting replaces any countdown already running.
	o.cancelCountdown()
	o.status = domain.StatusPreShow
	o.countdown = domain.Countdown{Active: true, Remaining: seconds, Total: seconds}

	o.notifier.Broadcast(o.statusMessage())
	o.notifier.Broadcast(&domain.CountdownMessage{
		Type:      domain.MsgTypeCountdownStarted,
		Remaining: seconds,
		Total:     seconds,
	})
	o.startTicker()
	o.log.Info().
		Str(pkglog.FieldPerformer, o.performerID).
		Int("seconds", seconds).
		Msg("countdown started")
}

func (o *Orchestrator) handleStopCountdown(connID string) {
	if o.performerID != "" && connID != o.performerID {
		o.notifier.Send(connID, domain.NewErrorMessage(domain.ErrCodeForbidden,
			"only the performer can stop the countdown"))
		return
	}
	if !o.countdown.Active {
		return // stopping a stopped countdown is a no-op
	}

	o.cancelCountdown()
	o.status = domain.StatusIdle
	o.performerID = ""
	o.notifier.Broadcast(&domain.BaseMessage{Type: domain.MsgTypeCountdownStopped})
	o.notifier.Broadcast(o.statusMessage())
	o.log.Info().Str(pkglog.FieldConnID, connID).Msg("countdown stopped")
}

func (o *Orchestrator) handleGoLive(connID string) {
	if o.status == domain.StatusLive {
		if connID == o.performerID {
			// Re-entrant go-live: the performer recovers a dropped media
			// pipeline by re-negotiating with everyone, without restarting
			// the show.
			o.log.Info().Str(pkglog.FieldPerformer, connID).Msg("re-entrant go-live, re-notifying participants")
			o.notifyPerformerOfParticipants()
			return
		}
		if o.performerID != "" && o.notifier.IsConnected(o.performerID) {
			o.notifier.Send(connID, domain.NewErrorMessage(domain.ErrCodeForbidden,
				fmt.Sprintf("another performer is live (status %s)", o.status)))
			return
		}
		// Live under a performer that is gone: fall through to recovery.
	}

	if o.status != domain.StatusIdle && o.status != domain.StatusPreShow {
		// Stuck state (e.g. post-show whose cooldown never fired). Force a
		// reset and proceed rather than failing the request.
		o.log.Warn().
			Str(pkglog.FieldConnID, connID).
			Str(pkglog.FieldShowState, string(o.status)).
			Msg("go-live in unexpected state, forcing reset")
		o.reset()
	}

	if o.performerID == "" {
		o.performerID = connID
	} else if o.performerID != connID {
		o.notifier.Send(connID, domain.NewErrorMessage(domain.ErrCodeForbidden,
			"the countdown was started by another performer"))
		return
	}

	o.cancelCountdown()
	o.transitionToLive()
}

func (o *Orchestrator) handleEndShow(connID string) {
	if o.status != domain.StatusLive {
		o.notifier.Send(connID, domain.NewErrorMessage(domain.ErrCodeInvalidState,
			fmt.Sprintf("no live show to end (status %s)", o.status)))
		return
	}
	if connID != o.performerID {
		o.notifier.Send(connID, domain.NewErrorMessage(domain.ErrCodeForbidden,
			"only the performer can end the show"))
		return
	}

	o.status = domain.StatusPostShow
	o.performerID = ""
	o.startTime = time.Time{}
	o.notifier.Broadcast(o.statusMessage())
	o.scheduleCooldown()
	o.log.Info().Str(pkglog.FieldConnID, connID).Msg("show ended, cooldown scheduled")
}

func (o *Orchestrator) handleDisconnect(connID string) {
	if seatID, ok := o.seats.ReleaseByConn(connID); ok {
		metrics.SeatsOccupied.Set(float64(o.seats.Occupied()))
		o.notifier.Broadcast(&domain.SeatUpdateMessage{
			Type:     domain.MsgTypeSeatUpdate,
			SeatID:   seatID,
			Occupant: nil,
		})
		o.log.Info().
			Str(pkglog.FieldConnID, connID).
			Str(pkglog.FieldSeatID, seatID).
			Msg("seat released on disconnect")
	}
	delete(o.profiles, connID)

	if connID == o.performerID {
		// The show is left as-is; a reconnecting performer recovers it via
		// go-live.
		o.log.Warn().Str(pkglog.FieldPerformer, connID).Msg("performer disconnected")
	}
}

// --- shared transitions, run-loop only ---

func (o *Orchestrator) transitionToLive() {
	o.status = domain.StatusLive
	o.startTime = time.Now()
	o.notifier.Broadcast(o.statusMessage())
	o.notifyPerformerOfParticipants()
	o.log.Info().Str(pkglog.FieldPerformer, o.performerID).Msg("show is live")
}

// notifyPerformerOfParticipants tells the performer about every connection
// it should originate a peer link to: seated occupants first, then the
// remaining connected viewers.
func (o *Orchestrator) notifyPerformerOfParticipants() {
	seen := map[string]bool{o.performerID: true}
	notify := func(connID string) {
		if seen[connID] {
			return
		}
		seen[connID] = true
		o.notifier.Send(o.performerID, &domain.NewRemoteParticipantMessage{
			Type:         domain.MsgTypeNewRemoteParticipant,
			ConnectionID: connID,
		})
	}
	for _, occ := range o.seats.Occupants() {
		notify(occ.ConnectionID)
	}
	for _, connID := range o.notifier.Connections() {
		notify(connID)
	}
}

// reset returns the show to idle, cancelling timers and clearing the
// auditorium.
func (o *Orchestrator) reset() {
	o.cancelCountdown()
	o.cooldownGen++
	o.status = domain.StatusIdle
	o.performerID = ""
	o.startTime = time.Time{}
	o.clearAuditorium()
	o.notifier.Broadcast(o.statusMessage())
}

// clearAuditorium empties every seat and profile and announces it.
func (o *Orchestrator) clearAuditorium() {
	o.seats.Clear()
	o.profiles = make(map[string]*domain.UserProfile)
	metrics.SeatsOccupied.Set(0)
	o.notifier.Broadcast(&domain.BaseMessage{Type: domain.MsgTypeAllSeatsEmpty})
}

func (o *Orchestrator) statusMessage() *domain.ShowStatusMessage {
	return &domain.ShowStatusMessage{
		Type:                  domain.MsgTypeShowStatusUpdate,
		Status:                o.status,
		PerformerConnectionID: o.performerID,
	}
}

func seatReason(err error) string {
	switch {
	case errors.Is(err, ErrSeatTaken):
		return domain.ErrCodeSeatTaken
	case errors.Is(err, ErrShowFull):
		return domain.ErrCodeShowFull
	case errors.Is(err, ErrUnknownSeat):
		return domain.ErrCodeUnknownSeat
	case errors.Is(err, ErrAlreadySeated):
		return domain.ErrCodeAlreadySeated
	default:
		return domain.ErrCodeBadRequest
	}
}
