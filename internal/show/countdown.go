package show

import (
	"time"

	"github.com/eldrgeek/frontrow/internal/domain"
)

// The countdown ticker and the post-show cooldown both run on their own
// goroutine or timer but deliver every expiry through the orchestrator's
// command queue, tagged with a generation number. Cancelling bumps the
// generation, so a tick that was already queued when the countdown was
// stopped arrives stale and does nothing. Cancel is therefore idempotent
// and safe against in-flight ticks without any locking.

func (o *Orchestrator) startTicker() {
	o.countdownGen++
	gen := o.countdownGen
	stop := make(chan struct{})
	o.countdownStop = stop

	ticker := time.NewTicker(o.cfg.TickInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				o.enqueue(func() { o.handleTick(gen) })
			}
		}
	}()
}

// cancelCountdown stops the ticker goroutine and clears countdown state.
// Calling it with no countdown running is a no-op.
func (o *Orchestrator) cancelCountdown() {
	if o.countdownStop != nil {
		close(o.countdownStop)
		o.countdownStop = nil
	}
	o.countdownGen++
	o.countdown = domain.Countdown{}
}

func (o *Orchestrator) handleTick(gen uint64) {
	if gen != o.countdownGen || !o.countdown.Active {
		return // countdown replaced or stopped after this tick was queued
	}

	o.countdown.Remaining--
	o.notifier.Broadcast(&domain.CountdownMessage{
		Type:      domain.MsgTypeCountdownUpdate,
		Remaining: o.countdown.Remaining,
		Total:     o.countdown.Total,
	})

	if o.countdown.Remaining > 0 {
		return
	}

	o.cancelCountdown()
	o.notifier.Broadcast(&domain.BaseMessage{Type: domain.MsgTypeCountdownFinished})
	o.transitionToLive()
}

func (o *Orchestrator) scheduleCooldown() {
	o.cooldownGen++
	gen := o.cooldownGen
	time.AfterFunc(o.cfg.PostShowCooldown, func() {
		o.enqueue(func() { o.handleCooldownExpired(gen) })
	})
}

func (o *Orchestrator) handleCooldownExpired(gen uint64) {
	if gen != o.cooldownGen || o.status != domain.StatusPostShow {
		return // reset or forced transition got there first
	}

	o.clearAuditorium()
	o.status = domain.StatusIdle
	o.notifier.Broadcast(o.statusMessage())
	o.log.Info().Msg("post-show cooldown elapsed, show reset to idle")
}
