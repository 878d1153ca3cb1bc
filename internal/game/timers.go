package game

import (
	"time"

	"github.com/coder/quartz"
)

// TimerRole distinguishes the five timers a room may run. At most one
// timer per role is live at a time; starting a role cancels its
// predecessor.
type TimerRole int

const (
	TimerNone TimerRole = iota
	TimerTurn
	TimerClaim
	TimerAIThink
	TimerInterRound
	TimerEmptyRoom

	timerRoleCount
)

var timerNames = map[TimerRole]string{
	TimerNone:       "",
	TimerTurn:       "turn",
	TimerClaim:      "claim",
	TimerAIThink:    "aiThink",
	TimerInterRound: "interRound",
	TimerEmptyRoom:  "emptyRoom",
}

// String returns the wire name of the role.
func (r TimerRole) String() string { return timerNames[r] }

// roomTimer is the live state of one timer role. The generation counter
// invalidates stale fires: a callback whose generation no longer matches
// is a no-op.
type roomTimer struct {
	role      TimerRole
	gen       uint64
	seat      int // actor the timer was started for; -1 when not seat bound
	remaining int // seconds left for ticking roles
	timer     *quartz.Timer
}

// startCountdown schedules a per-second ticking timer. Each tick
// decrements the broadcast countdown; at zero the role's expiry action
// runs. Must be called with the room lock held.
func (r *Room) startCountdown(role TimerRole, seat, seconds int) {
	r.cancelTimer(role)
	r.timerGen++
	st := &roomTimer{role: role, gen: r.timerGen, seat: seat, remaining: seconds}
	r.timers[role] = st
	r.actionTimer = seconds
	r.actionTimerRole = role
	gen := st.gen
	st.timer = r.clock.AfterFunc(time.Second, func() {
		r.timerTick(role, gen)
	})
}

// startOneShot schedules a single fire after the delay, with no per-second
// countdown. Used for AI think time and the empty-room TTL.
func (r *Room) startOneShot(role TimerRole, seat int, delay time.Duration) {
	r.cancelTimer(role)
	r.timerGen++
	st := &roomTimer{role: role, gen: r.timerGen, seat: seat}
	r.timers[role] = st
	gen := st.gen
	st.timer = r.clock.AfterFunc(delay, func() {
		r.timerFire(role, gen)
	})
}

// cancelTimer stops a role's live timer. Bumping nothing is fine; the
// generation check makes an already-fired callback harmless. Must be
// called with the room lock held.
func (r *Room) cancelTimer(role TimerRole) {
	st := r.timers[role]
	if st == nil {
		return
	}
	if st.timer != nil {
		st.timer.Stop()
	}
	r.timers[role] = nil
	if r.actionTimerRole == role {
		r.actionTimerRole = TimerNone
		r.actionTimer = 0
	}
}

// cancelSeatTimers clears every timer bound to the acting seat. Mandatory
// before dispatching the next action so a stale expiry cannot race a
// completed one.
func (r *Room) cancelSeatTimers() {
	r.cancelTimer(TimerTurn)
	r.cancelTimer(TimerClaim)
	r.cancelTimer(TimerAIThink)
}

// timerTick runs one second of a ticking role outside any caller's stack.
func (r *Room) timerTick(role TimerRole, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.timers[role]
	if st == nil || st.gen != gen {
		return
	}
	if !r.timerStillValid(st) {
		r.timers[role] = nil
		return
	}

	st.remaining--
	r.actionTimer = st.remaining
	r.actionTimerRole = role

	if st.remaining > 0 {
		st.timer = r.clock.AfterFunc(time.Second, func() {
			r.timerTick(role, gen)
		})
		r.broadcastState()
		return
	}

	r.timers[role] = nil
	r.expireTimer(role, st.seat)
}

// timerFire handles a one-shot role's expiry.
func (r *Room) timerFire(role TimerRole, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.timers[role]
	if st == nil || st.gen != gen {
		return
	}
	if !r.timerStillValid(st) {
		r.timers[role] = nil
		return
	}
	r.timers[role] = nil
	r.expireTimer(role, st.seat)
}

// timerStillValid is the staleness check: the actor identity the timer
// was started for must still match the room's expected actor.
func (r *Room) timerStillValid(st *roomTimer) bool {
	switch st.role {
	case TimerTurn:
		return r.phase.isTurnPhase() && r.currentPlayerIndex == st.seat
	case TimerClaim:
		return (r.phase == PhaseAwaitingPlayerClaimAction || r.phase == PhaseActionPendingChiChoice) &&
			r.claimDecider != nil && *r.claimDecider == st.seat
	case TimerAIThink:
		return r.expectedActor() == st.seat
	case TimerInterRound:
		return r.phase == PhaseRoundOver
	case TimerEmptyRoom:
		return r.onlineHumanCount() == 0
	default:
		return false
	}
}

// expireTimer performs the role's deterministic default action. Must be
// called with the room lock held.
func (r *Room) expireTimer(role TimerRole, seat int) {
	switch role {
	case TimerTurn:
		r.autoTurnAction(seat)
	case TimerClaim:
		r.logger.Info("claim timer expired, auto-passing", "seat", seat)
		r.resolveClaimAction(seat, Action{Type: ActionPassClaim})
	case TimerAIThink:
		r.driveAI(seat)
	case TimerInterRound:
		r.startNextRound()
	case TimerEmptyRoom:
		r.destroy("empty room timeout")
	}
}

// autoTurnAction is the turn timer's default: draw when the actor has not
// drawn, otherwise discard the drawn tile (or the first hand tile when
// none is marked drawn).
func (r *Room) autoTurnAction(seat int) {
	s := r.seatAt(seat)
	if s == nil {
		return
	}
	r.logger.Info("turn timer expired, auto-acting", "seat", seat, "phase", r.phase)

	switch r.phase {
	case PhasePlayerTurnStart:
		r.doDraw(s)
	case PhasePlayerDrawn:
		id := r.firstDiscardableID(s)
		r.doDiscard(s, id, false)
	case PhaseAwaitingDiscard:
		if len(s.Hand) > 0 {
			r.doDiscard(s, s.Hand[0].ID, false)
		}
	}
}

// firstDiscardableID prefers the drawn tile, falling back to the hand
// head.
func (r *Room) firstDiscardableID(s *Seat) string {
	if r.lastDrawn != nil {
		return r.lastDrawn.ID
	}
	if len(s.Hand) > 0 {
		return s.Hand[0].ID
	}
	return ""
}
