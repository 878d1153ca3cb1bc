package game

import "time"

// Settings are the creator-chosen room parameters.
type Settings struct {
	RoomName     string
	TargetHumans int
	FillWithAI   bool
	Password     string
	Rounds       int
}

// TimerConfig bounds every timer role the room schedules. All values are
// validated by the server config layer before a room sees them.
type TimerConfig struct {
	TurnSeconds       int
	ClaimSeconds      int
	AIThinkMin        time.Duration
	AIThinkMax        time.Duration
	InterRoundSeconds int
	EmptyRoomTTL      time.Duration
}

// DefaultTimerConfig returns the stock timings: 30 s turn and claim
// windows, AI think time in [700,2000] ms, a 10 s inter-round countdown,
// and a 60 s empty-room TTL.
func DefaultTimerConfig() TimerConfig {
	return TimerConfig{
		TurnSeconds:       30,
		ClaimSeconds:      30,
		AIThinkMin:        700 * time.Millisecond,
		AIThinkMax:        2000 * time.Millisecond,
		InterRoundSeconds: 10,
		EmptyRoomTTL:      60 * time.Second,
	}
}

const (
	// maxTurnSeconds caps the configurable turn window.
	maxTurnSeconds = 60

	// messageLogCap bounds the per-room chat/system log ring.
	messageLogCap = 50

	// seatCount is fixed: four seats per room.
	seatCount = 4
)
