// Package game implements the authoritative per-room state machine: the
// turn controller, the claim-resolution protocol, the timer roles, and
// the driver that substitutes the policy for AI and offline seats. A room
// is a single-writer actor guarded by one mutex; timer callbacks re-enter
// through the same lock and pass a staleness check before acting.
package game

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lnp8907/multi-xiangqi-mahjong-sub002/internal/ai"
	"github.com/lnp8907/multi-xiangqi-mahjong-sub002/internal/rules"
	"github.com/lnp8907/multi-xiangqi-mahjong-sub002/internal/tile"
)

var (
	ErrRoomFull       = errors.New("room is full")
	ErrBadPassword    = errors.New("wrong password")
	ErrGameInProgress = errors.New("game already in progress")
	ErrNotHost        = errors.New("only the host can start the game")
	ErrNotEnoughSeats = errors.New("not enough players to start")
)

// Win type wire values.
const (
	WinSelfDrawn = "selfDrawn"
	WinDiscard   = "discard"
	WinHeavenly  = "heavenly"
)

// Room is one game table. All exported methods lock; unexported
// mutators assume the lock is held.
type Room struct {
	mu sync.Mutex

	id       string
	settings Settings
	timerCfg TimerConfig

	logger  *log.Logger
	clock   quartz.Clock
	rng     *rand.Rand
	policy  *ai.Policy
	onEmpty func(roomID string)

	seats []*Seat
	phase Phase

	deck     []tile.Tile
	discards []DiscardedTile // head (index 0) is the most recent throw

	currentPlayerIndex int
	dealerIndex        int
	lastDiscarderIndex int
	lastDiscarded      *tile.Tile
	lastDrawn          *tile.Tile
	turnNumber         int

	messageLog []ChatMessage

	winner           *int
	winType          string
	winningTileID    string
	winningDiscarder *int
	isDrawGame       bool

	claimQueue   []*claimant
	claimDecider *int
	chiOptions   [][2]tile.Tile
	multiHu      bool // more than one Win candidate on the live discard

	actionTimer     int
	actionTimerRole TimerRole
	timers          [timerRoleCount]*roomTimer
	timerGen        uint64

	currentRound int
	matchOver    bool
	readyNext    map[int]bool

	destroyed bool
}

// NewRoom builds an empty room in WaitingForPlayers. onEmpty is the
// directory's disposal callback, invoked exactly once when the room
// destroys itself.
func NewRoom(id string, settings Settings, timerCfg TimerConfig, clock quartz.Clock, rng *rand.Rand, logger *log.Logger, onEmpty func(roomID string)) *Room {
	return &Room{
		id:                 id,
		settings:           settings,
		timerCfg:           timerCfg,
		logger:             logger.WithPrefix("room." + id),
		clock:              clock,
		rng:                rng,
		policy:             ai.NewPolicy(rng),
		onEmpty:            onEmpty,
		phase:              PhaseWaitingForPlayers,
		currentPlayerIndex: -1,
		dealerIndex:        -1,
		lastDiscarderIndex: -1,
		readyNext:          map[int]bool{},
	}
}

// ID returns the room identifier.
func (r *Room) ID() string { return r.id }

// Summary is the lobby listing entry for a room.
type Summary struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	PlayersCount      int    `json:"playersCount"`
	TargetHumans      int    `json:"targetHumans"`
	CurrentHumans     int    `json:"currentHumans"`
	Status            string `json:"status"`
	PasswordProtected bool   `json:"passwordProtected"`
	Rounds            int    `json:"rounds"`
	HostName          string `json:"hostName"`
}

// Summarize produces the lobby listing entry.
func (r *Room) Summarize() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	humans := 0
	host := ""
	for _, s := range r.seats {
		if s.IsHuman {
			humans++
		}
		if s.IsHost {
			host = s.Name
		}
	}
	status := "waiting"
	switch {
	case r.matchOver:
		status = "finished"
	case r.phase != PhaseWaitingForPlayers:
		status = "playing"
	}
	return Summary{
		ID:                r.id,
		Name:              r.settings.RoomName,
		PlayersCount:      len(r.seats),
		TargetHumans:      r.settings.TargetHumans,
		CurrentHumans:     humans,
		Status:            status,
		PasswordProtected: r.settings.Password != "",
		Rounds:            r.settings.Rounds,
		HostName:          host,
	}
}

// Destroyed reports whether the room has been disposed.
func (r *Room) Destroyed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.destroyed
}

// Join seats a player. During active play only a reconnection is
// accepted: an offline human seat whose display name matches is re-bound
// to the new socket. Before the match starts, the lowest-index free seat
// is assigned. Returns the seat index and the joiner's snapshot.
func (r *Room) Join(name, password string, conn Sender) (int, GameState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return -1, GameState{}, errors.New("room no longer exists")
	}
	if r.settings.Password != "" && password != r.settings.Password {
		return -1, GameState{}, ErrBadPassword
	}

	// Reconnection path: re-bind an offline human seat by name.
	for _, s := range r.seats {
		if s.IsHuman && !s.IsOnline && s.Name == name {
			s.IsOnline = true
			s.Conn = conn
			r.cancelTimer(TimerEmptyRoom)
			r.systemMessage(fmt.Sprintf("%s reconnected", name))
			r.logger.Info("player reconnected", "seat", s.Index, "name", name)

			// The returning player may have been substituted mid-action;
			// a live AI-think timer for this seat stays valid (the seat
			// still holds the action) and simply keeps acting until the
			// player submits something, which cancels it.
			r.broadcastState()
			return s.Index, r.snapshotFor(s.Index), nil
		}
	}

	if r.phase != PhaseWaitingForPlayers {
		return -1, GameState{}, ErrGameInProgress
	}
	if len(r.seats) >= seatCount {
		return -1, GameState{}, ErrRoomFull
	}

	idx := r.lowestFreeIndex()
	s := &Seat{
		Index:    idx,
		Name:     name,
		IsHuman:  true,
		IsOnline: true,
		Conn:     conn,
		IsHost:   !r.hasHost(),
	}
	r.seats = append(r.seats, s)
	sort.Slice(r.seats, func(i, j int) bool { return r.seats[i].Index < r.seats[j].Index })

	r.cancelTimer(TimerEmptyRoom)
	r.systemMessage(fmt.Sprintf("%s joined the room", name))
	r.logger.Info("player joined", "seat", idx, "name", name)
	r.broadcastState()
	return idx, r.snapshotFor(idx), nil
}

// Disconnect handles a socket drop. In the waiting room the seat is
// removed outright; during play the seat is retained offline and the AI
// policy acts for it.
func (r *Room) Disconnect(seatIdx int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detachSeat(seatIdx, "disconnected")
}

// Leave handles an explicit quit. Same retention rules as Disconnect.
func (r *Room) Leave(seatIdx int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detachSeat(seatIdx, "left the game")
}

func (r *Room) detachSeat(seatIdx int, verb string) {
	if r.destroyed {
		return
	}
	s := r.seatAt(seatIdx)
	if s == nil || !s.IsHuman || !s.IsOnline {
		return
	}

	s.IsOnline = false
	s.Conn = nil
	wasHost := s.IsHost
	s.IsHost = false
	r.logger.Info("player detached", "seat", seatIdx, "name", s.Name, "reason", verb)

	if r.phase == PhaseWaitingForPlayers {
		r.removeSeat(seatIdx)
	}

	var newHost *int
	if wasHost {
		if h := r.lowestOnlineHuman(); h != nil {
			h.IsHost = true
			idx := h.Index
			newHost = &idx
			r.systemMessage(fmt.Sprintf("%s is now the host", h.Name))
		}
	}

	r.systemMessage(fmt.Sprintf("%s %s", s.Name, verb))
	r.broadcastEvent(EventGamePlayerLeft, PlayerLeft{
		PlayerID:  seatIdx,
		NewHostID: newHost,
		Message:   fmt.Sprintf("%s %s", s.Name, verb),
	})

	if r.onlineHumanCount() == 0 {
		if r.phase == PhaseWaitingForPlayers {
			r.destroy("all players left")
			return
		}
		r.forceTerminateMatch()
	}

	// If the departing seat holds the action the policy takes over.
	if r.phase.inRound() && r.expectedActor() == seatIdx {
		r.scheduleActorTimers()
	}
	r.broadcastState()
}

// removeSeat drops a seat entirely (waiting room only).
func (r *Room) removeSeat(seatIdx int) {
	for i, s := range r.seats {
		if s.Index == seatIdx {
			r.seats = append(r.seats[:i], r.seats[i+1:]...)
			return
		}
	}
}

// RequestStart begins the match. Host only; seats short of four are
// filled with AI when the room was created with fillWithAI.
func (r *Room) RequestStart(seatIdx int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return errors.New("room no longer exists")
	}
	s := r.seatAt(seatIdx)
	if s == nil || !s.IsHost {
		return ErrNotHost
	}
	if r.phase != PhaseWaitingForPlayers {
		return ErrGameInProgress
	}
	if len(r.seats) < seatCount {
		if !r.settings.FillWithAI {
			return ErrNotEnoughSeats
		}
		r.fillWithAI()
	}

	r.dealerIndex = r.rng.IntN(seatCount)
	r.currentRound = 1
	for _, seat := range r.seats {
		seat.Score = 0
	}
	r.systemMessage("game started")
	r.logger.Info("match started", "dealer", r.dealerIndex, "rounds", r.settings.Rounds)
	r.startRound()
	return nil
}

func (r *Room) fillWithAI() {
	n := 1
	for len(r.seats) < seatCount {
		idx := r.lowestFreeIndex()
		r.seats = append(r.seats, &Seat{
			Index:   idx,
			Name:    fmt.Sprintf("Bot %d", n),
			IsHuman: false,
		})
		n++
		sort.Slice(r.seats, func(i, j int) bool { return r.seats[i].Index < r.seats[j].Index })
	}
}

// Chat appends a player message to the bounded log and broadcasts it.
func (r *Room) Chat(seatIdx int, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.seatAt(seatIdx)
	if s == nil || r.destroyed {
		return
	}
	msg := newChatMessage(s.Name, text, "chat", r.clock.Now())
	r.pushMessage(msg)
	r.broadcastEvent(EventGameChatMessage, msg)
}

// HandleAction is the transport entry point for game actions. The seat's
// reentrancy slot rejects overlapping submissions from the same socket.
func (r *Room) HandleAction(seatIdx int, a Action) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return
	}
	s := r.seatAt(seatIdx)
	if s == nil {
		return
	}
	if !s.beginAction() {
		s.send(EventGameError, newGameError("operation already in flight"))
		return
	}
	defer s.endAction()

	r.dispatch(s, a, false)
}

// dispatch executes one action. fromAI marks policy-produced actions,
// which fall back to a deterministic default instead of receiving error
// events.
func (r *Room) dispatch(s *Seat, a Action, fromAI bool) {
	switch a.Type {
	case ActionConfirmNextRound:
		r.confirmNextRound(s)
	case ActionRequestRematch:
		r.fail(s, "rematch is not supported", fromAI)
	case ActionPassClaim, ActionClaimTriplet, ActionClaimQuad, ActionClaimRun:
		r.resolveClaimAction(s.Index, a)
	case ActionDeclareWin:
		if r.inClaimDecision(s.Index) {
			r.resolveClaimAction(s.Index, a)
			return
		}
		r.declareSelfWin(s, fromAI)
	case ActionDrawTile:
		if !r.requireTurn(s, fromAI, PhasePlayerTurnStart) {
			return
		}
		r.cancelSeatTimers()
		r.doDraw(s)
	case ActionDiscardTile:
		if !r.requireTurn(s, fromAI, PhasePlayerDrawn, PhaseAwaitingDiscard) {
			return
		}
		r.cancelSeatTimers()
		r.doDiscard(s, a.TileID, fromAI)
	case ActionDeclareConcealedQuad:
		if !r.requireTurn(s, fromAI, PhasePlayerTurnStart, PhasePlayerDrawn, PhaseAwaitingDiscard) {
			return
		}
		r.declareConcealedQuad(s, a, fromAI)
	case ActionUpgradeTripletToQuad:
		if !r.requireTurn(s, fromAI, PhasePlayerTurnStart, PhasePlayerDrawn, PhaseAwaitingDiscard) {
			return
		}
		r.upgradeTripletToQuad(s, a, fromAI)
	default:
		r.fail(s, fmt.Sprintf("unknown action %q", a.Type), fromAI)
	}
}

// requireTurn validates turn ownership and phase membership.
func (r *Room) requireTurn(s *Seat, fromAI bool, phases ...Phase) bool {
	if r.currentPlayerIndex != s.Index {
		r.fail(s, "not your turn", fromAI)
		return false
	}
	for _, p := range phases {
		if r.phase == p {
			return true
		}
	}
	r.fail(s, fmt.Sprintf("action not allowed in phase %s", r.phase), fromAI)
	return false
}

// fail reports a rule or phase error. Human submitters get a gameError
// and a restarted timer; a failed policy action falls back to the
// deterministic default so the state machine never stalls.
func (r *Room) fail(s *Seat, text string, fromAI bool) {
	if fromAI {
		r.logger.Error("policy produced an illegal action, falling back", "seat", s.Index, "err", text)
		r.defaultAction(s.Index)
		return
	}
	s.send(EventGameError, newGameError(text))
	if r.expectedActor() == s.Index {
		r.scheduleActorTimers()
	}
}

// defaultAction is the unconditional fallback: pass a claim, otherwise
// run the turn timer's auto-action.
func (r *Room) defaultAction(seatIdx int) {
	if r.inClaimDecision(seatIdx) {
		r.dropClaimantKindAndResume(seatIdx, -1)
		return
	}
	if r.phase.isTurnPhase() && r.currentPlayerIndex == seatIdx {
		r.cancelSeatTimers()
		r.autoTurnAction(seatIdx)
	}
}

// ----- round lifecycle -----

// startRound deals a fresh round: hands cleared, deck reshuffled, eight
// tiles to the dealer and seven to everyone else. The dealer's eighth
// tile is treated as the drawn tile, so play opens in AwaitingDiscard.
func (r *Room) startRound() {
	r.phase = PhaseDealing
	r.deck = tile.NewDeck()
	tile.Shuffle(r.deck, r.rng)
	r.discards = nil
	r.turnNumber = 1
	r.lastDiscarded = nil
	r.lastDrawn = nil
	r.lastDiscarderIndex = -1
	r.winner = nil
	r.winType = ""
	r.winningTileID = ""
	r.winningDiscarder = nil
	r.isDrawGame = false
	r.readyNext = map[int]bool{}
	r.clearClaimState()

	for _, s := range r.seats {
		s.Hand = nil
		s.Melds = nil
		s.PendingClaims = nil
		s.IsDealer = s.Index == r.dealerIndex
	}

	// Deal clockwise from the dealer: seven each, then the dealer's extra.
	for i := 0; i < 7; i++ {
		for off := 0; off < seatCount; off++ {
			s := r.seatAt((r.dealerIndex + off) % seatCount)
			s.Hand = append(s.Hand, r.popDeck())
		}
	}
	dealer := r.seatAt(r.dealerIndex)
	extra := r.popDeck()
	dealer.Hand = append(dealer.Hand, extra)
	r.lastDrawn = &extra

	for _, s := range r.seats {
		tile.VisualSort(s.Hand)
	}

	r.currentPlayerIndex = r.dealerIndex
	r.phase = PhaseAwaitingDiscard
	r.logger.Info("round started", "round", r.currentRound, "dealer", r.dealerIndex)
	r.broadcastState()
	r.scheduleActorTimers()
}

// startNextRound is the inter-round expiry (or all-confirmed shortcut).
// The dealer keeps the deal after winning or after a draw-game, and
// rotates clockwise otherwise.
func (r *Room) startNextRound() {
	if r.destroyed || r.matchOver || r.phase != PhaseRoundOver {
		return
	}
	r.cancelTimer(TimerInterRound)
	if r.winner != nil && *r.winner != r.dealerIndex {
		r.dealerIndex = (r.dealerIndex + 1) % seatCount
	}
	r.currentRound++
	r.startRound()
}

func (r *Room) confirmNextRound(s *Seat) {
	if r.phase != PhaseRoundOver || !s.IsHuman || !s.IsOnline {
		return
	}
	r.readyNext[s.Index] = true

	allReady := true
	for _, seat := range r.seats {
		if seat.IsHuman && seat.IsOnline && !r.readyNext[seat.Index] {
			allReady = false
			break
		}
	}
	if allReady {
		r.startNextRound()
		return
	}
	r.broadcastState()
}

// endRound closes the round: scores settle, hands are revealed by the
// snapshot rules, and either the inter-round countdown or match end
// follows.
func (r *Room) endRound() {
	r.cancelSeatTimers()
	r.clearClaimState()
	r.lastDrawn = nil
	r.settleScores()

	if r.currentRound >= r.settings.Rounds {
		r.phase = PhaseGameOver
		r.matchOver = true
		r.systemMessage("match over")
		r.logger.Info("match over", "rounds", r.currentRound)
		if r.onlineHumanCount() == 0 {
			r.startOneShot(TimerEmptyRoom, -1, r.timerCfg.EmptyRoomTTL)
		}
		r.broadcastState()
		return
	}

	r.phase = PhaseRoundOver
	r.readyNext = map[int]bool{}
	r.startCountdown(TimerInterRound, -1, r.timerCfg.InterRoundSeconds)
	r.logger.Info("round over", "round", r.currentRound, "winner", r.winner, "draw", r.isDrawGame)
	r.broadcastState()
}

// settleScores applies the per-seat integers: a self-drawn (or heavenly)
// win collects one point from every seat, a discard win charges only the
// discarder.
func (r *Room) settleScores() {
	if r.winner == nil {
		return
	}
	w := r.seatAt(*r.winner)
	switch r.winType {
	case WinDiscard:
		if r.winningDiscarder != nil {
			r.seatAt(*r.winningDiscarder).Score--
			w.Score++
		}
	default:
		for _, s := range r.seats {
			if s.Index != w.Index {
				s.Score--
				w.Score++
			}
		}
	}
}

func (r *Room) endRoundAsDraw() {
	r.isDrawGame = true
	r.winner = nil
	r.systemMessage("deck exhausted, the round is a draw")
	r.endRound()
}

// forceTerminateMatch ends the match on the spot once every human seat
// is offline: there is nobody left to play for. The room is held for the
// empty-room TTL, then disposed.
func (r *Room) forceTerminateMatch() {
	r.cancelSeatTimers()
	r.cancelTimer(TimerInterRound)
	r.clearClaimState()
	if !r.matchOver {
		r.lastDrawn = nil
		r.phase = PhaseGameOver
		r.matchOver = true
		r.systemMessage("match terminated: all players offline")
		r.logger.Info("match force-terminated", "round", r.currentRound)
	}
	r.startOneShot(TimerEmptyRoom, -1, r.timerCfg.EmptyRoomTTL)
}

// ----- turn sequence -----

// doDraw pops the deck head into the actor's hand. Deck exhaustion at a
// draw attempt ends the round as a draw.
func (r *Room) doDraw(s *Seat) {
	if len(r.deck) == 0 {
		r.endRoundAsDraw()
		return
	}
	t := r.popDeck()
	s.Hand = append(s.Hand, t)
	tile.VisualSort(s.Hand)
	r.lastDrawn = &t
	r.phase = PhasePlayerDrawn
	r.broadcastState()
	r.scheduleActorTimers()
}

// doDiscard moves the identified hand tile to the discard pile head and
// opens the claim window.
func (r *Room) doDiscard(s *Seat, tileID string, fromAI bool) {
	kept, removed, err := rules.RemoveByIDs(s.Hand, tileID)
	if err != nil {
		r.fail(s, "tile is not in your hand", fromAI)
		return
	}
	s.Hand = kept
	tile.VisualSort(s.Hand)
	t := removed[0]

	r.discards = append([]DiscardedTile{{Tile: t, Discarder: s.Index}}, r.discards...)
	r.lastDiscarded = &t
	r.lastDiscarderIndex = s.Index
	r.lastDrawn = nil
	r.phase = PhaseTileDiscarded
	r.collectClaims(t)
}

// declareSelfWin validates a win on the actor's own tiles: the regular
// self-draw in PlayerDrawn, or the dealer's heavenly win on the initial
// eight before any discard.
func (r *Room) declareSelfWin(s *Seat, fromAI bool) {
	if !r.requireTurn(s, fromAI, PhasePlayerTurnStart, PhasePlayerDrawn, PhaseAwaitingDiscard) {
		return
	}
	res := rules.CheckWin(s.Hand, len(s.Melds))
	if !res.Win {
		r.fail(s, "hand is not a winning hand", fromAI)
		return
	}
	r.cancelSeatTimers()

	winType := WinSelfDrawn
	if s.IsDealer && r.turnNumber == 1 && len(r.discards) == 0 {
		winType = WinHeavenly
	}
	idx := s.Index
	r.winner = &idx
	r.winType = winType
	if r.lastDrawn != nil {
		r.winningTileID = r.lastDrawn.ID
	}
	r.announce(fmt.Sprintf("%s wins!", s.Name), idx, false)
	r.systemMessage(fmt.Sprintf("%s wins the round", s.Name))
	r.endRound()
}

// declareConcealedQuad forms a concealed quad from four held copies and
// draws a replacement tile.
func (r *Room) declareConcealedQuad(s *Seat, a Action, fromAI bool) {
	if a.Kind == nil {
		r.fail(s, "quad declaration needs a tile kind", fromAI)
		return
	}
	kind := *a.Kind
	if rules.CountKind(s.Hand, kind) < 4 {
		r.fail(s, "you do not hold four of that tile", fromAI)
		return
	}
	r.cancelSeatTimers()

	kept, removed, _ := rules.RemoveKind(s.Hand, kind, 4)
	s.Hand = kept
	s.Melds = append(s.Melds, newMeld(MeldQuad, removed, false, -1, ""))
	r.announce(fmt.Sprintf("%s declares Gang!", s.Name), s.Index, false)
	r.replacementDraw(s)
}

// upgradeTripletToQuad promotes an exposed triplet with the drawn fourth
// copy, then draws a replacement.
func (r *Room) upgradeTripletToQuad(s *Seat, a Action, fromAI bool) {
	if a.Kind == nil {
		r.fail(s, "quad upgrade needs a tile kind", fromAI)
		return
	}
	kind := *a.Kind
	m := s.meldOfOpenTriplet(kind)
	if m == nil {
		r.fail(s, "no exposed triplet of that tile", fromAI)
		return
	}
	if rules.CountKind(s.Hand, kind) < 1 {
		r.fail(s, "the fourth tile is not in your hand", fromAI)
		return
	}
	r.cancelSeatTimers()

	kept, removed, _ := rules.RemoveKind(s.Hand, kind, 1)
	s.Hand = kept
	m.Kind = MeldQuad
	m.Tiles = append(m.Tiles, removed[0])
	r.announce(fmt.Sprintf("%s upgrades to Gang!", s.Name), s.Index, false)
	r.replacementDraw(s)
}

// replacementDraw follows a quad: deck head becomes the drawn tile, or
// with the deck empty the actor must discard without one. The round does
// not end here.
func (r *Room) replacementDraw(s *Seat) {
	if len(r.deck) == 0 {
		r.lastDrawn = nil
		r.phase = PhaseAwaitingDiscard
		r.broadcastState()
		r.scheduleActorTimers()
		return
	}
	t := r.popDeck()
	s.Hand = append(s.Hand, t)
	tile.VisualSort(s.Hand)
	r.lastDrawn = &t
	r.phase = PhasePlayerDrawn
	r.broadcastState()
	r.scheduleActorTimers()
}

// advanceTurn hands control to the seat clockwise of the discarder.
func (r *Room) advanceTurn() {
	r.currentPlayerIndex = (r.lastDiscarderIndex + 1) % seatCount
	r.turnNumber++
	r.lastDrawn = nil
	r.phase = PhasePlayerTurnStart
	r.broadcastState()
	r.scheduleActorTimers()
}

// ----- claim arbitration -----

// collectClaims computes every other seat's candidates on the fresh
// discard and opens sequential arbitration, or advances the turn when
// nobody can claim.
func (r *Room) collectClaims(discard tile.Tile) {
	r.phase = PhaseAwaitingClaimsResolution
	r.claimQueue = nil
	r.multiHu = false

	nextSeat := (r.lastDiscarderIndex + 1) % seatCount
	winners := 0
	for _, s := range r.seats {
		if s.Index == r.lastDiscarderIndex {
			continue
		}
		var kinds []ClaimKind
		winHand := append(append([]tile.Tile(nil), s.Hand...), discard)
		if rules.CheckWin(winHand, len(s.Melds)).Win {
			kinds = append(kinds, ClaimWin)
			winners++
		}
		if rules.CanMingGang(s.Hand, discard) {
			kinds = append(kinds, ClaimQuad)
		}
		if rules.CanPeng(s.Hand, discard) {
			kinds = append(kinds, ClaimTriplet)
		}
		if s.Index == nextSeat && len(rules.ChiOptions(s.Hand, discard)) > 0 {
			kinds = append(kinds, ClaimRun)
		}
		if len(kinds) > 0 {
			sort.SliceStable(kinds, func(i, j int) bool { return kinds[i].Priority() > kinds[j].Priority() })
			r.claimQueue = append(r.claimQueue, &claimant{seat: s.Index, kinds: kinds})
		}
	}
	r.multiHu = winners > 1

	if len(r.claimQueue) == 0 {
		r.broadcastState()
		r.advanceTurn()
		return
	}
	sortClaimQueue(r.claimQueue)
	r.promptNextClaimant()
}

// promptNextClaimant moves the arbitration head into its decision
// window, or resumes the turn order when the queue is exhausted.
func (r *Room) promptNextClaimant() {
	if len(r.claimQueue) == 0 {
		r.clearClaimState()
		r.advanceTurn()
		return
	}
	head := r.claimQueue[0]
	s := r.seatAt(head.seat)
	idx := head.seat
	r.claimDecider = &idx
	s.PendingClaims = nil
	for _, k := range head.kinds {
		s.PendingClaims = append(s.PendingClaims, Claim{Kind: k, Seat: idx})
	}
	r.chiOptions = nil
	if head.has(ClaimRun) && r.lastDiscarded != nil {
		r.chiOptions = rules.ChiOptions(s.Hand, *r.lastDiscarded)
	}
	r.phase = PhaseAwaitingPlayerClaimAction
	r.broadcastState()
	r.scheduleActorTimers()
}

func (r *Room) inClaimDecision(seatIdx int) bool {
	return (r.phase == PhaseAwaitingPlayerClaimAction || r.phase == PhaseActionPendingChiChoice) &&
		r.claimDecider != nil && *r.claimDecider == seatIdx
}

// resolveClaimAction handles the decider's answer: a pass, a declared
// claim, or a win on the discard. Illegal answers drop only the offending
// candidate and re-enter arbitration.
func (r *Room) resolveClaimAction(seatIdx int, a Action) {
	if !r.inClaimDecision(seatIdx) {
		if s := r.seatAt(seatIdx); s != nil {
			s.send(EventGameError, newGameError("no claim decision pending for you"))
		}
		return
	}
	s := r.seatAt(seatIdx)
	head := r.claimQueue[0]
	fromAI := s.needsAIDrive()

	switch a.Type {
	case ActionPassClaim:
		r.cancelSeatTimers()
		s.PendingClaims = nil
		r.claimQueue = r.claimQueue[1:]
		r.promptNextClaimant()

	case ActionDeclareWin:
		if !head.has(ClaimWin) {
			r.rejectClaim(s, ClaimWin, "you cannot win on this discard", fromAI)
			return
		}
		r.winOnDiscard(s)

	case ActionClaimQuad:
		if !head.has(ClaimQuad) || !rules.CanMingGang(s.Hand, *r.lastDiscarded) {
			r.rejectClaim(s, ClaimQuad, "you cannot form a quad on this discard", fromAI)
			return
		}
		r.executeMeldClaim(s, MeldQuad, nil)

	case ActionClaimTriplet:
		if !head.has(ClaimTriplet) || !rules.CanPeng(s.Hand, *r.lastDiscarded) {
			r.rejectClaim(s, ClaimTriplet, "you cannot form a triplet on this discard", fromAI)
			return
		}
		r.executeMeldClaim(s, MeldTriplet, nil)

	case ActionClaimRun:
		if !head.has(ClaimRun) {
			r.rejectClaim(s, ClaimRun, "you cannot form a run on this discard", fromAI)
			return
		}
		pair, ok := r.resolveChiPair(s, a)
		if !ok {
			return
		}
		r.executeMeldClaim(s, MeldRun, pair)

	default:
		if s2 := r.seatAt(seatIdx); s2 != nil {
			s2.send(EventGameError, newGameError("action is not a claim answer"))
		}
	}
}

// resolveChiPair picks the two hand tiles for a Run claim. A human with
// several options and no explicit choice is parked in the chi-choice
// sub-step until the client resubmits with the pair.
func (r *Room) resolveChiPair(s *Seat, a Action) ([]tile.Tile, bool) {
	if len(a.HandTileIDs) == 2 {
		for _, opt := range r.chiOptions {
			ids := map[string]bool{opt[0].ID: true, opt[1].ID: true}
			if ids[a.HandTileIDs[0]] && ids[a.HandTileIDs[1]] {
				return []tile.Tile{opt[0], opt[1]}, true
			}
		}
		r.rejectClaim(s, ClaimRun, "those tiles do not form a run with the discard", s.needsAIDrive())
		return nil, false
	}
	if len(r.chiOptions) == 1 {
		return []tile.Tile{r.chiOptions[0][0], r.chiOptions[0][1]}, true
	}
	if s.needsAIDrive() {
		// The policy always names a pair; reaching here means it did not.
		r.rejectClaim(s, ClaimRun, "run claim without a tile pair", true)
		return nil, false
	}
	r.phase = PhaseActionPendingChiChoice
	r.broadcastState()
	r.scheduleActorTimers()
	return nil, false
}

// rejectClaim drops one candidate kind from the decider and re-enters
// arbitration; the decider keeps any other candidates it holds.
func (r *Room) rejectClaim(s *Seat, kind ClaimKind, text string, fromAI bool) {
	if !fromAI {
		s.send(EventGameError, newGameError(text))
	} else {
		r.logger.Error("policy produced an illegal claim", "seat", s.Index, "claim", kind, "err", text)
	}
	r.dropClaimantKindAndResume(s.Index, kind)
}

// dropClaimantKindAndResume removes a candidate (or, with kind -1, the
// whole claimant) and re-sorts the queue before prompting again.
func (r *Room) dropClaimantKindAndResume(seatIdx int, kind ClaimKind) {
	r.cancelSeatTimers()
	for i, c := range r.claimQueue {
		if c.seat != seatIdx {
			continue
		}
		if kind < 0 {
			c.kinds = nil
		} else {
			c.dropKind(kind)
		}
		if len(c.kinds) == 0 {
			r.seatAt(seatIdx).PendingClaims = nil
			r.claimQueue = append(r.claimQueue[:i], r.claimQueue[i+1:]...)
		}
		break
	}
	sortClaimQueue(r.claimQueue)
	r.promptNextClaimant()
}

// winOnDiscard completes a claimed win: the discard joins the winner's
// hand and the round ends. With several win candidates on the same
// discard the announcement is flagged multi-hu; the lowest seat decides
// first and its win terminates the round.
func (r *Room) winOnDiscard(s *Seat) {
	r.cancelSeatTimers()
	t := r.takeClaimedDiscard()
	s.Hand = append(s.Hand, t)
	tile.VisualSort(s.Hand)

	idx := s.Index
	discarder := r.lastDiscarderIndex
	r.winner = &idx
	r.winType = WinDiscard
	r.winningTileID = t.ID
	r.winningDiscarder = &discarder
	r.announce(fmt.Sprintf("%s wins on the discard!", s.Name), idx, r.multiHu)
	r.systemMessage(fmt.Sprintf("%s wins the round", s.Name))
	r.endRound()
}

// executeMeldClaim materialises a claimed Run, Triplet, or Quad. The
// claimant becomes the current actor: quads draw a replacement, runs and
// triplets go straight to the forced discard.
func (r *Room) executeMeldClaim(s *Seat, kind MeldKind, chiPair []tile.Tile) {
	r.cancelSeatTimers()
	t := r.takeClaimedDiscard()
	discarder := r.lastDiscarderIndex

	var handTiles []tile.Tile
	switch kind {
	case MeldQuad:
		kept, removed, _ := rules.RemoveKind(s.Hand, t.Kind, 3)
		s.Hand = kept
		handTiles = removed
		r.announce(fmt.Sprintf("%s declares Gang!", s.Name), s.Index, false)
	case MeldTriplet:
		kept, removed, _ := rules.RemoveKind(s.Hand, t.Kind, 2)
		s.Hand = kept
		handTiles = removed
		r.announce(fmt.Sprintf("%s declares Peng!", s.Name), s.Index, false)
	case MeldRun:
		kept, removed, _ := rules.RemoveByIDs(s.Hand, chiPair[0].ID, chiPair[1].ID)
		s.Hand = kept
		handTiles = removed
		r.announce(fmt.Sprintf("%s declares Chi!", s.Name), s.Index, false)
	}
	tile.VisualSort(s.Hand)

	melded := append(handTiles, t)
	s.Melds = append(s.Melds, newMeld(kind, melded, true, discarder, t.ID))

	r.clearClaimState()
	r.currentPlayerIndex = s.Index
	r.turnNumber++
	if kind == MeldQuad {
		r.replacementDraw(s)
		return
	}
	r.lastDrawn = nil
	r.phase = PhaseAwaitingDiscard
	r.broadcastState()
	r.scheduleActorTimers()
}

// takeClaimedDiscard removes the consumed tile from the pile. It must be
// the head; a mismatch is logged and spliced out defensively.
func (r *Room) takeClaimedDiscard() tile.Tile {
	t := *r.lastDiscarded
	if len(r.discards) > 0 && r.discards[0].Tile.ID == t.ID {
		r.discards = r.discards[1:]
	} else {
		r.logger.Warn("claimed discard is not the pile head, splicing", "tile", t.ID)
		for i, d := range r.discards {
			if d.Tile.ID == t.ID {
				r.discards = append(r.discards[:i], r.discards[i+1:]...)
				break
			}
		}
	}
	r.lastDiscarded = nil
	return t
}

func (r *Room) clearClaimState() {
	for _, s := range r.seats {
		s.PendingClaims = nil
	}
	r.claimQueue = nil
	r.claimDecider = nil
	r.chiOptions = nil
	r.multiHu = false
}

// ----- AI driver -----

// driveAI queries the policy for the seat currently holding the action
// and submits the produced action through the normal dispatch path.
func (r *Room) driveAI(seatIdx int) {
	s := r.seatAt(seatIdx)
	if s == nil || r.destroyed || r.expectedActor() != seatIdx {
		return
	}

	v := r.buildView(s)
	var decided ai.Action
	if r.inClaimDecision(seatIdx) {
		decided = r.policy.DecideClaim(v)
	} else {
		decided = r.policy.DecideTurn(v)
	}
	r.dispatch(s, fromAIAction(decided), true)
}

// buildView assembles the seat's decision window.
func (r *Room) buildView(s *Seat) ai.View {
	counts := make(map[tile.Kind]int, len(r.discards))
	for _, d := range r.discards {
		counts[d.Tile.Kind]++
	}

	v := ai.View{
		Hand:            append([]tile.Tile(nil), s.Hand...),
		MeldCount:       len(s.Melds),
		ExposedTriplets: s.openTripletKinds(),
		DiscardCounts:   counts,
	}
	if r.currentPlayerIndex == s.Index && r.lastDrawn != nil {
		d := *r.lastDrawn
		v.Drawn = &d
	}
	if r.phase == PhaseAwaitingDiscard && r.lastDrawn == nil {
		v.MustDiscard = true
	}
	if r.inClaimDecision(s.Index) && r.lastDiscarded != nil {
		d := *r.lastDiscarded
		v.Discard = &d
		v.IsNextOfDiscard = s.Index == (r.lastDiscarderIndex+1)%seatCount
		head := r.claimQueue[0]
		v.CanWin = head.has(ClaimWin)
		v.CanGang = head.has(ClaimQuad)
		v.CanPeng = head.has(ClaimTriplet)
		v.CanChi = head.has(ClaimRun)
	}
	return v
}

// fromAIAction maps a policy decision onto the wire action shape.
func fromAIAction(a ai.Action) Action {
	switch a.Type {
	case ai.DrawTile:
		return Action{Type: ActionDrawTile}
	case ai.DiscardTile:
		return Action{Type: ActionDiscardTile, TileID: a.TileID}
	case ai.DeclareConcealedQuad:
		k := a.Kind
		return Action{Type: ActionDeclareConcealedQuad, Kind: &k}
	case ai.UpgradeTripletToQuad:
		k := a.Kind
		return Action{Type: ActionUpgradeTripletToQuad, Kind: &k}
	case ai.ClaimChi:
		return Action{Type: ActionClaimRun, HandTileIDs: []string{a.ChiTiles[0].ID, a.ChiTiles[1].ID}}
	case ai.ClaimPeng:
		return Action{Type: ActionClaimTriplet}
	case ai.ClaimGang:
		return Action{Type: ActionClaimQuad}
	case ai.DeclareWin:
		return Action{Type: ActionDeclareWin}
	default:
		return Action{Type: ActionPassClaim}
	}
}

// ----- scheduling and plumbing -----

// scheduleActorTimers cancels the seat-bound timers and arms the one the
// current expected actor needs: a ticking window for an online human, a
// jittered think delay for an AI or offline seat.
func (r *Room) scheduleActorTimers() {
	r.cancelSeatTimers()
	actor := r.expectedActor()
	if actor < 0 {
		return
	}
	s := r.seatAt(actor)
	if s == nil {
		return
	}
	if s.needsAIDrive() {
		r.startOneShot(TimerAIThink, actor, r.aiThinkDelay())
		return
	}
	if r.phase == PhaseAwaitingPlayerClaimAction || r.phase == PhaseActionPendingChiChoice {
		r.startCountdown(TimerClaim, actor, r.timerCfg.ClaimSeconds)
		return
	}
	r.startCountdown(TimerTurn, actor, r.timerCfg.TurnSeconds)
}

func (r *Room) aiThinkDelay() time.Duration {
	span := int64(r.timerCfg.AIThinkMax - r.timerCfg.AIThinkMin)
	if span <= 0 {
		return r.timerCfg.AIThinkMin
	}
	return r.timerCfg.AIThinkMin + time.Duration(r.rng.Int64N(span+1))
}

// expectedActor is the seat the room is waiting on, or -1.
func (r *Room) expectedActor() int {
	switch {
	case r.phase.isTurnPhase():
		return r.currentPlayerIndex
	case r.phase == PhaseAwaitingPlayerClaimAction || r.phase == PhaseActionPendingChiChoice:
		if r.claimDecider != nil {
			return *r.claimDecider
		}
	}
	return -1
}

func (r *Room) onlineHumanCount() int {
	n := 0
	for _, s := range r.seats {
		if s.IsHuman && s.IsOnline {
			n++
		}
	}
	return n
}

func (r *Room) seatAt(idx int) *Seat {
	for _, s := range r.seats {
		if s.Index == idx {
			return s
		}
	}
	return nil
}

func (r *Room) lowestFreeIndex() int {
	used := map[int]bool{}
	for _, s := range r.seats {
		used[s.Index] = true
	}
	for i := 0; i < seatCount; i++ {
		if !used[i] {
			return i
		}
	}
	return -1
}

func (r *Room) hasHost() bool {
	for _, s := range r.seats {
		if s.IsHost {
			return true
		}
	}
	return false
}

func (r *Room) lowestOnlineHuman() *Seat {
	for _, s := range r.seats {
		if s.IsHuman && s.IsOnline {
			return s
		}
	}
	return nil
}

func (r *Room) popDeck() tile.Tile {
	t := r.deck[0]
	r.deck = r.deck[1:]
	return t
}

// nextRoundCountdown is the remaining inter-round seconds for snapshots.
func (r *Room) nextRoundCountdown() int {
	if st := r.timers[TimerInterRound]; st != nil {
		return st.remaining
	}
	return 0
}

func (r *Room) readySeats() []int {
	out := make([]int, 0, len(r.readyNext))
	for idx := range r.readyNext {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// pushMessage prepends to the bounded message log, newest first.
func (r *Room) pushMessage(msg ChatMessage) {
	r.messageLog = append([]ChatMessage{msg}, r.messageLog...)
	if len(r.messageLog) > messageLogCap {
		r.messageLog = r.messageLog[:messageLogCap]
	}
}

func (r *Room) systemMessage(text string) {
	msg := newChatMessage("system", text, "system", r.clock.Now())
	r.pushMessage(msg)
	r.broadcastEvent(EventGameChatMessage, msg)
}

func (r *Room) announce(text string, playerID int, multiHu bool) {
	r.broadcastEvent(EventActionAnnouncement, newAnnouncement(text, playerID, multiHu))
}

// broadcastState sends each connected seat its own redacted snapshot.
func (r *Room) broadcastState() {
	for _, s := range r.seats {
		if s.Conn != nil {
			s.send(EventGameStateUpdate, r.snapshotFor(s.Index))
		}
	}
}

func (r *Room) broadcastEvent(event string, payload any) {
	for _, s := range r.seats {
		s.send(event, payload)
	}
}

// destroy tears the room down and notifies the directory. Idempotent.
func (r *Room) destroy(reason string) {
	if r.destroyed {
		return
	}
	r.destroyed = true
	for role := TimerRole(0); role < timerRoleCount; role++ {
		r.cancelTimer(role)
	}
	r.logger.Info("room destroyed", "reason", reason)
	if r.onEmpty != nil {
		// The directory locks its own table; leave the room lock out of it.
		go r.onEmpty(r.id)
	}
}
