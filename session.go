/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"sync"
	"time"
)

const startingHealth = 5

// cardFaceDown is the placeholder sent for opponent cards that have been
// committed but not yet revealed.
const cardFaceDown Card = "back"

type phase int

const (
	phaseSelecting phase = iota // players choosing their two field cards
	phaseRevealed               // field cards face-up, waiting on battle cards
)

// playerState tracks one slot in a room. The slot number is the durable
// identity; the client handle is swapped out on reconnect.
type playerState struct {
	client         *Client
	health         int
	connected      bool
	disconnectedAt time.Time
}

type joinRequest struct {
	client *Client
	player int // 0 lets the server assign a slot
}

type fieldRequest struct {
	client *Client
	player int
	cards  []string
}

type battleRequest struct {
	client *Client
	player int
	card   string
}

type slotRequest struct {
	client *Client
	player int
}

// Session is the authoritative state of one room. All mutation happens in
// handlers that hold s.mu, fed one at a time by the run loop.
type Session struct {
	id string

	joins      chan joinRequest
	fields     chan fieldRequest
	battles    chan battleRequest
	surrenders chan slotRequest
	syncs      chan slotRequest
	drops      chan *Client

	mu sync.Mutex

	players     map[int]*playerState
	fieldCards  map[int][]Card
	battleCards map[int]Card
	turnEnded   map[int]bool
	roundCount  int
	started     bool
	phase       phase

	lastActive time.Time

	registry *Registry
	done     chan struct{} // closed by the registry on deletion
}

func newSession(roomID string, registry *Registry) *Session {
	now := time.Now()
	return &Session{
		id:          roomID,
		joins:       make(chan joinRequest),
		fields:      make(chan fieldRequest),
		battles:     make(chan battleRequest),
		surrenders:  make(chan slotRequest),
		syncs:       make(chan slotRequest),
		drops:       make(chan *Client),
		players:     make(map[int]*playerState),
		fieldCards:  make(map[int][]Card),
		battleCards: make(map[int]Card),
		turnEnded:   make(map[int]bool),
		roundCount:  1,
		lastActive:  now,
		registry:    registry,
		done:        make(chan struct{}),
	}
}

func (s *Session) run(cfg *Config) {
	for {
		select {
		case jr := <-s.joins:
			s.handleJoin(cfg, jr)
		case fr := <-s.fields:
			s.handleFieldCards(cfg, fr)
		case br := <-s.battles:
			s.handleBattleCard(cfg, br)
		case sr := <-s.surrenders:
			s.handleSurrender(cfg, sr)
		case sr := <-s.syncs:
			s.handleSync(sr)
		case c := <-s.drops:
			s.handleDisconnect(cfg, c)
		case <-s.done:
			return
		}
	}
}

func opponentOf(player int) int {
	return 3 - player
}

// broadcastLocked sends one message value to both connected players in the
// same locked section, so neither client can observe the transition first.
func (s *Session) broadcastLocked(msg any) {
	for _, ps := range s.players {
		if ps.connected {
			ps.client.trySend(msg)
		}
	}
}

func (s *Session) healthLocked() map[int]int {
	health := make(map[int]int, len(s.players))
	for slot, ps := range s.players {
		health[slot] = ps.health
	}
	return health
}

// handleJoin assigns a connection to a slot. An explicit slot claim always
// wins, replacing any previous connection for that slot (reconnect).
func (s *Session) handleJoin(cfg *Config, jr joinRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()

	slot := jr.player
	switch slot {
	case 0:
		for _, candidate := range []int{1, 2} {
			if _, taken := s.players[candidate]; !taken {
				slot = candidate
				break
			}
		}
		if slot == 0 {
			jr.client.trySend(errorMessage("room is full"))
			return
		}
	case 1, 2:
	default:
		jr.client.trySend(errorMessage("invalid player slot"))
		return
	}

	ps, rejoining := s.players[slot]
	if rejoining {
		ps.client = jr.client
		ps.connected = true
		ps.disconnectedAt = time.Time{}
		logf(cfg, "GAMES: Player %d rejoined room %s", slot, s.id)
	} else {
		s.players[slot] = &playerState{
			client:    jr.client,
			health:    startingHealth,
			connected: true,
		}
		logf(cfg, "GAMES: Player %d joined room %s", slot, s.id)
	}

	jr.client.setRoom(s.id, slot)

	if jr.player == 0 {
		jr.client.trySend(MatchedMessage{
			Type:   "matched",
			RoomID: s.id,
			Player: slot,
		})
	}

	if rejoining && s.started {
		jr.client.trySend(s.snapshotLocked(slot))
	}

	if !s.started && len(s.players) == 2 {
		s.started = true
		s.broadcastLocked(StartGameMessage{Type: "startGame"})
		logf(cfg, "GAMES: Room %s started", s.id)
	}
}

// handleFieldCards records a player's two face-down cards, notifies the
// opponent, and reveals both pairs once each slot has submitted.
func (s *Session) handleFieldCards(cfg *Config, fr fieldRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()

	if fr.player != 1 && fr.player != 2 {
		fr.client.trySend(errorMessage("invalid player slot"))
		return
	}
	if _, ok := s.players[fr.player]; !ok {
		fr.client.trySend(errorMessage("player not found in room"))
		return
	}

	// First write wins; resubmissions within a round are ignored.
	if s.turnEnded[fr.player] {
		return
	}

	cards, err := parseCards(fr.cards)
	if err != nil {
		fr.client.trySend(errorMessage(err.Error()))
		return
	}

	s.fieldCards[fr.player] = cards
	s.turnEnded[fr.player] = true

	if opp, ok := s.players[opponentOf(fr.player)]; ok && opp.connected {
		opp.client.trySend(OpponentFieldCardsMessage{
			Type:   "opponentFieldCards",
			Player: fr.player,
		})
	}

	if s.turnEnded[1] && s.turnEnded[2] {
		s.phase = phaseRevealed
		s.broadcastLocked(AllPlayersReadyMessage{
			Type: "allPlayersReady",
			FieldCards: map[int][]Card{
				1: s.fieldCards[1],
				2: s.fieldCards[2],
			},
		})
		logf(cfg, "GAMES: Room %s round %d revealed", s.id, s.roundCount)
	}
}

// handleBattleCard records the single card a player commits to the battle,
// then resolves the round once both commitments are in.
func (s *Session) handleBattleCard(cfg *Config, br battleRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()

	if br.player != 1 && br.player != 2 {
		br.client.trySend(errorMessage("invalid player slot"))
		return
	}
	if _, ok := s.players[br.player]; !ok {
		br.client.trySend(errorMessage("player not found in room"))
		return
	}
	if s.phase != phaseRevealed {
		br.client.trySend(errorMessage("field cards have not been revealed yet"))
		return
	}

	if _, dup := s.battleCards[br.player]; dup {
		return
	}

	card, err := parseCard(br.card)
	if err != nil {
		br.client.trySend(errorMessage(err.Error()))
		return
	}

	revealed := false
	for _, fc := range s.fieldCards[br.player] {
		if fc == card {
			revealed = true
			break
		}
	}
	if !revealed {
		br.client.trySend(errorMessage("card was not among your revealed field cards"))
		return
	}

	s.battleCards[br.player] = card

	if _, ok1 := s.battleCards[1]; ok1 {
		if _, ok2 := s.battleCards[2]; ok2 {
			s.resolveRoundLocked(cfg)
		}
	}
}

func (s *Session) resolveRoundLocked(cfg *Config) {
	card1 := s.battleCards[1]
	card2 := s.battleCards[2]
	winner := resolveBattle(card1, card2)

	switch winner {
	case 1:
		s.players[2].health--
	case 2:
		s.players[1].health--
	}

	health1 := s.players[1].health
	health2 := s.players[2].health

	logf(cfg, "GAMES: Room %s round %d: %s vs %s, winner %d",
		s.id, s.roundCount, card1, card2, winner)

	if health1 <= 0 || health2 <= 0 {
		var final int
		switch {
		case health1 <= 0 && health2 <= 0:
			// Both at zero in the same resolution is a mutual draw.
			final = 0
		case health1 <= 0:
			final = 2
		default:
			final = 1
		}

		s.broadcastLocked(GameOverMessage{
			Type:        "gameOver",
			Winner:      final,
			Reason:      "ko",
			FinalHealth: map[int]int{1: health1, 2: health2},
			FinalCards:  map[int]Card{1: card1, 2: card2},
		})
		s.registry.deleteSession(s)
		logf(cfg, "GAMES: Room %s ended, winner %d", s.id, final)

		return
	}

	s.broadcastLocked(BattleResultMessage{
		Type:   "battleResult",
		Winner: winner,
		Cards:  map[int]Card{1: card1, 2: card2},
		Health: map[int]int{1: health1, 2: health2},
	})

	go s.scheduleRoundReset(cfg, s.roundCount)
}

// scheduleRoundReset waits out the post-battle pause, then clears the
// round-scoped state. Both checks guard against the room having been
// deleted (or already reset) while the timer ran.
func (s *Session) scheduleRoundReset(cfg *Config, round int) {
	time.Sleep(cfg.resetDelay)

	if current, ok := s.registry.get(s.id); !ok || current != s {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.roundCount != round {
		return
	}

	s.fieldCards = make(map[int][]Card)
	s.battleCards = make(map[int]Card)
	s.turnEnded = make(map[int]bool)
	s.roundCount++
	s.phase = phaseSelecting
	s.lastActive = time.Now()

	s.broadcastLocked(RoundResetMessage{Type: "roundReset"})
	logf(cfg, "GAMES: Room %s reset for round %d", s.id, s.roundCount)
}

func (s *Session) handleSurrender(cfg *Config, sr slotRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sr.player != 1 && sr.player != 2 {
		sr.client.trySend(errorMessage("invalid player slot"))
		return
	}
	if _, ok := s.players[sr.player]; !ok {
		sr.client.trySend(errorMessage("player not found in room"))
		return
	}

	winner := opponentOf(sr.player)
	if _, ok := s.players[winner]; !ok {
		sr.client.trySend(errorMessage("no opponent to surrender to"))
		return
	}
	s.broadcastLocked(GameOverMessage{
		Type:        "gameOver",
		Winner:      winner,
		Reason:      "surrender",
		FinalHealth: s.healthLocked(),
	})
	s.registry.deleteSession(s)
	logf(cfg, "GAMES: Player %d surrendered room %s", sr.player, s.id)
}

// handleSync answers a reconnecting client with a snapshot of the current
// state. It is read-only; repeated calls return identical snapshots.
func (s *Session) handleSync(sr slotRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sr.player != 1 && sr.player != 2 {
		sr.client.trySend(errorMessage("invalid player slot"))
		return
	}
	if _, ok := s.players[sr.player]; !ok {
		sr.client.trySend(errorMessage("player not found in room"))
		return
	}

	sr.client.trySend(s.snapshotLocked(sr.player))
}

// snapshotLocked builds the per-player view of the session. Opponent field
// cards are disclosed face-down before the reveal and face-up after. The
// opponent's battle card is disclosed only once both commitments are in,
// at which point resolution has already broadcast it; a lone opponent
// commitment stays hidden until the round reset clears both.
func (s *Session) snapshotLocked(player int) SyncStateMessage {
	opponent := opponentOf(player)

	msg := SyncStateMessage{
		Type:             "syncState",
		Health:           s.players[player].health,
		FieldCards:       append([]Card{}, s.fieldCards[player]...),
		BothPlayersReady: s.phase == phaseRevealed,
	}

	if opp, ok := s.players[opponent]; ok {
		msg.OpponentHealth = opp.health
	}

	switch {
	case s.phase == phaseRevealed:
		msg.OpponentFieldCards = append([]Card{}, s.fieldCards[opponent]...)
	case s.turnEnded[opponent]:
		msg.OpponentFieldCards = []Card{cardFaceDown, cardFaceDown}
	default:
		msg.OpponentFieldCards = []Card{}
	}

	if card, ok := s.battleCards[player]; ok {
		msg.BattleCard = card
		if oppCard, ok := s.battleCards[opponent]; ok {
			msg.OpponentBattleCard = oppCard
		}
	}

	if s.phase == phaseSelecting {
		msg.GameLocked = s.turnEnded[player]
	} else {
		_, msg.GameLocked = s.battleCards[player]
	}

	return msg
}

// handleDisconnect marks a player's slot as disconnected and starts the
// grace period. If the dropped connection has already been replaced by a
// newer one for the same slot, the event is stale and ignored.
func (s *Session) handleDisconnect(cfg *Config, c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := 0
	for candidate, ps := range s.players {
		if ps.client == c {
			slot = candidate
			break
		}
	}
	if slot == 0 {
		return
	}

	ps := s.players[slot]
	if !ps.connected {
		return
	}

	now := time.Now()
	ps.connected = false
	ps.disconnectedAt = now
	s.lastActive = now

	if opp, ok := s.players[opponentOf(slot)]; ok && opp.connected {
		opp.client.trySend(OpponentDisconnectedMessage{Type: "opponentDisconnected"})
	}

	logf(cfg, "GAMES: Player %d disconnected from room %s", slot, s.id)

	go s.scheduleForfeit(cfg, slot, now)
}

// scheduleForfeit waits out the grace period and, if the player has not
// reconnected since this particular disconnect, ends the game in the
// opponent's favor. Reconnection (or room deletion) makes it a no-op.
func (s *Session) scheduleForfeit(cfg *Config, slot int, stamp time.Time) {
	time.Sleep(cfg.gracePeriod)

	if current, ok := s.registry.get(s.id); !ok || current != s {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.players[slot]
	if !ok || ps.connected || !ps.disconnectedAt.Equal(stamp) {
		return
	}

	winner := opponentOf(slot)
	s.broadcastLocked(GameOverMessage{
		Type:        "gameOver",
		Winner:      winner,
		Reason:      "disconnect",
		FinalHealth: s.healthLocked(),
	})
	s.registry.deleteSession(s)
	logf(cfg, "GAMES: Player %d forfeited room %s by disconnect", slot, s.id)
}

// closeAll disconnects both players of this session (used by reaper).
func (s *Session) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ps := range s.players {
		ps.client.close()
		ps.connected = false
	}
}
