/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

// Messages coming from clients
type ClientMessage struct {
	Type      string   `json:"type"`                // "joinRoom", "quickMatch", "submitFieldCards", "submitBattleCard", "surrender", "requestSync", "ping"
	RoomID    string   `json:"roomId,omitempty"`    // all room-scoped requests
	Player    int      `json:"player,omitempty"`    // slot (1 or 2); 0 on joinRoom lets the server assign one
	Cards     []string `json:"cards,omitempty"`     // submitFieldCards
	Card      string   `json:"card,omitempty"`      // submitBattleCard
	CardIndex int      `json:"cardIndex,omitempty"` // submitBattleCard; informational
}

// StartGameMessage is broadcast once both slots are occupied.
type StartGameMessage struct {
	Type string `json:"type"` // "startGame"
}

// MatchedMessage tells a queued client which room and slot it was paired into.
type MatchedMessage struct {
	Type   string `json:"type"` // "matched"
	RoomID string `json:"roomId"`
	Player int    `json:"player"`
}

// WaitingForMatchMessage tells a client it is the sole queued player.
type WaitingForMatchMessage struct {
	Type string `json:"type"` // "waitingForMatch"
}

// OpponentFieldCardsMessage is the face-down notice sent to the opponent
// when a player commits field cards. It never carries the card values.
type OpponentFieldCardsMessage struct {
	Type   string `json:"type"` // "opponentFieldCards"
	Player int    `json:"player"`
}

// AllPlayersReadyMessage reveals both players' field cards simultaneously.
type AllPlayersReadyMessage struct {
	Type       string         `json:"type"` // "allPlayersReady"
	FieldCards map[int][]Card `json:"fieldCards"`
}

// BattleResultMessage carries the round outcome. Winner 0 means a draw.
type BattleResultMessage struct {
	Type   string       `json:"type"` // "battleResult"
	Winner int          `json:"winner"`
	Cards  map[int]Card `json:"cards"`
	Health map[int]int  `json:"health"`
}

// RoundResetMessage signals clients to draw a card and re-enter selection.
type RoundResetMessage struct {
	Type string `json:"type"` // "roundReset"
}

// GameOverMessage ends the room. Winner 0 means a mutual draw.
type GameOverMessage struct {
	Type        string       `json:"type"`   // "gameOver"
	Winner      int          `json:"winner"` // 0, 1, or 2
	Reason      string       `json:"reason"` // "ko", "surrender", or "disconnect"
	FinalHealth map[int]int  `json:"finalHealth,omitempty"`
	FinalCards  map[int]Card `json:"finalCards,omitempty"`
}

// OpponentDisconnectedMessage is a presence notice; the game is still live
// until the grace period elapses.
type OpponentDisconnectedMessage struct {
	Type string `json:"type"` // "opponentDisconnected"
}

// SyncStateMessage is the full per-player snapshot sent on reconnect.
// Opponent cards are only populated once legitimately visible.
type SyncStateMessage struct {
	Type               string `json:"type"` // "syncState"
	Health             int    `json:"health"`
	OpponentHealth     int    `json:"opponentHealth,omitempty"`
	FieldCards         []Card `json:"fieldCards"`
	OpponentFieldCards []Card `json:"opponentFieldCards"`
	BattleCard         Card   `json:"battleCard,omitempty"`
	OpponentBattleCard Card   `json:"opponentBattleCard,omitempty"`
	GameLocked         bool   `json:"gameLocked"`
	BothPlayersReady   bool   `json:"bothPlayersReady"`
}

// ErrorMessage is unicast to the sender of a rejected request.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

// PongMessage answers an application-level ping.
type PongMessage struct {
	Type string `json:"type"` // "pong"
}
