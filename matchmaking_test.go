/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"
)

func TestQuickMatchPairsInOrder(t *testing.T) {
	cfg := testConfig()
	registry := newRegistry(cfg)
	lobby := newLobby(registry)

	first := newTestClient()
	lobby.enqueue(cfg, first)
	if countType[WaitingForMatchMessage](drain(first)) != 1 {
		t.Fatalf("sole waiter was not told it is queued")
	}

	second := newTestClient()
	lobby.enqueue(cfg, second)

	matchedFirst := firstOfType[MatchedMessage](t, drain(first))
	matchedSecond := firstOfType[MatchedMessage](t, drain(second))

	if matchedFirst.Player != 1 {
		t.Fatalf("oldest waiter assigned slot %d, want 1", matchedFirst.Player)
	}
	if matchedSecond.Player != 2 {
		t.Fatalf("new arrival assigned slot %d, want 2", matchedSecond.Player)
	}
	if matchedFirst.RoomID == "" || matchedFirst.RoomID != matchedSecond.RoomID {
		t.Fatalf("players matched into different rooms: %q vs %q", matchedFirst.RoomID, matchedSecond.RoomID)
	}

	s, ok := registry.get(matchedFirst.RoomID)
	if !ok {
		t.Fatalf("matched room does not exist")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.players) != 2 || !s.started {
		t.Fatalf("matched room not started with both players")
	}
}

func TestQuickMatchSkipsDeadWaiter(t *testing.T) {
	cfg := testConfig()
	registry := newRegistry(cfg)
	lobby := newLobby(registry)

	dead := newTestClient()
	lobby.enqueue(cfg, dead)
	drain(dead)
	dead.close()

	arrival := newTestClient()
	lobby.enqueue(cfg, arrival)

	// The dead waiter must be discarded, leaving the arrival queued alone.
	if countType[WaitingForMatchMessage](drain(arrival)) != 1 {
		t.Fatalf("arrival was not queued after the dead waiter was discarded")
	}

	live := newTestClient()
	lobby.enqueue(cfg, live)

	matched := firstOfType[MatchedMessage](t, drain(arrival))
	if matched.Player != 1 {
		t.Fatalf("surviving waiter assigned slot %d, want 1", matched.Player)
	}
	if countType[MatchedMessage](drain(live)) != 1 {
		t.Fatalf("new arrival was not matched against the surviving waiter")
	}
}

func TestLobbyLeave(t *testing.T) {
	cfg := testConfig()
	registry := newRegistry(cfg)
	lobby := newLobby(registry)

	departing := newTestClient()
	lobby.enqueue(cfg, departing)
	drain(departing)
	lobby.leave(departing)

	arrival := newTestClient()
	lobby.enqueue(cfg, arrival)
	if countType[WaitingForMatchMessage](drain(arrival)) != 1 {
		t.Fatalf("arrival was matched against a departed waiter")
	}
}

func TestQuickMatchIgnoresClosedArrival(t *testing.T) {
	cfg := testConfig()
	registry := newRegistry(cfg)
	lobby := newLobby(registry)

	closed := newTestClient()
	closed.close()
	lobby.enqueue(cfg, closed)

	arrival := newTestClient()
	lobby.enqueue(cfg, arrival)
	if countType[WaitingForMatchMessage](drain(arrival)) != 1 {
		t.Fatalf("closed connection was left in the queue")
	}
}
