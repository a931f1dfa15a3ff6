/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"sync"
)

// Lobby is the FIFO queue of connections waiting for a quick match.
type Lobby struct {
	mu       sync.Mutex
	registry *Registry
	waiting  []*Client
}

func newLobby(registry *Registry) *Lobby {
	return &Lobby{
		registry: registry,
	}
}

// enqueue pairs the new arrival with the oldest live waiter, or queues it
// if nobody is waiting. Waiters whose connection has since closed are
// discarded rather than matched; the matched notice doubles as the final
// liveness check on the popped peer.
func (l *Lobby) enqueue(cfg *Config, c *Client) {
	if c.isClosed() {
		return
	}

	var peer *Client

	for {
		l.mu.Lock()
		peer = nil
		for len(l.waiting) > 0 {
			head := l.waiting[0]
			l.waiting = l.waiting[1:]
			if head == c || head.isClosed() {
				continue
			}
			peer = head
			break
		}
		if peer == nil {
			l.waiting = append(l.waiting, c)
			l.mu.Unlock()

			c.trySend(WaitingForMatchMessage{Type: "waitingForMatch"})
			logf(cfg, "GAMES: Queued connection for matchmaking")

			return
		}
		l.mu.Unlock()

		roomID := l.registry.newRoomID()
		if !peer.trySend(MatchedMessage{Type: "matched", RoomID: roomID, Player: 1}) {
			continue
		}
		c.trySend(MatchedMessage{Type: "matched", RoomID: roomID, Player: 2})

		s := l.registry.getOrCreate(cfg, roomID)
		s.handleJoin(cfg, joinRequest{client: peer, player: 1})
		s.handleJoin(cfg, joinRequest{client: c, player: 2})

		logf(cfg, "GAMES: Matched two players into room %s", roomID)

		return
	}
}

// leave removes a departing connection from the queue.
func (l *Lobby) leave(c *Client) {
	l.mu.Lock()
	defer l.mu.Unlock()

	dst := l.waiting[:0]
	for _, waiter := range l.waiting {
		if waiter == c {
			continue
		}
		dst = append(dst, waiter)
	}
	l.waiting = dst
}
