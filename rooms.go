/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"sync"
	"time"
)

// Registry holds the set of live sessions keyed by room id. It is the only
// structure shared across connections; sessions themselves are serialized
// by their own mutex.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Session
}

func newRegistry(cfg *Config) *Registry {
	r := &Registry{
		rooms: make(map[string]*Session),
	}
	if cfg.roomTimeout > 0 {
		go r.reaperLoop(cfg)
	}
	return r
}

// getOrCreate returns the session for roomID, creating and starting a
// fresh one on first join.
func (r *Registry) getOrCreate(cfg *Config, roomID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.rooms[roomID]; ok {
		return s
	}

	s := newSession(roomID, r)
	r.rooms[roomID] = s
	go s.run(cfg)

	logf(cfg, "GAMES: Created room %s", roomID)

	return s
}

// get never creates; reconnect and submission paths use it so a stale room
// id is reported back instead of spawning phantom state.
func (r *Registry) get(roomID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.rooms[roomID]
	return s, ok
}

// delete removes a room and stops its run loop. Deleting twice is a no-op.
func (r *Registry) delete(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.rooms[roomID]
	if !ok {
		return
	}

	delete(r.rooms, roomID)
	close(s.done)
}

// deleteSession removes a room only if target is still the registered
// session for its id, so a timer holding a stale pointer cannot delete a
// recreated room.
func (r *Registry) deleteSession(target *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.rooms[target.id]; !ok || s != target {
		return
	}

	delete(r.rooms, target.id)
	close(target.done)
}

// newRoomID generates a crypto-random room id and ensures it doesn't
// collide with existing rooms.
func (r *Registry) newRoomID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		r.mu.Lock()
		_, exists := r.rooms[id]
		r.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically removes rooms that have been idle longer than
// the configured room timeout. Candidates are collected first so the
// registry lock is never held while a session lock is taken.
func (r *Registry) reaperLoop(cfg *Config) {
	ticker := time.NewTicker(cfg.roomTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-cfg.roomTimeout)

		r.mu.Lock()
		candidates := make([]*Session, 0, len(r.rooms))
		for _, s := range r.rooms {
			candidates = append(candidates, s)
		}
		r.mu.Unlock()

		for _, s := range candidates {
			s.mu.Lock()
			idle := s.lastActive.Before(cutoff)
			s.mu.Unlock()

			if idle {
				r.deleteSession(s)
				s.closeAll()
				logf(cfg, "GAMES: Reaped idle room %s", s.id)
			}
		}
	}
}
