/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection. The slot it occupies (if any) is the
// durable identity; the connection itself is ephemeral.
type Client struct {
	conn *websocket.Conn
	send chan any

	mu     sync.Mutex
	roomID string
	player int
	closed bool
}

func errorMessage(text string) ErrorMessage {
	return ErrorMessage{Type: "error", Message: text}
}

// trySend queues a message without blocking. A client whose send buffer is
// full is considered dead and dropped, as is one already closed.
func (c *Client) trySend(msg any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- msg:
		return true
	default:
		c.closed = true
		close(c.send)
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func (c *Client) setRoom(roomID string, player int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.roomID = roomID
	c.player = player
}

func (c *Client) room() (string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.roomID, c.player
}

// deliver forwards a channel send to the session unless its run loop has
// already been stopped by room deletion.
func deliver[T any](c *Client, s *Session, ch chan<- T, req T) {
	select {
	case ch <- req:
	case <-s.done:
		c.trySend(errorMessage("game not found"))
	}
}

func (c *Client) readPump(cfg *Config, registry *Registry, lobby *Lobby) {
	defer func() {
		lobby.leave(c)
		if roomID, _ := c.room(); roomID != "" {
			if s, ok := registry.get(roomID); ok {
				select {
				case s.drops <- c:
				case <-s.done:
				}
			}
		}
		c.close()
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "joinRoom":
			if msg.RoomID == "" {
				c.trySend(errorMessage("missing room id"))
				continue
			}
			s := registry.getOrCreate(cfg, msg.RoomID)
			deliver(c, s, s.joins, joinRequest{client: c, player: msg.Player})

		case "quickMatch":
			lobby.enqueue(cfg, c)

		case "submitFieldCards":
			s, ok := registry.get(msg.RoomID)
			if !ok {
				c.trySend(errorMessage("game not found"))
				continue
			}
			deliver(c, s, s.fields, fieldRequest{client: c, player: msg.Player, cards: msg.Cards})

		case "submitBattleCard":
			s, ok := registry.get(msg.RoomID)
			if !ok {
				c.trySend(errorMessage("game not found"))
				continue
			}
			deliver(c, s, s.battles, battleRequest{client: c, player: msg.Player, card: msg.Card})

		case "surrender":
			s, ok := registry.get(msg.RoomID)
			if !ok {
				c.trySend(errorMessage("game not found"))
				continue
			}
			deliver(c, s, s.surrenders, slotRequest{client: c, player: msg.Player})

		case "requestSync":
			s, ok := registry.get(msg.RoomID)
			if !ok {
				c.trySend(errorMessage("game not found"))
				continue
			}
			deliver(c, s, s.syncs, slotRequest{client: c, player: msg.Player})

		case "ping":
			c.trySend(PongMessage{Type: "pong"})

		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// Websocket gateway; all game traffic for every room flows through here,
// with the room id carried in each message.
func serveWS(cfg *Config, registry *Registry, lobby *Lobby) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 8),
		}

		logf(cfg, "GAMES: Connection from %s", realIP(r))

		go client.writePump()
		client.readPump(cfg, registry, lobby)
	}
}

// serveRoomPage is a placeholder for the browser client, which lives
// outside this repository; it names the room and the gateway endpoint.
func serveRoomPage(cfg *Config, path string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := ps.ByName("roomid")
		if roomID == "" {
			http.Error(w, "missing room id", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		_, _ = w.Write([]byte(newPage("cardduel", "Room "+roomID+" (connect via "+path+"/ws)")))
	}
}

// QR handler: generates a PNG QR code for the current room URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	roomID := ps.ByName("roomid")
	if roomID == "" {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:roomid/qr; strip trailing "/qr" to get the room URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// redirectNewRoom handles GET /path by generating a new random room ID
// (with server-side collision detection) and redirecting to /path/:roomid.
func redirectNewRoom(cfg *Config, path string, registry *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		roomID := registry.newRoomID()
		logf(cfg, "GAMES: Redirecting to room %s/%s", path, roomID)
		http.Redirect(w, r, path+"/"+roomID, http.StatusTemporaryRedirect)
	}
}

// registerDuelGame sets up routes so that:
//   - $path            → redirects to a new random room (8-char ID)
//   - $path/:roomid    → room page
//   - $path/:roomid/qr → PNG QR code for that room URL
//   - /ws              → the websocket gateway for all rooms
func registerDuelGame(cfg *Config, path string, mux *httprouter.Router) {
	registry := newRegistry(cfg)
	lobby := newLobby(registry)

	// Root path → redirect to new random room
	mux.GET(cfg.prefix+path, redirectNewRoom(cfg, path, registry))

	// Per-room share page and QR code
	mux.GET(cfg.prefix+path+"/:roomid", serveRoomPage(cfg, path))
	mux.GET(cfg.prefix+path+"/:roomid/qr", qrHandler)

	// Shared websocket gateway (room ids travel in the messages)
	mux.GET(cfg.prefix+"/ws", serveWS(cfg, registry, lobby))
}
