// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/racket_tracker/internal/config"
	"github.com/relabs-tech/racket_tracker/internal/export"
	"github.com/relabs-tech/racket_tracker/internal/link"
	"github.com/relabs-tech/racket_tracker/internal/session"
	"github.com/relabs-tech/racket_tracker/internal/store"
)

const (
	recentEvents  = 50
	clientBacklog = 32
	writeTimeout  = 5 * time.Second
)

// WireMessage is one push on /ws/live.
type WireMessage struct {
	Type string `json:"type"` // live, event or summary
	Data any    `json:"data"`
}

// LiveSnapshot is the body of /api/live.
type LiveSnapshot struct {
	Live    session.LiveUpdate `json:"live"`
	Events  []session.Event    `json:"events"`
	Summary *session.Summary   `json:"summary,omitempty"`
}

// Hub keeps the latest session output and fans it out to websocket clients.
type Hub struct {
	mu       sync.RWMutex
	haveLive bool
	live     session.LiveUpdate
	events   []session.Event
	summary  *session.Summary
	clients  map[chan []byte]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[chan []byte]struct{})}
}

func (h *Hub) PublishLive(u session.LiveUpdate) error {
	h.mu.Lock()
	h.live = u
	h.haveLive = true
	h.summary = nil
	h.mu.Unlock()
	return h.broadcast(WireMessage{Type: "live", Data: u})
}

func (h *Hub) PublishEvent(e session.Event) error {
	h.mu.Lock()
	h.events = append(h.events, e)
	if len(h.events) > recentEvents {
		h.events = h.events[len(h.events)-recentEvents:]
	}
	h.mu.Unlock()
	return h.broadcast(WireMessage{Type: "event", Data: e})
}

func (h *Hub) PublishSummary(s session.Summary) error {
	h.mu.Lock()
	h.summary = &s
	h.haveLive = true
	h.mu.Unlock()
	return h.broadcast(WireMessage{Type: "summary", Data: s})
}

// Snapshot returns the latest state, or false before anything arrived.
func (h *Hub) Snapshot() (LiveSnapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	snap := LiveSnapshot{
		Live:    h.live,
		Events:  append([]session.Event{}, h.events...),
		Summary: h.summary,
	}
	return snap, h.haveLive
}

func (h *Hub) broadcast(m WireMessage) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("json marshal (%s): %w", m.Type, err)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- payload:
		default:
			// slow client, drop
		}
	}
	return nil
}

func (h *Hub) subscribe() chan []byte {
	ch := make(chan []byte, clientBacklog)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NewWebHandler serves the live API, websocket and session history. st may
// be nil, in which case the history endpoints answer 503. staticDir, if not
// empty, is served at /.
func NewWebHandler(hub *Hub, st *store.Store, staticDir string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/live", func(w http.ResponseWriter, r *http.Request) {
		snap, ok := hub.Snapshot()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, snap)
	})

	mux.HandleFunc("/ws/live", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade error: %v", err)
			return
		}
		serveClient(hub, conn)
	})

	mux.HandleFunc("GET /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		if st == nil {
			http.Error(w, "no session store", http.StatusServiceUnavailable)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		recs, err := st.List(r.Context(), r.URL.Query().Get("sport"), limit)
		if err != nil {
			log.Printf("web: list sessions: %v", err)
			http.Error(w, "list failed", http.StatusInternalServerError)
			return
		}
		if recs == nil {
			recs = []store.Record{}
		}
		writeJSON(w, recs)
	})

	mux.HandleFunc("GET /api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		if st == nil {
			http.Error(w, "no session store", http.StatusServiceUnavailable)
			return
		}
		id := r.PathValue("id")
		rec, err := st.Get(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Printf("web: get session %s: %v", id, err)
			http.Error(w, "get failed", http.StatusInternalServerError)
			return
		}
		events, err := st.Events(r.Context(), id)
		if err != nil {
			log.Printf("web: session %s events: %v", id, err)
			http.Error(w, "get failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, export.NewSessionDocument(rec, events))
	})

	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

func serveClient(hub *Hub, conn *websocket.Conn) {
	ch := hub.subscribe()
	defer func() {
		hub.unsubscribe(ch)
		conn.Close()
	}()

	// Reader only watches for the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if snap, ok := hub.Snapshot(); ok {
		payload, err := json.Marshal(WireMessage{Type: "live", Data: snap.Live})
		if err == nil {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}

	for {
		select {
		case <-done:
			return
		case payload := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("web: websocket write error: %v", err)
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// RunWeb serves the live session and saved history over HTTP.
func RunWeb() error {
	cfg := config.Get()

	hub := NewHub()

	client, err := link.Connect(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := SubscribeSession(client, Topics(cfg), hub); err != nil {
		return err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Printf("web: session history unavailable: %v", err)
		st = nil
	} else {
		defer st.Close()
	}

	staticDir := ""
	if fi, err := os.Stat("web"); err == nil && fi.IsDir() {
		staticDir = "web"
	}

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, NewWebHandler(hub, st, staticDir))
}
