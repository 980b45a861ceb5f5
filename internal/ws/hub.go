// Package ws is the browser transport: a websocket for commands and pushes,
// a diagnostics websocket and a few plain HTTP endpoints.
package ws

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	diag "github.com/coreman2200/ledfix/internal/diagnostics"
)

const (
	writeWait    = 200 * time.Millisecond
	maxBodyBytes = 64 << 10
	replyWait    = 2 * time.Second
)

var ErrNoClient = errors.New("ws: no such client")

// Inbound is work for the main loop: a command batch from a client, or a
// notice that a client connected.
type Inbound struct {
	Client  uint64
	Connect bool
	Data    []byte
	// Reply, if set, receives the JSON answer for an HTTP caller.
	Reply chan []byte
}

type client struct {
	id   uint64
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (c *client) write(kind int, b []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(kind, b)
}

// Hub owns the client sets. Its send methods are safe for concurrent use.
type Hub struct {
	mu          sync.RWMutex
	clients     map[uint64]*client
	diagClients map[*client]bool
	nextID      atomic.Uint64

	inbound   chan Inbound
	startTime time.Time
	up        websocket.Upgrader

	// Status adds fields to /health; it must be safe to call from any goroutine.
	Status func() map[string]any
}

func NewHub(queue int) *Hub {
	return &Hub{
		clients:     map[uint64]*client{},
		diagClients: map[*client]bool{},
		inbound:     make(chan Inbound, queue),
		startTime:   time.Now(),
		up:          websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// Inbound is drained by the main loop.
func (h *Hub) Inbound() <-chan Inbound { return h.inbound }

// Routes registers the hub endpoints.
func (h *Hub) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleWS)
	mux.HandleFunc("/diag", h.HandleDiagWS)
	mux.HandleFunc("/json", h.HandleJSON)
	mux.HandleFunc("/health", h.HandleHealth)
}

func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{id: h.nextID.Add(1), conn: conn}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	log.Info().Uint64("client", c.id).Str("remote", r.RemoteAddr).Msg("ws connect")

	h.enqueue(Inbound{Client: c.id, Connect: true})

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, c.id)
			h.mu.Unlock()
			conn.Close()
			log.Info().Uint64("client", c.id).Msg("ws disconnect")
		}()
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind != websocket.TextMessage {
				continue
			}
			h.enqueue(Inbound{Client: c.id, Data: data})
		}
	}()
}

func (h *Hub) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn}
	h.mu.Lock()
	h.diagClients[c] = true
	h.mu.Unlock()
	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.diagClients, c)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// HandleJSON accepts one command batch by POST and answers with what the
// main loop reports for it.
func (h *Hub) HandleJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	reply := make(chan []byte, 1)
	if !h.enqueueCtx(r, Inbound{Data: data, Reply: reply}) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	select {
	case b := <-reply:
		_, _ = w.Write(b)
	case <-time.After(replyWait):
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"queued":true}`))
	case <-r.Context().Done():
	}
}

func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"uptime_s": time.Since(h.startTime).Seconds(),
		"clients":  h.ClientCount(),
	}
	if h.Status != nil {
		for k, v := range h.Status() {
			resp[k] = v
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Hub) enqueue(in Inbound) {
	select {
	case h.inbound <- in:
	case <-time.After(replyWait):
		log.Warn().Uint64("client", in.Client).Msg("inbound queue full, dropping")
	}
}

func (h *Hub) enqueueCtx(r *http.Request, in Inbound) bool {
	select {
	case h.inbound <- in:
		return true
	case <-r.Context().Done():
		return false
	case <-time.After(replyWait):
		return false
	}
}

// ClientCount returns the number of control clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendJSON broadcasts a text document to every control client.
func (h *Hub) SendJSON(data []byte) {
	h.broadcast(websocket.TextMessage, data)
}

// BroadcastBinary pushes a binary frame to every control client.
func (h *Hub) BroadcastBinary(data []byte) {
	h.broadcast(websocket.BinaryMessage, data)
}

// SendTo writes a text document to one client.
func (h *Hub) SendTo(id uint64, data []byte) error {
	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		return ErrNoClient
	}
	return c.write(websocket.TextMessage, data)
}

func (h *Hub) broadcast(kind int, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if err := c.write(kind, data); err != nil {
			log.Debug().Err(err).Uint64("client", c.id).Msg("ws write")
		}
	}
}

// PushDiag sends d to every diagnostics client.
func (h *Hub) PushDiag(d diag.Diagnostic) {
	b, _ := json.Marshal(d)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.diagClients {
		_ = c.write(websocket.TextMessage, b)
	}
}

// WithCORS allows browser clients served from elsewhere.
func WithCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
