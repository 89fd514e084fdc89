// Package sse streams rebuild progress to connected clients as
// Server-Sent Events.
package sse

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const (
	// WriteTimeout is the timeout for writing to SSE clients.
	WriteTimeout = 2 * time.Second
)

// Event types.
const (
	EventConnected   = "connected"
	EventProgress    = "progress"
	EventGeneration  = "generation"
	EventBuildFailed = "build_failed"
	EventReports     = "reports"
)

// Event is one message on the stream.
type Event struct {
	Type       string `json:"type"`
	Stage      string `json:"stage,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Generation string `json:"generation,omitempty"`
	Source     string `json:"source,omitempty"`
	Error      string `json:"error,omitempty"`
	Jobs       int    `json:"jobs,omitempty"`
	Clusters   int    `json:"clusters,omitempty"`
	Reports    int    `json:"reports,omitempty"`
}

// Client represents a connected SSE client.
type Client struct {
	Writer  http.ResponseWriter
	Flusher http.Flusher
	Done    chan struct{}
	ID      string
	once    sync.Once
}

func (c *Client) close() {
	c.once.Do(func() { close(c.Done) })
}

// Broadcaster manages SSE client connections and message broadcasting. The
// most recent event is replayed to clients that connect later.
type Broadcaster struct {
	clients map[string]*Client
	last    []byte
	mu      sync.RWMutex
	nextID  int
}

// NewBroadcaster creates a new SSE broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]*Client),
	}
}

// AddClient adds a new SSE client connection.
func (b *Broadcaster) AddClient(w http.ResponseWriter) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	b.mu.Lock()
	b.nextID++
	id := fmt.Sprintf("client-%d", b.nextID)
	client := &Client{
		ID:      id,
		Writer:  w,
		Flusher: flusher,
		Done:    make(chan struct{}),
	}
	b.clients[id] = client
	clientCount := len(b.clients)
	b.mu.Unlock()

	log.Debug().
		Str("clientId", id).
		Int("totalClients", clientCount).
		Msg("SSE client connected")

	return client, nil
}

// RemoveClient removes a client connection.
func (b *Broadcaster) RemoveClient(client *Client) {
	b.mu.Lock()
	delete(b.clients, client.ID)
	clientCount := len(b.clients)
	b.mu.Unlock()

	client.close()

	log.Debug().
		Str("clientId", client.ID).
		Int("totalClients", clientCount).
		Msg("SSE client disconnected")
}

// Broadcast sends an event to all connected clients. Slow clients are
// dropped after WriteTimeout.
func (b *Broadcaster) Broadcast(event Event) {
	message, err := encode(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal SSE event")
		return
	}

	b.mu.Lock()
	b.last = message
	clients := make([]*Client, 0, len(b.clients))
	for _, client := range b.clients {
		clients = append(clients, client)
	}
	b.mu.Unlock()

	if len(clients) == 0 {
		return
	}

	deadClientsCh := make(chan *Client, len(clients))
	var wg sync.WaitGroup
	for _, client := range clients {
		select {
		case <-client.Done:
			continue
		default:
		}
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			if !b.writeToClient(c, message) {
				deadClientsCh <- c
			}
		}(client)
	}
	wg.Wait()
	close(deadClientsCh)

	for client := range deadClientsCh {
		b.RemoveClient(client)
	}
}

// writeToClient writes one message and reports whether the client is alive.
func (b *Broadcaster) writeToClient(client *Client, message []byte) bool {
	result := make(chan bool, 1)
	go func() {
		if _, err := client.Writer.Write(message); err != nil {
			log.Debug().Str("clientId", client.ID).Err(err).Msg("Failed to write to SSE client")
			result <- false
			return
		}
		client.Flusher.Flush()
		result <- true
	}()

	select {
	case ok := <-result:
		return ok
	case <-time.After(WriteTimeout):
		log.Warn().
			Str("clientId", client.ID).
			Dur("timeout", WriteTimeout).
			Msg("SSE write timed out, dropping client")
		return false
	case <-client.Done:
		return true
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// HandleSSE serves the event stream until the request ends.
func (b *Broadcaster) HandleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Greet and replay before registering so broadcasts never race these writes.
	hello, _ := encode(Event{Type: EventConnected})
	_, _ = w.Write(hello)
	b.mu.RLock()
	last := b.last
	b.mu.RUnlock()
	if last != nil {
		_, _ = w.Write(last)
	}
	flusher.Flush()

	client, err := b.AddClient(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer b.RemoveClient(client)

	select {
	case <-r.Context().Done():
	case <-client.Done:
	}
}

func encode(event Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, data)), nil
}
