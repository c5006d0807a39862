// Package ws pushes dataset notifications to open dashboards over websockets.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/covita/pkg/logger"
	"github.com/okian/covita/pkg/metrics"
)

const (
	writeTimeout = 5 * time.Second

	// EventDatasetRefreshed tells clients to request their view again.
	EventDatasetRefreshed = "dataset_refreshed"
)

// Event is the message sent to every client.
type Event struct {
	Type      string    `json:"type"`
	DatasetID string    `json:"dataset_id"`
	FetchedAt time.Time `json:"fetched_at"`
	Records   int       `json:"records"`
}

// Broadcaster keeps the set of connected clients.
type Broadcaster struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			// The dashboard is served from the same process.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger.Named("ws"),
	}
}

// Clients returns the number of connected clients.
func (b *Broadcaster) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Broadcast sends ev to every client, dropping the ones that fail.
func (b *Broadcaster) Broadcast(ctx context.Context, ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error(ctx, "failed to marshal event", logger.Error(err))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			b.logger.Warn(ctx, "websocket write failed; dropping client", logger.Error(err))
			_ = c.Close()
			delete(b.clients, c)
		}
	}
	metrics.RecordWebsocketBroadcast()
	metrics.UpdateWebsocketClients(len(b.clients))
}

// Close disconnects every client.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = c.Close()
		delete(b.clients, c)
	}
	metrics.UpdateWebsocketClients(0)
}

// Handler accepts websocket connections.
func (b *Broadcaster) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := b.upgrader.Upgrade(w, r, nil)
		if err != nil {
			b.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
			return
		}
		b.add(conn)

		// Clients never send anything; reading detects the close.
		go func() {
			defer b.remove(conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

func (b *Broadcaster) add(conn *websocket.Conn) {
	b.mu.Lock()
	b.clients[conn] = struct{}{}
	n := len(b.clients)
	b.mu.Unlock()
	metrics.UpdateWebsocketClients(n)
}

func (b *Broadcaster) remove(conn *websocket.Conn) {
	b.mu.Lock()
	delete(b.clients, conn)
	n := len(b.clients)
	b.mu.Unlock()
	_ = conn.Close()
	metrics.UpdateWebsocketClients(n)
}
