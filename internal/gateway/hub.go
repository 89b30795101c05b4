// Package gateway streams backtest runs to websocket clients, one JSON
// envelope per simulated day followed by the run summary.
package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dorjee9/algotrade-simple/internal/backtest"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// RunFunc produces the run to stream. It is called after the upgrade, so its
// error reaches the peer as an "error" envelope.
type RunFunc func(ctx context.Context) (*backtest.Result, error)

// Hub tracks live stream clients.
type Hub struct {
	log zerolog.Logger

	mu      sync.RWMutex
	clients map[*Client]bool

	// Time to deliver a whole run, in milliseconds.
	Latency *LatencyTracker

	// OnClientCount is called with the new count whenever a client joins or leaves.
	OnClientCount func(n int)
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:     log.With().Str("component", "gateway").Logger(),
		clients: make(map[*Client]bool),
		Latency: NewLatencyTracker(1000),
	}
}

// Stream upgrades the request and streams the result of run to the peer,
// then closes the connection with a normal closure. It returns once the
// connection is closed.
func (h *Hub) Stream(w http.ResponseWriter, r *http.Request, runID string, run RunFunc) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return err
	}
	start := time.Now()

	c := newClient(conn)
	h.addClient(c)
	defer h.RemoveClient(c)

	go c.writePump()
	go c.readPump()

	err = h.feed(r.Context(), c, runID, run)
	close(c.send)
	<-c.done

	if err != nil {
		h.log.Warn().Err(err).Str("run_id", runID).Msg("stream ended early")
		return err
	}
	h.Latency.Record(float64(time.Since(start).Microseconds()) / 1000)
	return nil
}

func (h *Hub) feed(ctx context.Context, c *Client, runID string, run RunFunc) error {
	res, err := run(ctx)
	if err != nil {
		msg, merr := errorEnvelope(runID, err)
		if merr != nil {
			return merr
		}
		return c.enqueue(msg)
	}

	seq := 0
	for i := range res.Days {
		seq++
		msg, err := newEnvelope(TypeDay, runID, seq, &res.Days[i])
		if err != nil {
			return err
		}
		if err := c.enqueue(msg); err != nil {
			return err
		}
	}
	seq++
	msg, err := newEnvelope(TypeSummary, runID, seq, &res.Summary)
	if err != nil {
		return err
	}
	return c.enqueue(msg)
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Debug().Int("clients", n).Msg("ws client connected")
	if h.OnClientCount != nil {
		h.OnClientCount(n)
	}
}

// RemoveClient forgets c.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Debug().Int("clients", n).Msg("ws client disconnected")
	if h.OnClientCount != nil {
		h.OnClientCount(n)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
