// Package feed publishes tracker snapshots to browser renderers over
// WebSocket and accepts session control messages from them.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/observe"
	"github.com/RyanBlaney/sonido-pitch/tracker"
)

// writeTimeout bounds a single frame write to a client.
const writeTimeout = 5 * time.Second

// Controller is the session surface the feed drives. *tracker.Engine
// implements it.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context)
	Clear(ctx context.Context)
	Recalibrate() error
	Snapshot() *tracker.Snapshot
}

// HubOptions configures a Hub.
type HubOptions struct {
	// ClientBuffer is the number of pending messages per client; snapshots
	// beyond it are dropped for that client.
	ClientBuffer int
	// OriginPatterns lists allowed browser origins; empty allows same-origin.
	OriginPatterns []string
	Metrics        *observe.Metrics
	Logger         logging.Logger
}

// Hub fans snapshots out to WebSocket clients. Each client has a bounded
// outbound queue so a slow renderer never stalls the others.
type Hub struct {
	ctrl    Controller
	opts    HubOptions
	metrics *observe.Metrics
	logger  logging.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	id   int64
	send chan []byte
}

// NewHub creates a hub driving ctrl.
func NewHub(ctrl Controller, opts HubOptions) *Hub {
	if opts.ClientBuffer < 1 {
		opts.ClientBuffer = 8
	}
	h := &Hub{
		ctrl:    ctrl,
		opts:    opts,
		metrics: opts.Metrics,
		logger:  logging.OrGlobal(opts.Logger).WithFields(logging.Fields{"component": "feed"}),
		clients: make(map[*client]struct{}),
	}
	if h.metrics == nil {
		h.metrics = observe.DefaultMetrics()
	}
	return h
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

var nextClientID atomic.Int64

func (h *Hub) register(ctx context.Context) *client {
	c := &client{id: nextClientID.Add(1), send: make(chan []byte, h.opts.ClientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.FeedClients.Add(ctx, 1)
	return c
}

func (h *Hub) unregister(ctx context.Context, c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	h.metrics.FeedClients.Add(ctx, -1)
}

// Broadcast encodes snap once and queues it for every client.
func (h *Hub) Broadcast(ctx context.Context, snap *tracker.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("feed: encode snapshot: %w", err)
	}
	h.publish(ctx, data)
	return nil
}

func (h *Hub) publish(ctx context.Context, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.metrics.SnapshotsDropped.Add(ctx, 1)
		}
	}
}

// Run broadcasts the controller's snapshot at the given cadence until ctx
// is done. A snapshot identical to the previous broadcast is not resent.
func (h *Hub) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last []byte
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			data, err := json.Marshal(h.ctrl.Snapshot())
			if err != nil {
				h.logger.Error(err, "Failed to encode snapshot")
				continue
			}
			if bytes.Equal(data, last) {
				continue
			}
			last = data
			h.publish(ctx, data)
		}
	}
}

// ServeHTTP upgrades the request and serves one client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.opts.OriginPatterns,
	})
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", logging.Fields{"error": err.Error()})
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := h.register(ctx)
	logger := h.logger.WithFields(logging.Fields{"client": c.id, "remote": r.RemoteAddr})
	logger.Debug("Client connected")
	defer func() {
		h.unregister(context.WithoutCancel(ctx), c)
		logger.Debug("Client disconnected")
	}()

	if data, err := json.Marshal(h.ctrl.Snapshot()); err == nil {
		select {
		case c.send <- data:
		default:
		}
	}

	go h.writeLoop(ctx, cancel, conn, c)

	for {
		var msg ControlMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				logger.Debug("Read ended", logging.Fields{"error": err.Error()})
			}
			return
		}
		h.reply(ctx, c, h.handle(ctx, msg))
	}
}

func (h *Hub) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, c *client) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, data)
			wcancel()
			if err != nil {
				return
			}
		}
	}
}

// handle applies one control message and returns the reply.
func (h *Hub) handle(ctx context.Context, msg ControlMessage) any {
	var err error
	switch msg.Type {
	case CommandStart:
		err = h.ctrl.Start(ctx)
	case CommandStop:
		h.ctrl.Stop(ctx)
	case CommandClear:
		h.ctrl.Clear(ctx)
	case CommandRecalibrate:
		err = h.ctrl.Recalibrate()
	default:
		err = fmt.Errorf("unknown command %q", msg.Type)
	}
	if err != nil {
		return ErrorMessage{Type: "error", Command: msg.Type, Error: err.Error()}
	}
	h.logger.Info("Control command applied", logging.Fields{"command": msg.Type})
	return AckMessage{Type: "ack", Command: msg.Type, State: h.ctrl.Snapshot().State.String()}
}

// reply queues a control reply. Replies are never dropped silently: a full
// queue blocks until the writer catches up or the client goes away.
func (h *Hub) reply(ctx context.Context, c *client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	case <-ctx.Done():
	}
}
