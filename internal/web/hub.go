package web

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ecopool/league-server/internal/obslog"
	"github.com/ecopool/league-server/pkg/leaguedto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const clientSendBuffer = 16

// Hub fans events out to connected overlay clients. Slow clients are dropped
// rather than blocking the broadcast path.
type Hub struct {
	mu      sync.Mutex
	clients map[*hubClient]struct{}
	version atomic.Uint64
}

type hubClient struct {
	send   chan leaguedto.Event
	closed chan struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*hubClient]struct{})}
}

// NextVersion bumps and returns the scoreboard version counter.
func (h *Hub) NextVersion() uint64 { return h.version.Add(1) }

// Version returns the current scoreboard version.
func (h *Hub) Version() uint64 { return h.version.Load() }

// Broadcast queues an event for every connected client.
func (h *Hub) Broadcast(ev leaguedto.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			delete(h.clients, c)
			close(c.closed)
			obslog.L().Warn("ws_client_dropped_slow")
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams events until the client leaves.
// The first frame is always a full scoreboard snapshot.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, snapshot func() leaguedto.Scoreboard) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode:    websocket.CompressionNoContextTakeover,
		InsecureSkipVerify: true,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	c := &hubClient{
		send:   make(chan leaguedto.Event, clientSendBuffer),
		closed: make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[c]; ok {
			delete(h.clients, c)
			close(c.closed)
		}
		h.mu.Unlock()
	}()

	ctx := r.Context()

	// Drain client frames so pings and close frames get processed.
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	sb := snapshot()
	first := leaguedto.Event{Kind: "scoreboard", Scoreboard: &sb}
	if err := writeEvent(ctx, conn, first); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		case ev := <-c.send:
			if err := writeEvent(ctx, conn, ev); err != nil {
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev leaguedto.Event) error {
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(wctx, conn, ev)
}
