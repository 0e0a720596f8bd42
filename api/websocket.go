package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/seenimoa/alphapredict/internal/auth"
	"github.com/seenimoa/alphapredict/internal/dashboard"
	"github.com/seenimoa/alphapredict/internal/render"
	"github.com/seenimoa/alphapredict/pkg/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// WSMessage is a message exchanged over the WebSocket.
//
// Client → server: {"type":"refresh","ticker":"AAPL"} or {"type":"ping"}.
// Server → client: "snapshot", "insight", "session", "error", "pong".
type WSMessage struct {
	Type   string      `json:"type"`
	Ticker string      `json:"ticker,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// SnapshotPayload is the "snapshot" message body.
type SnapshotPayload struct {
	Ticker   models.TickerSymbol   `json:"ticker"`
	Snapshot *models.StockSnapshot `json:"snapshot"`
	Fields   []render.Field        `json:"fields"`
	ChartSVG string                `json:"chart_svg"`
	Caption  string                `json:"caption"`
}

// InsightPayload is the "insight" message body.
type InsightPayload struct {
	Ticker          models.TickerSymbol `json:"ticker"`
	Insight         []string            `json:"insight,omitempty"`
	InsightError    string              `json:"insight_error,omitempty"`
	UpgradeRequired bool                `json:"upgrade_required,omitempty"`
}

func snapshotMessage(p *dashboard.Page) WSMessage {
	return WSMessage{Type: "snapshot", Ticker: p.Ticker.String(), Data: SnapshotPayload{
		Ticker:   p.Ticker,
		Snapshot: p.Snapshot,
		Fields:   p.Fields,
		ChartSVG: p.ChartSVG,
		Caption:  p.Caption,
	}}
}

func insightMessage(p *dashboard.Page) WSMessage {
	return WSMessage{Type: "insight", Ticker: p.Ticker.String(), Data: InsightPayload{
		Ticker:          p.Ticker,
		Insight:         p.Insight,
		InsightError:    p.InsightError,
		UpgradeRequired: p.UpgradeRequired,
	}}
}

// handleWebSocket upgrades the connection and serves refresh requests for
// the caller's session until the peer goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, _ := s.currentSession(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &WSClient{
		hub:     s.wsHub,
		session: sess.ID(),
		send:    make(chan WSMessage, 64),
		cancel:  cancel,
	}
	s.wsHub.Register(client)

	go wsWritePump(conn, client)
	go s.wsReadPump(ctx, conn, client, sess)
}

// wsReadPump reads client messages until the connection closes.
func (s *Server) wsReadPump(ctx context.Context, conn *websocket.Conn, client *WSClient, sess *auth.UserSession) {
	defer func() {
		client.cancel()
		client.hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.Send(WSMessage{Type: "error", Error: "invalid message"})
			continue
		}

		switch msg.Type {
		case "refresh":
			go s.wsRefresh(ctx, client, sess, msg.Ticker)
		case "ping":
			client.Send(WSMessage{Type: "pong"})
		default:
			client.Send(WSMessage{Type: "error", Error: "unknown message type " + msg.Type})
		}
	}
}

// wsRefresh runs one lookup and streams its result. A refresh replaced by a
// newer one sends nothing.
func (s *Server) wsRefresh(ctx context.Context, client *WSClient, sess *auth.UserSession, ticker string) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	sent := false
	page, err := s.dash.RefreshWithProgress(ctx, sess, ticker, func(p *dashboard.Page) {
		client.Send(snapshotMessage(p))
		sent = true
	})
	switch {
	case errors.Is(err, dashboard.ErrSuperseded), errors.Is(err, context.Canceled):
		return
	case err != nil:
		client.Send(WSMessage{Type: "error", Ticker: ticker, Error: userMessage(err)})
		return
	}
	if !sent {
		client.Send(snapshotMessage(page))
	}
	client.Send(insightMessage(page))
}

// wsWritePump pumps messages from the client's queue to the connection.
func wsWritePump(conn *websocket.Conn, client *WSClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ============================================================
// WebSocket Hub
// ============================================================

// WSClient represents a single WebSocket connection.
type WSClient struct {
	hub     *WSHub
	session string
	cancel  context.CancelFunc

	mu     sync.Mutex
	send   chan WSMessage
	closed bool
}

// Send queues msg for the connection. It drops the message when the
// connection is closed or its queue is full.
func (c *WSClient) Send(msg WSMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *WSClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

type sessionMessage struct {
	session string
	msg     WSMessage
}

// WSHub tracks live connections and fans session events out to them.
type WSHub struct {
	mu      sync.RWMutex
	clients map[*WSClient]bool
	stopped bool
	notify  chan sessionMessage
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients: make(map[*WSClient]bool),
		notify:  make(chan sessionMessage, 64),
	}
}

// Run delivers notifications until ctx is done, then closes every client.
func (h *WSHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			h.stopped = true
			for c := range h.clients {
				delete(h.clients, c)
				c.cancel()
				c.close()
			}
			h.mu.Unlock()
			return
		case m := <-h.notify:
			h.mu.RLock()
			for client := range h.clients {
				if client.session == m.session {
					client.Send(m.msg)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Notify sends msg to every connection of the given session. Dropped when
// the hub is busy.
func (h *WSHub) Notify(sessionID string, msg WSMessage) {
	select {
	case h.notify <- sessionMessage{session: sessionID, msg: msg}:
	default:
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub. A stopped hub closes it immediately.
func (h *WSHub) Register(client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		client.cancel()
		client.close()
		return
	}
	h.clients[client] = true
}

// Unregister removes a client from the hub and closes its queue.
func (h *WSHub) Unregister(client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.close()
	}
}
