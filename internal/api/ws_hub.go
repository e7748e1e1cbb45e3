package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dwjuston/axkan-ii-backen/internal/game"
	"github.com/dwjuston/axkan-ii-backen/internal/metrics"
	"github.com/dwjuston/axkan-ii-backen/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

// WSMessage is a JSON message sent to WebSocket clients.
type WSMessage struct {
	Type   string       `json:"type"` // "board" or "game_result"
	GameID string       `json:"game_id"`
	Board  *game.Board  `json:"board,omitempty"`
	Result *game.Result `json:"result,omitempty"`
}

// envelope addresses a message to one player of a game, or to every
// subscriber of the game when playerID is empty.
type envelope struct {
	gameID   string
	playerID string
	data     []byte
}

type client struct {
	conn     *websocket.Conn
	gameID   string
	playerID string
	send     chan []byte
}

// WSHub manages WebSocket subscriptions per game and pushes every player
// their own board after each action. Only Run touches the client set.
type WSHub struct {
	clients    map[string]map[*client]bool // game id -> clients
	broadcast  chan envelope
	register   chan *client
	unregister chan *client
	done       chan struct{}
	logger     *slog.Logger
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub(logger *slog.Logger) *WSHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHub{
		clients:    make(map[string]map[*client]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run is the hub's event loop. It returns when ctx is cancelled, closing
// every client.
func (h *WSHub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for c := range set {
					h.drop(c)
				}
			}
			return nil

		case c := <-h.register:
			set, ok := h.clients[c.gameID]
			if !ok {
				set = make(map[*client]bool)
				h.clients[c.gameID] = set
			}
			set[c] = true
			metrics.WebSocketClients.Inc()
			h.logger.Info("ws client connected", "game_id", c.gameID, "player_id", c.playerID, "game_clients", len(set))

		case c := <-h.unregister:
			if h.clients[c.gameID][c] {
				h.drop(c)
			}

		case env := <-h.broadcast:
			for c := range h.clients[env.gameID] {
				if env.playerID != "" && c.playerID != env.playerID {
					continue
				}
				select {
				case c.send <- env.data:
				default:
					// Slow consumer: disconnect rather than block the hub.
					h.drop(c)
				}
			}
		}
	}
}

func (h *WSHub) drop(c *client) {
	set := h.clients[c.gameID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.gameID)
	}
	close(c.send)
	metrics.WebSocketClients.Dec()
}

// Publish pushes each player's board from an outcome, and the result when
// the game has just ended. It implements session.Notifier: it never
// blocks, and messages for one game keep the order Publish saw them in.
func (h *WSHub) Publish(out *session.Outcome) {
	for playerID, board := range out.Boards {
		board := board
		h.send(playerID, WSMessage{Type: "board", GameID: out.GameID, Board: &board})
	}
	if out.Result != nil {
		h.send("", WSMessage{Type: "game_result", GameID: out.GameID, Result: out.Result})
	}
}

func (h *WSHub) send(playerID string, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("ws marshal failed", "type", msg.Type, "err", err)
		return
	}
	select {
	case h.broadcast <- envelope{gameID: msg.GameID, playerID: playerID, data: data}:
	default:
		// Drop if buffer full to avoid blocking action dispatch.
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // Allow all origins during development.
	},
}

// Serve upgrades the request and subscribes the connection to gameID on
// behalf of playerID. first, when non-nil, is sent before anything else.
func (h *WSHub) Serve(w http.ResponseWriter, r *http.Request, gameID, playerID string, first *WSMessage) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "err", err)
		return
	}

	c := &client{conn: conn, gameID: gameID, playerID: playerID, send: make(chan []byte, sendBuffer)}
	if first != nil {
		if data, err := json.Marshal(first); err == nil {
			c.send <- data
		}
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

// readPump keeps the connection alive and detects disconnects.
func (h *WSHub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the connection's only writer. It pings to keep the
// connection alive through proxies.
func (h *WSHub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
