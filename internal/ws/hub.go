package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/kiliankoe/animebingo/internal/game"
)

type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// GameSummary is the lobby view of a game.
type GameSummary struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	GameMode     game.Mode  `json:"gameMode"`
	CurrentPhase game.Phase `json:"currentPhase"`
	CreatedBy    string     `json:"createdBy"`
	CreatedAt    time.Time  `json:"createdAt"`
	Participants int        `json:"participants"`
}

func Summarize(g *game.Game) GameSummary {
	return GameSummary{
		ID:           g.ID,
		Name:         g.Name,
		GameMode:     g.GameMode,
		CurrentPhase: g.CurrentPhase,
		CreatedBy:    g.CreatedBy,
		CreatedAt:    g.CreatedAt,
		Participants: len(g.Participants),
	}
}

// Hub feeds the game list to plain websocket clients: a full snapshot on connect, then
// one message per change. Each client has its own queue and writer so a slow reader
// never holds up a game write.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]bool
	list    func(ctx context.Context) ([]*game.Game, error)
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

const sendBuffer = 64

func NewHub(list func(ctx context.Context) ([]*game.Game, error)) *Hub {
	return &Hub{clients: make(map[*client]bool), list: list}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handle upgrades the request and keeps the client registered until it goes away.
func (h *Hub) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	games, err := h.list(ctx)
	cancel()
	if err != nil {
		log.Error().Err(err).Msg("list games for websocket")
		conn.Close()
		return
	}
	summaries := make([]GameSummary, 0, len(games))
	for _, g := range games {
		summaries = append(summaries, Summarize(g))
	}
	snapshot, err := json.Marshal(WSMessage{Type: "games:list", Data: summaries})
	if err != nil {
		conn.Close()
		return
	}

	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	cl.send <- snapshot
	h.mu.Lock()
	h.clients[cl] = true
	n := len(h.clients)
	h.mu.Unlock()
	log.Info().Int("total", n).Msg("ws: list client connected")

	go cl.writePump()
	defer h.remove(cl)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (cl *client) writePump() {
	defer cl.conn.Close()
	for data := range cl.send {
		cl.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Warn().Err(err).Msg("ws: write error")
			return
		}
	}
	cl.conn.SetWriteDeadline(time.Now().Add(time.Second))
	cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// remove unregisters cl and stops its writer. Safe to call more than once.
func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[cl] {
		delete(h.clients, cl)
		close(cl.send)
	}
}

// Broadcast queues msg for every client. Clients whose queue is full are dropped.
func (h *Hub) Broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("type", msg.Type).Msg("ws: marshal")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- data:
		default:
			log.Warn().Msg("ws: client too slow, dropping")
			delete(h.clients, cl)
			close(cl.send)
		}
	}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) GameChanged(g *game.Game) {
	h.Broadcast(WSMessage{Type: "game:changed", Data: Summarize(g)})
}

func (h *Hub) GameDeleted(id string) {
	h.Broadcast(WSMessage{Type: "game:deleted", Data: map[string]string{"id": id}})
}

// GameDrawn is not part of the list feed.
func (h *Hub) GameDrawn(string, game.DrawOutcome) {}
