package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/iamasit07/connect4-engine/internal/domain"
	"github.com/iamasit07/connect4-engine/internal/service/game"
	"github.com/iamasit07/connect4-engine/pkg/auth"
)

const (
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
	requestLimit = 10 * time.Second
)

type GameService interface {
	SubmitMove(ctx context.Context, gameID uint64, player string, column int) (*game.MoveResult, error)
	GetGame(ctx context.Context, gameID uint64) (*domain.Game, error)
}

// Handler manages WebSocket dependencies
type Handler struct {
	ConnManager *ConnectionManager
	GameService GameService
	JWTSecret   string
	Upgrader    websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. An empty allowedOrigins list
// accepts any origin.
func NewHandler(cm *ConnectionManager, gs GameService, jwtSecret string, allowedOrigins []string) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &Handler{
		ConnManager: cm,
		GameService: gs,
		JWTSecret:   jwtSecret,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed[origin]
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// HandleWebSocket is the HTTP handler that upgrades the connection
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	h.handleConnection(conn)
}

// handleConnection manages the lifecycle of a single WebSocket connection
func (h *Handler) handleConnection(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	defer close(done)

	// Keep-alive pinger
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	// nothing else is accepted before a valid init frame
	player, ok := h.initialize(conn)
	if !ok {
		conn.Close()
		return
	}

	log.Printf("[WS] Connection initialized for player: %s", player)
	h.ConnManager.AddConnection(player, conn)
	h.ConnManager.SendMessage(player, domain.ServerMessage{Type: "connected", Message: player})

	defer func() {
		log.Printf("[WS] Connection closed for player %s", player)
		h.ConnManager.RemoveConnectionIfMatching(player, conn)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] Player disconnected unexpectedly: %v", err)
			}
			return
		}

		var msg domain.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[WS] Invalid message format: %v", err)
			h.sendError(player, "Invalid message format")
			continue
		}

		h.processMessage(player, msg)
	}
}

func (h *Handler) initialize(conn *websocket.Conn) (string, bool) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		log.Printf("[WS] Read error during init: %v", err)
		return "", false
	}

	var message domain.ClientMessage
	if err := json.Unmarshal(data, &message); err != nil {
		log.Printf("[WS] Invalid JSON during init: %v", err)
		return "", false
	}

	if message.Type != "init" || message.JWT == "" {
		log.Printf("[WS] Missing initialization or token")
		conn.WriteJSON(domain.ErrorMessage{Type: "error", Message: "Expected init message with token"})
		return "", false
	}

	claims, err := auth.ValidateAccessToken(h.JWTSecret, message.JWT)
	if err != nil {
		log.Printf("[WS] Invalid token during init: %v", err)
		conn.WriteJSON(domain.ErrorMessage{Type: "error", Message: "Invalid token"})
		return "", false
	}
	return claims.Player(), true
}

// processMessage routes specific actions
func (h *Handler) processMessage(player string, msg domain.ClientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), requestLimit)
	defer cancel()

	switch msg.Type {
	case "make_move":
		if msg.Column == nil {
			h.sendError(player, "Invalid message format")
			return
		}
		// both players are notified through the connection manager on success
		if _, err := h.GameService.SubmitMove(ctx, msg.GameID, player, *msg.Column); err != nil {
			h.sendError(player, errorText(err))
		}

	case "get_state":
		g, err := h.GameService.GetGame(ctx, msg.GameID)
		if err != nil {
			h.sendError(player, errorText(err))
			return
		}
		state := domain.ServerMessage{
			Type:   "game_state",
			GameID: g.ID,
			Board:  g.Board.Grid(),
			Status: g.Status(),
			Winner: g.Winner(),
		}
		if !g.Finished {
			state.NextTurn = g.CurrentPlayer()
		}
		h.ConnManager.SendMessage(player, state)

	default:
		h.sendError(player, "Unknown message type")
	}
}

func (h *Handler) sendError(player, message string) {
	h.ConnManager.SendMessage(player, domain.ServerMessage{Type: "error", Message: message})
}

// errorText hides storage failures from clients; rule violations are passed
// through as-is.
func errorText(err error) string {
	var gameErr domain.Error
	if errors.As(err, &gameErr) {
		return gameErr.Error()
	}
	log.Printf("[WS] Request failed: %v", err)
	return "Internal server error"
}
