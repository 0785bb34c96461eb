package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/connect4-engine/internal/domain"
	"github.com/iamasit07/connect4-engine/internal/service/game"
	"github.com/iamasit07/connect4-engine/internal/transport/http/middleware"
)

type GameService interface {
	Challenge(ctx context.Context, challenger, opponent string) (*domain.Game, error)
	SubmitMove(ctx context.Context, gameID uint64, player string, column int) (*game.MoveResult, error)
	GetGame(ctx context.Context, gameID uint64) (*domain.Game, error)
	ListGames(ctx context.Context, player string, limit int) ([]*domain.Game, error)
}

type GameHandler struct {
	Service GameService
}

func NewGameHandler(s GameService) *GameHandler {
	return &GameHandler{Service: s}
}

type challengeRequest struct {
	Opponent string `json:"opponent" binding:"required"`
}

type moveRequest struct {
	Column *int `json:"column" binding:"required"`
}

type gameResponse struct {
	ID       uint64            `json:"id"`
	Address  string            `json:"address"`
	Player1  string            `json:"player1"`
	Player2  string            `json:"player2"`
	Board    [][]int           `json:"board"`
	Moves    int               `json:"moves"`
	NextTurn string            `json:"nextTurn,omitempty"`
	Status   domain.GameStatus `json:"status"`
	Winner   string            `json:"winner,omitempty"`
}

type moveResponse struct {
	Game     gameResponse    `json:"game"`
	Move     domain.MoveInfo `json:"move"`
	Finished bool            `json:"finished"`
}

func toGameResponse(g *domain.Game) gameResponse {
	resp := gameResponse{
		ID:      g.ID,
		Address: g.Address,
		Player1: g.Player1,
		Player2: g.Player2,
		Board:   g.Board.Grid(),
		Moves:   int(g.Moves),
		Status:  g.Status(),
		Winner:  g.Winner(),
	}
	if !g.Finished {
		resp.NextTurn = g.CurrentPlayer()
	}
	return resp
}

// statusFor maps game errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrGameAlreadyFinished):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidMove):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidColumn), errors.Is(err, domain.ErrInvalidPlayers):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrGameNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("[HTTP] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		msg = "Internal server error"
	}
	c.JSON(status, gin.H{"error": msg})
}

func gameIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid game id"})
		return 0, false
	}
	return id, true
}

// CreateGame challenges the opponent named in the body. The opponent moves
// first.
func (h *GameHandler) CreateGame(c *gin.Context) {
	player, _ := middleware.Player(c)

	var req challengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	g, err := h.Service.Challenge(c.Request.Context(), player, req.Opponent)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toGameResponse(g))
}

func (h *GameHandler) ListGames(c *gin.Context) {
	player, _ := middleware.Player(c)
	limit, _ := strconv.Atoi(c.Query("limit"))

	games, err := h.Service.ListGames(c.Request.Context(), player, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]gameResponse, 0, len(games))
	for _, g := range games {
		resp = append(resp, toGameResponse(g))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *GameHandler) GetGame(c *gin.Context) {
	id, ok := gameIDParam(c)
	if !ok {
		return
	}

	g, err := h.Service.GetGame(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toGameResponse(g))
}

func (h *GameHandler) MakeMove(c *gin.Context) {
	id, ok := gameIDParam(c)
	if !ok {
		return
	}
	player, _ := middleware.Player(c)

	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	res, err := h.Service.SubmitMove(c.Request.Context(), id, player, *req.Column)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, moveResponse{
		Game:     toGameResponse(res.Game),
		Move:     domain.MoveInfo{Column: res.Column, Row: res.Row, Player: player},
		Finished: res.Finished,
	})
}

// RegisterRoutes mounts the game API under /api behind the JWT check.
func (h *GameHandler) RegisterRoutes(r gin.IRouter, secret string) {
	api := r.Group("/api", middleware.AuthMiddleware(secret))
	api.POST("/games", h.CreateGame)
	api.GET("/games", h.ListGames)
	api.GET("/games/:id", h.GetGame)
	api.POST("/games/:id/moves", h.MakeMove)
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
