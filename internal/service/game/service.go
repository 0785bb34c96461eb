package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iamasit07/connect4-engine/internal/domain"
	"github.com/iamasit07/connect4-engine/pkg/uid"
)

const (
	gameKeyPrefix   = "game:"
	maxCreateTries  = 3
	defaultListSize = 50
)

type MoveResult struct {
	Game     *domain.Game
	Column   int
	Row      int
	Finished bool
}

// Challenge opens a game between challenger and opponent. The opponent moves
// first.
func (s *Service) Challenge(ctx context.Context, challenger, opponent string) (*domain.Game, error) {
	if challenger == "" || opponent == "" || challenger == opponent {
		return nil, domain.ErrInvalidPlayers
	}

	for try := 0; ; try++ {
		id := s.Registry.Next()
		g := domain.NewGame(id, opponent, challenger)
		g.Address = uid.GameAddress(s.Namespace, id)

		err := s.Repo.CreateGame(ctx, g)
		if err == nil {
			log.Printf("[GAME] Created game %d: %s vs %s", g.ID, g.Player1, g.Player2)
			s.cacheGame(ctx, g)
			s.sendToPlayers(g, domain.ServerMessage{
				Type:     "game_start",
				GameID:   g.ID,
				Board:    g.Board.Grid(),
				NextTurn: g.CurrentPlayer(),
				Status:   g.Status(),
			})
			return g, nil
		}

		// another node may have used this id; catch up and try again
		if errors.Is(err, domain.ErrGameExists) && try+1 < maxCreateTries {
			if rerr := s.ResumeRegistry(ctx); rerr != nil {
				return nil, rerr
			}
			continue
		}
		return nil, err
	}
}

// SubmitMove validates and applies one move. The repository serialises
// writers, so the whole read-validate-write happens as a single step.
func (s *Service) SubmitMove(ctx context.Context, gameID uint64, player string, column int) (*MoveResult, error) {
	var finished bool

	g, err := s.Repo.UpdateGame(ctx, gameID, func(g *domain.Game) error {
		f, err := g.SubmitMove(player, column)
		if err != nil {
			return err
		}
		finished = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &MoveResult{
		Game:     g,
		Column:   column,
		Row:      domain.Rows - g.Board.ColumnCount(column),
		Finished: finished,
	}

	s.cacheGame(ctx, g)
	s.notifyMove(result, player)

	if finished {
		log.Printf("[GAME] Game %d over after %d moves: %s (winner %q)", g.ID, g.Moves, g.Status(), g.Winner())
	}
	return result, nil
}

// GetGame returns the current state, served from cache when possible.
func (s *Service) GetGame(ctx context.Context, gameID uint64) (*domain.Game, error) {
	if g := s.cachedGame(ctx, gameID); g != nil {
		return g, nil
	}

	g, err := s.Repo.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	s.cacheGame(ctx, g)
	return g, nil
}

func (s *Service) ListGames(ctx context.Context, player string, limit int) ([]*domain.Game, error) {
	if limit <= 0 || limit > defaultListSize {
		limit = defaultListSize
	}
	return s.Repo.ListGamesByPlayer(ctx, player, limit)
}

func gameKey(gameID uint64) string {
	return fmt.Sprintf("%s%d", gameKeyPrefix, gameID)
}

func (s *Service) cacheGame(ctx context.Context, g *domain.Game) {
	if s.Cache == nil {
		return
	}
	data, err := json.Marshal(g)
	if err != nil {
		log.Printf("[GAME] Failed to encode game %d for cache: %v", g.ID, err)
		return
	}
	// versioned by move count: a slow reader or writer never puts an older
	// snapshot over a newer one
	if err := s.Cache.SetIfNewer(ctx, gameKey(g.ID), string(data), int64(g.Moves), s.CacheTTL); err != nil {
		log.Printf("[GAME] Failed to cache game %d: %v", g.ID, err)
	}
}

func (s *Service) cachedGame(ctx context.Context, gameID uint64) *domain.Game {
	if s.Cache == nil {
		return nil
	}
	data, err := s.Cache.Get(ctx, gameKey(gameID))
	if err != nil || data == "" {
		return nil
	}

	var g domain.Game
	if err := json.Unmarshal([]byte(data), &g); err != nil {
		log.Printf("[GAME] Dropping unreadable cache entry for game %d: %v", gameID, err)
		s.Cache.Del(ctx, gameKey(gameID))
		return nil
	}
	if err := g.Validate(); err != nil {
		log.Printf("[GAME] Dropping invalid cache entry for game %d: %v", gameID, err)
		s.Cache.Del(ctx, gameKey(gameID))
		return nil
	}
	return &g
}

// PruneFinished deletes finished games older than retention from storage and
// cache. It returns how many were removed.
func (s *Service) PruneFinished(ctx context.Context, retention time.Duration) (int, error) {
	ids, err := s.Repo.DeleteFinishedBefore(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	s.evictGames(ctx, ids...)
	return len(ids), nil
}

func (s *Service) evictGames(ctx context.Context, ids ...uint64) {
	if s.Cache == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, gameKey(id))
	}
	if err := s.Cache.Del(ctx, keys...); err != nil {
		log.Printf("[GAME] Failed to evict %d cached games: %v", len(keys), err)
	}
}

func (s *Service) sendToPlayers(g *domain.Game, msg domain.ServerMessage) {
	if s.Conn == nil {
		return
	}
	for _, p := range []string{g.Player1, g.Player2} {
		if err := s.Conn.SendMessage(p, msg); err != nil {
			log.Printf("[GAME] Failed to send %s to %s: %v", msg.Type, p, err)
		}
	}
}

func (s *Service) notifyMove(r *MoveResult, player string) {
	g := r.Game
	msg := domain.ServerMessage{
		Type:   "move_made",
		GameID: g.ID,
		Move: &domain.MoveInfo{
			Column: r.Column,
			Row:    r.Row,
			Player: player,
		},
		Board:  g.Board.Grid(),
		Status: g.Status(),
	}
	if !r.Finished {
		msg.NextTurn = g.CurrentPlayer()
	}
	s.sendToPlayers(g, msg)

	if r.Finished {
		s.sendToPlayers(g, domain.ServerMessage{
			Type:   "game_over",
			GameID: g.ID,
			Board:  g.Board.Grid(),
			Status: g.Status(),
			Winner: g.Winner(),
		})
	}
}
