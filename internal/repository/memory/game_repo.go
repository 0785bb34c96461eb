// Package memory keeps games in process memory. It backs tests and
// single-process development runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iamasit07/connect4-engine/internal/domain"
)

type record struct {
	game      domain.Game
	createdAt time.Time
	updatedAt time.Time
}

type GameRepo struct {
	mu    sync.RWMutex
	games map[uint64]*record
	now   func() time.Time
}

func NewGameRepo() *GameRepo {
	return &GameRepo{
		games: make(map[uint64]*record),
		now:   time.Now,
	}
}

func (r *GameRepo) CreateGame(ctx context.Context, g *domain.Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.games[g.ID]; exists {
		return domain.ErrGameExists
	}
	now := r.now()
	r.games[g.ID] = &record{game: *g, createdAt: now, updatedAt: now}
	return nil
}

func (r *GameRepo) GetGame(ctx context.Context, id uint64) (*domain.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.games[id]
	if !exists {
		return nil, domain.ErrGameNotFound
	}
	g := rec.game
	return &g, nil
}

// UpdateGame applies fn to a copy and swaps it in only on success, all under
// the write lock.
func (r *GameRepo) UpdateGame(ctx context.Context, id uint64, fn func(g *domain.Game) error) (*domain.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.games[id]
	if !exists {
		return nil, domain.ErrGameNotFound
	}

	g := rec.game
	if err := fn(&g); err != nil {
		return nil, err
	}
	rec.game = g
	rec.updatedAt = r.now()

	out := g
	return &out, nil
}

func (r *GameRepo) ListGamesByPlayer(ctx context.Context, player string, limit int) ([]*domain.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var games []*domain.Game
	for _, rec := range r.games {
		if rec.game.Player1 == player || rec.game.Player2 == player {
			g := rec.game
			games = append(games, &g)
		}
	}
	sort.Slice(games, func(i, j int) bool { return games[i].ID > games[j].ID })
	if limit > 0 && len(games) > limit {
		games = games[:limit]
	}
	return games, nil
}

func (r *GameRepo) LastGameID(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var last uint64
	for id := range r.games {
		if id > last {
			last = id
		}
	}
	return last, nil
}

func (r *GameRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted []uint64
	for id, rec := range r.games {
		if rec.game.Finished && rec.updatedAt.Before(cutoff) {
			delete(r.games, id)
			deleted = append(deleted, id)
		}
	}
	sort.Slice(deleted, func(i, j int) bool { return deleted[i] < deleted[j] })
	return deleted, nil
}
