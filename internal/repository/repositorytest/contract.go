// Package repositorytest is a shared test suite every game store must pass.
package repositorytest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iamasit07/connect4-engine/internal/domain"
	"github.com/iamasit07/connect4-engine/pkg/uid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Repository interface {
	CreateGame(ctx context.Context, g *domain.Game) error
	GetGame(ctx context.Context, id uint64) (*domain.Game, error)
	UpdateGame(ctx context.Context, id uint64, fn func(g *domain.Game) error) (*domain.Game, error)
	ListGamesByPlayer(ctx context.Context, player string, limit int) ([]*domain.Game, error)
	LastGameID(ctx context.Context) (uint64, error)
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]uint64, error)
}

// DrawSequence fills the board without either side connecting four.
var DrawSequence = []int{
	3, 4, 4, 6, 0, 3, 5, 2, 6, 5, 0, 6, 5, 0, 3, 6, 5, 6, 1, 3, 1,
	3, 6, 5, 2, 0, 5, 3, 4, 4, 0, 1, 1, 1, 0, 1, 4, 2, 4, 2, 2, 2,
}

func NewGame(id uint64, player1, player2 string) *domain.Game {
	g := domain.NewGame(id, player1, player2)
	g.Address = uid.GameAddress("test", id)
	return g
}

// Run exercises a fresh repository returned by newRepo for every subtest.
func Run(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		repo := newRepo(t)
		g := NewGame(1, "alice", "bob")
		require.NoError(t, repo.CreateGame(ctx, g))

		got, err := repo.GetGame(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, g, got)

		_, err = repo.GetGame(ctx, 2)
		assert.ErrorIs(t, err, domain.ErrGameNotFound)
	})

	t.Run("duplicate id", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.CreateGame(ctx, NewGame(1, "alice", "bob")))
		err := repo.CreateGame(ctx, NewGame(1, "carol", "dave"))
		assert.ErrorIs(t, err, domain.ErrGameExists)
	})

	t.Run("update persists moves", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.CreateGame(ctx, NewGame(1, "alice", "bob")))

		updated, err := repo.UpdateGame(ctx, 1, func(g *domain.Game) error {
			_, err := g.SubmitMove("alice", 3)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, uint8(1), updated.Moves)

		got, err := repo.GetGame(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, updated, got)
		assert.Equal(t, "bob", got.CurrentPlayer())
	})

	t.Run("rejected update writes nothing", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.CreateGame(ctx, NewGame(1, "alice", "bob")))
		before, err := repo.GetGame(ctx, 1)
		require.NoError(t, err)

		_, err = repo.UpdateGame(ctx, 1, func(g *domain.Game) error {
			_, err := g.SubmitMove("bob", 3)
			return err
		})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)

		boom := errors.New("boom")
		_, err = repo.UpdateGame(ctx, 1, func(g *domain.Game) error {
			g.Moves = 9
			return boom
		})
		assert.ErrorIs(t, err, boom)

		after, err := repo.GetGame(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("update missing game", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.UpdateGame(ctx, 7, func(g *domain.Game) error { return nil })
		assert.ErrorIs(t, err, domain.ErrGameNotFound)
	})

	t.Run("concurrent updates are serialised", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.CreateGame(ctx, NewGame(1, "alice", "bob")))

		var wg sync.WaitGroup
		errs := make(chan error, len(DrawSequence))
		for range DrawSequence {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.UpdateGame(ctx, 1, func(g *domain.Game) error {
					_, err := g.SubmitMove(g.CurrentPlayer(), DrawSequence[g.Moves])
					return err
				})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := repo.GetGame(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint8(domain.Cells), got.Moves)
		assert.True(t, got.Finished)
		assert.Equal(t, domain.StatusDraw, got.Status())
	})

	t.Run("list by player", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.CreateGame(ctx, NewGame(1, "alice", "bob")))
		require.NoError(t, repo.CreateGame(ctx, NewGame(2, "carol", "alice")))
		require.NoError(t, repo.CreateGame(ctx, NewGame(3, "carol", "bob")))

		games, err := repo.ListGamesByPlayer(ctx, "alice", 10)
		require.NoError(t, err)
		require.Len(t, games, 2)
		assert.Equal(t, uint64(2), games[0].ID)
		assert.Equal(t, uint64(1), games[1].ID)

		games, err = repo.ListGamesByPlayer(ctx, "bob", 1)
		require.NoError(t, err)
		require.Len(t, games, 1)
		assert.Equal(t, uint64(3), games[0].ID)

		games, err = repo.ListGamesByPlayer(ctx, "nobody", 10)
		require.NoError(t, err)
		assert.Empty(t, games)
	})

	t.Run("last game id", func(t *testing.T) {
		repo := newRepo(t)
		last, err := repo.LastGameID(ctx)
		require.NoError(t, err)
		assert.Zero(t, last)

		require.NoError(t, repo.CreateGame(ctx, NewGame(5, "alice", "bob")))
		require.NoError(t, repo.CreateGame(ctx, NewGame(3, "alice", "bob")))
		last, err = repo.LastGameID(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), last)
	})

	t.Run("delete finished", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.CreateGame(ctx, NewGame(1, "alice", "bob")))
		require.NoError(t, repo.CreateGame(ctx, NewGame(2, "alice", "bob")))

		for _, c := range []int{0, 1, 0, 1, 0, 1, 0} {
			_, err := repo.UpdateGame(ctx, 1, func(g *domain.Game) error {
				_, err := g.SubmitMove(g.CurrentPlayer(), c)
				return err
			})
			require.NoError(t, err)
		}

		ids, err := repo.DeleteFinishedBefore(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Empty(t, ids)

		ids, err = repo.DeleteFinishedBefore(ctx, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, []uint64{1}, ids)

		_, err = repo.GetGame(ctx, 1)
		assert.ErrorIs(t, err, domain.ErrGameNotFound)
		_, err = repo.GetGame(ctx, 2)
		assert.NoError(t, err)
	})
}
