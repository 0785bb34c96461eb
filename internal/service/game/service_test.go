package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/iamasit07/connect4-engine/internal/domain"
	"github.com/iamasit07/connect4-engine/internal/repository/memory"
	"github.com/iamasit07/connect4-engine/pkg/uid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCache is an in-memory CacheRepository.
type mockCache struct {
	mu       sync.Mutex
	data     map[string]string
	versions map[string]int64
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string]string), versions: make(map[string]int64)}
}

func (c *mockCache) SetIfNewer(ctx context.Context, key, value string, version int64, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.versions[key]; ok && current >= version {
		return nil
	}
	c.data[key] = value
	c.versions[key] = version
	return nil
}

func (c *mockCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *mockCache) Del(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
		delete(c.versions, k)
	}
	return nil
}

// mockConn records every message per player.
type mockConn struct {
	mu       sync.Mutex
	messages map[string][]domain.ServerMessage
}

func newMockConn() *mockConn {
	return &mockConn{messages: make(map[string][]domain.ServerMessage)}
}

func (c *mockConn) SendMessage(playerID string, message domain.ServerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages[playerID] = append(c.messages[playerID], message)
	return nil
}

func (c *mockConn) types(playerID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, m := range c.messages[playerID] {
		out = append(out, m.Type)
	}
	return out
}

func (c *mockConn) last(playerID string) domain.ServerMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := c.messages[playerID]
	return msgs[len(msgs)-1]
}

func setupService(t *testing.T) (*Service, *memory.GameRepo, *mockCache, *mockConn) {
	t.Helper()
	repo := memory.NewGameRepo()
	cache := newMockCache()
	conn := newMockConn()

	s := NewService(repo, "test")
	s.Cache = cache
	s.Conn = conn
	return s, repo, cache, conn
}

func TestChallengeOpponentMovesFirst(t *testing.T) {
	s, repo, cache, conn := setupService(t)
	ctx := context.Background()

	g, err := s.Challenge(ctx, "bob", "alice")
	require.NoError(t, err)

	assert.Equal(t, uint64(1), g.ID)
	assert.Equal(t, "alice", g.Player1)
	assert.Equal(t, "bob", g.Player2)
	assert.Equal(t, "alice", g.CurrentPlayer())
	assert.Equal(t, uid.GameAddress("test", 1), g.Address)

	stored, err := repo.GetGame(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, g, stored)

	assert.Contains(t, cache.data, "game:1")
	assert.Equal(t, []string{"game_start"}, conn.types("alice"))
	assert.Equal(t, []string{"game_start"}, conn.types("bob"))
	assert.Equal(t, "alice", conn.last("bob").NextTurn)
}

func TestChallengeRejectsBadPlayers(t *testing.T) {
	s, _, _, _ := setupService(t)
	ctx := context.Background()

	for _, pair := range [][2]string{{"", "bob"}, {"alice", ""}, {"alice", "alice"}} {
		_, err := s.Challenge(ctx, pair[0], pair[1])
		assert.ErrorIs(t, err, domain.ErrInvalidPlayers)
	}
	assert.Equal(t, uint64(1), s.Registry.Peek(), "no id consumed by rejected challenges")
}

func TestChallengeSkipsIdsTakenElsewhere(t *testing.T) {
	s, repo, _, _ := setupService(t)
	ctx := context.Background()

	// another node already stored games 1 and 2
	other := domain.NewGame(1, "x", "y")
	require.NoError(t, repo.CreateGame(ctx, other))
	other = domain.NewGame(2, "x", "y")
	require.NoError(t, repo.CreateGame(ctx, other))

	g, err := s.Challenge(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), g.ID)
}

func TestRegistryCountsFromOne(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, uint64(1), r.Next())
	assert.Equal(t, uint64(2), r.Next())

	r.Resume(1)
	assert.Equal(t, uint64(3), r.Peek())
	r.Resume(10)
	assert.Equal(t, uint64(11), r.Next())
}

func TestResumeRegistry(t *testing.T) {
	s, repo, _, _ := setupService(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateGame(ctx, domain.NewGame(41, "x", "y")))

	require.NoError(t, s.ResumeRegistry(ctx))
	assert.Equal(t, uint64(42), s.Registry.Peek())
}

func TestSubmitMoveToWin(t *testing.T) {
	s, _, cache, conn := setupService(t)
	ctx := context.Background()

	g, err := s.Challenge(ctx, "bob", "alice")
	require.NoError(t, err)

	moves := []struct {
		player string
		column int
	}{
		{"alice", 0}, {"bob", 1}, {"alice", 0}, {"bob", 1}, {"alice", 0}, {"bob", 1},
	}
	for _, m := range moves {
		res, err := s.SubmitMove(ctx, g.ID, m.player, m.column)
		require.NoError(t, err)
		assert.False(t, res.Finished)
	}

	res, err := s.SubmitMove(ctx, g.ID, "alice", 0)
	require.NoError(t, err)
	assert.True(t, res.Finished)
	assert.Equal(t, 0, res.Column)
	assert.Equal(t, domain.Rows-4, res.Row)
	assert.Equal(t, domain.StatusWon, res.Game.Status())
	assert.Equal(t, "alice", res.Game.Winner())
	assert.Equal(t, int64(7), cache.versions["game:1"])

	last := conn.last("bob")
	assert.Equal(t, "game_over", last.Type)
	assert.Equal(t, "alice", last.Winner)

	types := conn.types("alice")
	assert.Equal(t, "move_made", types[len(types)-2])

	_, err = s.SubmitMove(ctx, g.ID, "bob", 2)
	assert.ErrorIs(t, err, domain.ErrGameAlreadyFinished)
}

func TestSubmitMoveRejectionsLeaveStateUnchanged(t *testing.T) {
	s, repo, _, conn := setupService(t)
	ctx := context.Background()

	g, err := s.Challenge(ctx, "bob", "alice")
	require.NoError(t, err)
	for i := 0; i < domain.Rows; i++ {
		_, err := s.SubmitMove(ctx, g.ID, g.PlayerFor(domain.Side(i&1)), 4)
		require.NoError(t, err)
	}
	before, err := repo.GetGame(ctx, g.ID)
	require.NoError(t, err)
	sent := len(conn.types("alice"))

	tests := []struct {
		name   string
		player string
		column int
		want   error
	}{
		{"wrong turn", "bob", 2, domain.ErrUnauthorized},
		{"stranger", "mallory", 2, domain.ErrUnauthorized},
		{"column out of range", "alice", 7, domain.ErrInvalidColumn},
		{"full column", "alice", 4, domain.ErrInvalidMove},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SubmitMove(ctx, g.ID, tt.player, tt.column)
			assert.ErrorIs(t, err, tt.want)

			after, err := repo.GetGame(ctx, g.ID)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
	assert.Len(t, conn.types("alice"), sent, "rejected moves notify nobody")
}

func TestSubmitMoveUnknownGame(t *testing.T) {
	s, _, _, _ := setupService(t)
	_, err := s.SubmitMove(context.Background(), 99, "alice", 0)
	assert.ErrorIs(t, err, domain.ErrGameNotFound)
}

func TestGetGameUsesCache(t *testing.T) {
	s, _, cache, _ := setupService(t)
	ctx := context.Background()

	g, err := s.Challenge(ctx, "bob", "alice")
	require.NoError(t, err)
	_, err = s.SubmitMove(ctx, g.ID, "alice", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cache.versions["game:1"], "committed move is written through")

	// a served snapshot comes from the cache, not the store
	s.Repo = nil
	got, err := s.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), got.Moves)
}

func TestGetGameDropsCorruptCacheEntry(t *testing.T) {
	s, _, cache, _ := setupService(t)
	ctx := context.Background()

	g, err := s.Challenge(ctx, "bob", "alice")
	require.NoError(t, err)

	cache.data["game:1"] = `{"ID":1,"Player1":"alice","Player2":"bob","Moves":3}`
	cache.versions["game:1"] = 3
	got, err := s.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Moves)
}

// racingRepo commits a move between reading a game and returning it, the
// window in which a reader holds a snapshot that is already old.
type racingRepo struct {
	GameRepository
	during func()
}

func (r *racingRepo) GetGame(ctx context.Context, id uint64) (*domain.Game, error) {
	g, err := r.GameRepository.GetGame(ctx, id)
	if during := r.during; during != nil {
		r.during = nil
		during()
	}
	return g, err
}

func TestGetGameNeverCachesOlderSnapshot(t *testing.T) {
	s, repo, cache, _ := setupService(t)
	ctx := context.Background()

	g, err := s.Challenge(ctx, "bob", "alice")
	require.NoError(t, err)
	require.NoError(t, cache.Del(ctx, "game:1"))

	racing := &racingRepo{GameRepository: repo}
	racing.during = func() {
		_, err := s.SubmitMove(ctx, g.ID, "alice", 3)
		require.NoError(t, err)
	}
	s.Repo = racing

	stale, err := s.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Zero(t, stale.Moves, "the racing read itself returns what it read")

	stored, err := repo.GetGame(ctx, g.ID)
	require.NoError(t, err)
	served, err := s.GetGame(ctx, g.ID)
	require.NoError(t, err)
	require.Equal(t, stored.Moves, served.Moves)
	assert.Equal(t, uint8(1), served.Moves)
}

func TestOutOfOrderCacheWritesKeepNewest(t *testing.T) {
	s, repo, cache, _ := setupService(t)
	ctx := context.Background()

	g, err := s.Challenge(ctx, "bob", "alice")
	require.NoError(t, err)
	old, err := repo.GetGame(ctx, g.ID)
	require.NoError(t, err)

	_, err = s.SubmitMove(ctx, g.ID, "alice", 0)
	require.NoError(t, err)
	_, err = s.SubmitMove(ctx, g.ID, "bob", 1)
	require.NoError(t, err)

	// a writer that finished late still holds move 0
	s.cacheGame(ctx, old)
	assert.Equal(t, int64(2), cache.versions["game:1"])

	got, err := s.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), got.Moves)
}

func TestListGames(t *testing.T) {
	s, _, _, _ := setupService(t)
	ctx := context.Background()

	_, err := s.Challenge(ctx, "bob", "alice")
	require.NoError(t, err)
	_, err = s.Challenge(ctx, "carol", "alice")
	require.NoError(t, err)

	games, err := s.ListGames(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Len(t, games, 2)

	games, err = s.ListGames(ctx, "bob", 0)
	require.NoError(t, err)
	assert.Len(t, games, 1)
}

func TestPruneFinished(t *testing.T) {
	s, _, cache, _ := setupService(t)
	ctx := context.Background()

	g, err := s.Challenge(ctx, "bob", "alice")
	require.NoError(t, err)
	open, err := s.Challenge(ctx, "carol", "dave")
	require.NoError(t, err)
	for _, c := range []int{0, 1, 0, 1, 0, 1, 0} {
		_, err := s.SubmitMove(ctx, g.ID, mustGame(t, s, g.ID).CurrentPlayer(), c)
		require.NoError(t, err)
	}
	_, err = s.GetGame(ctx, g.ID)
	require.NoError(t, err)
	require.Contains(t, cache.data, "game:1")

	n, err := s.PruneFinished(ctx, -time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NotContains(t, cache.data, "game:1")

	_, err = s.GetGame(ctx, g.ID)
	assert.ErrorIs(t, err, domain.ErrGameNotFound)
	_, err = s.GetGame(ctx, open.ID)
	assert.NoError(t, err)
}

func TestServiceWithoutCacheOrConn(t *testing.T) {
	s := NewService(memory.NewGameRepo(), "test")
	ctx := context.Background()

	g, err := s.Challenge(ctx, "bob", "alice")
	require.NoError(t, err)
	_, err = s.SubmitMove(ctx, g.ID, "alice", 0)
	require.NoError(t, err)

	got, err := s.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), got.Moves)
}

func mustGame(t *testing.T, s *Service, id uint64) *domain.Game {
	t.Helper()
	g, err := s.Repo.GetGame(context.Background(), id)
	require.NoError(t, err)
	return g
}
