package domain

import (
	"math/bits"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice = "alice"
	bob   = "bob"
)

// drawSequence fills the board without either side connecting four.
var drawSequence = []int{
	3, 4, 4, 6, 0, 3, 5, 2, 6, 5, 0, 6, 5, 0, 3, 6, 5, 6, 1, 3, 1,
	3, 6, 5, 2, 0, 5, 3, 4, 4, 0, 1, 1, 1, 0, 1, 4, 2, 4, 2, 2, 2,
}

func play(t *testing.T, g *Game, columns ...int) bool {
	t.Helper()
	var finished bool
	for _, c := range columns {
		var err error
		finished, err = g.SubmitMove(g.CurrentPlayer(), c)
		require.NoError(t, err, "move %d in column %d", g.Moves, c)
	}
	return finished
}

func TestNewGame(t *testing.T) {
	g := NewGame(1, alice, bob)

	assert.Equal(t, uint64(1), g.ID)
	assert.Equal(t, NewBoard(), g.Board)
	assert.Zero(t, g.Moves)
	assert.False(t, g.Finished)
	assert.Equal(t, First, g.Turn())
	assert.Equal(t, alice, g.CurrentPlayer())
	assert.Equal(t, StatusActive, g.Status())
}

func TestVerticalWinInFirstColumn(t *testing.T) {
	g := NewGame(1, alice, bob)

	assert.False(t, play(t, g, 0, 1, 0, 1, 0, 1))
	assert.False(t, g.Finished)

	finished, err := g.SubmitMove(alice, 0)
	require.NoError(t, err)
	assert.True(t, finished)
	assert.True(t, g.Finished)
	assert.Equal(t, uint8(7), g.Moves)
	assert.True(t, DidWin(g.Board.Stones[First]))
	assert.False(t, DidWin(g.Board.Stones[Second]))
	assert.Equal(t, StatusWon, g.Status())
	assert.Equal(t, alice, g.Winner())
}

func TestSecondPlayerCanWin(t *testing.T) {
	g := NewGame(1, alice, bob)
	finished := play(t, g, 0, 1, 2, 1, 3, 1, 6, 1)

	assert.True(t, finished)
	assert.Equal(t, StatusWon, g.Status())
	assert.Equal(t, bob, g.Winner())
}

func TestMoveIntoFullColumn(t *testing.T) {
	g := NewGame(1, alice, bob)
	play(t, g, 0, 0, 0, 0, 0, 0)
	before := *g

	finished, err := g.SubmitMove(alice, 0)
	assert.ErrorIs(t, err, ErrInvalidMove)
	assert.False(t, finished)
	assert.Equal(t, before, *g)
	assert.Equal(t, uint8(6), g.Moves)
	assert.False(t, g.Finished)
}

func TestWrongPlayerIsUnauthorized(t *testing.T) {
	g := NewGame(1, alice, bob)
	before := *g

	_, err := g.SubmitMove(bob, 3)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, before, *g)

	_, err = g.SubmitMove("mallory", 3)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, before, *g)

	play(t, g, 3)
	before = *g
	_, err = g.SubmitMove(alice, 3)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, before, *g)
}

func TestInvalidColumnIsRejected(t *testing.T) {
	g := NewGame(1, alice, bob)
	before := *g

	for _, c := range []int{-1, Columns} {
		_, err := g.SubmitMove(alice, c)
		assert.ErrorIs(t, err, ErrInvalidColumn)
		assert.Equal(t, before, *g)
	}
}

func TestFinishedGameRejectsEverything(t *testing.T) {
	g := NewGame(1, alice, bob)
	play(t, g, 0, 1, 0, 1, 0, 1, 0)
	require.True(t, g.Finished)
	before := *g

	for _, player := range []string{alice, bob, "mallory"} {
		for _, c := range []int{-1, 0, 3, Columns} {
			finished, err := g.SubmitMove(player, c)
			assert.ErrorIs(t, err, ErrGameAlreadyFinished)
			assert.False(t, finished)
			assert.Equal(t, before, *g)
		}
	}
}

func TestFullBoardIsDraw(t *testing.T) {
	g := NewGame(1, alice, bob)
	finished := play(t, g, drawSequence[:len(drawSequence)-1]...)
	assert.False(t, finished)

	finished = play(t, g, drawSequence[len(drawSequence)-1])
	assert.True(t, finished)
	assert.True(t, g.Board.IsFull())
	assert.Equal(t, StatusDraw, g.Status())
	assert.Empty(t, g.Winner())
	require.NoError(t, g.Validate())

	_, err := g.SubmitMove(alice, 0)
	assert.ErrorIs(t, err, ErrGameAlreadyFinished)
}

func TestRandomPlayoutsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for game := 0; game < 500; game++ {
		g := NewGame(uint64(game+1), alice, bob)

		for !g.Finished {
			wantPlayer := alice
			if g.Moves%2 == 1 {
				wantPlayer = bob
			}
			require.Equal(t, wantPlayer, g.CurrentPlayer())

			// a rejected move never changes anything
			before := *g
			_, err := g.SubmitMove(g.PlayerFor(g.Turn().Other()), rng.Intn(Columns))
			require.ErrorIs(t, err, ErrUnauthorized)
			require.Equal(t, before, *g)

			column := rng.Intn(Columns)
			if !g.Board.CanPlay(column) {
				_, err := g.SubmitMove(g.CurrentPlayer(), column)
				require.ErrorIs(t, err, ErrInvalidMove)
				require.Equal(t, before, *g)
				continue
			}

			_, err = g.SubmitMove(g.CurrentPlayer(), column)
			require.NoError(t, err)

			require.Zero(t, g.Board.Stones[First]&g.Board.Stones[Second])
			require.Equal(t, int(g.Moves), bits.OnesCount64(g.Board.Stones[First])+bits.OnesCount64(g.Board.Stones[Second]))
			require.NoError(t, g.Validate())
		}

		require.NotEqual(t, StatusActive, g.Status())
	}
}

func TestGameValidateRejectsInconsistentState(t *testing.T) {
	g := NewGame(1, alice, alice)
	assert.ErrorIs(t, g.Validate(), ErrInvalidPlayers)

	g = NewGame(1, alice, bob)
	play(t, g, 0, 1, 0, 1, 0, 1, 0)
	g.Finished = false
	assert.Error(t, g.Validate())

	g = NewGame(1, alice, bob)
	play(t, g, 0, 1)
	g.Finished = true
	assert.Error(t, g.Validate())
}
