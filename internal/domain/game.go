package domain

type Game struct {
	ID       uint64
	Address  string
	Player1  string
	Player2  string
	Board    Board
	Moves    uint8
	Finished bool
}

func NewGame(id uint64, player1, player2 string) *Game {
	return &Game{
		ID:      id,
		Player1: player1,
		Player2: player2,
		Board:   NewBoard(),
	}
}

// Turn is derived from the move count alone; there is no stored
// current-player field to drift out of sync.
func (g *Game) Turn() Side {
	return Side(g.Moves & 1)
}

func (g *Game) PlayerFor(side Side) string {
	if side == First {
		return g.Player1
	}
	return g.Player2
}

// CurrentPlayer is the identity allowed to move next.
func (g *Game) CurrentPlayer() string {
	return g.PlayerFor(g.Turn())
}

// SubmitMove applies a move by player in column. It returns whether the game
// is over after the move. Every rejection leaves the game untouched.
func (g *Game) SubmitMove(player string, column int) (bool, error) {
	if g.Finished {
		return false, ErrGameAlreadyFinished
	}

	side := g.Turn()
	if player != g.PlayerFor(side) {
		return false, ErrUnauthorized
	}

	if _, err := g.Board.Drop(side, column); err != nil {
		return false, err
	}

	if DidWin(g.Board.Stones[side]) || int(g.Moves)+1 == Cells {
		g.Finished = true
	}
	g.Moves++

	return g.Finished, nil
}

// LastMover is the side that made the most recent move.
func (g *Game) LastMover() (Side, bool) {
	if g.Moves == 0 {
		return First, false
	}
	return Side((g.Moves - 1) & 1), true
}

func (g *Game) Status() GameStatus {
	if !g.Finished {
		return StatusActive
	}
	if side, ok := g.LastMover(); ok && DidWin(g.Board.Stones[side]) {
		return StatusWon
	}
	return StatusDraw
}

// Winner returns the winning identity, or "" if the game is not won.
func (g *Game) Winner() string {
	if g.Status() != StatusWon {
		return ""
	}
	side, _ := g.LastMover()
	return g.PlayerFor(side)
}

// Validate checks a game restored from storage.
func (g *Game) Validate() error {
	if g.Player1 == "" || g.Player2 == "" || g.Player1 == g.Player2 {
		return ErrInvalidPlayers
	}
	if err := g.Board.Validate(int(g.Moves)); err != nil {
		return err
	}
	if side, ok := g.LastMover(); ok && DidWin(g.Board.Stones[side]) != g.Finished && int(g.Moves) < Cells {
		return Error("finished flag does not match the board")
	}
	if !g.Finished && int(g.Moves) >= Cells {
		return Error("full board is not marked finished")
	}
	return nil
}
