// Package repository holds what the SQL game stores share: the flat row a
// game is persisted as.
package repository

import (
	"fmt"

	"github.com/iamasit07/connect4-engine/internal/domain"
)

// GameRow is a game as stored in one table row. Stones are kept as signed
// integers because both databases lack an unsigned 64-bit column; only the
// low 49 bits are ever used.
type GameRow struct {
	ID       int64
	Address  string
	Player1  string
	Player2  string
	Stones1  int64
	Stones2  int64
	Heights  []byte
	Moves    int64
	Finished bool
}

func RowFromGame(g *domain.Game) GameRow {
	return GameRow{
		ID:       int64(g.ID),
		Address:  g.Address,
		Player1:  g.Player1,
		Player2:  g.Player2,
		Stones1:  int64(g.Board.Stones[domain.First]),
		Stones2:  int64(g.Board.Stones[domain.Second]),
		Heights:  append([]byte(nil), g.Board.Heights[:]...),
		Moves:    int64(g.Moves),
		Finished: g.Finished,
	}
}

// Game rebuilds the domain game and checks it is a reachable position.
func (r GameRow) Game() (*domain.Game, error) {
	if len(r.Heights) != domain.Columns {
		return nil, fmt.Errorf("game %d: heights has %d columns", r.ID, len(r.Heights))
	}
	if r.Moves < 0 || r.Moves > domain.Cells {
		return nil, fmt.Errorf("game %d: move count %d out of range", r.ID, r.Moves)
	}

	g := &domain.Game{
		ID:       uint64(r.ID),
		Address:  r.Address,
		Player1:  r.Player1,
		Player2:  r.Player2,
		Moves:    uint8(r.Moves),
		Finished: r.Finished,
	}
	g.Board.Stones[domain.First] = uint64(r.Stones1)
	g.Board.Stones[domain.Second] = uint64(r.Stones2)
	copy(g.Board.Heights[:], r.Heights)

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("game %d: corrupt state: %w", r.ID, err)
	}
	return g, nil
}
