package domain

// Side indexes Board.Stones. Side 0 is always the first mover.
type Side int

const (
	First  Side = 0
	Second Side = 1
)

// Other returns the opposing side.
func (s Side) Other() Side {
	return s ^ 1
}

const (
	Rows    = 6
	Columns = 7

	// each column carries one sentinel bit above its playable rows
	ColumnStride = Rows + 1
	Cells        = Rows * Columns
)

// to represent the game status
type GameStatus string

const (
	StatusActive GameStatus = "active"
	StatusWon    GameStatus = "won"
	StatusDraw   GameStatus = "draw"
)

// basic error that can occur
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrUnauthorized        Error = "unauthorized"
	ErrGameAlreadyFinished Error = "game already finished"
	ErrInvalidMove         Error = "invalid move"
	ErrInvalidColumn       Error = "invalid column"
	ErrInvalidPlayers      Error = "invalid players"
	ErrGameNotFound        Error = "game not found"
	ErrGameExists          Error = "game already exists"
)
