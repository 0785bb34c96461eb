package domain

// ClientMessage is what a player sends over the websocket.
type ClientMessage struct {
	Type   string `json:"type"`
	JWT    string `json:"jwt,omitempty"`
	GameID uint64 `json:"gameId,omitempty"`
	Column *int   `json:"column,omitempty"`
}

type MoveInfo struct {
	Column int    `json:"column"`
	Row    int    `json:"row"`
	Player string `json:"player"`
}

type ServerMessage struct {
	Type     string     `json:"type"`
	Message  string     `json:"message,omitempty"`
	GameID   uint64     `json:"gameId,omitempty"`
	Move     *MoveInfo  `json:"move,omitempty"`
	Board    [][]int    `json:"board,omitempty"`
	NextTurn string     `json:"nextTurn,omitempty"`
	Status   GameStatus `json:"status,omitempty"`
	Winner   string     `json:"winner,omitempty"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
