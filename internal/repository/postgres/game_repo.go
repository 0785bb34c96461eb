package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iamasit07/connect4-engine/internal/domain"
	"github.com/iamasit07/connect4-engine/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const selectGame = `
	SELECT id, address, player1, player2, stones1, stones2, heights, moves, finished
	FROM games`

type GameRepo struct {
	DB *sql.DB
}

func NewGameRepo(db *sql.DB) *GameRepo {
	return &GameRepo{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(s rowScanner) (*domain.Game, error) {
	var row repository.GameRow
	err := s.Scan(
		&row.ID,
		&row.Address,
		&row.Player1,
		&row.Player2,
		&row.Stones1,
		&row.Stones2,
		&row.Heights,
		&row.Moves,
		&row.Finished,
	)
	if err != nil {
		return nil, err
	}
	return row.Game()
}

// CreateGame inserts a new game. An id or address that is already taken
// reports domain.ErrGameExists.
func (r *GameRepo) CreateGame(ctx context.Context, g *domain.Game) error {
	row := repository.RowFromGame(g)
	query := `
	INSERT INTO games (id, address, player1, player2, stones1, stones2, heights, moves, finished)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err := r.DB.ExecContext(ctx, query,
		row.ID, row.Address, row.Player1, row.Player2,
		row.Stones1, row.Stones2, row.Heights, row.Moves, row.Finished)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrGameExists
		}
		return fmt.Errorf("failed to insert game %d: %w", g.ID, err)
	}
	return nil
}

func (r *GameRepo) GetGame(ctx context.Context, id uint64) (*domain.Game, error) {
	g, err := scanGame(r.DB.QueryRowContext(ctx, selectGame+` WHERE id = $1;`, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game %d: %w", id, err)
	}
	return g, nil
}

// UpdateGame locks the row with SELECT ... FOR UPDATE so concurrent moves on
// the same game queue up behind each other.
func (r *GameRepo) UpdateGame(ctx context.Context, id uint64, fn func(g *domain.Game) error) (*domain.Game, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	g, err := scanGame(tx.QueryRowContext(ctx, selectGame+` WHERE id = $1 FOR UPDATE;`, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock game %d: %w", id, err)
	}

	if err := fn(g); err != nil {
		return nil, err
	}

	row := repository.RowFromGame(g)
	query := `
	UPDATE games
	SET stones1 = $2, stones2 = $3, heights = $4, moves = $5, finished = $6, updated_at = NOW()
	WHERE id = $1;
	`
	if _, err := tx.ExecContext(ctx, query, row.ID, row.Stones1, row.Stones2, row.Heights, row.Moves, row.Finished); err != nil {
		return nil, fmt.Errorf("failed to update game %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return g, nil
}

func (r *GameRepo) ListGamesByPlayer(ctx context.Context, player string, limit int) ([]*domain.Game, error) {
	query := selectGame + `
	WHERE player1 = $1 OR player2 = $1
	ORDER BY id DESC
	LIMIT $2;
	`
	rows, err := r.DB.QueryContext(ctx, query, player, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query games for %s: %w", player, err)
	}
	defer rows.Close()

	var games []*domain.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read game rows: %w", err)
	}
	return games, nil
}

func (r *GameRepo) LastGameID(ctx context.Context) (uint64, error) {
	var last int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM games;`).Scan(&last); err != nil {
		return 0, fmt.Errorf("failed to read last game id: %w", err)
	}
	return uint64(last), nil
}

func (r *GameRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]uint64, error) {
	rows, err := r.DB.QueryContext(ctx, `DELETE FROM games WHERE finished AND updated_at < $1 RETURNING id;`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to delete finished games: %w", err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan deleted game id: %w", err)
		}
		ids = append(ids, uint64(id))
	}
	return ids, rows.Err()
}
