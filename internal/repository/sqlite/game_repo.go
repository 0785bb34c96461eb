// Package sqlite stores games in a single SQLite file, for deployments that
// run one node.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/iamasit07/connect4-engine/internal/domain"
	"github.com/iamasit07/connect4-engine/internal/repository"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schema string

const selectGame = `
	SELECT id, address, player1, player2, stones1, stones2, heights, moves, finished
	FROM games`

type GameRepo struct {
	DB  *sql.DB
	now func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens (or creates) the database at path and applies the schema.
// ":memory:" gives a throwaway database.
func Open(path string) (*GameRepo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := ":memory:"
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one connection: transactions are serialised, and an in-memory
	// database stays the same database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &GameRepo{DB: db, now: time.Now}, nil
}

func (r *GameRepo) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
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

func isConstraintViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}

func (r *GameRepo) CreateGame(ctx context.Context, g *domain.Game) error {
	row := repository.RowFromGame(g)
	now := toMillis(r.now())

	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO games (id, address, player1, player2, stones1, stones2, heights, moves, finished, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.Address, row.Player1, row.Player2,
		row.Stones1, row.Stones2, row.Heights, row.Moves, row.Finished, now, now)
	if err != nil {
		if isConstraintViolation(err) {
			return domain.ErrGameExists
		}
		return fmt.Errorf("insert game %d: %w", g.ID, err)
	}
	return nil
}

func (r *GameRepo) GetGame(ctx context.Context, id uint64) (*domain.Game, error) {
	g, err := scanGame(r.DB.QueryRowContext(ctx, selectGame+` WHERE id = ?`, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get game %d: %w", id, err)
	}
	return g, nil
}

// UpdateGame runs inside an immediate transaction; with the single
// connection this makes the read-modify-write exclusive.
func (r *GameRepo) UpdateGame(ctx context.Context, id uint64, fn func(g *domain.Game) error) (*domain.Game, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	g, err := scanGame(tx.QueryRowContext(ctx, selectGame+` WHERE id = ?`, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load game %d: %w", id, err)
	}

	if err := fn(g); err != nil {
		return nil, err
	}

	row := repository.RowFromGame(g)
	_, err = tx.ExecContext(ctx,
		`UPDATE games
		 SET stones1 = ?, stones2 = ?, heights = ?, moves = ?, finished = ?, updated_at = ?
		 WHERE id = ?`,
		row.Stones1, row.Stones2, row.Heights, row.Moves, row.Finished, toMillis(r.now()), row.ID)
	if err != nil {
		return nil, fmt.Errorf("update game %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return g, nil
}

func (r *GameRepo) ListGamesByPlayer(ctx context.Context, player string, limit int) ([]*domain.Game, error) {
	rows, err := r.DB.QueryContext(ctx,
		selectGame+` WHERE player1 = ? OR player2 = ? ORDER BY id DESC LIMIT ?`,
		player, player, limit)
	if err != nil {
		return nil, fmt.Errorf("list games for %s: %w", player, err)
	}
	defer rows.Close()

	var games []*domain.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game row: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read game rows: %w", err)
	}
	return games, nil
}

func (r *GameRepo) LastGameID(ctx context.Context) (uint64, error) {
	var last int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM games`).Scan(&last); err != nil {
		return 0, fmt.Errorf("read last game id: %w", err)
	}
	return uint64(last), nil
}

func (r *GameRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]uint64, error) {
	rows, err := r.DB.QueryContext(ctx,
		`DELETE FROM games WHERE finished = 1 AND updated_at < ? RETURNING id`, toMillis(cutoff))
	if err != nil {
		return nil, fmt.Errorf("delete finished games: %w", err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan deleted game id: %w", err)
		}
		ids = append(ids, uint64(id))
	}
	return ids, rows.Err()
}
