package chess

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/park285/blindfold-chess/internal/domain"
)

var ErrDuplicateGame = errors.New("chess game already archived")

// Repository archives finished games.
type Repository interface {
	InsertGame(ctx context.Context, game *domain.GameRecord) (int64, error)
	GetRecentGames(ctx context.Context, limit int) ([]*domain.GameRecord, error)
	// GetGame returns nil, nil when no game has the id.
	GetGame(ctx context.Context, id int64) (*domain.GameRecord, error)
	Stats(ctx context.Context) (domain.PlayerStats, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS blindfold_games (
	id            BIGSERIAL PRIMARY KEY,
	game_uuid     TEXT NOT NULL UNIQUE,
	human_side    TEXT NOT NULL,
	result        TEXT NOT NULL,
	result_method TEXT NOT NULL,
	status        TEXT NOT NULL,
	opening       TEXT NOT NULL DEFAULT '',
	moves_uci     TEXT[] NOT NULL,
	moves_san     TEXT[] NOT NULL,
	pgn           TEXT NOT NULL,
	depth         INTEGER NOT NULL,
	engine_path   TEXT NOT NULL DEFAULT '',
	started_at    TIMESTAMPTZ NOT NULL,
	ended_at      TIMESTAMPTZ NOT NULL,
	duration_ms   BIGINT NOT NULL
)`

const selectColumns = `
	id,
	game_uuid,
	human_side,
	result,
	result_method,
	status,
	opening,
	moves_uci,
	moves_san,
	pgn,
	depth,
	engine_path,
	started_at,
	ended_at,
	duration_ms`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// EnsureSchema creates the archive table when it does not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create blindfold_games: %w", err)
	}
	return nil
}

func (r *repository) InsertGame(ctx context.Context, game *domain.GameRecord) (int64, error) {
	if game == nil {
		return 0, fmt.Errorf("nil game record")
	}

	const query = `
		INSERT INTO blindfold_games (
			game_uuid,
			human_side,
			result,
			result_method,
			status,
			opening,
			moves_uci,
			moves_san,
			pgn,
			depth,
			engine_path,
			started_at,
			ended_at,
			duration_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (game_uuid) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err := r.db.QueryRowContext(
		ctx,
		query,
		game.GameUUID,
		game.HumanSide,
		game.Result,
		game.ResultMethod,
		game.Status,
		game.Opening,
		pq.Array(game.MovesUCI),
		pq.Array(game.MovesSAN),
		game.PGN,
		game.Depth,
		game.EnginePath,
		game.StartedAt,
		game.EndedAt,
		game.Duration.Milliseconds(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicateGame
	}
	if err != nil {
		return 0, fmt.Errorf("insert game: %w", err)
	}
	return id.Int64, nil
}

func (r *repository) GetRecentGames(ctx context.Context, limit int) ([]*domain.GameRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT` + selectColumns + `
		FROM blindfold_games
		ORDER BY ended_at DESC, id DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.GameRecord, 0, limit)
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	return games, nil
}

func (r *repository) GetGame(ctx context.Context, id int64) (*domain.GameRecord, error) {
	query := `SELECT` + selectColumns + `
		FROM blindfold_games
		WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *repository) getOne(ctx context.Context, query string, arg any) (*domain.GameRecord, error) {
	game, err := scanGame(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return game, nil
}

func (r *repository) Stats(ctx context.Context) (domain.PlayerStats, error) {
	const query = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE result = 'win'),
			COUNT(*) FILTER (WHERE result = 'loss'),
			COUNT(*) FILTER (WHERE result = 'draw'),
			COUNT(*) FILTER (WHERE status = 'aborted'),
			MAX(ended_at)
		FROM blindfold_games`

	var (
		stats domain.PlayerStats
		last  pq.NullTime
	)
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.GamesPlayed,
		&stats.Wins,
		&stats.Losses,
		&stats.Draws,
		&stats.Aborted,
		&last,
	)
	if err != nil {
		return domain.PlayerStats{}, fmt.Errorf("select stats: %w", err)
	}
	if last.Valid {
		stats.LastPlayed = last.Time
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*domain.GameRecord, error) {
	var (
		game       domain.GameRecord
		durationMS sql.NullInt64
	)
	err := row.Scan(
		&game.ID,
		&game.GameUUID,
		&game.HumanSide,
		&game.Result,
		&game.ResultMethod,
		&game.Status,
		&game.Opening,
		pq.Array(&game.MovesUCI),
		pq.Array(&game.MovesSAN),
		&game.PGN,
		&game.Depth,
		&game.EnginePath,
		&game.StartedAt,
		&game.EndedAt,
		&durationMS,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan game: %w", err)
	}
	if durationMS.Valid {
		game.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	}
	return &game, nil
}
