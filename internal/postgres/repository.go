package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tetris-scores/internal/config"
	"github.com/tetris-scores/internal/domain"
)

// Repository provides PostgreSQL-based data access for score records.
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS scores (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(64) NOT NULL,
			points DOUBLE PRECISION NOT NULL,
			level DOUBLE PRECISION NOT NULL,
			lines DOUBLE PRECISION NOT NULL,
			game_duration DOUBLE PRECISION,
			game_seed VARCHAR(16),
			score_hash CHAR(64) NOT NULL,
			client_ip VARCHAR(64),
			user_agent TEXT,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_name_created ON scores(name, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_points ON scores(points DESC)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// InsertScore persists a validated score record and returns its assigned id.
// Records are independent inserts; racing submissions for the same player
// both succeed as separate rows.
func (r *Repository) InsertScore(ctx context.Context, rec *domain.ScoreRecord) (int64, error) {
	query := `
		INSERT INTO scores (name, points, level, lines, game_duration, game_seed, score_hash, client_ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	var id int64
	err := r.pool.QueryRow(ctx, query,
		rec.Name,
		rec.Points,
		rec.Level,
		rec.Lines,
		rec.GameDuration,
		rec.GameSeed,
		rec.ScoreHash,
		rec.ClientIP,
		rec.UserAgent,
		rec.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting score: %w", err)
	}
	return id, nil
}

// RecentScoresByName retrieves a player's scores, newest first, bounded to limit.
func (r *Repository) RecentScoresByName(ctx context.Context, name string, limit int) ([]domain.ScoreRecord, error) {
	query := `
		SELECT id, name, points, level, lines, game_duration, game_seed, score_hash, client_ip, user_agent, created_at
		FROM scores
		WHERE name = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, name, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent scores: %w", err)
	}
	defer rows.Close()

	var records []domain.ScoreRecord
	for rows.Next() {
		var rec domain.ScoreRecord
		err := rows.Scan(
			&rec.ID,
			&rec.Name,
			&rec.Points,
			&rec.Level,
			&rec.Lines,
			&rec.GameDuration,
			&rec.GameSeed,
			&rec.ScoreHash,
			&rec.ClientIP,
			&rec.UserAgent,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning score: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// TopScores retrieves the best score per player, highest first.
func (r *Repository) TopScores(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	query := `
		SELECT name, MAX(points) AS best,
			   ROW_NUMBER() OVER (ORDER BY MAX(points) DESC) AS rank
		FROM scores
		GROUP BY name
		ORDER BY best DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying top scores: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var entry domain.LeaderboardEntry
		if err := rows.Scan(&entry.Name, &entry.Points, &entry.Rank); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// BestScores returns every player's best score, for cache rebuilds.
func (r *Repository) BestScores(ctx context.Context) (map[string]float64, error) {
	query := `SELECT name, MAX(points) FROM scores GROUP BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying best scores: %w", err)
	}
	defer rows.Close()

	best := make(map[string]float64)
	for rows.Next() {
		var name string
		var points float64
		if err := rows.Scan(&name, &points); err != nil {
			return nil, fmt.Errorf("scanning best score: %w", err)
		}
		best[name] = points
	}
	return best, nil
}

// GetScore retrieves a single score record by id.
func (r *Repository) GetScore(ctx context.Context, id int64) (*domain.ScoreRecord, error) {
	query := `
		SELECT id, name, points, level, lines, game_duration, game_seed, score_hash, client_ip, user_agent, created_at
		FROM scores
		WHERE id = $1
	`
	var rec domain.ScoreRecord
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID,
		&rec.Name,
		&rec.Points,
		&rec.Level,
		&rec.Lines,
		&rec.GameDuration,
		&rec.GameSeed,
		&rec.ScoreHash,
		&rec.ClientIP,
		&rec.UserAgent,
		&rec.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrScoreNotFound
		}
		return nil, fmt.Errorf("getting score: %w", err)
	}
	return &rec, nil
}

// DeleteScore removes a score record. Records are immutable once written
// except for deletion.
func (r *Repository) DeleteScore(ctx context.Context, id int64) error {
	query := `DELETE FROM scores WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting score: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrScoreNotFound
	}
	return nil
}

// CountScores returns the total number of persisted score records.
func (r *Repository) CountScores(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM scores`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting scores: %w", err)
	}
	return count, nil
}

// PruneOlderThan deletes records created before the cutoff and returns how
// many rows were removed. Used by the retention pass of the rebuild worker.
func (r *Repository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM scores WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning scores: %w", err)
	}
	return result.RowsAffected(), nil
}
