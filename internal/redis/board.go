package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/tetris-scores/internal/config"
	"github.com/tetris-scores/internal/domain"
)

// boardKey is the sorted set holding each player's best score.
const boardKey = "tetris:highscores"

// Board serves the high-score leaderboard from a Redis sorted set. Postgres
// remains the source of truth; the board is a read cache rebuilt by the sync
// worker and updated best-effort on every accepted submission.
type Board struct {
	client *redis.Client
	logger *slog.Logger
}

// NewBoard creates a new Redis-backed high-score board.
func NewBoard(cfg *config.RedisConfig, logger *slog.Logger) (*Board, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Board{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (b *Board) Close() error {
	return b.client.Close()
}

// Client returns the underlying Redis client
func (b *Board) Client() *redis.Client {
	return b.client
}

// RecordIfBetter stores the player's score if it beats their current best.
// Returns whether the board changed.
func (b *Board) RecordIfBetter(ctx context.Context, name string, points float64) (bool, error) {
	current, err := b.client.ZScore(ctx, boardKey, name).Result()
	if err != nil && err != redis.Nil {
		return false, fmt.Errorf("getting current best: %w", err)
	}

	if err != redis.Nil && points <= current {
		return false, nil
	}

	if err := b.client.ZAdd(ctx, boardKey, redis.Z{
		Score:  points,
		Member: name,
	}).Err(); err != nil {
		return false, fmt.Errorf("recording score: %w", err)
	}
	return true, nil
}

// TopN returns the top N players, best first.
func (b *Board) TopN(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	results, err := b.client.ZRevRangeWithScores(ctx, boardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting top n: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, len(results))
	for i, result := range results {
		entries[i] = domain.LeaderboardEntry{
			Rank:   int64(i + 1),
			Name:   result.Member.(string),
			Points: result.Score,
		}
	}
	return entries, nil
}

// PlayerBest returns a player's best score and rank.
func (b *Board) PlayerBest(ctx context.Context, name string) (*domain.LeaderboardEntry, error) {
	pipe := b.client.Pipeline()
	rankCmd := pipe.ZRevRank(ctx, boardKey, name)
	scoreCmd := pipe.ZScore(ctx, boardKey, name)
	_, err := pipe.Exec(ctx)
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("getting player best: %w", err)
	}

	rank, err := rankCmd.Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("getting rank result: %w", err)
	}

	score, err := scoreCmd.Result()
	if err != nil {
		return nil, fmt.Errorf("getting score result: %w", err)
	}

	return &domain.LeaderboardEntry{
		Rank:   rank + 1, // Convert 0-indexed to 1-indexed
		Name:   name,
		Points: score,
	}, nil
}

// Count returns the number of players on the board.
func (b *Board) Count(ctx context.Context) (int64, error) {
	count, err := b.client.ZCard(ctx, boardKey).Result()
	if err != nil {
		return 0, fmt.Errorf("getting count: %w", err)
	}
	return count, nil
}

// Rebuild atomically replaces the board with the given best-per-player
// scores. Used on startup and by the periodic sync worker.
func (b *Board) Rebuild(ctx context.Context, best map[string]float64) error {
	pipe := b.client.TxPipeline()
	pipe.Del(ctx, boardKey)
	for name, points := range best {
		pipe.ZAdd(ctx, boardKey, redis.Z{
			Score:  points,
			Member: name,
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rebuilding board: %w", err)
	}
	return nil
}

// RemovePlayer drops a player from the board.
func (b *Board) RemovePlayer(ctx context.Context, name string) error {
	if err := b.client.ZRem(ctx, boardKey, name).Err(); err != nil {
		return fmt.Errorf("removing player: %w", err)
	}
	return nil
}
