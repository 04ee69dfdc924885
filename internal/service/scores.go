package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tetris-scores/internal/anticheat"
	"github.com/tetris-scores/internal/config"
	"github.com/tetris-scores/internal/domain"
)

// ScoreStore is the persistence interface the orchestrator consumes: bounded
// history reads by player name and independent single-record inserts.
type ScoreStore interface {
	InsertScore(ctx context.Context, rec *domain.ScoreRecord) (int64, error)
	RecentScoresByName(ctx context.Context, name string, limit int) ([]domain.ScoreRecord, error)
	TopScores(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	GetScore(ctx context.Context, id int64) (*domain.ScoreRecord, error)
	DeleteScore(ctx context.Context, id int64) error
	CountScores(ctx context.Context) (int64, error)
}

// BoardCache is the leaderboard read cache updated after accepted submissions.
type BoardCache interface {
	RecordIfBetter(ctx context.Context, name string, points float64) (bool, error)
	TopN(ctx context.Context, n int) ([]domain.LeaderboardEntry, error)
	PlayerBest(ctx context.Context, name string) (*domain.LeaderboardEntry, error)
	Count(ctx context.Context) (int64, error)
	RemovePlayer(ctx context.Context, name string) error
}

// Broadcaster pushes accepted scores to connected clients.
type Broadcaster interface {
	BroadcastScoreAccepted(rec domain.ScoreRecord, top []domain.LeaderboardEntry)
}

// ScoreService orchestrates score submission: seed issuance, pattern
// analysis over recent history, validation, fingerprinting and persistence.
type ScoreService struct {
	store     ScoreStore
	board     BoardCache
	validator *anticheat.Validator
	cfg       *config.AnticheatConfig
	boards    *config.LeaderboardConfig
	hub       Broadcaster
	logger    *slog.Logger
	now       func() time.Time
}

// NewScoreService creates a new score service
func NewScoreService(
	store ScoreStore,
	board BoardCache,
	anticheatCfg *config.AnticheatConfig,
	boardCfg *config.LeaderboardConfig,
	logger *slog.Logger,
) *ScoreService {
	return &ScoreService{
		store:     store,
		board:     board,
		validator: anticheat.NewValidator(anticheatCfg),
		cfg:       anticheatCfg,
		boards:    boardCfg,
		logger:    logger,
		now:       time.Now,
	}
}

// SetHub attaches the broadcast hub for accepted-score notifications.
func (s *ScoreService) SetHub(hub Broadcaster) {
	s.hub = hub
}

// IssueSeed returns a fresh game seed with the configured advisory TTL.
func (s *ScoreService) IssueSeed() domain.GameSeed {
	return anticheat.NewGameSeed(s.cfg.SeedTTL)
}

// ValidateOnly runs the full validator without persisting anything.
func (s *ScoreService) ValidateOnly(sub domain.ScoreSubmission) domain.ValidationResult {
	return s.validator.Validate(sub)
}

// Submit runs the whole submission flow: structural fail-fast, history load,
// pattern analysis, full validation, fingerprint, persist. Returns the
// persisted record and the expected score. Rejections surface as
// *domain.ValidationError or *domain.SuspiciousPatternError; any other error
// is infrastructure.
func (s *ScoreService) Submit(ctx context.Context, sub domain.ScoreSubmission, meta domain.RequestMeta) (*domain.ScoreRecord, float64, error) {
	// Structural checks first so malformed input never costs a storage read.
	if res := s.validator.ValidateStructure(sub); !res.IsValid {
		return nil, 0, &domain.ValidationError{Result: res}
	}

	history, err := s.store.RecentScoresByName(ctx, sub.Name, s.cfg.HistoryLimit)
	if err != nil {
		return nil, 0, fmt.Errorf("loading score history: %w", err)
	}

	now := s.now()

	// Pattern analysis runs over history plus the incoming submission as a
	// synthetic record stamped now. Development mode skips it, and an empty
	// history carries no signal.
	if len(history) > 0 && !s.cfg.Mode.IsDevelopment() {
		samples := make([]anticheat.ScoreSample, 0, len(history)+1)
		for _, rec := range history {
			samples = append(samples, anticheat.ScoreSample{Points: rec.Points, CreatedAt: rec.CreatedAt})
		}
		samples = append(samples, anticheat.ScoreSample{Points: sub.Points, CreatedAt: now})

		if analysis := anticheat.AnalyzeScorePattern(samples, now); analysis.Suspicious {
			s.logger.Warn("rejecting suspicious score pattern",
				"name", sub.Name,
				"reasons", analysis.Reasons,
			)
			return nil, 0, &domain.SuspiciousPatternError{Reasons: analysis.Reasons}
		}
	}

	result := s.validator.Validate(sub)
	if !result.IsValid {
		if !s.cfg.Mode.IsDevelopment() {
			return nil, 0, &domain.ValidationError{Result: result}
		}
		// Explicit escape hatch for local testing: log the failure and
		// persist anyway.
		s.logger.Warn("accepting invalid score in development mode",
			"name", sub.Name,
			"reason", result.Reason,
		)
	}

	rec := &domain.ScoreRecord{
		Name:         sub.Name,
		Points:       sub.Points,
		Level:        sub.Level,
		Lines:        sub.Lines,
		GameDuration: sub.GameDuration,
		GameSeed:     sub.GameSeed,
		ScoreHash:    anticheat.GenerateScoreHash(sub),
		ClientIP:     meta.ClientIP,
		UserAgent:    meta.UserAgent,
		CreatedAt:    now,
	}

	id, err := s.store.InsertScore(ctx, rec)
	if err != nil {
		return nil, 0, fmt.Errorf("persisting score: %w", err)
	}
	rec.ID = id

	expected := 0.0
	if result.ExpectedScore != nil {
		expected = *result.ExpectedScore
	} else {
		expected = anticheat.CalculateExpectedScore(sub.Level, sub.Lines, sub.GameDuration)
	}

	s.publishAccepted(ctx, *rec)

	return rec, expected, nil
}

// publishAccepted updates the leaderboard cache and notifies subscribers.
// Best-effort: the submission already succeeded, so failures are logged only.
func (s *ScoreService) publishAccepted(ctx context.Context, rec domain.ScoreRecord) {
	if s.board == nil {
		return
	}

	if _, err := s.board.RecordIfBetter(ctx, rec.Name, rec.Points); err != nil {
		s.logger.Warn("failed to update leaderboard cache", "error", err)
	}

	if s.hub == nil {
		return
	}

	top, err := s.board.TopN(ctx, 10)
	if err != nil {
		s.logger.Warn("failed to read top scores for broadcast", "error", err)
	}
	s.hub.BroadcastScoreAccepted(rec, top)
}

// TopScores returns the high-score board, served from the cache with a
// database fallback.
func (s *ScoreService) TopScores(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = s.boards.DefaultLimit
	}
	if limit > s.boards.MaxLimit {
		limit = s.boards.MaxLimit
	}

	if s.board != nil {
		entries, err := s.board.TopN(ctx, limit)
		if err == nil {
			return entries, nil
		}
		s.logger.Warn("leaderboard cache unavailable, falling back to database", "error", err)
	}

	entries, err := s.store.TopScores(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("getting top scores: %w", err)
	}
	return entries, nil
}

// PlayerScores returns a player's submission history, newest first.
func (s *ScoreService) PlayerScores(ctx context.Context, name string, limit int) ([]domain.ScoreRecord, error) {
	if limit <= 0 {
		limit = s.cfg.HistoryLimit
	}
	if limit > s.boards.MaxLimit {
		limit = s.boards.MaxLimit
	}

	records, err := s.store.RecentScoresByName(ctx, name, limit)
	if err != nil {
		return nil, fmt.Errorf("getting player scores: %w", err)
	}
	return records, nil
}

// ScoreByID returns a single persisted score record.
func (s *ScoreService) ScoreByID(ctx context.Context, id int64) (*domain.ScoreRecord, error) {
	return s.store.GetScore(ctx, id)
}

// PlayerRank returns a player's best score and current board rank.
func (s *ScoreService) PlayerRank(ctx context.Context, name string) (*domain.LeaderboardEntry, error) {
	return s.board.PlayerBest(ctx, name)
}

// Stats reports persisted record and board player counts.
func (s *ScoreService) Stats(ctx context.Context) (map[string]int64, error) {
	records, err := s.store.CountScores(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting scores: %w", err)
	}

	players := int64(0)
	if s.board != nil {
		players, err = s.board.Count(ctx)
		if err != nil {
			s.logger.Warn("failed to count board players", "error", err)
			players = 0
		}
	}

	return map[string]int64{
		"total_scores": records,
		"players":      players,
	}, nil
}

// DeleteScore removes a persisted record and evicts the player's cached board
// entry so a deleted top score does not linger until the next rebuild. The
// player's remaining best reappears on the following rebuild cycle.
func (s *ScoreService) DeleteScore(ctx context.Context, id int64) error {
	rec, err := s.store.GetScore(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteScore(ctx, id); err != nil {
		return err
	}

	if s.board != nil {
		if err := s.board.RemovePlayer(ctx, rec.Name); err != nil {
			s.logger.Warn("failed to evict player from board", "error", err, "name", rec.Name)
		}
	}
	return nil
}
