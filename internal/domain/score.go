package domain

import "time"

// ScoreSubmission represents a client-provided record of a completed game,
// pending validation. Numeric fields are float64 because the public API
// accepts arbitrary JSON numbers; the validator reports out-of-range or
// non-finite values with specific reasons instead of failing to decode.
type ScoreSubmission struct {
	Name         string   `json:"name"`
	Points       float64  `json:"points"`
	Level        float64  `json:"level"`
	Lines        float64  `json:"lines"`
	GameDuration *float64 `json:"gameDuration,omitempty"`
	GameSeed     *string  `json:"gameSeed,omitempty"`
}

// ScoreRecord is a persisted score. Immutable once written except for deletion.
type ScoreRecord struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Points       float64   `json:"points"`
	Level        float64   `json:"level"`
	Lines        float64   `json:"lines"`
	GameDuration *float64  `json:"gameDuration,omitempty"`
	GameSeed     *string   `json:"gameSeed,omitempty"`
	ScoreHash    string    `json:"scoreHash"`
	ClientIP     string    `json:"-"`
	UserAgent    string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// GameSeed is an opaque per-session token loosely binding a submission to a
// play session. Seeds are stateless: validity is structural, never a registry
// lookup, and the expiry is a client-side hint only.
type GameSeed struct {
	Seed      string `json:"seed"`
	Timestamp int64  `json:"timestamp"`
	ExpiresAt int64  `json:"expiresAt"`
}

// ValidationResult is the outcome of validating a single submission.
type ValidationResult struct {
	IsValid       bool     `json:"isValid"`
	Reason        string   `json:"reason,omitempty"`
	ExpectedScore *float64 `json:"expectedScore,omitempty"`
}

// PatternAnalysis is the outcome of inspecting a player's submission history.
type PatternAnalysis struct {
	Suspicious bool     `json:"suspicious"`
	Reasons    []string `json:"reasons"`
}

// LeaderboardEntry is a single row of the high-score board.
type LeaderboardEntry struct {
	Rank   int64   `json:"rank"`
	Name   string  `json:"name"`
	Points float64 `json:"points"`
}

// RequestMeta carries request metadata stamped onto accepted records.
type RequestMeta struct {
	ClientIP  string
	UserAgent string
}
