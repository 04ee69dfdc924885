package anticheat

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/tetris-scores/internal/domain"
)

// hashPayload is the canonical serialization hashed into a score fingerprint.
// Field order is fixed by the struct; an absent seed normalizes to "default"
// so presence or absence of a seed changes the digest.
type hashPayload struct {
	Name     string  `json:"name"`
	Points   float64 `json:"points"`
	Level    float64 `json:"level"`
	Lines    float64 `json:"lines"`
	GameSeed string  `json:"gameSeed"`
}

// GenerateScoreHash produces a 64-character lowercase hex SHA-256 digest of
// the submission's identifying fields. It is an integrity and dedup aid, not
// a security boundary: the formula is public and unsalted, so the hash must
// never be treated as tamper-proof.
func GenerateScoreHash(sub domain.ScoreSubmission) string {
	seed := "default"
	if sub.GameSeed != nil {
		seed = *sub.GameSeed
	}

	payload, _ := json.Marshal(hashPayload{
		Name:     sub.Name,
		Points:   sub.Points,
		Level:    sub.Level,
		Lines:    sub.Lines,
		GameSeed: seed,
	})

	digest := sha256.Sum256(payload)
	return hex.EncodeToString(digest[:])
}
