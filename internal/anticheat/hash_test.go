package anticheat

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetris-scores/internal/domain"
)

var hexDigest = regexp.MustCompile(`^[a-f0-9]{64}$`)

func TestGenerateScoreHash_Shape(t *testing.T) {
	hash := GenerateScoreHash(domain.ScoreSubmission{Name: "P", Points: 1000, Level: 5, Lines: 20})
	require.Regexp(t, hexDigest, hash)
}

func TestGenerateScoreHash_Deterministic(t *testing.T) {
	sub := domain.ScoreSubmission{
		Name: "P", Points: 1000, Level: 5, Lines: 20,
		GameSeed: strptr("a1b2c3d4e5f67890"),
	}
	require.Equal(t, GenerateScoreHash(sub), GenerateScoreHash(sub))
}

func TestGenerateScoreHash_FieldSensitivity(t *testing.T) {
	base := domain.ScoreSubmission{Name: "P", Points: 1000, Level: 5, Lines: 20}
	baseHash := GenerateScoreHash(base)

	variants := map[string]domain.ScoreSubmission{
		"name":   {Name: "Q", Points: 1000, Level: 5, Lines: 20},
		"points": {Name: "P", Points: 1001, Level: 5, Lines: 20},
		"level":  {Name: "P", Points: 1000, Level: 6, Lines: 20},
		"lines":  {Name: "P", Points: 1000, Level: 5, Lines: 21},
		"seed":   {Name: "P", Points: 1000, Level: 5, Lines: 20, GameSeed: strptr("a1b2c3d4e5f67890")},
	}
	for field, sub := range variants {
		require.NotEqual(t, baseHash, GenerateScoreHash(sub), "changing %s must change the hash", field)
	}
}

func TestGenerateScoreHash_AbsentSeedNormalizesToDefault(t *testing.T) {
	// An absent seed hashes as the literal string "default", so absence is
	// itself part of the fingerprint.
	withDefault := domain.ScoreSubmission{
		Name: "P", Points: 1000, Level: 5, Lines: 20,
		GameSeed: strptr("default"),
	}
	without := domain.ScoreSubmission{Name: "P", Points: 1000, Level: 5, Lines: 20}

	require.Equal(t, GenerateScoreHash(withDefault), GenerateScoreHash(without))
}
