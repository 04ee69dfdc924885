package anticheat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateGameSeed_Format(t *testing.T) {
	seed := GenerateGameSeed()
	require.Len(t, seed, 16)
	require.True(t, ValidateGameSeed(seed), "generated seed %q must validate", seed)
	require.Equal(t, seed, string([]byte(seed)), "seed must be plain ASCII hex")
}

func TestGenerateGameSeed_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		seed := GenerateGameSeed()
		require.False(t, seen[seed], "duplicate seed %q after %d generations", seed, i)
		seen[seed] = true
	}
}

func TestValidateGameSeed(t *testing.T) {
	tests := []struct {
		name string
		seed string
		want bool
	}{
		{"valid lowercase", "a1b2c3d4e5f67890", true},
		{"valid uppercase", "A1B2C3D4E5F67890", true},
		{"valid mixed case", "a1B2c3D4e5F67890", true},
		{"too short", "short", false},
		{"too long", "a1b2c3d4e5f678901", false},
		{"empty", "", false},
		{"non-hex character", "a1b2c3d4e5f6789g", false},
		{"whitespace", "a1b2c3d4e5f6789 ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ValidateGameSeed(tt.seed))
		})
	}
}

func TestNewGameSeed_Expiry(t *testing.T) {
	before := time.Now().UnixMilli()
	seed := NewGameSeed(5 * time.Minute)
	after := time.Now().UnixMilli()

	require.True(t, ValidateGameSeed(seed.Seed))
	require.GreaterOrEqual(t, seed.Timestamp, before)
	require.LessOrEqual(t, seed.Timestamp, after)
	require.Equal(t, seed.Timestamp+(5*time.Minute).Milliseconds(), seed.ExpiresAt)
	require.Greater(t, seed.ExpiresAt, seed.Timestamp)
}
