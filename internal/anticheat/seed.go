package anticheat

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"time"

	"github.com/tetris-scores/internal/domain"
)

// seedLength is the number of hex characters in a game seed token.
const seedLength = 16

var seedPattern = regexp.MustCompile(`^[a-fA-F0-9]{16}$`)

// GenerateGameSeed produces an opaque 16-character lowercase hex token,
// derived from a SHA-256 hash of the current time plus randomness. Seeds are
// never stored server-side; uniqueness holds at normal operating rates.
func GenerateGameSeed() string {
	entropy := make([]byte, 16)
	_, _ = rand.Read(entropy)

	h := sha256.New()
	h.Write([]byte(strconv.FormatInt(time.Now().UnixNano(), 10)))
	h.Write(entropy)
	return hex.EncodeToString(h.Sum(nil))[:seedLength]
}

// ValidateGameSeed reports whether seed is structurally a game seed: exactly
// 16 hex characters, case-insensitive. It never panics on odd input.
func ValidateGameSeed(seed string) bool {
	return seedPattern.MatchString(seed)
}

// NewGameSeed issues a fresh seed with the given advisory TTL. The expiry is
// a client-side hint; the validator checks seed format only, never expiry.
func NewGameSeed(ttl time.Duration) domain.GameSeed {
	now := time.Now().UnixMilli()
	return domain.GameSeed{
		Seed:      GenerateGameSeed(),
		Timestamp: now,
		ExpiresAt: now + ttl.Milliseconds(),
	}
}
