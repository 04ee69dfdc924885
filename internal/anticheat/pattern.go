package anticheat

import (
	"fmt"
	"sort"
	"time"

	"github.com/tetris-scores/internal/domain"
)

const (
	// maxScoreJump is the largest point increase between consecutive
	// submissions before a jump is flagged.
	maxScoreJump = 50000

	// maxDailySubmissions bounds submission velocity inside dailyWindow.
	maxDailySubmissions = 10
	dailyWindow         = 24 * time.Hour
)

// ScoreSample is the slice of a score record the pattern analyzer looks at.
type ScoreSample struct {
	Points    float64
	CreatedAt time.Time
}

// AnalyzeScorePattern inspects a player's submission history for anomalous
// magnitude jumps and submission velocity. It is a pure function over the
// snapshot: now is injected, the input order does not matter, and the two
// checks are independent and additive.
func AnalyzeScorePattern(samples []ScoreSample, now time.Time) domain.PatternAnalysis {
	analysis := domain.PatternAnalysis{Reasons: []string{}}

	// No signal possible from fewer than two submissions.
	if len(samples) < 2 {
		return analysis
	}

	sorted := make([]ScoreSample, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	for i := 1; i < len(sorted); i++ {
		jump := sorted[i].Points - sorted[i-1].Points
		if jump > maxScoreJump {
			analysis.Suspicious = true
			analysis.Reasons = append(analysis.Reasons,
				fmt.Sprintf("Large score jump: %s points", formatNum(jump)))
		}
	}

	cutoff := now.Add(-dailyWindow)
	recent := 0
	for _, s := range sorted {
		if s.CreatedAt.After(cutoff) {
			recent++
		}
	}
	if recent > maxDailySubmissions {
		analysis.Suspicious = true
		analysis.Reasons = append(analysis.Reasons, "Too many scores in 24 hours")
	}

	return analysis
}
