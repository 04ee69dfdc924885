package anticheat

import "math"

// Scoring units for clearing 1–4 lines at once.
const (
	singleUnit = 100
	doubleUnit = 300
	tripleUnit = 500
	tetrisUnit = 800
)

// speedBonusWindow is the game duration (ms) under which a speed bonus is
// granted. Shorter games earn up to speedBonusWindow/1000 extra points.
const speedBonusWindow = 300000

// CalculateExpectedScore maps (level, total lines cleared, optional game
// duration in ms) to a plausible score. Deterministic and pure.
//
// This is intentionally a coarse model: it does not replay the game, it only
// bounds plausible scores. The line reward uses non-overlapping thresholds on
// total lines, highest threshold wins, no stacking.
func CalculateExpectedScore(level, lines float64, gameDuration *float64) float64 {
	var lineReward float64
	switch {
	case lines >= 40:
		lineReward = 4 * tetrisUnit
	case lines >= 30:
		lineReward = 3 * tripleUnit
	case lines >= 20:
		lineReward = 2 * doubleUnit
	case lines >= 10:
		lineReward = 1 * singleUnit
	}

	expected := lineReward + level*100

	if gameDuration != nil && *gameDuration < speedBonusWindow {
		expected += math.Floor((speedBonusWindow - *gameDuration) / 1000)
	}

	return expected
}
