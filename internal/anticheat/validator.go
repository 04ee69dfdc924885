package anticheat

import (
	"fmt"
	"strings"

	"github.com/tetris-scores/internal/config"
	"github.com/tetris-scores/internal/domain"
)

// maxTestLevel caps the level accepted in test mode, where games are short
// by construction.
const maxTestLevel = 20

// suspiciousPoints / suspiciousLevelCeiling flag very high scores reported at
// low levels, independent of the tolerance check.
const (
	suspiciousPoints        = 100000
	suspiciousLevelCeiling  = 10
	linesPerLevel           = 10
	minSeedlessHeuristicLvl = 10
)

// Validator applies structural and plausibility checks to score submissions.
// Strictness is explicit configuration handed in at construction time, never
// ambient process state, so Validate stays a pure function of its inputs.
type Validator struct {
	cfg *config.AnticheatConfig
}

// NewValidator creates a validator with the given anticheat configuration.
func NewValidator(cfg *config.AnticheatConfig) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateStructure applies the structural checks (name, points, seed format,
// level, lines) without the plausibility heuristics. The orchestrator uses it
// to fail fast before touching storage.
func (v *Validator) ValidateStructure(sub domain.ScoreSubmission) domain.ValidationResult {
	if strings.TrimSpace(sub.Name) == "" {
		return invalid("Invalid name")
	}
	if !isFinite(sub.Points) || sub.Points < 0 {
		return invalid("Invalid points")
	}
	if sub.GameSeed != nil && !ValidateGameSeed(*sub.GameSeed) {
		return invalid("Invalid game seed")
	}
	if !isFinite(sub.Level) || sub.Level < 1 || (v.cfg.Mode.IsTest() && sub.Level > maxTestLevel) {
		return invalid("Invalid level")
	}
	if !isFinite(sub.Lines) || sub.Lines < 0 {
		return invalid("Invalid lines")
	}
	return domain.ValidationResult{IsValid: true}
}

// Validate applies the full battery of checks in order, short-circuiting on
// the first failure. The order determines which reason is reported.
func (v *Validator) Validate(sub domain.ScoreSubmission) domain.ValidationResult {
	if res := v.ValidateStructure(sub); !res.IsValid {
		return res
	}

	expected := CalculateExpectedScore(sub.Level, sub.Lines, sub.GameDuration)

	// Tolerance-based plausibility. Enforced in test and production;
	// development accepts anything structurally sound here.
	if !v.cfg.Mode.IsDevelopment() {
		tolerance := expected * (v.cfg.TolerancePercent / 100)
		if sub.Points > expected+tolerance {
			return invalidExpected(fmt.Sprintf(
				"Score too high. Expected: ~%s, Got: %s",
				formatNum(expected), formatNum(sub.Points),
			), expected)
		}
	}

	// Without a seed to loosely bind the session, reaching level N takes at
	// least (N-1)*10 cleared lines.
	if sub.GameSeed == nil && sub.Level >= minSeedlessHeuristicLvl {
		minLines := (sub.Level - 1) * linesPerLevel
		if sub.Lines < minLines {
			return invalidExpected(fmt.Sprintf(
				"Impossible level/line combination. Level %s requires at least %s lines",
				formatNum(sub.Level), formatNum(minLines),
			), expected)
		}
	}

	// Outlier guard the tolerance math alone would not catch at low levels.
	if sub.Points > suspiciousPoints && sub.Level < suspiciousLevelCeiling {
		return invalidExpected("Suspicious: Very high score with low level", expected)
	}

	return domain.ValidationResult{IsValid: true, ExpectedScore: &expected}
}

func invalid(reason string) domain.ValidationResult {
	return domain.ValidationResult{IsValid: false, Reason: reason}
}

func invalidExpected(reason string, expected float64) domain.ValidationResult {
	return domain.ValidationResult{IsValid: false, Reason: reason, ExpectedScore: &expected}
}
