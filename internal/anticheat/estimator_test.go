package anticheat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestCalculateExpectedScore_LineThresholds(t *testing.T) {
	tests := []struct {
		name  string
		level float64
		lines float64
		want  float64
	}{
		{"no lines", 1, 0, 100},
		{"below first threshold", 1, 9, 100},
		{"single threshold", 1, 10, 200},
		{"double threshold", 1, 20, 700},
		{"triple threshold", 1, 30, 1600},
		{"tetris threshold", 1, 40, 3300},
		{"tetris threshold does not stack", 1, 100, 3300},
		{"level bonus", 10, 0, 1000},
		{"level and lines combine", 5, 25, 600 + 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, CalculateExpectedScore(tt.level, tt.lines, nil))
		})
	}
}

func TestCalculateExpectedScore_SpeedBonus(t *testing.T) {
	base := CalculateExpectedScore(1, 0, nil)

	// Instant game earns the full 300 bonus.
	require.Equal(t, base+300, CalculateExpectedScore(1, 0, ptr(0)))

	// Bonus shrinks linearly and floors fractional seconds.
	require.Equal(t, base+240, CalculateExpectedScore(1, 0, ptr(60000)))
	require.Equal(t, base+239, CalculateExpectedScore(1, 0, ptr(60001)))

	// At and beyond five minutes there is no bonus and no penalty.
	require.Equal(t, base, CalculateExpectedScore(1, 0, ptr(300000)))
	require.Equal(t, base, CalculateExpectedScore(1, 0, ptr(900000)))
}

func TestCalculateExpectedScore_Monotonic(t *testing.T) {
	// Non-decreasing in lines with level and duration fixed.
	prev := -1.0
	for lines := 0.0; lines <= 60; lines++ {
		got := CalculateExpectedScore(3, lines, nil)
		require.GreaterOrEqual(t, got, prev, "lines=%v", lines)
		prev = got
	}

	// Non-decreasing in level with lines and duration fixed.
	prev = -1.0
	for level := 1.0; level <= 30; level++ {
		got := CalculateExpectedScore(level, 12, nil)
		require.GreaterOrEqual(t, got, prev, "level=%v", level)
		prev = got
	}

	// Non-increasing in duration up to the five-minute cap, constant beyond.
	prevBonus := CalculateExpectedScore(1, 0, ptr(0))
	for d := 10000.0; d <= 360000; d += 10000 {
		got := CalculateExpectedScore(1, 0, ptr(d))
		require.LessOrEqual(t, got, prevBonus, "duration=%v", d)
		prevBonus = got
	}
	require.Equal(t,
		CalculateExpectedScore(1, 0, ptr(300000)),
		CalculateExpectedScore(1, 0, ptr(600000)))
}

func TestCalculateExpectedScore_Deterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		require.Equal(t, CalculateExpectedScore(7, 33, ptr(123456)), CalculateExpectedScore(7, 33, ptr(123456)))
	}
}
