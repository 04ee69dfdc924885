// Package anticheat implements the score plausibility engine: session seed
// generation, expected-score estimation, submission validation, historical
// pattern analysis and record fingerprinting. Everything here is a pure,
// synchronous computation over in-memory values and is safe to call
// concurrently without coordination.
package anticheat

import (
	"math"
	"strconv"
)

// formatNum renders a float the way JSON does: integral values without a
// decimal point. Reason strings embed numbers through this so "59000"
// never shows up as "59000.000000".
func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// isFinite reports whether f is a usable number (not NaN, not ±Inf).
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
