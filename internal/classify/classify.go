// Package classify maps gas prices onto severity levels using per-chain
// threshold tables.
package classify

import (
	"github.com/yourorg/gaschecker/internal/model"
	"github.com/yourorg/gaschecker/internal/types"
)

// Classify maps a gas price in gwei onto a severity level. The bands are
// half-open with the boundary belonging to the lower band:
//
//	[0, low]        -> LOW
//	(low, medium]   -> MEDIUM
//	(medium, high]  -> HIGH
//	(high, inf)     -> EXTREME
//
// Classify is pure and total: every non-negative price maps to exactly one
// level, and both query paths use it so labeling is consistent.
func Classify(gwei float64, t types.Thresholds) model.Level {
	switch {
	case gwei <= t.Low:
		return model.LevelLow
	case gwei <= t.Medium:
		return model.LevelMedium
	case gwei <= t.High:
		return model.LevelHigh
	default:
		return model.LevelExtreme
	}
}
