// Package model defines the core data structures for the gaschecker oracle.
package model

import (
	"fmt"
	"math/big"
	"time"

	"github.com/yourorg/gaschecker/internal/types"
)

// Level is the severity classification of a gas price reading.
type Level int

// Severity levels, ordered from cheapest to most expensive.
const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
	LevelExtreme
)

// String returns the canonical upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelLow:
		return "LOW"
	case LevelMedium:
		return "MEDIUM"
	case LevelHigh:
		return "HIGH"
	case LevelExtreme:
		return "EXTREME"
	default:
		return "UNKNOWN"
	}
}

// Emoji returns the traffic-light indicator for the level.
func (l Level) Emoji() string {
	switch l {
	case LevelLow:
		return "🟢"
	case LevelMedium:
		return "🟡"
	case LevelHigh:
		return "🟠"
	case LevelExtreme:
		return "🔴"
	default:
		return "⚪"
	}
}

// MarshalJSON encodes the level as its name.
func (l Level) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

// Reading is a single gas price observation for one chain. Readings are
// created fresh per request and are never cached.
type Reading struct {
	// Machine name of the chain
	Chain types.SupportedChain `json:"chain"`

	// Human-readable network name
	Name string `json:"name"`

	// Numeric chain identifier
	ChainID int64 `json:"chainId"`

	// Native token symbol
	Symbol string `json:"symbol"`

	// Raw gas price in wei as returned by the endpoint
	Wei *big.Int `json:"wei"`

	// Gas price converted to gwei
	Gwei float64 `json:"gwei"`

	// Severity classification against the chain's thresholds
	Level Level `json:"level"`

	// The endpoint that answered, for observability into flaky endpoints
	SourceEndpoint string `json:"sourceEndpoint"`

	// When the reading was collected, UTC
	CollectedAt time.Time `json:"timestamp"`
}

// Display renders the reading in the human-facing form used by both
// front ends, e.g. "🟢 Gas: 12.50 gwei (LOW)".
func (r Reading) Display() string {
	return fmt.Sprintf("%s Gas: %.2f gwei (%s)", r.Level.Emoji(), r.Gwei, r.Level)
}
