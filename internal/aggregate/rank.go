// Package aggregate derives cross-chain results from individual readings,
// currently a cheapest-first ranking used by the recommendation operation.
package aggregate

import (
	"sort"

	"github.com/yourorg/gaschecker/internal/model"
	"github.com/yourorg/gaschecker/internal/types"
)

// Ranked is one entry in a cheapest-first ranking of chains.
type Ranked struct {
	Chain types.SupportedChain `json:"chain"`
	Name  string               `json:"name"`
	Gwei  float64              `json:"gwei"`
	Level model.Level          `json:"level"`
}

// Rank orders successful readings by ascending gwei price. Ties are broken
// by chain name so the ranking is deterministic. Prices are compared as raw
// gwei values without normalizing across native tokens; the ranking is only
// meaningful between chains priced in the same unit.
func Rank(readings []*model.Reading) []Ranked {
	ranked := make([]Ranked, 0, len(readings))
	for _, r := range readings {
		if r == nil {
			continue
		}
		ranked = append(ranked, Ranked{
			Chain: r.Chain,
			Name:  r.Name,
			Gwei:  r.Gwei,
			Level: r.Level,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Gwei != ranked[j].Gwei {
			return ranked[i].Gwei < ranked[j].Gwei
		}
		return ranked[i].Chain < ranked[j].Chain
	})

	return ranked
}

// Cheapest returns the top-ranked entry, or false when the ranking is empty.
func Cheapest(ranked []Ranked) (Ranked, bool) {
	if len(ranked) == 0 {
		return Ranked{}, false
	}
	return ranked[0], true
}
