package service

import (
	"fmt"
	"math"
	"sort"

	"github.com/geneguard-server/internal/domain"
)

// Rank cut points for risk levels. These are policy, not score quantiles.
const (
	DefaultHighMaxRank   = 100
	DefaultMediumMaxRank = 300
)

// LevelPolicy maps a 1-based rank onto a risk level:
// ranks 1..HighMaxRank are High, up to MediumMaxRank Medium, the rest Low.
type LevelPolicy struct {
	HighMaxRank   int `json:"high_max_rank"`
	MediumMaxRank int `json:"medium_max_rank"`
}

// DefaultLevelPolicy returns the 100/300 policy
func DefaultLevelPolicy() LevelPolicy {
	return LevelPolicy{
		HighMaxRank:   DefaultHighMaxRank,
		MediumMaxRank: DefaultMediumMaxRank,
	}
}

// Validate checks that the boundaries are positive and ordered
func (p LevelPolicy) Validate() error {
	if p.HighMaxRank <= 0 {
		return fmt.Errorf("high max rank must be positive, got %d", p.HighMaxRank)
	}
	if p.MediumMaxRank < p.HighMaxRank {
		return fmt.Errorf("medium max rank %d must not be below high max rank %d", p.MediumMaxRank, p.HighMaxRank)
	}
	return nil
}

// LevelFor returns the level for a 1-based rank
func (p LevelPolicy) LevelFor(rank int) domain.RiskLevel {
	switch {
	case rank <= p.HighMaxRank:
		return domain.LevelHigh
	case rank <= p.MediumMaxRank:
		return domain.LevelMedium
	default:
		return domain.LevelLow
	}
}

// rankRows sorts hits by risk descending, keeping table order for ties,
// and returns rows carrying rank and level. Tips are left empty.
func rankRows(hits []domain.RiskTableEntry, policy LevelPolicy) []domain.RiskRow {
	sorted := make([]domain.RiskTableEntry, len(hits))
	copy(sorted, hits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Risk > sorted[j].Risk
	})

	rows := make([]domain.RiskRow, len(sorted))
	for i, h := range sorted {
		rank := i + 1
		rows[i] = domain.RiskRow{
			Gene:  h.Gene,
			Risk:  h.Risk,
			Rank:  rank,
			Level: policy.LevelFor(rank),
			Tips:  []string{},
		}
	}
	return rows
}

func sumScores(hits []domain.RiskTableEntry) float64 {
	var total float64
	for _, h := range hits {
		total += h.Risk
	}
	return total
}

// roundScore rounds to six decimals for reporting
func roundScore(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// sortDiseaseScores orders by score descending; ties fall back to the
// canonical disease order so output is deterministic.
func sortDiseaseScores(scores []domain.DiseaseScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return domain.DiseaseLess(scores[i].Disease, scores[j].Disease)
	})
}
