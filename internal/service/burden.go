package service

import (
	"github.com/geneguard-server/internal/domain"
)

// impactWeights maps snpEff impact onto burden severity
var impactWeights = map[domain.VariantImpact]int{
	domain.ImpactHigh:     3,
	domain.ImpactModerate: 2,
	domain.ImpactLow:      1,
}

// ImpactWeight returns the severity weight of an impact. MODIFIER and
// unknown impacts weigh zero.
func ImpactWeight(impact domain.VariantImpact) int {
	return impactWeights[impact]
}

// BurdenScores sums impact weights per gene. With severeOnly, only HIGH and
// MODERATE variants contribute and other genes are left out entirely.
func BurdenScores(annotations map[string]domain.VariantAnnotation, severeOnly bool) domain.GeneBurden {
	burden := make(domain.GeneBurden)
	for _, ann := range annotations {
		gene := domain.NormalizeGeneSymbol(ann.Gene)
		if gene == "" {
			continue
		}
		if severeOnly && ann.Impact != domain.ImpactHigh && ann.Impact != domain.ImpactModerate {
			continue
		}
		burden[gene] += ImpactWeight(ann.Impact)
	}
	return burden
}
