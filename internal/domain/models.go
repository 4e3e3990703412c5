package domain

import (
	"time"
)

// Disclaimer is attached to every report returned to callers.
const Disclaimer = "Research-grade only; not a diagnostic tool. " +
	"Consult a licensed genetic counselor before acting."

// AnalysisKind distinguishes single-disease reports from multi-disease rankings
type AnalysisKind string

const (
	AnalysisSingle AnalysisKind = "single"
	AnalysisRanked AnalysisKind = "ranked"
)

// VariantImpact is the snpEff putative impact of a variant
type VariantImpact string

const (
	ImpactHigh     VariantImpact = "HIGH"
	ImpactModerate VariantImpact = "MODERATE"
	ImpactLow      VariantImpact = "LOW"
	ImpactModifier VariantImpact = "MODIFIER"
	ImpactUnknown  VariantImpact = ""
)

// VariantAnnotation is the gene mapping of a single rsID
type VariantAnnotation struct {
	RSID   string        `json:"rsid"`
	Gene   string        `json:"gene"`
	Impact VariantImpact `json:"impact,omitempty"`
}

// Analysis is a stored analysis record
type Analysis struct {
	ID         string         `json:"id"`
	Kind       AnalysisKind   `json:"kind"`
	Disease    Disease        `json:"disease,omitempty"`
	Filename   string         `json:"filename"`
	GeneCount  int            `json:"gene_count"`
	Genes      []string       `json:"genes"`
	Risks      []RiskRow      `json:"risks,omitempty"`
	Candidates []DiseaseScore `json:"candidates,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ReportRows returns the risk rows exported for the analysis.
// Ranked analyses flatten their candidates in ranking order.
func (a *Analysis) ReportRows() []RiskRow {
	if a.Kind != AnalysisRanked {
		return a.Risks
	}
	var rows []RiskRow
	for _, c := range a.Candidates {
		rows = append(rows, c.Risks...)
	}
	return rows
}
