// Package domain contains the core entities for genotype-based disease risk reporting:
// supported diseases, per-disease risk tables, user gene inputs and the ranked risk
// rows produced for each analysis.
//
// Risk scores come from precomputed ADAGIO disease-gene prioritisation tables and are
// treated as opaque numbers where higher means riskier. Reports are research-grade only.
package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Disease identifies one of the diseases with a precomputed risk table.
type Disease string

const (
	Alzheimers          Disease = "alzheimers"
	CHD                 Disease = "CHD"
	Hypertension        Disease = "hypertension"
	MultipleSclerosis   Disease = "multiple_sclerosis"
	Obesity             Disease = "obesity"
	Parkinsons          Disease = "parkinsons"
	Stroke              Disease = "stroke"
	T1D                 Disease = "T1D"
	T2D                 Disease = "T2D"
	RheumatoidArthritis Disease = "rheumatoid_arthritis"
)

var supportedDiseases = []Disease{
	Alzheimers, CHD, Hypertension, MultipleSclerosis, Obesity,
	Parkinsons, Stroke, T1D, T2D, RheumatoidArthritis,
}

// RiskLevel is the discrete risk category assigned from a row's rank.
type RiskLevel string

const (
	LevelHigh   RiskLevel = "High"
	LevelMedium RiskLevel = "Medium"
	LevelLow    RiskLevel = "Low"
)

// InputKind tags which shape a UserGeneInput carries.
type InputKind string

const (
	InputKindSet    InputKind = "set"
	InputKindBurden InputKind = "burden"
)

// Sentinel errors shared across the pipeline
var (
	ErrNotFound           = errors.New("not found")
	ErrMalformedRiskTable = errors.New("malformed risk table")
	ErrUnsupportedDisease = errors.New("unsupported disease")
	ErrUnsupportedFormat  = errors.New("unsupported file type")
	ErrNoGenes            = errors.New("no gene symbols extracted from file")
)

// SupportedDiseases returns the fixed disease enumeration in its canonical order.
func SupportedDiseases() []Disease {
	out := make([]Disease, len(supportedDiseases))
	copy(out, supportedDiseases)
	return out
}

// ParseDisease validates that s names a supported disease. Matching is exact.
func ParseDisease(s string) (Disease, error) {
	for _, d := range supportedDiseases {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedDisease, s)
}

// IsValid reports whether d belongs to the supported enumeration.
func (d Disease) IsValid() bool {
	_, err := ParseDisease(string(d))
	return err == nil
}

// String returns the string representation of the disease.
func (d Disease) String() string {
	return string(d)
}

// diseaseOrder returns the position of d in the canonical enumeration, or -1.
func diseaseOrder(d Disease) int {
	for i, s := range supportedDiseases {
		if s == d {
			return i
		}
	}
	return -1
}

// DiseaseLess orders diseases by their position in the canonical enumeration.
func DiseaseLess(a, b Disease) bool {
	return diseaseOrder(a) < diseaseOrder(b)
}

// IsValid reports whether l is one of the three risk levels.
func (l RiskLevel) IsValid() bool {
	switch l {
	case LevelHigh, LevelMedium, LevelLow:
		return true
	default:
		return false
	}
}

// NormalizeGeneSymbol upper-cases and trims a gene symbol.
func NormalizeGeneSymbol(symbol string) string {
	return strings.TrimSpace(strings.ToUpper(symbol))
}

// GeneSet is a deduplicated set of normalized gene symbols.
type GeneSet map[string]struct{}

// NewGeneSet builds a set from symbols, normalizing case and dropping blanks.
func NewGeneSet(symbols ...string) GeneSet {
	s := make(GeneSet, len(symbols))
	for _, sym := range symbols {
		s.Add(sym)
	}
	return s
}

// Add inserts a symbol after normalization. Blank symbols are ignored.
func (s GeneSet) Add(symbol string) {
	symbol = NormalizeGeneSymbol(symbol)
	if symbol == "" {
		return
	}
	s[symbol] = struct{}{}
}

// Contains reports whether the normalized symbol is in the set.
func (s GeneSet) Contains(symbol string) bool {
	_, ok := s[NormalizeGeneSymbol(symbol)]
	return ok
}

// Len returns the number of genes.
func (s GeneSet) Len() int {
	return len(s)
}

// Sorted returns the symbols in lexical order.
func (s GeneSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for g := range s {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// GeneBurden maps a gene symbol to its weighted variant-impact severity.
type GeneBurden map[string]int

// Genes returns the burden keys as a GeneSet.
func (b GeneBurden) Genes() GeneSet {
	s := make(GeneSet, len(b))
	for g := range b {
		s.Add(g)
	}
	return s
}

// UserGeneInput is either a plain gene set or a weighted gene burden.
// Burden weights only decide inclusion; ranking always uses table risk scores.
type UserGeneInput struct {
	kind   InputKind
	genes  GeneSet
	burden GeneBurden
}

// SetInput wraps a plain gene set.
func SetInput(genes GeneSet) UserGeneInput {
	if genes == nil {
		genes = GeneSet{}
	}
	return UserGeneInput{kind: InputKindSet, genes: genes}
}

// BurdenInput wraps a gene burden mapping. Keys are normalized.
func BurdenInput(burden GeneBurden) UserGeneInput {
	normalized := make(GeneBurden, len(burden))
	for g, w := range burden {
		g = NormalizeGeneSymbol(g)
		if g == "" {
			continue
		}
		normalized[g] += w
	}
	return UserGeneInput{kind: InputKindBurden, burden: normalized}
}

// Kind reports which variant the input carries.
func (in UserGeneInput) Kind() InputKind {
	if in.kind == "" {
		return InputKindSet
	}
	return in.kind
}

// IncludedGenes returns the genes that take part in intersection.
// For burden input every key with a non-negative weight is included.
func (in UserGeneInput) IncludedGenes() GeneSet {
	if in.Kind() == InputKindBurden {
		out := make(GeneSet, len(in.burden))
		for g, w := range in.burden {
			if w >= 0 {
				out[g] = struct{}{}
			}
		}
		return out
	}
	if in.genes == nil {
		return GeneSet{}
	}
	return in.genes
}

// Weight returns the burden weight for gene, if the input is a burden mapping.
func (in UserGeneInput) Weight(gene string) (int, bool) {
	if in.Kind() != InputKindBurden {
		return 0, false
	}
	w, ok := in.burden[NormalizeGeneSymbol(gene)]
	return w, ok
}

// Len returns the number of included genes.
func (in UserGeneInput) Len() int {
	return in.IncludedGenes().Len()
}

// RiskTableEntry is one gene row of a disease risk table.
type RiskTableEntry struct {
	Gene string  `json:"gene"`
	Risk float64 `json:"risk"`
}

// RiskTable is an immutable, ordered gene -> risk mapping for one disease.
// Order is the backing data order and serves as the stable tie-breaker.
type RiskTable struct {
	disease Disease
	entries []RiskTableEntry
	index   map[string]int
}

// NewRiskTable builds a table from entries in source order.
// Duplicate gene symbols are a data-integrity error.
func NewRiskTable(disease Disease, entries []RiskTableEntry) (*RiskTable, error) {
	t := &RiskTable{
		disease: disease,
		entries: make([]RiskTableEntry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		gene := NormalizeGeneSymbol(e.Gene)
		if gene == "" {
			return nil, fmt.Errorf("%w: %s: empty gene symbol", ErrMalformedRiskTable, disease)
		}
		if _, dup := t.index[gene]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate gene %s", ErrMalformedRiskTable, disease, gene)
		}
		t.index[gene] = len(t.entries)
		t.entries = append(t.entries, RiskTableEntry{Gene: gene, Risk: e.Risk})
	}
	return t, nil
}

// EmptyRiskTable returns the "no risk data" table for a disease.
func EmptyRiskTable(disease Disease) *RiskTable {
	return &RiskTable{disease: disease, index: map[string]int{}}
}

// Disease returns the disease the table belongs to.
func (t *RiskTable) Disease() Disease {
	return t.disease
}

// Len returns the number of genes in the table.
func (t *RiskTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// IsEmpty reports whether the table carries no risk data.
func (t *RiskTable) IsEmpty() bool {
	return t.Len() == 0
}

// Score returns the risk score for gene.
func (t *RiskTable) Score(gene string) (float64, bool) {
	if t == nil {
		return 0, false
	}
	i, ok := t.index[NormalizeGeneSymbol(gene)]
	if !ok {
		return 0, false
	}
	return t.entries[i].Risk, true
}

// Position returns the source-order index of gene.
func (t *RiskTable) Position(gene string) (int, bool) {
	if t == nil {
		return 0, false
	}
	i, ok := t.index[NormalizeGeneSymbol(gene)]
	return i, ok
}

// Entries returns a copy of the table rows in source order.
func (t *RiskTable) Entries() []RiskTableEntry {
	if t == nil {
		return nil
	}
	out := make([]RiskTableEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Intersect returns the table rows whose genes are in genes, in table order.
func (t *RiskTable) Intersect(genes GeneSet) []RiskTableEntry {
	if t.IsEmpty() || len(genes) == 0 {
		return nil
	}
	var hits []RiskTableEntry
	for _, e := range t.entries {
		if _, ok := genes[e.Gene]; ok {
			hits = append(hits, e)
		}
	}
	return hits
}

// RiskRow is one ranked gene of a disease risk report.
type RiskRow struct {
	Gene   string    `json:"gene"`
	Risk   float64   `json:"risk"`
	Rank   int       `json:"rank"`
	Level  RiskLevel `json:"level"`
	Tips   []string  `json:"tips"`
	Burden *int      `json:"burden,omitempty"`
}

// DiseaseScore is one disease's aggregate score in a multi-disease ranking.
type DiseaseScore struct {
	Disease Disease   `json:"disease"`
	Score   float64   `json:"score"`
	Risks   []RiskRow `json:"risks"`
}
