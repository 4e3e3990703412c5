package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/geneguard-server/internal/audit"
	"github.com/geneguard-server/internal/domain"
	"github.com/geneguard-server/internal/repository"
)

// recordingAuditor keeps audit entries in memory
type recordingAuditor struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *recordingAuditor) Record(ctx context.Context, entry *audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *entry)
	return nil
}

func (a *recordingAuditor) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Action
	}
	return out
}

type analysisFixture struct {
	service   *AnalysisService
	annotator *MockVariantAnnotator
	tips      *MockTipProvider
	auditor   *recordingAuditor
	repo      *repository.MemoryAnalysisRepository
}

func newAnalysisFixture() *analysisFixture {
	source := newStubSource().
		with(domain.CHD, entry("BRCA1", 0.95), entry("TP53", 0.80), entry("MTHFR", 0.10)).
		with(domain.Alzheimers, entry("APOE", 0.99)).
		with(domain.T2D, entry("MTHFR", 0.3))

	variants := new(MockVariantAnnotator)
	tips := new(MockTipProvider)
	tips.On("GetTips", mock.Anything, mock.Anything, mock.Anything).Return([]string{"Stay active", "Eat well"}, nil)

	tables := NewRiskTableProvider(source, testLogger())
	riskAnnotator := NewRiskAnnotator(tables, tips, RiskAnnotatorConfig{}, testLogger())
	ranker := NewDiseaseRanker(tables, riskAnnotator, DiseaseRankerConfig{}, testLogger())
	repo := repository.NewMemoryAnalysisRepository()
	auditor := &recordingAuditor{}

	svc := NewAnalysisService(
		NewGeneExtractor(variants, testLogger()),
		riskAnnotator,
		ranker,
		repo,
		auditor,
		AnalysisServiceConfig{},
		testLogger(),
	)
	return &analysisFixture{service: svc, annotator: variants, tips: tips, auditor: auditor, repo: repo}
}

func (f *analysisFixture) expectGenes(annotations map[string]domain.VariantAnnotation) {
	f.annotator.On("AnnotateRSIDs", mock.Anything, mock.Anything).Return(annotations, nil)
}

const uploadTXT = "rs1\t1\t100\tAA\nrs2\t1\t200\tAG\nrs3\t19\t300\tCC\n"

func TestAnalysisService_AnalyzeUpload(t *testing.T) {
	f := newAnalysisFixture()
	f.expectGenes(map[string]domain.VariantAnnotation{
		"rs1": {RSID: "rs1", Gene: "BRCA1"},
		"rs2": {RSID: "rs2", Gene: "MTHFR"},
		"rs3": {RSID: "rs3", Gene: "APOE"},
	})

	result, err := f.service.AnalyzeUpload(context.Background(), UploadRequest{
		Filename: "genome.txt",
		Body:     strings.NewReader(uploadTXT),
		Disease:  "CHD",
		Actor:    "10.0.0.1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, 3, result.GeneCount)
	assert.Equal(t, domain.CHD, result.Disease)
	assert.Equal(t, domain.Disclaimer, result.Disclaimer)
	require.Len(t, result.Risks, 2)
	assert.Equal(t, "BRCA1", result.Risks[0].Gene)
	assert.Equal(t, "MTHFR", result.Risks[1].Gene)
	assert.Equal(t, []string{"Stay active", "Eat well"}, result.Risks[0].Tips)

	stored, err := f.repo.GetByID(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisSingle, stored.Kind)
	assert.Equal(t, []string{"APOE", "BRCA1", "MTHFR"}, stored.Genes)

	require.Len(t, f.auditor.entries, 1)
	assert.Equal(t, audit.ActionAnalysisCreate, f.auditor.entries[0].Action)
	assert.Equal(t, result.ID, f.auditor.entries[0].ResourceID)
	assert.Equal(t, "10.0.0.1", f.auditor.entries[0].Actor)
}

func TestAnalysisService_AnalyzeUpload_VCF(t *testing.T) {
	f := newAnalysisFixture()
	f.expectGenes(map[string]domain.VariantAnnotation{
		"rs80357906": {RSID: "rs80357906", Gene: "BRCA1", Impact: domain.ImpactHigh},
		"rs1801133":  {RSID: "rs1801133", Gene: "MTHFR", Impact: domain.ImpactModifier},
	})

	result, err := f.service.AnalyzeUpload(context.Background(), UploadRequest{
		Filename: "sample.vcf",
		Body:     strings.NewReader(smallVCF),
		Disease:  "CHD",
	})
	require.NoError(t, err)
	require.Len(t, result.Risks, 2)
	require.NotNil(t, result.Risks[0].Burden)
	assert.Equal(t, 3, *result.Risks[0].Burden)
	require.NotNil(t, result.Risks[1].Burden)
	assert.Equal(t, 0, *result.Risks[1].Burden)
}

func TestAnalysisService_AnalyzeUpload_Errors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		disease  string
		wantErr  error
	}{
		{"unsupported disease", "genome.txt", "flu", domain.ErrUnsupportedDisease},
		{"case sensitive disease", "genome.txt", "chd", domain.ErrUnsupportedDisease},
		{"unsupported format", "genome.pdf", "CHD", domain.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAnalysisFixture()
			_, err := f.service.AnalyzeUpload(context.Background(), UploadRequest{
				Filename: tt.filename,
				Body:     strings.NewReader(uploadTXT),
				Disease:  tt.disease,
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr))
			assert.Empty(t, f.auditor.entries)
		})
	}
}

func TestAnalysisService_AutoRank(t *testing.T) {
	f := newAnalysisFixture()
	f.expectGenes(map[string]domain.VariantAnnotation{
		"rs1": {RSID: "rs1", Gene: "BRCA1"},
		"rs2": {RSID: "rs2", Gene: "MTHFR"},
		"rs3": {RSID: "rs3", Gene: "APOE"},
	})

	result, err := f.service.AutoRank(context.Background(), AutoRankRequest{
		Filename:    "genome.txt",
		Body:        strings.NewReader(uploadTXT),
		TopN:        2,
		IncludeTips: true,
	})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, domain.CHD, result.Candidates[0].Disease)
	assert.InDelta(t, 1.05, result.Candidates[0].Score, 1e-9)
	assert.Equal(t, domain.Alzheimers, result.Candidates[1].Disease)
	assert.Len(t, result.Candidates[0].Risks, 2)

	stored, err := f.repo.GetByID(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisRanked, stored.Kind)
}

func TestAnalysisService_AutoRank_NoGenes(t *testing.T) {
	f := newAnalysisFixture()
	f.expectGenes(map[string]domain.VariantAnnotation{})

	_, err := f.service.AutoRank(context.Background(), AutoRankRequest{
		Filename: "genome.txt",
		Body:     strings.NewReader(uploadTXT),
	})
	assert.ErrorIs(t, err, domain.ErrNoGenes)
}

func TestAnalysisService_ExportCSV(t *testing.T) {
	f := newAnalysisFixture()
	f.expectGenes(map[string]domain.VariantAnnotation{
		"rs1": {RSID: "rs1", Gene: "BRCA1"},
		"rs2": {RSID: "rs2", Gene: "MTHFR"},
	})
	ctx := context.Background()

	result, err := f.service.AnalyzeUpload(ctx, UploadRequest{
		Filename: "genome.txt",
		Body:     strings.NewReader(uploadTXT),
		Disease:  "CHD",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.service.ExportCSV(ctx, result.ID, "tester", &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, CSVHeader, records[0])
	assert.Equal(t, []string{"BRCA1", "0.95", "1", "High", "Stay active | Eat well"}, records[1])
	assert.Equal(t, []string{"MTHFR", "0.1", "2", "High", "Stay active | Eat well"}, records[2])

	assert.Equal(t, []string{audit.ActionAnalysisCreate, audit.ActionAnalysisExport}, f.auditor.actions())
}

func TestAnalysisService_GetListDelete(t *testing.T) {
	f := newAnalysisFixture()
	f.expectGenes(map[string]domain.VariantAnnotation{"rs1": {RSID: "rs1", Gene: "BRCA1"}})
	ctx := context.Background()

	result, err := f.service.AnalyzeUpload(ctx, UploadRequest{
		Filename: "genome.txt",
		Body:     strings.NewReader(uploadTXT),
		Disease:  "CHD",
	})
	require.NoError(t, err)

	got, err := f.service.GetAnalysis(ctx, result.ID, "tester")
	require.NoError(t, err)
	assert.Equal(t, result.ID, got.ID)

	list, err := f.service.ListAnalyses(ctx, 0, -1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, f.service.DeleteAnalysis(ctx, result.ID, "tester"))
	_, err = f.service.GetAnalysis(ctx, result.ID, "tester")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.service.DeleteAnalysis(ctx, result.ID, "tester"), domain.ErrNotFound)
	assert.ErrorIs(t, f.service.ExportCSV(ctx, "missing", "tester", &bytes.Buffer{}), domain.ErrNotFound)

	assert.Equal(t, []string{
		audit.ActionAnalysisCreate,
		audit.ActionAnalysisRead,
		audit.ActionAnalysisDelete,
	}, f.auditor.actions())
}
