package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/geneguard-server/internal/audit"
	"github.com/geneguard-server/internal/domain"
	"github.com/geneguard-server/pkg/genome"
)

// DefaultMaxRecords caps the lines or VCF records read from one upload
const DefaultMaxRecords = 10000

// CSVHeader is the column layout of exported reports
var CSVHeader = []string{"gene", "risk", "rank", "level", "tips"}

// AuditRecorder appends audit log entries
type AuditRecorder interface {
	Record(ctx context.Context, entry *audit.Entry) error
}

// UploadRequest is a single-disease analysis of one genotype file
type UploadRequest struct {
	Filename   string
	Body       io.Reader
	Disease    string
	MaxRecords int
	Actor      string
}

// AutoRankRequest ranks every supported disease for one genotype file
type AutoRankRequest struct {
	Filename    string
	Body        io.Reader
	MaxRecords  int
	TopN        int
	IncludeTips bool
	Actor       string
}

// AnalysisResult is the response of a single-disease analysis
type AnalysisResult struct {
	ID         string           `json:"user_id"`
	GeneCount  int              `json:"gene_count"`
	Disease    domain.Disease   `json:"disease"`
	Risks      []domain.RiskRow `json:"risks"`
	Disclaimer string           `json:"disclaimer"`
}

// RankResult is the response of a multi-disease ranking
type RankResult struct {
	ID         string                `json:"user_id"`
	GeneCount  int                   `json:"gene_count"`
	Candidates []domain.DiseaseScore `json:"candidates"`
	Disclaimer string                `json:"disclaimer"`
}

// AnalysisServiceConfig configures the analysis service
type AnalysisServiceConfig struct {
	DefaultMaxRecords int
}

// AnalysisService runs uploads through extraction, annotation or ranking,
// and persistence.
type AnalysisService struct {
	extractor         *GeneExtractor
	annotator         *RiskAnnotator
	ranker            *DiseaseRanker
	repo              domain.AnalysisRepository
	audit             AuditRecorder
	defaultMaxRecords int
	logger            *logrus.Logger
}

// NewAnalysisService creates an analysis service. auditor may be nil.
func NewAnalysisService(
	extractor *GeneExtractor,
	annotator *RiskAnnotator,
	ranker *DiseaseRanker,
	repo domain.AnalysisRepository,
	auditor AuditRecorder,
	config AnalysisServiceConfig,
	logger *logrus.Logger,
) *AnalysisService {
	if config.DefaultMaxRecords <= 0 {
		config.DefaultMaxRecords = DefaultMaxRecords
	}
	return &AnalysisService{
		extractor:         extractor,
		annotator:         annotator,
		ranker:            ranker,
		repo:              repo,
		audit:             auditor,
		defaultMaxRecords: config.DefaultMaxRecords,
		logger:            logger,
	}
}

// AnalyzeUpload scores one genotype file against a single disease
func (s *AnalysisService) AnalyzeUpload(ctx context.Context, req UploadRequest) (*AnalysisResult, error) {
	disease, err := domain.ParseDisease(req.Disease)
	if err != nil {
		return nil, err
	}

	input, err := s.extractInput(ctx, req.Filename, req.Body, req.MaxRecords)
	if err != nil {
		return nil, err
	}

	risks, err := s.annotator.Annotate(ctx, disease, input)
	if err != nil {
		return nil, fmt.Errorf("analyzing upload: %w", err)
	}

	genes := input.IncludedGenes().Sorted()
	analysis := &domain.Analysis{
		ID:        uuid.New().String(),
		Kind:      domain.AnalysisSingle,
		Disease:   disease,
		Filename:  req.Filename,
		GeneCount: len(genes),
		Genes:     genes,
		Risks:     risks,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, analysis); err != nil {
		return nil, fmt.Errorf("storing analysis: %w", err)
	}

	s.record(ctx, req.Actor, audit.ActionAnalysisCreate, analysis.ID,
		fmt.Sprintf("disease=%s genes=%d rows=%d", disease, len(genes), len(risks)))

	s.logger.WithFields(logrus.Fields{
		"analysis_id": analysis.ID,
		"disease":     disease,
		"gene_count":  len(genes),
		"matched":     len(risks),
	}).Info("Upload analyzed")

	return &AnalysisResult{
		ID:         analysis.ID,
		GeneCount:  len(genes),
		Disease:    disease,
		Risks:      risks,
		Disclaimer: domain.Disclaimer,
	}, nil
}

// AutoRank returns the top-N diseases for one genotype file
func (s *AnalysisService) AutoRank(ctx context.Context, req AutoRankRequest) (*RankResult, error) {
	input, err := s.extractInput(ctx, req.Filename, req.Body, req.MaxRecords)
	if err != nil {
		return nil, err
	}
	if input.Len() == 0 {
		return nil, domain.ErrNoGenes
	}

	candidates, err := s.ranker.RankDiseases(ctx, input, req.TopN, req.IncludeTips)
	if err != nil {
		return nil, fmt.Errorf("ranking upload: %w", err)
	}

	genes := input.IncludedGenes().Sorted()
	analysis := &domain.Analysis{
		ID:         uuid.New().String(),
		Kind:       domain.AnalysisRanked,
		Filename:   req.Filename,
		GeneCount:  len(genes),
		Genes:      genes,
		Candidates: candidates,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, analysis); err != nil {
		return nil, fmt.Errorf("storing analysis: %w", err)
	}

	s.record(ctx, req.Actor, audit.ActionAnalysisCreate, analysis.ID,
		fmt.Sprintf("ranked genes=%d candidates=%d", len(genes), len(candidates)))

	return &RankResult{
		ID:         analysis.ID,
		GeneCount:  len(genes),
		Candidates: candidates,
		Disclaimer: domain.Disclaimer,
	}, nil
}

// GetAnalysis returns a stored analysis
func (s *AnalysisService) GetAnalysis(ctx context.Context, id, actor string) (*domain.Analysis, error) {
	analysis, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, audit.ActionAnalysisRead, id, "")
	return analysis, nil
}

// ListAnalyses returns stored analyses newest first
func (s *AnalysisService) ListAnalyses(ctx context.Context, limit, offset int) ([]*domain.Analysis, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListRecent(ctx, limit, offset)
}

// DeleteAnalysis removes a stored analysis
func (s *AnalysisService) DeleteAnalysis(ctx context.Context, id, actor string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, audit.ActionAnalysisDelete, id, "")
	return nil
}

// ExportCSV writes the risk rows of a stored analysis as CSV. Ranked
// analyses export their candidates' rows in ranking order.
func (s *AnalysisService) ExportCSV(ctx context.Context, id, actor string, w io.Writer) error {
	analysis, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, row := range analysis.ReportRows() {
		record := []string{
			row.Gene,
			strconv.FormatFloat(row.Risk, 'f', -1, 64),
			strconv.Itoa(row.Rank),
			string(row.Level),
			strings.Join(row.Tips, " | "),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}

	s.record(ctx, actor, audit.ActionAnalysisExport, id, "format=csv")
	return nil
}

// extractInput picks the parser from the file name: raw text yields a gene
// set, VCF yields an impact-weighted burden.
func (s *AnalysisService) extractInput(ctx context.Context, filename string, body io.Reader, max int) (domain.UserGeneInput, error) {
	format, err := genome.DetectFormat(filename)
	if err != nil {
		return domain.UserGeneInput{}, err
	}
	if max <= 0 {
		max = s.defaultMaxRecords
	}

	switch format {
	case genome.FormatVCF:
		burden, err := s.extractor.ExtractBurden(ctx, body, max, false)
		if err != nil {
			return domain.UserGeneInput{}, fmt.Errorf("extracting genes from %s: %w", filename, err)
		}
		return domain.BurdenInput(burden), nil
	default:
		genes, err := s.extractor.ExtractGenes(ctx, body, max)
		if err != nil {
			return domain.UserGeneInput{}, fmt.Errorf("extracting genes from %s: %w", filename, err)
		}
		return domain.SetInput(genes), nil
	}
}

func (s *AnalysisService) record(ctx context.Context, actor, action, id, details string) {
	if s.audit == nil {
		return
	}
	entry := &audit.Entry{
		Actor:        actor,
		Action:       action,
		ResourceType: audit.ResourceAnalysis,
		ResourceID:   id,
		Details:      details,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.WithFields(logrus.Fields{
			"analysis_id": id,
			"action":      action,
			"error":       err,
		}).Warn("Audit log write failed")
	}
}
