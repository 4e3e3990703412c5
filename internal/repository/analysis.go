package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/geneguard-server/internal/domain"
)

// AnalysisRepository handles analysis persistence in PostgreSQL
type AnalysisRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *pgxpool.Pool, logger *logrus.Logger) *AnalysisRepository {
	return &AnalysisRepository{
		db:  db,
		log: logger,
	}
}

// Create inserts a new analysis. A missing ID or timestamp is filled in.
func (r *AnalysisRepository) Create(ctx context.Context, analysis *domain.Analysis) error {
	if analysis.ID == "" {
		analysis.ID = uuid.New().String()
	}
	id, err := uuid.Parse(analysis.ID)
	if err != nil {
		return fmt.Errorf("invalid analysis id %q: %w", analysis.ID, err)
	}
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = time.Now().UTC()
	}

	genes, risks, candidates, err := encodeAnalysis(analysis)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO analyses (
			id, kind, disease, filename, gene_count, genes, risks, candidates, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`

	_, err = r.db.Exec(ctx, query,
		id,
		string(analysis.Kind),
		string(analysis.Disease),
		analysis.Filename,
		analysis.GeneCount,
		genes,
		risks,
		candidates,
		analysis.CreatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"analysis_id": analysis.ID,
			"error":       err,
		}).Error("Failed to create analysis")
		return fmt.Errorf("creating analysis: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"analysis_id": analysis.ID,
		"kind":        analysis.Kind,
		"disease":     analysis.Disease,
		"gene_count":  analysis.GeneCount,
	}).Info("Analysis created successfully")

	return nil
}

// GetByID retrieves an analysis by its ID
func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (*domain.Analysis, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("analysis not found: %w", domain.ErrNotFound)
	}

	query := `
		SELECT id::text, kind, disease, filename, gene_count, genes, risks, candidates, created_at
		FROM analyses
		WHERE id = $1`

	analysis, err := scanAnalysis(r.db.QueryRow(ctx, query, parsed))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("analysis not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"analysis_id": id,
			"error":       err,
		}).Error("Failed to get analysis by ID")
		return nil, fmt.Errorf("getting analysis by ID: %w", err)
	}

	return analysis, nil
}

// ListRecent returns analyses newest first
func (r *AnalysisRepository) ListRecent(ctx context.Context, limit, offset int) ([]*domain.Analysis, error) {
	query := `
		SELECT id::text, kind, disease, filename, gene_count, genes, risks, candidates, created_at
		FROM analyses
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	defer rows.Close()

	var analyses []*domain.Analysis
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning analysis: %w", err)
		}
		analyses = append(analyses, analysis)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating analyses: %w", err)
	}

	return analyses, nil
}

// Delete removes an analysis
func (r *AnalysisRepository) Delete(ctx context.Context, id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("analysis not found: %w", domain.ErrNotFound)
	}

	tag, err := r.db.Exec(ctx, "DELETE FROM analyses WHERE id = $1", parsed)
	if err != nil {
		return fmt.Errorf("deleting analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("analysis not found: %w", domain.ErrNotFound)
	}

	r.log.WithField("analysis_id", id).Info("Analysis deleted")
	return nil
}

func encodeAnalysis(a *domain.Analysis) (genes, risks, candidates []byte, err error) {
	if genes, err = json.Marshal(nonNil(a.Genes)); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding genes: %w", err)
	}
	if risks, err = json.Marshal(nonNil(a.Risks)); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding risks: %w", err)
	}
	if candidates, err = json.Marshal(nonNil(a.Candidates)); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding candidates: %w", err)
	}
	return genes, risks, candidates, nil
}

func scanAnalysis(row pgx.Row) (*domain.Analysis, error) {
	var (
		a                        domain.Analysis
		kind, disease            string
		genes, risks, candidates []byte
	)

	err := row.Scan(
		&a.ID,
		&kind,
		&disease,
		&a.Filename,
		&a.GeneCount,
		&genes,
		&risks,
		&candidates,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Kind = domain.AnalysisKind(kind)
	a.Disease = domain.Disease(disease)
	if err := json.Unmarshal(genes, &a.Genes); err != nil {
		return nil, fmt.Errorf("decoding genes: %w", err)
	}
	if err := json.Unmarshal(risks, &a.Risks); err != nil {
		return nil, fmt.Errorf("decoding risks: %w", err)
	}
	if err := json.Unmarshal(candidates, &a.Candidates); err != nil {
		return nil, fmt.Errorf("decoding candidates: %w", err)
	}
	return &a, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
