package service

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/geneguard-server/internal/domain"
	"github.com/geneguard-server/pkg/genome"
)

// GeneExtractor turns raw genotype uploads into gene inputs by annotating
// their rsIDs.
type GeneExtractor struct {
	annotator domain.VariantAnnotator
	logger    *logrus.Logger
}

// NewGeneExtractor creates an extractor backed by annotator
func NewGeneExtractor(annotator domain.VariantAnnotator, logger *logrus.Logger) *GeneExtractor {
	return &GeneExtractor{
		annotator: annotator,
		logger:    logger,
	}
}

// ExtractGenes reads a 23andMe-style text file and returns the set of genes
// its rsIDs map to.
func (e *GeneExtractor) ExtractGenes(ctx context.Context, r io.Reader, max int) (domain.GeneSet, error) {
	rsids, err := genome.ReadRSIDs(r, max)
	if err != nil {
		return nil, err
	}

	genes := domain.NewGeneSet()
	if len(rsids) == 0 {
		return genes, nil
	}

	annotations, err := e.annotator.AnnotateRSIDs(ctx, rsids)
	if err != nil {
		return nil, fmt.Errorf("annotating rsIDs: %w", err)
	}
	for _, ann := range annotations {
		genes.Add(ann.Gene)
	}

	e.logger.WithFields(logrus.Fields{
		"rsids":      len(rsids),
		"annotated":  len(annotations),
		"gene_count": genes.Len(),
	}).Debug("Extracted genes from raw data")

	return genes, nil
}

// ExtractBurden reads a VCF and returns the impact-weighted burden per gene
func (e *GeneExtractor) ExtractBurden(ctx context.Context, r io.Reader, max int, severeOnly bool) (domain.GeneBurden, error) {
	variants, err := genome.ReadVariants(r, max)
	if err != nil {
		return nil, err
	}

	rsids := genome.RSIDs(variants)
	if len(rsids) == 0 {
		return domain.GeneBurden{}, nil
	}

	annotations, err := e.annotator.AnnotateRSIDs(ctx, rsids)
	if err != nil {
		return nil, fmt.Errorf("annotating rsIDs: %w", err)
	}
	burden := BurdenScores(annotations, severeOnly)

	e.logger.WithFields(logrus.Fields{
		"variants":    len(variants),
		"rsids":       len(rsids),
		"gene_count":  len(burden),
		"severe_only": severeOnly,
	}).Debug("Extracted gene burden from VCF")

	return burden, nil
}
