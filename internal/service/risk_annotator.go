package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/geneguard-server/internal/domain"
)

// RiskTableLoader loads the risk table of one disease
type RiskTableLoader interface {
	Load(ctx context.Context, disease domain.Disease) (*domain.RiskTable, error)
}

// RiskAnnotatorConfig configures the annotator
type RiskAnnotatorConfig struct {
	Policy         LevelPolicy
	TipConcurrency int
}

// RiskAnnotator intersects user genes with one disease table, ranks and
// levels the hits, and attaches lifestyle tips.
type RiskAnnotator struct {
	tables         RiskTableLoader
	tips           domain.TipProvider
	policy         LevelPolicy
	tipConcurrency int
	logger         *logrus.Logger
}

// NewRiskAnnotator creates an annotator. tips may be nil, in which case
// every row carries an empty tip list.
func NewRiskAnnotator(tables RiskTableLoader, tips domain.TipProvider, config RiskAnnotatorConfig, logger *logrus.Logger) *RiskAnnotator {
	if config.Policy == (LevelPolicy{}) {
		config.Policy = DefaultLevelPolicy()
	}
	if config.TipConcurrency <= 0 {
		config.TipConcurrency = 4
	}

	return &RiskAnnotator{
		tables:         tables,
		tips:           tips,
		policy:         config.Policy,
		tipConcurrency: config.TipConcurrency,
		logger:         logger,
	}
}

// Annotate returns the ranked risk rows for disease, tips attached.
// No risk data and no overlap both yield an empty, non-nil slice.
func (a *RiskAnnotator) Annotate(ctx context.Context, disease domain.Disease, input domain.UserGeneInput) ([]domain.RiskRow, error) {
	return a.annotate(ctx, disease, input, true)
}

// AnnotateWithoutTips runs the ranking and leveling pipeline only
func (a *RiskAnnotator) AnnotateWithoutTips(ctx context.Context, disease domain.Disease, input domain.UserGeneInput) ([]domain.RiskRow, error) {
	return a.annotate(ctx, disease, input, false)
}

func (a *RiskAnnotator) annotate(ctx context.Context, disease domain.Disease, input domain.UserGeneInput, withTips bool) ([]domain.RiskRow, error) {
	table, err := a.tables.Load(ctx, disease)
	if err != nil {
		return nil, fmt.Errorf("annotating %s: %w", disease, err)
	}
	if table.IsEmpty() {
		return []domain.RiskRow{}, nil
	}

	hits := table.Intersect(input.IncludedGenes())
	if len(hits) == 0 {
		return []domain.RiskRow{}, nil
	}

	rows := rankRows(hits, a.policy)

	if input.Kind() == domain.InputKindBurden {
		for i := range rows {
			if w, ok := input.Weight(rows[i].Gene); ok {
				w := w
				rows[i].Burden = &w
			}
		}
	}

	if withTips && a.tips != nil {
		if err := a.attachTips(ctx, disease, rows); err != nil {
			return nil, err
		}
	}

	a.logger.WithFields(logrus.Fields{
		"disease":    disease,
		"input_kind": input.Kind(),
		"user_genes": input.Len(),
		"matched":    len(rows),
	}).Debug("Annotated disease risks")

	return rows, nil
}

// attachTips fetches tips for every row on a bounded pool. Each result is
// written to its own index, so row order is untouched. A failing or
// panicking lookup leaves that row with no tips.
func (a *RiskAnnotator) attachTips(ctx context.Context, disease domain.Disease, rows []domain.RiskRow) error {
	g := new(errgroup.Group)
	g.SetLimit(a.tipConcurrency)

	for i := range rows {
		i := i
		g.Go(func() error {
			defer func() {
				if rec := recover(); rec != nil {
					a.logger.WithFields(logrus.Fields{
						"disease": disease,
						"gene":    rows[i].Gene,
						"panic":   fmt.Sprint(rec),
					}).Error("Tip lookup panicked, continuing without tips")
					rows[i].Tips = []string{}
				}
			}()

			tips, err := a.tips.GetTips(ctx, rows[i].Gene, disease)
			if err != nil {
				a.logger.WithFields(logrus.Fields{
					"disease": disease,
					"gene":    rows[i].Gene,
					"error":   err,
				}).Warn("Tip lookup failed, continuing without tips")
				return nil
			}
			if tips == nil {
				tips = []string{}
			}
			rows[i].Tips = tips
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("attaching tips for %s: %w", disease, err)
	}
	return nil
}
