package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/geneguard-server/internal/domain"
)

// DefaultTopN is the number of diseases returned when the caller does not ask for a count
const DefaultTopN = 3

// DiseaseRankerConfig configures the ranker
type DiseaseRankerConfig struct {
	Concurrency int
	DefaultTopN int
	Diseases    []domain.Disease // defaults to domain.SupportedDiseases()
}

// DiseaseRanker scores a gene input against every supported disease and
// annotates the top-N.
type DiseaseRanker struct {
	tables      RiskTableLoader
	annotator   *RiskAnnotator
	diseases    []domain.Disease
	concurrency int
	defaultTopN int
	logger      *logrus.Logger
}

// NewDiseaseRanker creates a ranker
func NewDiseaseRanker(tables RiskTableLoader, annotator *RiskAnnotator, config DiseaseRankerConfig, logger *logrus.Logger) *DiseaseRanker {
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	if config.DefaultTopN <= 0 {
		config.DefaultTopN = DefaultTopN
	}
	if len(config.Diseases) == 0 {
		config.Diseases = domain.SupportedDiseases()
	}

	return &DiseaseRanker{
		tables:      tables,
		annotator:   annotator,
		diseases:    config.Diseases,
		concurrency: config.Concurrency,
		defaultTopN: config.DefaultTopN,
		logger:      logger,
	}
}

// RankDiseases returns at most topN diseases ordered by aggregate risk
// descending. A disease whose scoring or annotation fails is left out; the
// batch itself only fails on context cancellation.
func (r *DiseaseRanker) RankDiseases(ctx context.Context, input domain.UserGeneInput, topN int, includeTips bool) ([]domain.DiseaseScore, error) {
	if topN <= 0 {
		topN = r.defaultTopN
	}
	if input.Len() == 0 {
		return []domain.DiseaseScore{}, nil
	}

	scored := r.scoreAll(ctx, input)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ranking diseases: %w", err)
	}

	sortDiseaseScores(scored)
	if len(scored) > topN {
		scored = scored[:topN]
	}

	if !includeTips {
		for i := range scored {
			scored[i].Risks = []domain.RiskRow{}
		}
		r.logResult(input, scored, includeTips)
		return scored, nil
	}

	annotated := r.annotateAll(ctx, input, scored)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ranking diseases: %w", err)
	}

	sortDiseaseScores(annotated)
	r.logResult(input, annotated, includeTips)
	return annotated, nil
}

// scoreAll fans out one scoring task per disease and collects the
// diseases with a positive aggregate score.
func (r *DiseaseRanker) scoreAll(ctx context.Context, input domain.UserGeneInput) []domain.DiseaseScore {
	genes := input.IncludedGenes()

	var (
		mu      sync.Mutex
		results []domain.DiseaseScore
	)

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)

	for _, disease := range r.diseases {
		disease := disease
		g.Go(func() error {
			score, ok, err := r.safeScore(ctx, disease, genes)
			if err != nil {
				r.logger.WithFields(logrus.Fields{
					"disease": disease,
					"error":   err,
				}).Warn("Disease scoring failed, excluding from ranking")
				return nil
			}
			if !ok {
				return nil
			}

			mu.Lock()
			results = append(results, domain.DiseaseScore{
				Disease: disease,
				Score:   roundScore(score),
			})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// safeScore sums table risks over the user's genes. ok is false when the
// disease has no table, no overlap, or a non-positive sum.
func (r *DiseaseRanker) safeScore(ctx context.Context, disease domain.Disease, genes domain.GeneSet) (score float64, ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("scoring %s panicked: %v", disease, rec)
		}
	}()

	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	table, err := r.tables.Load(ctx, disease)
	if err != nil {
		return 0, false, err
	}
	if table.IsEmpty() {
		return 0, false, nil
	}

	hits := table.Intersect(genes)
	if len(hits) == 0 {
		return 0, false, nil
	}

	total := sumScores(hits)
	if total <= 0 {
		return 0, false, nil
	}
	return total, true, nil
}

// annotateAll runs the full annotator for the selected diseases only
func (r *DiseaseRanker) annotateAll(ctx context.Context, input domain.UserGeneInput, selected []domain.DiseaseScore) []domain.DiseaseScore {
	out := make([]*domain.DiseaseScore, len(selected))

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)

	for i := range selected {
		i := i
		g.Go(func() error {
			rows, err := r.safeAnnotate(ctx, selected[i].Disease, input)
			if err != nil {
				r.logger.WithFields(logrus.Fields{
					"disease": selected[i].Disease,
					"error":   err,
				}).Warn("Disease annotation failed, excluding from ranking")
				return nil
			}
			out[i] = &domain.DiseaseScore{
				Disease: selected[i].Disease,
				Score:   selected[i].Score,
				Risks:   rows,
			}
			return nil
		})
	}
	_ = g.Wait()

	annotated := make([]domain.DiseaseScore, 0, len(selected))
	for _, ds := range out {
		if ds != nil {
			annotated = append(annotated, *ds)
		}
	}
	return annotated
}

func (r *DiseaseRanker) safeAnnotate(ctx context.Context, disease domain.Disease, input domain.UserGeneInput) (rows []domain.RiskRow, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("annotating %s panicked: %v", disease, rec)
		}
	}()
	return r.annotator.Annotate(ctx, disease, input)
}

func (r *DiseaseRanker) logResult(input domain.UserGeneInput, scores []domain.DiseaseScore, includeTips bool) {
	top := make([]string, len(scores))
	for i, s := range scores {
		top[i] = fmt.Sprintf("%s=%.4f", s.Disease, s.Score)
	}
	r.logger.WithFields(logrus.Fields{
		"user_genes":   input.Len(),
		"candidates":   len(scores),
		"include_tips": includeTips,
		"top":          top,
	}).Info("Ranked diseases")
}
