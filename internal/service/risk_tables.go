package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/geneguard-server/internal/domain"
)

// RiskTableProvider memoizes disease risk tables for the process lifetime.
// Loads are collapsed per disease; failed loads are not cached.
type RiskTableProvider struct {
	source domain.RiskTableSource
	tables sync.Map // domain.Disease -> *domain.RiskTable
	group  singleflight.Group
	logger *logrus.Logger

	statsMu sync.Mutex
	loads   int
}

// NewRiskTableProvider creates a provider backed by source
func NewRiskTableProvider(source domain.RiskTableSource, logger *logrus.Logger) *RiskTableProvider {
	return &RiskTableProvider{
		source: source,
		logger: logger,
	}
}

// Load returns the table for disease. A disease with no backing data
// yields an empty table; corrupt data yields ErrMalformedRiskTable.
func (p *RiskTableProvider) Load(ctx context.Context, disease domain.Disease) (*domain.RiskTable, error) {
	if !disease.IsValid() {
		return nil, fmt.Errorf("loading risk table: %w: %q", domain.ErrUnsupportedDisease, disease)
	}

	if cached, ok := p.tables.Load(disease); ok {
		return cached.(*domain.RiskTable), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("loading risk table for %s: %w", disease, err)
	}

	v, err, _ := p.group.Do(string(disease), func() (interface{}, error) {
		if cached, ok := p.tables.Load(disease); ok {
			return cached, nil
		}

		p.statsMu.Lock()
		p.loads++
		p.statsMu.Unlock()

		// shared by every caller in the flight, so one cancelled caller
		// does not fail the others
		table, err := p.source.LoadRiskTable(context.WithoutCancel(ctx), disease)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
			p.logger.WithField("disease", disease).Warn("No risk data for disease, using empty table")
			table = domain.EmptyRiskTable(disease)
		}

		p.tables.Store(disease, table)
		return table, nil
	})
	if err != nil {
		p.logger.WithFields(logrus.Fields{
			"disease": disease,
			"error":   err,
		}).Error("Failed to load risk table")
		return nil, fmt.Errorf("loading risk table for %s: %w", disease, err)
	}

	return v.(*domain.RiskTable), nil
}

// Preload loads every supported disease and returns per-disease failures
func (p *RiskTableProvider) Preload(ctx context.Context) map[domain.Disease]error {
	failures := make(map[domain.Disease]error)
	for _, d := range domain.SupportedDiseases() {
		if _, err := p.Load(ctx, d); err != nil {
			failures[d] = err
		}
	}

	p.logger.WithFields(logrus.Fields{
		"diseases": len(domain.SupportedDiseases()),
		"failed":   len(failures),
	}).Info("Preloaded risk tables")

	return failures
}

// loadCount returns how many times the backing source has been read
func (p *RiskTableProvider) loadCount() int {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.loads
}
