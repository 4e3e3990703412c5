package service

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/geneguard-server/internal/domain"
	"github.com/geneguard-server/pkg/external"
)

// TipCache is the shared second cache tier, usually Redis
type TipCache interface {
	GetTips(ctx context.Context, key string) ([]string, bool, error)
	SetTips(ctx context.Context, key string, tips []string, provider string, ttl time.Duration) error
}

// TipServiceConfig configures the tip service
type TipServiceConfig struct {
	MemoryCacheSize int
	Timeout         time.Duration
	CircuitBreaker  external.CircuitBreakerConfig
}

// TipService caches generated lifestyle tips per gene, disease and UTC day.
// Upstream failures degrade to an empty list and are never cached.
type TipService struct {
	generator domain.TipGenerator
	memory    *lru.Cache[string, []string]
	remote    TipCache
	breaker   *gobreaker.CircuitBreaker
	group     singleflight.Group
	timeout   time.Duration
	now       func() time.Time
	logger    *logrus.Logger
}

// NewTipService creates a tip service. remote may be nil.
func NewTipService(generator domain.TipGenerator, remote TipCache, config TipServiceConfig, logger *logrus.Logger) (*TipService, error) {
	if config.MemoryCacheSize <= 0 {
		config.MemoryCacheSize = 2048
	}
	if config.Timeout <= 0 {
		config.Timeout = 20 * time.Second
	}

	memory, err := lru.New[string, []string](config.MemoryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create tip cache: %w", err)
	}

	name := "tips"
	if generator != nil {
		name = "tips-" + generator.Name()
	}

	return &TipService{
		generator: generator,
		memory:    memory,
		remote:    remote,
		breaker:   external.NewCircuitBreaker(name, config.CircuitBreaker, logger),
		timeout:   config.Timeout,
		now:       time.Now,
		logger:    logger,
	}, nil
}

// TipCacheKey returns the cache key for a gene/disease pair on the UTC day of now
func TipCacheKey(gene string, disease domain.Disease, now time.Time) string {
	return fmt.Sprintf("tips:%s:%s:%s", domain.NormalizeGeneSymbol(gene), disease, now.UTC().Format("2006-01-02"))
}

// untilEndOfDay returns the time left before the next UTC midnight
func untilEndOfDay(now time.Time) time.Duration {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	return midnight.Sub(now)
}

// GetTips returns tips for gene and disease. The error is always nil;
// it is part of the signature so callers can treat providers uniformly.
func (s *TipService) GetTips(ctx context.Context, gene string, disease domain.Disease) ([]string, error) {
	now := s.now()
	key := TipCacheKey(gene, disease, now)

	if tips, ok := s.memory.Get(key); ok {
		return cloneTips(tips), nil
	}

	if s.remote != nil {
		tips, ok, err := s.remote.GetTips(ctx, key)
		if err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("Tip cache read failed")
		} else if ok {
			s.memory.Add(key, tips)
			return cloneTips(tips), nil
		}
	}

	if s.generator == nil {
		return []string{}, nil
	}
	if ctx.Err() != nil {
		return []string{}, nil
	}

	v, _, _ := s.group.Do(key, func() (interface{}, error) {
		return s.generate(ctx, key, gene, disease, now), nil
	})
	return cloneTips(v.([]string)), nil
}

func (s *TipService) generate(ctx context.Context, key, gene string, disease domain.Disease, now time.Time) []string {
	// the flight outlives any single caller
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.generator.GenerateTips(callCtx, domain.NormalizeGeneSymbol(gene), disease)
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"gene":     gene,
			"disease":  disease,
			"provider": s.generator.Name(),
			"error":    err,
		}).Warn("Tip generation failed, returning no tips")
		return []string{}
	}

	tips, _ := out.([]string)
	if tips == nil {
		tips = []string{}
	}

	s.memory.Add(key, tips)
	if s.remote != nil {
		if err := s.remote.SetTips(callCtx, key, tips, s.generator.Name(), untilEndOfDay(now)); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("Tip cache write failed")
		}
	}
	return tips
}

// cachedEntries returns the number of tip lists held in memory
func (s *TipService) cachedEntries() int {
	return s.memory.Len()
}

func cloneTips(tips []string) []string {
	out := make([]string, len(tips))
	copy(out, tips)
	return out
}
