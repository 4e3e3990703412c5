package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/geneguard-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress logs during testing
	return logger
}

// stubSource serves risk tables from memory
type stubSource struct {
	mu     sync.Mutex
	tables map[domain.Disease][]domain.RiskTableEntry
	errs   map[domain.Disease]error
	panics map[domain.Disease]bool
	calls  map[domain.Disease]int
}

func newStubSource() *stubSource {
	return &stubSource{
		tables: make(map[domain.Disease][]domain.RiskTableEntry),
		errs:   make(map[domain.Disease]error),
		panics: make(map[domain.Disease]bool),
		calls:  make(map[domain.Disease]int),
	}
}

func (s *stubSource) with(disease domain.Disease, entries ...domain.RiskTableEntry) *stubSource {
	s.tables[disease] = entries
	return s
}

func (s *stubSource) LoadRiskTable(ctx context.Context, disease domain.Disease) (*domain.RiskTable, error) {
	s.mu.Lock()
	s.calls[disease]++
	err := s.errs[disease]
	shouldPanic := s.panics[disease]
	entries, ok := s.tables[disease]
	s.mu.Unlock()

	if shouldPanic {
		panic("corrupt table " + string(disease))
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("adagio_%s.json: %w", disease, domain.ErrNotFound)
	}
	return domain.NewRiskTable(disease, entries)
}

func (s *stubSource) callCount(disease domain.Disease) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[disease]
}

func entry(gene string, risk float64) domain.RiskTableEntry {
	return domain.RiskTableEntry{Gene: gene, Risk: risk}
}

// MockTipProvider is a mock implementation of domain.TipProvider
type MockTipProvider struct {
	mock.Mock
}

func (m *MockTipProvider) GetTips(ctx context.Context, gene string, disease domain.Disease) ([]string, error) {
	args := m.Called(ctx, gene, disease)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockVariantAnnotator is a mock implementation of domain.VariantAnnotator
type MockVariantAnnotator struct {
	mock.Mock
}

func (m *MockVariantAnnotator) AnnotateRSIDs(ctx context.Context, rsids []string) (map[string]domain.VariantAnnotation, error) {
	args := m.Called(ctx, rsids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.VariantAnnotation), args.Error(1)
}

// MockTipGenerator is a mock implementation of domain.TipGenerator
type MockTipGenerator struct {
	mock.Mock
}

func (m *MockTipGenerator) GenerateTips(ctx context.Context, gene string, disease domain.Disease) ([]string, error) {
	args := m.Called(ctx, gene, disease)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTipGenerator) Name() string {
	return "mock"
}
