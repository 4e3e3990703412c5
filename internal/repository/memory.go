package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/geneguard-server/internal/domain"
)

// MemoryAnalysisRepository keeps analyses in process memory. It backs lite
// mode and servers started without a database.
type MemoryAnalysisRepository struct {
	mu       sync.RWMutex
	analyses map[string]*domain.Analysis
}

// NewMemoryAnalysisRepository creates an empty in-memory repository
func NewMemoryAnalysisRepository() *MemoryAnalysisRepository {
	return &MemoryAnalysisRepository{
		analyses: make(map[string]*domain.Analysis),
	}
}

// Create stores a copy of analysis
func (r *MemoryAnalysisRepository) Create(ctx context.Context, analysis *domain.Analysis) error {
	if analysis.ID == "" {
		analysis.ID = uuid.New().String()
	}
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.analyses[analysis.ID]; exists {
		return fmt.Errorf("creating analysis: duplicate id %s", analysis.ID)
	}
	stored := *analysis
	r.analyses[analysis.ID] = &stored
	return nil
}

// GetByID returns a copy of the stored analysis
func (r *MemoryAnalysisRepository) GetByID(ctx context.Context, id string) (*domain.Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.analyses[id]
	if !ok {
		return nil, fmt.Errorf("analysis not found: %w", domain.ErrNotFound)
	}
	out := *a
	return &out, nil
}

// ListRecent returns analyses newest first
func (r *MemoryAnalysisRepository) ListRecent(ctx context.Context, limit, offset int) ([]*domain.Analysis, error) {
	r.mu.RLock()
	all := make([]*domain.Analysis, 0, len(r.analyses))
	for _, a := range r.analyses {
		out := *a
		all = append(all, &out)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []*domain.Analysis{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// Delete removes an analysis
func (r *MemoryAnalysisRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.analyses[id]; !ok {
		return fmt.Errorf("analysis not found: %w", domain.ErrNotFound)
	}
	delete(r.analyses, id)
	return nil
}
