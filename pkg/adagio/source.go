// Package adagio reads ADAGIO disease-gene risk tables from disk.
//
// Each disease has a file named adagio_<disease>.json holding an object keyed by
// gene symbol, in descending risk order as produced by the conversion tooling:
//
//	{"APOE": {"risk": 0.93}, "PSEN1": {"risk": 0.91}, ...}
//
// Key order is preserved because it is the tie-breaker for equal risks.
package adagio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/geneguard-server/internal/domain"
)

// FileSource loads risk tables from a directory of JSON files
type FileSource struct {
	dir    string
	logger *logrus.Logger
}

// NewFileSource creates a file-backed risk table source rooted at dir
func NewFileSource(dir string, logger *logrus.Logger) *FileSource {
	return &FileSource{dir: dir, logger: logger}
}

// Path returns the file path backing a disease table
func (s *FileSource) Path(disease domain.Disease) string {
	return filepath.Join(s.dir, fmt.Sprintf("adagio_%s.json", disease))
}

// LoadRiskTable implements domain.RiskTableSource
func (s *FileSource) LoadRiskTable(ctx context.Context, disease domain.Disease) (*domain.RiskTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.Path(disease)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("risk table %s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("opening risk table %s: %w", path, err)
	}
	defer f.Close()

	entries, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrMalformedRiskTable, disease, err)
	}

	table, err := domain.NewRiskTable(disease, entries)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"disease": disease,
		"genes":   table.Len(),
		"path":    path,
	}).Debug("Loaded risk table")

	return table, nil
}

type riskRecord struct {
	Risk *float64 `json:"risk"`
}

// Decode reads a table object from r, keeping key order.
func Decode(r io.Reader) ([]domain.RiskTableEntry, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty document")
		}
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var entries []domain.RiskTableEntry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		gene, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected gene key, got %v", tok)
		}

		var rec riskRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("gene %s: %w", gene, err)
		}
		if rec.Risk == nil {
			return nil, fmt.Errorf("gene %s: missing risk", gene)
		}
		entries = append(entries, domain.RiskTableEntry{Gene: gene, Risk: *rec.Risk})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return entries, nil
}
