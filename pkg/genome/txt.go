// Package genome reads consumer genotype files: 23andMe-style raw text and VCF.
package genome

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/geneguard-server/internal/domain"
)

// Format is the detected genotype file format
type Format string

const (
	FormatTXT Format = "TXT"
	FormatVCF Format = "VCF"
)

// DetectFormat picks the parser from the upload's file name
func DetectFormat(filename string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(filename))
	switch {
	case strings.HasSuffix(name, ".txt"), strings.HasSuffix(name, ".tsv"):
		return FormatTXT, nil
	case strings.HasSuffix(name, ".vcf"), strings.HasSuffix(name, ".vcf.gz"):
		return FormatVCF, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, filename)
	}
}

// maxLineBytes bounds a single raw-data line
const maxLineBytes = 1 << 20

// ReadRSIDs returns the distinct rsIDs of a 23andMe raw data file in file
// order. Only the first max data lines are considered (max <= 0 means all).
// Lines are whitespace separated: rsid chromosome position genotype.
func ReadRSIDs(r io.Reader, max int) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	seen := make(map[string]struct{})
	var rsids []string
	lines := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if max > 0 && lines >= max {
			break
		}
		lines++

		fields := strings.Fields(line)
		id := fields[0]
		if !strings.HasPrefix(id, "rs") {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		rsids = append(rsids, id)
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("reading genome file: line exceeds %d bytes", maxLineBytes)
		}
		return nil, fmt.Errorf("reading genome file: %w", err)
	}
	return rsids, nil
}
