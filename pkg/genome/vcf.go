package genome

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/brentp/vcfgo"
	"github.com/klauspost/compress/gzip"
)

// Variant is one ALT allele of a VCF record
type Variant struct {
	Chrom string `json:"chrom"`
	Pos   uint64 `json:"pos"`
	Ref   string `json:"ref"`
	Alt   string `json:"alt"`
	RSID  string `json:"rsid"` // "." when the record has no ID
}

var gzipMagic = []byte{0x1f, 0x8b}

// VCFReader streams variants from plain or gzip-compressed VCF
type VCFReader struct {
	rdr     *vcfgo.Reader
	closer  io.Closer
	pending []Variant
	records int
	max     int
}

// NewVCFReader opens a VCF stream. Compression is detected from the magic
// bytes, not the file name. max caps the number of records read (0 = all).
func NewVCFReader(r io.Reader, max int) (*VCFReader, error) {
	br := bufio.NewReader(r)

	var (
		src    io.Reader = br
		closer io.Closer
	)
	if head, err := br.Peek(2); err == nil && bytes.Equal(head, gzipMagic) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		src, closer = gz, gz
	}

	rdr, err := vcfgo.NewReader(src, true)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("reading VCF header: %w", err)
	}

	return &VCFReader{rdr: rdr, closer: closer, max: max}, nil
}

// Next returns the next variant, or io.EOF when the stream or the record
// cap is exhausted. Multi-allelic records yield one variant per ALT.
func (v *VCFReader) Next() (Variant, error) {
	for len(v.pending) == 0 {
		if v.max > 0 && v.records >= v.max {
			return Variant{}, io.EOF
		}
		rec := v.rdr.Read()
		if rec == nil {
			if err := v.rdr.Error(); err != nil {
				return Variant{}, fmt.Errorf("parsing VCF: %w", err)
			}
			return Variant{}, io.EOF
		}
		v.records++

		for _, alt := range rec.Alternate {
			v.pending = append(v.pending, Variant{
				Chrom: rec.Chromosome,
				Pos:   rec.Pos,
				Ref:   rec.Reference,
				Alt:   alt,
				RSID:  rec.Id(),
			})
		}
	}

	next := v.pending[0]
	v.pending = v.pending[1:]
	return next, nil
}

// Close releases the decompressor, if any
func (v *VCFReader) Close() error {
	if v.closer != nil {
		return v.closer.Close()
	}
	return nil
}

// ReadVariants drains a VCF stream into memory
func ReadVariants(r io.Reader, max int) ([]Variant, error) {
	vr, err := NewVCFReader(r, max)
	if err != nil {
		return nil, err
	}
	defer vr.Close()

	var out []Variant
	for {
		variant, err := vr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, variant)
	}
}

// RSIDs returns the distinct rsIDs of variants in order, skipping "." and
// non-dbSNP identifiers.
func RSIDs(variants []Variant) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range variants {
		if len(v.RSID) < 3 || v.RSID[:2] != "rs" {
			continue
		}
		if _, dup := seen[v.RSID]; dup {
			continue
		}
		seen[v.RSID] = struct{}{}
		out = append(out, v.RSID)
	}
	return out
}
