package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/geneguard-server/internal/domain"
)

const rawGenome = `# rsid	chromosome	position	genotype
rs429358	19	45411941	TC
rs1801133	1	11856378	AG
rs7412	19	45412079	CC
`

const smallVCF = "##fileformat=VCFv4.2\n" +
	"##contig=<ID=1>\n##contig=<ID=17>\n##contig=<ID=19>\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
	"17\t43044295\trs80357906\tC\tT\t50\tPASS\t.\n" +
	"1\t11856378\trs1801133\tG\tA\t50\tPASS\t.\n" +
	"19\t45411941\trs429358\tT\tC\t50\tPASS\t.\n"

func TestGeneExtractor_ExtractGenes(t *testing.T) {
	annotator := new(MockVariantAnnotator)
	annotator.On("AnnotateRSIDs", mock.Anything, []string{"rs429358", "rs1801133", "rs7412"}).
		Return(map[string]domain.VariantAnnotation{
			"rs429358":  {RSID: "rs429358", Gene: "APOE"},
			"rs1801133": {RSID: "rs1801133", Gene: "mthfr"},
			"rs7412":    {RSID: "rs7412", Gene: "APOE"},
		}, nil)

	extractor := NewGeneExtractor(annotator, testLogger())
	genes, err := extractor.ExtractGenes(context.Background(), strings.NewReader(rawGenome), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"APOE", "MTHFR"}, genes.Sorted())
	annotator.AssertExpectations(t)
}

func TestGeneExtractor_ExtractGenes_NoRSIDs(t *testing.T) {
	annotator := new(MockVariantAnnotator)
	extractor := NewGeneExtractor(annotator, testLogger())

	genes, err := extractor.ExtractGenes(context.Background(), strings.NewReader("# header only\n"), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, genes.Len())
	annotator.AssertNotCalled(t, "AnnotateRSIDs", mock.Anything, mock.Anything)
}

func TestGeneExtractor_ExtractGenes_AnnotationError(t *testing.T) {
	annotator := new(MockVariantAnnotator)
	annotator.On("AnnotateRSIDs", mock.Anything, mock.Anything).Return(nil, errors.New("myvariant unavailable"))

	extractor := NewGeneExtractor(annotator, testLogger())
	_, err := extractor.ExtractGenes(context.Background(), strings.NewReader(rawGenome), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "myvariant unavailable")
}

func TestGeneExtractor_ExtractBurden(t *testing.T) {
	annotator := new(MockVariantAnnotator)
	annotator.On("AnnotateRSIDs", mock.Anything, []string{"rs80357906", "rs1801133", "rs429358"}).
		Return(map[string]domain.VariantAnnotation{
			"rs80357906": {RSID: "rs80357906", Gene: "BRCA1", Impact: domain.ImpactHigh},
			"rs1801133":  {RSID: "rs1801133", Gene: "MTHFR", Impact: domain.ImpactModerate},
			"rs429358":   {RSID: "rs429358", Gene: "APOE", Impact: domain.ImpactModifier},
		}, nil)

	extractor := NewGeneExtractor(annotator, testLogger())
	ctx := context.Background()

	burden, err := extractor.ExtractBurden(ctx, strings.NewReader(smallVCF), 0, false)
	require.NoError(t, err)
	assert.Equal(t, domain.GeneBurden{"BRCA1": 3, "MTHFR": 2, "APOE": 0}, burden)

	severe, err := extractor.ExtractBurden(ctx, strings.NewReader(smallVCF), 0, true)
	require.NoError(t, err)
	assert.Equal(t, domain.GeneBurden{"BRCA1": 3, "MTHFR": 2}, severe)
}

func TestGeneExtractor_ExtractBurden_MaxRecords(t *testing.T) {
	annotator := new(MockVariantAnnotator)
	annotator.On("AnnotateRSIDs", mock.Anything, []string{"rs80357906"}).
		Return(map[string]domain.VariantAnnotation{
			"rs80357906": {RSID: "rs80357906", Gene: "BRCA1", Impact: domain.ImpactHigh},
		}, nil)

	extractor := NewGeneExtractor(annotator, testLogger())
	burden, err := extractor.ExtractBurden(context.Background(), strings.NewReader(smallVCF), 1, false)
	require.NoError(t, err)
	assert.Equal(t, domain.GeneBurden{"BRCA1": 3}, burden)
}
