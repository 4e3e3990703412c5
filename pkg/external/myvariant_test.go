package external

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geneguard-server/internal/domain"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

const myVariantResponse = `[
  {"query": "rs1", "_id": "chr17:g.1A>G", "gene": {"symbol": "brca1"}, "snpeff": {"ann": [{"impact": "HIGH"}, {"impact": "LOW"}]}},
  {"query": "rs2", "_id": "chr1:g.2C>T", "dbsnp": {"gene": [{"symbol": "MTHFR"}, {"symbol": "CLCN6"}]}, "snpeff": {"ann": {"impact": "MODERATE"}}},
  {"query": "rs3", "_id": "chr2:g.3G>A", "dbsnp": {"gene": {"symbol": "TP53"}}},
  {"query": "rs4", "notfound": true},
  {"query": "rs5", "_id": "chr9:g.5T>C"}
]`

func TestMyVariantClient_AnnotateRSIDs(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/query", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "rs1,rs2,rs3,rs4,rs5", r.PostForm.Get("q"))
		assert.Equal(t, "dbsnp.rsid", r.PostForm.Get("scopes"))
		assert.Equal(t, myVariantFields, r.PostForm.Get("fields"))
		assert.Equal(t, "human", r.PostForm.Get("species"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, myVariantResponse)
	}))
	defer server.Close()

	client, err := NewMyVariantClient(MyVariantConfig{
		BaseURL:   server.URL,
		Timeout:   5 * time.Second,
		RateLimit: 100,
	}, quietLogger())
	require.NoError(t, err)

	ctx := context.Background()
	result, err := client.AnnotateRSIDs(ctx, []string{"rs1", "rs2", "rs3", "rs4", "rs5", "rs1"})
	require.NoError(t, err)

	assert.Equal(t, map[string]domain.VariantAnnotation{
		"rs1": {RSID: "rs1", Gene: "BRCA1", Impact: domain.ImpactHigh},
		"rs2": {RSID: "rs2", Gene: "MTHFR", Impact: domain.ImpactModerate},
		"rs3": {RSID: "rs3", Gene: "TP53", Impact: domain.ImpactUnknown},
	}, result)

	// second lookup is served from the rsID cache, negatives included
	again, err := client.AnnotateRSIDs(ctx, []string{"rs1", "rs4", "rs5"})
	require.NoError(t, err)
	assert.Len(t, again, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMyVariantClient_Batching(t *testing.T) {
	var (
		mu      sync.Mutex
		batches []int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		ids := strings.Split(r.PostForm.Get("q"), ",")
		mu.Lock()
		batches = append(batches, len(ids))
		mu.Unlock()

		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = fmt.Sprintf(`{"query": %q, "gene": {"symbol": "G%s"}}`, id, id)
		}
		fmt.Fprint(w, "["+strings.Join(parts, ",")+"]")
	}))
	defer server.Close()

	client, err := NewMyVariantClient(MyVariantConfig{
		BaseURL:   server.URL,
		RateLimit: 100,
		BatchSize: 2,
	}, quietLogger())
	require.NoError(t, err)

	result, err := client.AnnotateRSIDs(context.Background(), []string{"rs1", "rs2", "rs3", "rs4", "rs5"})
	require.NoError(t, err)
	assert.Len(t, result, 5)
	mu.Lock()
	assert.Equal(t, []int{2, 2, 1}, batches)
	mu.Unlock()
	assert.Equal(t, "GRS3", result["rs3"].Gene)
}

func TestMyVariantClient_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewMyVariantClient(MyVariantConfig{BaseURL: server.URL, RateLimit: 100}, quietLogger())
	require.NoError(t, err)

	_, err = client.AnnotateRSIDs(context.Background(), []string{"rs1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestMyVariantClient_EmptyInput(t *testing.T) {
	client, err := NewMyVariantClient(MyVariantConfig{BaseURL: "http://127.0.0.1:0"}, quietLogger())
	require.NoError(t, err)

	result, err := client.AnnotateRSIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result)
}
