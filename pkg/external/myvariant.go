package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/geneguard-server/internal/domain"
)

const (
	defaultMyVariantURL   = "https://myvariant.info"
	defaultMyVariantBatch = 1000
	myVariantFields       = "gene.symbol,dbsnp.gene.symbol,snpeff.ann.impact"
)

// MyVariantConfig represents configuration for the MyVariant.info client
type MyVariantConfig struct {
	BaseURL        string               `json:"base_url"`
	Timeout        time.Duration        `json:"timeout"`
	RateLimit      int                  `json:"rate_limit"` // requests per second
	BatchSize      int                  `json:"batch_size"`
	CacheSize      int                  `json:"cache_size"`
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker"`
}

// MyVariantClient maps dbSNP rsIDs onto gene symbols through MyVariant.info
type MyVariantClient struct {
	baseURL    string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	batchSize  int
	cache      *lru.Cache
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

// myVariantHit is one element of the /v1/query response array.
// gene, dbsnp.gene and snpeff.ann may each be an object or a list.
type myVariantHit struct {
	Query    string          `json:"query"`
	NotFound bool            `json:"notfound"`
	Gene     json.RawMessage `json:"gene"`
	DBSNP    *struct {
		Gene json.RawMessage `json:"gene"`
	} `json:"dbsnp"`
	SnpEff *struct {
		Ann json.RawMessage `json:"ann"`
	} `json:"snpeff"`
}

type symbolRecord struct {
	Symbol string `json:"symbol"`
}

type annRecord struct {
	Impact   string `json:"impact"`
	Putative string `json:"putative_impact"`
}

// NewMyVariantClient creates a new MyVariant.info client
func NewMyVariantClient(config MyVariantConfig, logger *logrus.Logger) (*MyVariantClient, error) {
	if config.BaseURL == "" {
		config.BaseURL = defaultMyVariantURL
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5
	}
	if config.BatchSize <= 0 || config.BatchSize > defaultMyVariantBatch {
		config.BatchSize = defaultMyVariantBatch
	}
	if config.CacheSize <= 0 {
		config.CacheSize = 100000
	}

	cache, err := lru.New(config.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create rsID cache: %w", err)
	}

	return &MyVariantClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		batchSize: config.BatchSize,
		cache:     cache,
		breaker:   NewCircuitBreaker("MyVariant", config.CircuitBreaker, logger),
		logger:    logger,
	}, nil
}

// AnnotateRSIDs returns the gene mapping of every rsID MyVariant.info knows a
// gene symbol for. Unknown rsIDs are simply absent from the result.
func (c *MyVariantClient) AnnotateRSIDs(ctx context.Context, rsids []string) (map[string]domain.VariantAnnotation, error) {
	result := make(map[string]domain.VariantAnnotation, len(rsids))

	var pending []string
	seen := make(map[string]struct{}, len(rsids))
	for _, id := range rsids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if cached, ok := c.cache.Get(id); ok {
			if ann := cached.(domain.VariantAnnotation); ann.Gene != "" {
				result[id] = ann
			}
			continue
		}
		pending = append(pending, id)
	}

	for start := 0; start < len(pending); start += c.batchSize {
		end := start + c.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		annotations, err := c.queryBatch(ctx, batch)
		if err != nil {
			return nil, err
		}

		for _, id := range batch {
			ann, ok := annotations[id]
			if !ok {
				// negative entry; the rsID has no gene mapping
				c.cache.Add(id, domain.VariantAnnotation{RSID: id})
				continue
			}
			c.cache.Add(id, ann)
			result[id] = ann
		}
	}

	c.logger.WithFields(logrus.Fields{
		"requested": len(rsids),
		"queried":   len(pending),
		"annotated": len(result),
	}).Debug("Annotated rsIDs")

	return result, nil
}

func (c *MyVariantClient) queryBatch(ctx context.Context, batch []string) (map[string]domain.VariantAnnotation, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, batch)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("MyVariant service unavailable (circuit breaker open): %w", err)
		}
		return nil, fmt.Errorf("MyVariant query failed: %w", err)
	}
	return out.(map[string]domain.VariantAnnotation), nil
}

func (c *MyVariantClient) post(ctx context.Context, batch []string) (map[string]domain.VariantAnnotation, error) {
	form := url.Values{}
	form.Set("q", strings.Join(batch, ","))
	form.Set("scopes", "dbsnp.rsid")
	form.Set("fields", myVariantFields)
	form.Set("species", "human")
	form.Set("size", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/query", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("MyVariant API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var hits []myVariantHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return nil, fmt.Errorf("failed to decode MyVariant response: %w", err)
	}

	return parseHits(hits), nil
}

// parseHits keeps the first hit per query that resolves to a gene symbol
func parseHits(hits []myVariantHit) map[string]domain.VariantAnnotation {
	out := make(map[string]domain.VariantAnnotation, len(hits))
	for _, hit := range hits {
		if hit.NotFound || hit.Query == "" {
			continue
		}
		if _, done := out[hit.Query]; done {
			continue
		}

		symbol := firstSymbol(hit.Gene)
		if symbol == "" && hit.DBSNP != nil {
			symbol = firstSymbol(hit.DBSNP.Gene)
		}
		symbol = domain.NormalizeGeneSymbol(symbol)
		if symbol == "" {
			continue
		}

		var impact domain.VariantImpact
		if hit.SnpEff != nil {
			impact = firstImpact(hit.SnpEff.Ann)
		}

		out[hit.Query] = domain.VariantAnnotation{
			RSID:   hit.Query,
			Gene:   symbol,
			Impact: impact,
		}
	}
	return out
}

func firstSymbol(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var one symbolRecord
	if err := json.Unmarshal(raw, &one); err == nil {
		return one.Symbol
	}
	var many []symbolRecord
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return many[0].Symbol
	}
	return ""
}

func firstImpact(raw json.RawMessage) domain.VariantImpact {
	if len(raw) == 0 {
		return domain.ImpactUnknown
	}
	var rec annRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		var many []annRecord
		if err := json.Unmarshal(raw, &many); err != nil || len(many) == 0 {
			return domain.ImpactUnknown
		}
		rec = many[0]
	}
	impact := rec.Impact
	if impact == "" {
		impact = rec.Putative
	}
	return domain.VariantImpact(strings.ToUpper(strings.TrimSpace(impact)))
}
