package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/geneguard-server/internal/database"
	"github.com/geneguard-server/internal/domain"
)

// generateTestPassword creates a random password for test databases
func generateTestPassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "test_fallback_password_123"
	}
	return "test_" + hex.EncodeToString(bytes)
}

func setupTestDB(t *testing.T) (*database.DB, func()) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()
	testPassword := generateTestPassword()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	config := database.ConfigFrom(domain.DatabaseConfig{
		Host:         host,
		Port:         port.Int(),
		Database:     "testdb",
		Username:     "testuser",
		Password:     testPassword,
		MaxOpenConns: 10,
		MaxIdleConns: 2,
	})

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	db, err := database.NewConnection(ctx, config, logger)
	if err != nil {
		t.Fatalf("Failed to create database connection: %v", err)
	}

	migrationRunner, err := database.NewMigrationRunner(config.URL(), "../../migrations", logger)
	if err != nil {
		t.Fatalf("Failed to create migration runner: %v", err)
	}
	if err := migrationRunner.Up(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		migrationRunner.Close()
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}

	return db, cleanup
}

func sampleAnalysis() *domain.Analysis {
	return &domain.Analysis{
		ID:        uuid.New().String(),
		Kind:      domain.AnalysisSingle,
		Disease:   domain.CHD,
		Filename:  "genome.txt",
		GeneCount: 3,
		Genes:     []string{"BRCA1", "MTHFR", "TP53"},
		Risks: []domain.RiskRow{
			{Gene: "BRCA1", Risk: 0.93, Rank: 1, Level: domain.LevelHigh, Tips: []string{"Walk daily"}},
			{Gene: "TP53", Risk: 0.88, Rank: 2, Level: domain.LevelHigh, Tips: []string{}},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestAnalysisRepository_CreateAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewAnalysisRepository(db.Pool, logger)

	ctx := context.Background()
	analysis := sampleAnalysis()
	require.NoError(t, repo.Create(ctx, analysis))

	got, err := repo.GetByID(ctx, analysis.ID)
	require.NoError(t, err)
	assert.Equal(t, analysis.ID, got.ID)
	assert.Equal(t, analysis.Kind, got.Kind)
	assert.Equal(t, analysis.Disease, got.Disease)
	assert.Equal(t, analysis.Genes, got.Genes)
	assert.Equal(t, analysis.Risks, got.Risks)
	assert.Empty(t, got.Candidates)
	assert.True(t, analysis.CreatedAt.Equal(got.CreatedAt))
}

func TestAnalysisRepository_RankedRoundTrip(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewAnalysisRepository(db.Pool, logger)

	ctx := context.Background()
	analysis := &domain.Analysis{
		Kind:      domain.AnalysisRanked,
		Filename:  "sample.vcf",
		GeneCount: 2,
		Genes:     []string{"APOE", "TCF7L2"},
		Candidates: []domain.DiseaseScore{
			{Disease: domain.Alzheimers, Score: 0.9, Risks: []domain.RiskRow{}},
			{Disease: domain.T2D, Score: 0.7, Risks: []domain.RiskRow{}},
		},
	}
	require.NoError(t, repo.Create(ctx, analysis))
	require.NotEmpty(t, analysis.ID)

	got, err := repo.GetByID(ctx, analysis.ID)
	require.NoError(t, err)
	assert.Equal(t, analysis.Candidates, got.Candidates)
}

func TestAnalysisRepository_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAnalysisRepository(db.Pool, logrus.New())
	ctx := context.Background()

	_, err := repo.GetByID(ctx, uuid.New().String())
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = repo.Delete(ctx, uuid.New().String())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestAnalysisRepository_ListAndDelete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewAnalysisRepository(db.Pool, logger)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	var ids []string
	for i := 0; i < 3; i++ {
		a := sampleAnalysis()
		a.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, a))
		ids = append(ids, a.ID)
	}

	recent, err := repo.ListRecent(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, ids[2], recent[0].ID)
	assert.Equal(t, ids[1], recent[1].ID)

	require.NoError(t, repo.Delete(ctx, ids[0]))
	_, err = repo.GetByID(ctx, ids[0])
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
