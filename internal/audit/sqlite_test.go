package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	return store
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "audit.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_Record(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	entry := &Entry{
		Action:       ActionAnalysisCreate,
		ResourceType: ResourceAnalysis,
		ResourceID:   "a1b2c3",
		Details:      "disease=T2D genes=12",
	}

	err := store.Record(context.Background(), entry)
	require.NoError(t, err)
	assert.NotZero(t, entry.ID)
	assert.Equal(t, "anonymous", entry.Actor)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestSQLiteStore_ListAndCount(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, action := range []string{ActionAnalysisCreate, ActionAnalysisRead, ActionAnalysisExport} {
		require.NoError(t, store.Record(ctx, &Entry{
			Actor:        "10.0.0.1",
			Action:       action,
			ResourceType: ResourceAnalysis,
			ResourceID:   "id-1",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	entries, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionAnalysisExport, entries[0].Action)
	assert.Equal(t, ActionAnalysisRead, entries[1].Action)
	assert.Equal(t, "id-1", entries[0].ResourceID)

	rest, err := store.List(ctx, 10, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, ActionAnalysisCreate, rest[0].Action)
}

func TestSQLiteStore_EmptyOptionalFields(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Record(ctx, &Entry{Action: "diseases.list", ResourceType: "disease"}))

	entries, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].ResourceID)
	assert.Empty(t, entries[0].Details)
}
