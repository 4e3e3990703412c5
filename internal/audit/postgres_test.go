package audit

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

func TestPostgresStore_Record(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.Close()

	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO audit_log")).
		WithArgs("10.0.0.1", ActionAnalysisCreate, ResourceAnalysis, "abc", sqlmock.AnyArg(), created).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	entry := &Entry{
		Actor:        "10.0.0.1",
		Action:       ActionAnalysisCreate,
		ResourceType: ResourceAnalysis,
		ResourceID:   "abc",
		CreatedAt:    created,
	}
	require.NoError(t, store.Record(context.Background(), entry))
	assert.Equal(t, int64(42), entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordError(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.Close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO audit_log")).
		WillReturnError(errors.New("connection reset"))

	err := store.Record(context.Background(), &Entry{Action: ActionAnalysisRead, ResourceType: ResourceAnalysis})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPostgresStore_List(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "actor", "action", "resource_type", "resource_id", "details", "created_at"}).
		AddRow(int64(2), "anonymous", ActionAnalysisExport, ResourceAnalysis, "abc", nil, now).
		AddRow(int64(1), "anonymous", ActionAnalysisCreate, ResourceAnalysis, "abc", "disease=CHD", now.Add(-time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_log")).
		WithArgs(10, 0).
		WillReturnRows(rows)

	entries, err := store.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionAnalysisExport, entries[0].Action)
	assert.Empty(t, entries[0].Details)
	assert.Equal(t, "disease=CHD", entries[1].Details)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Count(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_log")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
}

func TestNewPostgresStore_NilDB(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}
