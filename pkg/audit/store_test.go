package audit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(sqlmock.AnyArg(), "req-1", "u1", "PUT", "/organizations/org-1", 200, int64(42), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPostgresStore(db)
	err = store.Record(context.Background(), Entry{
		RequestID: "req-1",
		ActorID:   "u1",
		Method:    "PUT",
		Path:      "/organizations/org-1",
		Status:    200,
		Duration:  42 * time.Millisecond,
		Time:      now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindByActor(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	columns := []string{"id", "request_id", "actor_id", "method", "path", "status", "duration_ms", "creation_time"}
	mock.ExpectQuery("SELECT id, request_id, actor_id, method, path, status, duration_ms, creation_time").
		WithArgs("u1", 10).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("e1", "req-1", "u1", "POST", "/organizations", 201, int64(15), time.Now()))

	store := NewPostgresStore(db)
	entries, err := store.FindByActor(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "POST", entries[0].Method)
	assert.Equal(t, 15*time.Millisecond, entries[0].Duration)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, Entry{ActorID: "u1", Method: "POST", Path: "/organizations"}))
	require.NoError(t, store.Record(ctx, Entry{ActorID: "u2", Method: "DELETE", Path: "/organizations/org-1"}))
	require.NoError(t, store.Record(ctx, Entry{ActorID: "u1", Method: "PUT", Path: "/organizations/org-2"}))

	entries, err := store.FindByActor(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Most recent first.
	assert.Equal(t, "PUT", entries[0].Method)
	assert.Len(t, store.Entries(), 3)
}
