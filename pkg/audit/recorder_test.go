package audit

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcforms/formgate/pkg/contextkeys"
	"github.com/bcforms/formgate/pkg/observability"
	"github.com/bcforms/formgate/pkg/tokens"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			deleted_at TIMESTAMP
		);

		CREATE TABLE audit_logs (
			id TEXT PRIMARY KEY,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL,
			user_id TEXT,
			old_values TEXT,
			new_values TEXT,
			ip_address TEXT,
			user_agent TEXT,
			created_at TIMESTAMP NOT NULL,
			deleted_at TIMESTAMP
		);
	`)
	if err != nil {
		t.Fatalf("Failed to create test tables: %v", err)
	}

	return db
}

func insertTestUser(t *testing.T, db *sql.DB, id string) {
	t.Helper()

	now := time.Now().UTC()
	_, err := db.Exec(
		`INSERT INTO users (id, email, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		id, id+"@example.com", now, now,
	)
	require.NoError(t, err)
}

func newTestRecorder(t *testing.T, db *sql.DB) *Recorder {
	t.Helper()

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	recorder, err := NewRecorder(db, logger, nil)
	require.NoError(t, err)
	return recorder
}

func countEntries(t *testing.T, db *sql.DB) int {
	t.Helper()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM audit_logs`).Scan(&count))
	return count
}

func TestRecorder_Record(t *testing.T) {
	db := setupTestDB(t)
	recorder := newTestRecorder(t, db)
	ctx := context.Background()

	insertTestUser(t, db, "user-1")
	userID := "user-1"

	recorder.Record(ctx, Entry{
		EntityType: EntityTypeRole,
		EntityID:   "role-1",
		Action:     ActionUpdate,
		UserID:     &userID,
		OldValues:  map[string]interface{}{"description": "old"},
		NewValues:  map[string]interface{}{"description": "new"},
		IPAddress:  "192.0.2.1",
		UserAgent:  "test-agent",
	})

	entries, err := recorder.Search(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, EntityTypeRole, entry.EntityType)
	assert.Equal(t, "role-1", entry.EntityID)
	assert.Equal(t, ActionUpdate, entry.Action)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "user-1", *entry.UserID)
	assert.Equal(t, map[string]interface{}{"description": "old"}, entry.OldValues)
	assert.Equal(t, map[string]interface{}{"description": "new"}, entry.NewValues)
	assert.Equal(t, "192.0.2.1", entry.IPAddress)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestRecorder_UnknownUserIsSilentNoOp(t *testing.T) {
	db := setupTestDB(t)
	recorder := newTestRecorder(t, db)
	ctx := context.Background()

	userID := "no-such-user"
	recorder.Record(ctx, Entry{
		EntityType: EntityTypeRole,
		EntityID:   "role-1",
		Action:     ActionUpdate,
		UserID:     &userID,
	})

	assert.Zero(t, countEntries(t, db))
}

func TestRecorder_AnonymousEntryIsRecorded(t *testing.T) {
	db := setupTestDB(t)
	recorder := newTestRecorder(t, db)
	ctx := context.Background()

	recorder.Record(ctx, Entry{
		EntityType: EntityTypeAuth,
		EntityID:   "unknown",
		Action:     ActionLogin,
	})

	entries, err := recorder.Search(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].UserID)
}

func TestRecorder_UserTakenFromContextPrincipal(t *testing.T) {
	db := setupTestDB(t)
	recorder := newTestRecorder(t, db)

	insertTestUser(t, db, "user-1")
	principal := &tokens.Principal{Subject: "user-1"}
	ctx := context.WithValue(context.Background(), contextkeys.PrincipalKey, principal)

	recorder.Record(ctx, Entry{
		EntityType: EntityTypeRole,
		EntityID:   "role-1",
		Action:     ActionCreate,
	})

	entries, err := recorder.Search(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].UserID)
	assert.Equal(t, "user-1", *entries[0].UserID)
}

func TestRecorder_InsertFailureIsSwallowed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	recorder := newTestRecorder(t, db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnError(sql.ErrConnDone)

	userID := "user-1"

	// Must not panic or surface the failure.
	recorder.Record(context.Background(), Entry{
		EntityType: EntityTypeRole,
		EntityID:   "role-1",
		Action:     ActionUpdate,
		UserID:     &userID,
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecorder_UserLookupFailureIsSwallowed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	recorder := newTestRecorder(t, db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("user-1").
		WillReturnError(sql.ErrConnDone)

	userID := "user-1"
	recorder.Record(context.Background(), Entry{
		EntityType: EntityTypeRole,
		Action:     ActionUpdate,
		UserID:     &userID,
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRecorder_RequiresDB(t *testing.T) {
	_, err := NewRecorder(nil, nil, nil)
	assert.Error(t, err)
}
