package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func newMockBlobStore(t *testing.T) (domain.BlobStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	return NewBlobStore(NewStore(db)), mock
}

func TestBlobStore_Get(t *testing.T) {
	store, mock := newMockBlobStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM kv_store WHERE key = $1")).
		WithArgs(domain.BlobKeySession).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"id":"1"}`)))

	got, err := store.Get(context.Background(), domain.BlobKeySession)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1"}`, string(got))
}

func TestBlobStore_GetMissing(t *testing.T) {
	store, mock := newMockBlobStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM kv_store")).
		WithArgs(domain.BlobKeyCart).
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), domain.BlobKeyCart)
	assert.ErrorIs(t, err, domain.ErrBlobNotFound)
}

func TestBlobStore_GetQueryError(t *testing.T) {
	store, mock := newMockBlobStore(t)
	boom := errors.New("connection reset")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM kv_store")).
		WithArgs(domain.BlobKeyOrders).
		WillReturnError(boom)

	_, err := store.Get(context.Background(), domain.BlobKeyOrders)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrBlobNotFound)
}

func TestBlobStore_PutUpserts(t *testing.T) {
	store, mock := newMockBlobStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO kv_store (key, value, updated_at)")).
		WithArgs(domain.BlobKeyOrders, []byte(`[]`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Put(context.Background(), domain.BlobKeyOrders, []byte(`[]`)))
}

func TestBlobStore_PutError(t *testing.T) {
	store, mock := newMockBlobStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO kv_store")).
		WillReturnError(errors.New("disk full"))

	err := store.Put(context.Background(), domain.BlobKeyOrders, []byte(`[]`))
	assert.ErrorContains(t, err, "upsert kv value")
}

func TestBlobStore_Delete(t *testing.T) {
	store, mock := newMockBlobStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM kv_store WHERE key = $1")).
		WithArgs(domain.BlobKeySession).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Delete(context.Background(), domain.BlobKeySession))
}

func TestStore_MigrationsRequireDSN(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	err = NewStore(db).MigrateUp(context.Background(), 0)
	assert.ErrorIs(t, err, errNoMigrationDSN)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("sql/migrations")
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{
		"0001_create_kv_store.down.sql",
		"0001_create_kv_store.up.sql",
	}, names)
}
