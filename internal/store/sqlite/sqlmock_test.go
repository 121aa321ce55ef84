package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeboard/internal/model"
	"tradeboard/internal/store"
)

func setupMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewWithDB(sqlx.NewDb(db, "sqlmock")), mock
}

func TestStore_CompaniesQueryError(t *testing.T) {
	st, mock := setupMockStore(t)
	boom := errors.New("disk on fire")

	mock.ExpectQuery("WITH importer_stats").WillReturnError(boom)

	_, err := st.Companies(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "aggregating companies")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ReplaceShipmentsRollsBackOnInsertError(t *testing.T) {
	st, mock := setupMockStore(t)
	boom := errors.New("constraint failed")

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM shipments").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectPrepare("INSERT INTO shipments").ExpectExec().WillReturnError(boom)
	mock.ExpectRollback()

	err := st.ReplaceShipments(context.Background(), "test", []model.Shipment{{ID: "x"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ReplaceShipmentsCommits(t *testing.T) {
	st, mock := setupMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM shipments").WillReturnResult(sqlmock.NewResult(0, 0))
	prepared := mock.ExpectPrepare("INSERT INTO shipments")
	prepared.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prepared.ExpectExec().WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("INSERT INTO dataset_loads").
		WithArgs("test", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := st.ReplaceShipments(context.Background(), "test", []model.Shipment{{ID: "a"}, {ID: "b"}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LastLoadMapsNoRows(t *testing.T) {
	st, mock := setupMockStore(t)

	mock.ExpectQuery("FROM dataset_loads").
		WillReturnRows(sqlmock.NewRows([]string{"source", "records", "loaded_at"}))

	_, err := st.LastLoad(context.Background())
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LastLoadRejectsBadTimestamp(t *testing.T) {
	st, mock := setupMockStore(t)

	mock.ExpectQuery("FROM dataset_loads").
		WillReturnRows(sqlmock.NewRows([]string{"source", "records", "loaded_at"}).AddRow("file", 3, "yesterday"))

	_, err := st.LastLoad(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}
