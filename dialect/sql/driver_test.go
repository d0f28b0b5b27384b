package sql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/scholar/dialect"
)

func TestWithVars(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.Postgres, db)
	mock.ExpectExec("SET app.tenant_id = 't1'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("RESET app.tenant_id").WillReturnResult(sqlmock.NewResult(0, 0))
	rows := &Rows{}
	err = drv.Query(WithVar(context.Background(), "app.tenant_id", "t1"), "SELECT 1", []any{}, rows)
	require.NoError(t, err)
	require.NoError(t, rows.Close(), "rows should be closed to release the connection")
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectBegin()
	mock.ExpectExec("SET app.tenant_id = 't2'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectCommit()
	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	err = tx.Query(WithVar(context.Background(), "app.tenant_id", "t2"), "SELECT 1", []any{}, rows)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectExec("SET app.tenant_id = 't3'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM students").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("RESET app.tenant_id").WillReturnResult(sqlmock.NewResult(0, 0))
	err = drv.Exec(WithVar(context.Background(), "app.tenant_id", "t3"), "DELETE FROM students", []any{}, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithVarsInvalidIdentifier(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.Postgres, db)

	rows := &Rows{}
	err = drv.Query(WithVar(context.Background(), "x; DROP TABLE students; --", "bar"), "SELECT 1", []any{}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session variable name")
}

func TestWithVarsEscapedValue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.Postgres, db)

	mock.ExpectExec("SET app.tenant_id = 'o''brien'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("RESET app.tenant_id").WillReturnResult(sqlmock.NewResult(0, 0))

	rows := &Rows{}
	err = drv.Query(WithVar(context.Background(), "app.tenant_id", "o'brien"), "SELECT 1", []any{}, rows)
	require.NoError(t, err)
	require.NoError(t, rows.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriverQueryExec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)

	t.Run("query_with_args", func(t *testing.T) {
		mock.ExpectQuery(`SELECT "first_name" FROM "students" WHERE "id" = \$1`).
			WithArgs("s1").
			WillReturnRows(sqlmock.NewRows([]string{"first_name"}).AddRow("Ada"))
		rows := &Rows{}
		err := drv.Query(context.Background(), `SELECT "first_name" FROM "students" WHERE "id" = $1`, []any{"s1"}, rows)
		require.NoError(t, err)
		require.True(t, rows.Next())
		var name string
		require.NoError(t, rows.Scan(&name))
		assert.Equal(t, "Ada", name)
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec_result", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "fees" SET "status" = \$1`).
			WithArgs("PAID").
			WillReturnResult(sqlmock.NewResult(0, 3))
		var res Result
		err := drv.Exec(context.Background(), `UPDATE "fees" SET "status" = $1`, []any{"PAID"}, &res)
		require.NoError(t, err)
		n, err := res.RowsAffected()
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid_args", func(t *testing.T) {
		err := drv.Exec(context.Background(), "SELECT 1", "not a slice", nil)
		require.Error(t, err)
		err = drv.Query(context.Background(), "SELECT 1", []any{}, new(int))
		require.Error(t, err)
	})

	t.Run("query_error", func(t *testing.T) {
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("database error"))
		err := drv.Query(context.Background(), "SELECT", []any{}, &Rows{})
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDriverTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.SQLite, db)

	t.Run("commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()
		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		require.NoError(t, tx.Exec(context.Background(), `INSERT INTO "tenants" DEFAULT VALUES`, []any{}, nil))
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin_wait_commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		tx, err := drv.BeginTxWait(context.Background(), time.Second, &TxOptions{})
		require.NoError(t, err)
		require.NoError(t, tx.Exec(context.Background(), `DELETE FROM "fees"`, []any{}, nil))
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin_wait_rollback", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()
		tx, err := drv.BeginTxWait(context.Background(), 0, nil)
		require.NoError(t, err)
		require.NoError(t, tx.Rollback())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin_error", func(t *testing.T) {
		mock.ExpectBegin().WillReturnError(errors.New("busy"))
		_, err := drv.BeginTxWait(context.Background(), time.Second, nil)
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBeginTxWaitExhaustedPool(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.SQLite, db)

	mock.ExpectBegin()
	mock.ExpectRollback()
	held, err := drv.BeginTxWait(context.Background(), 0, nil)
	require.NoError(t, err)

	_, err = drv.BeginTxWait(context.Background(), 20*time.Millisecond, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, held.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDialectMethod(t *testing.T) {
	for _, d := range []string{dialect.Postgres, dialect.MySQL, dialect.SQLite} {
		t.Run(d, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			assert.Equal(t, d, OpenDB(d, db).Dialect())
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"app_tenant", true},
		{"app.tenant_id", true},
		{"_private", true},
		{"", false},
		{"1abc", false},
		{"a b", false},
		{"a'b", false},
		{"a;DROP TABLE", false},
		{string(make([]byte, 129)), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, isValidIdentifier(tt.input), tt.input)
	}
}

func TestEscapeStringValue(t *testing.T) {
	assert.Equal(t, "plain", escapeStringValue("plain"))
	assert.Equal(t, "it''s", escapeStringValue("it's"))
	assert.Equal(t, `a\\b`, escapeStringValue(`a\b`))
	assert.Equal(t, "''; DROP TABLE students; --", escapeStringValue("'; DROP TABLE students; --"))
}
