package odbcsrc

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/aqueducts-go/aqueducts/internal/sqlctx"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

func TestRegister_MaterialisesRows(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	rows := sqlmock.NewRows([]string{"id", "name"}).
		AddRow(int64(1), "a").
		AddRow(int64(2), "b")
	mock.ExpectQuery("SELECT id, name FROM widgets").WillReturnRows(rows)

	SetOpener(func(driverName, dsn string) (*sql.DB, error) { return mockDB, nil })
	defer SetOpener(sql.Open)

	ctx := context.Background()
	session, err := sqlctx.Open(ctx, sqlctx.Config{})
	require.NoError(t, err)
	defer session.Close()

	src := aqmodel.Source{
		Kind:             aqmodel.SourceOdbc,
		Name:             "widgets",
		ConnectionString: "dsn=test;pwd=secret",
		LoadQuery:        "SELECT id, name FROM widgets",
	}
	err = Register(ctx, session, src)
	require.NoError(t, err)

	n, err := session.RowCount(ctx, "widgets")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}
