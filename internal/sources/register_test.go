package sources

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
	"github.com/aqueducts-go/aqueducts/internal/progress"
	"github.com/aqueducts-go/aqueducts/internal/sqlctx"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

func newSession(t *testing.T) *sqlctx.Session {
	t.Helper()
	session, err := sqlctx.Open(context.Background(), sqlctx.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func TestRegisterInMemory_RequiresPreRegisteredTable(t *testing.T) {
	ctx := context.Background()
	session := newSession(t)

	src := aqmodel.Source{Kind: aqmodel.SourceInMemory, Name: "widgets"}
	err := RegisterAll(ctx, session, []aqmodel.Source{src}, progress.Null{})
	require.Error(t, err)

	var srcErr *aqerr.SourceError
	require.ErrorAs(t, err, &srcErr)
	require.Equal(t, "not_found", srcErr.Kind)
}

func TestRegisterInMemory_SucceedsWhenAlreadyPresent(t *testing.T) {
	ctx := context.Background()
	session := newSession(t)
	require.NoError(t, session.RegisterTableAs(ctx, sqlctx.KindSourceTable, "widgets", "SELECT 1 AS id"))

	src := aqmodel.Source{Kind: aqmodel.SourceInMemory, Name: "widgets"}
	require.NoError(t, RegisterAll(ctx, session, []aqmodel.Source{src}, progress.Null{}))

	n, err := session.RowCount(ctx, "widgets")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestRegisterFile_CsvRegistersView(t *testing.T) {
	ctx := context.Background()
	session := newSession(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name\n1,a\n2,b\n"), 0o644))

	src := aqmodel.Source{
		Kind:     aqmodel.SourceFile,
		Name:     "orders",
		Location: path,
		Format:   aqmodel.FileFormat{Kind: aqmodel.FormatCsv, HasHeader: true},
	}
	require.NoError(t, RegisterAll(ctx, session, []aqmodel.Source{src}, progress.Null{}))

	n, err := session.RowCount(ctx, "orders")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}

func TestRegisterFile_DeclaredSchemaCoercesAndSurvivesProbeScope(t *testing.T) {
	ctx := context.Background()
	session := newSession(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,amount\n1,10\n2,20\n"), 0o644))

	src := aqmodel.Source{
		Kind:     aqmodel.SourceFile,
		Name:     "orders",
		Location: path,
		Format: aqmodel.FileFormat{
			Kind:      aqmodel.FormatCsv,
			HasHeader: true,
			Schema: []aqmodel.Field{
				{Name: "id", Type: aqmodel.Primitive(aqmodel.KindInt64), Nullable: true},
				{Name: "amount", Type: aqmodel.Primitive(aqmodel.KindFloat64), Nullable: true},
			},
		},
	}
	require.NoError(t, RegisterAll(ctx, session, []aqmodel.Source{src}, progress.Null{}))

	n, err := session.RowCount(ctx, "orders")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	fields, err := session.TableSchema(ctx, "orders")
	require.NoError(t, err)
	require.Len(t, fields, 2)
	require.Equal(t, "amount", fields[1].Name)
	require.True(t, fields[1].Type.Equal(aqmodel.Primitive(aqmodel.KindFloat64)))

	// querying twice proves the registered view does not depend on a
	// probe that only lived for the duration of registration.
	n, err = session.RowCount(ctx, "orders")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}

func TestRegisterFile_DeclaredSchemaTwoSourcesDoNotCollide(t *testing.T) {
	ctx := context.Background()
	session := newSession(t)

	dir := t.TempDir()
	writeCSV := func(name, contents string) aqmodel.Source {
		path := filepath.Join(dir, name+".csv")
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
		return aqmodel.Source{
			Kind:     aqmodel.SourceFile,
			Name:     name,
			Location: path,
			Format: aqmodel.FileFormat{
				Kind:      aqmodel.FormatCsv,
				HasHeader: true,
				Schema: []aqmodel.Field{
					{Name: "id", Type: aqmodel.Primitive(aqmodel.KindInt64), Nullable: true},
				},
			},
		}
	}

	first := writeCSV("first", "id\n1\n")
	second := writeCSV("second", "id\n1\n2\n3\n")
	require.NoError(t, RegisterAll(ctx, session, []aqmodel.Source{first, second}, progress.Null{}))

	n, err := session.RowCount(ctx, "first")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = session.RowCount(ctx, "second")
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
}

func TestRegisterAll_StopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	session := newSession(t)

	good := aqmodel.Source{Kind: aqmodel.SourceInMemory, Name: "good"}
	require.NoError(t, session.RegisterTableAs(ctx, sqlctx.KindSourceTable, "good", "SELECT 1"))

	bad := aqmodel.Source{Kind: aqmodel.SourceInMemory, Name: "missing"}
	err := RegisterAll(ctx, session, []aqmodel.Source{good, bad}, progress.Null{})
	require.Error(t, err)

	require.Len(t, session.Registrations(), 1)
}
