// Package odbcsrc materialises an ODBC source eagerly into the session
// context, dispatching through database/sql's generic driver interface
// so the engine stays decoupled from any specific ODBC driver manager
// binding (none exists in this repository's dependency surface; a real
// deployment registers one under DriverName).
package odbcsrc

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
	"github.com/aqueducts-go/aqueducts/internal/sqlctx"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

// DriverName is the database/sql driver name an ODBC source connects
// through. Override via SetDriverName if a deployment registers a
// different generic driver (e.g. a vendor-specific ODBC bridge).
var DriverName = "odbc"

// SetDriverName overrides DriverName for the process, allowing a
// deployment to point every ODBC source at whichever database/sql
// driver it has registered.
func SetDriverName(name string) { DriverName = name }

// Opener abstracts sql.Open so tests can substitute go-sqlmock's driver
// without a real ODBC driver manager installed.
type Opener func(driverName, dataSourceName string) (*sql.DB, error)

var opener Opener = sql.Open

// SetOpener overrides the Opener used by Register, for tests.
func SetOpener(o Opener) { opener = o }

// Register opens src's connection string, issues its load_query, and
// eagerly materialises the full result as a table named src.Name in
// session. The connection is closed before returning, successfully or
// not; the registrar does not hold a live ODBC connection for the
// lifetime of the run.
func Register(ctx context.Context, session *sqlctx.Session, src aqmodel.Source) error {
	db, err := opener(DriverName, src.ConnectionString)
	if err != nil {
		return aqerr.NewSourceError(src.Name, "odbc", fmt.Sprintf("opening odbc connection for source %q: %s", src.Name, scrub(err.Error(), src.ConnectionString)), nil)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, src.LoadQuery)
	if err != nil {
		return aqerr.NewSourceError(src.Name, "odbc", fmt.Sprintf("running load_query for source %q: %s", src.Name, scrub(err.Error(), src.ConnectionString)), nil)
	}
	defer rows.Close()

	cols, err := rows.ColumnTypes()
	if err != nil {
		return aqerr.NewSourceError(src.Name, "odbc", "reading odbc result column types", err)
	}

	ddl, err := createTableDDL(src.Name, cols)
	if err != nil {
		return aqerr.NewSourceError(src.Name, "odbc", "deriving table schema from odbc result", err)
	}
	if err := session.Exec(ctx, ddl); err != nil {
		return aqerr.NewSourceError(src.Name, "odbc", "creating in-memory table for odbc source", err)
	}

	insertStmt, err := session.DB().PrepareContext(ctx, insertSQL(src.Name, len(cols)))
	if err != nil {
		return aqerr.NewSourceError(src.Name, "odbc", "preparing insert for odbc source", err)
	}
	defer insertStmt.Close()

	scanDest := make([]any, len(cols))
	scanPtrs := make([]any, len(cols))
	for i := range scanDest {
		scanPtrs[i] = &scanDest[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanPtrs...); err != nil {
			return aqerr.NewSourceError(src.Name, "odbc", "scanning odbc result row", err)
		}
		if _, err := insertStmt.ExecContext(ctx, scanDest...); err != nil {
			return aqerr.NewSourceError(src.Name, "odbc", "materialising odbc row", err)
		}
	}
	if err := rows.Err(); err != nil {
		return aqerr.NewSourceError(src.Name, "odbc", "iterating odbc result", err)
	}

	session.MarkRegistered(sqlctx.KindSourceTable, src.Name)
	return nil
}

func createTableDDL(table string, cols []*sql.ColumnType) (string, error) {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%q %s", c.Name(), duckTypeFor(c))
	}
	return fmt.Sprintf("CREATE OR REPLACE TABLE %q (%s)", table, strings.Join(defs, ", ")), nil
}

func insertSQL(table string, n int) string {
	placeholders := make([]string, n)
	for i := range placeholders {
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %q VALUES (%s)", table, strings.Join(placeholders, ", "))
}

// duckTypeFor maps a database/sql reported column type to the closest
// DuckDB column type, defaulting to VARCHAR for anything unrecognised
// since ODBC drivers report type names inconsistently across backends.
func duckTypeFor(c *sql.ColumnType) string {
	switch strings.ToUpper(c.DatabaseTypeName()) {
	case "INT", "INTEGER", "INT4":
		return "INTEGER"
	case "BIGINT", "INT8":
		return "BIGINT"
	case "SMALLINT", "INT2":
		return "SMALLINT"
	case "FLOAT", "REAL", "FLOAT4":
		return "FLOAT"
	case "DOUBLE", "FLOAT8", "DOUBLE PRECISION":
		return "DOUBLE"
	case "BOOL", "BOOLEAN":
		return "BOOLEAN"
	case "DATE":
		return "DATE"
	case "TIMESTAMP", "DATETIME":
		return "TIMESTAMP"
	case "DECIMAL", "NUMERIC":
		return "DECIMAL(38,9)"
	default:
		return "VARCHAR"
	}
}

// scrub redacts connStr from msg per the secret-handling rule: any
// error carrying an ODBC connection string must not leak it.
func scrub(msg, connStr string) string {
	if connStr == "" {
		return msg
	}
	return strings.ReplaceAll(msg, connStr, "<redacted>")
}
