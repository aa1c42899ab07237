// Package odbcdst writes a session table out to an ODBC destination,
// honouring the Append and Custom write modes over a single
// database/sql transaction, grounded on the same generic driver seam as
// internal/odbcsrc.
package odbcdst

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
	"github.com/aqueducts-go/aqueducts/internal/sqlctx"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

var DriverName = "odbc"

func SetDriverName(name string) { DriverName = name }

type Opener func(driverName, dataSourceName string) (*sql.DB, error)

var opener Opener = sql.Open

func SetOpener(o Opener) { opener = o }

// ProgressFunc is invoked with the cumulative row count each time
// another batch of rows has been inserted, and once more after the
// single transaction commits.
type ProgressFunc func(rowsWritten int64)

// Write streams sourceTable's rows to dest, in chunks of
// dest.EffectiveBatchSize(), honouring Append or Custom write mode
// inside a single transaction. A failed transaction is rolled back in
// full and surfaced as a DestinationError with Kind "transaction_failed".
func Write(ctx context.Context, session *sqlctx.Session, sourceTable string, dest aqmodel.Destination, onProgress ProgressFunc) (int64, error) {
	db, err := opener(DriverName, dest.ConnectionString)
	if err != nil {
		return 0, aqerr.NewDestinationError(dest.Name, "odbc", "opening odbc connection: "+scrub(err.Error(), dest.ConnectionString), nil)
	}
	defer db.Close()

	cols, err := probeColumns(ctx, db, dest)
	if err != nil {
		return 0, aqerr.NewDestinationError(dest.Name, "odbc", "probing destination table columns", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, aqerr.NewDestinationError(dest.Name, "transaction_failed", "beginning odbc transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var insertSQL string
	switch dest.WriteMode.Kind {
	case aqmodel.WriteAppend:
		insertSQL = buildInsert(dest.Name, cols)
	case aqmodel.WriteCustom:
		if dest.WriteMode.PreInsert != nil {
			if _, err := tx.ExecContext(ctx, *dest.WriteMode.PreInsert); err != nil {
				return 0, aqerr.NewDestinationError(dest.Name, "transaction_failed", "executing pre_insert statement", err)
			}
		}
		insertSQL = dest.WriteMode.Insert
	default:
		return 0, aqerr.NewConfigError("invalid_write_mode", fmt.Sprintf("odbc destination %q: unsupported write_mode %q", dest.Name, dest.WriteMode.Kind), nil)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return 0, aqerr.NewDestinationError(dest.Name, "transaction_failed", "preparing insert statement", err)
	}
	defer stmt.Close()

	rows, err := session.Query(ctx, fmt.Sprintf("SELECT * FROM %q", sourceTable))
	if err != nil {
		return 0, aqerr.NewDestinationError(dest.Name, "odbc", "reading source table", err)
	}
	defer rows.Close()

	colNames, err := rows.Columns()
	if err != nil {
		return 0, aqerr.NewDestinationError(dest.Name, "odbc", "reading source columns", err)
	}
	scanDest := make([]any, len(colNames))
	scanPtrs := make([]any, len(colNames))
	for i := range scanDest {
		scanPtrs[i] = &scanDest[i]
	}

	batchSize := dest.EffectiveBatchSize()
	var total int64
	inBatch := 0
	for rows.Next() {
		if err := rows.Scan(scanPtrs...); err != nil {
			return 0, aqerr.NewDestinationError(dest.Name, "odbc", "scanning source row", err)
		}
		if _, err := stmt.ExecContext(ctx, scanDest...); err != nil {
			return 0, aqerr.NewDestinationError(dest.Name, "transaction_failed", "executing insert", err)
		}
		total++
		inBatch++
		if inBatch >= batchSize {
			if onProgress != nil {
				onProgress(total)
			}
			inBatch = 0
		}
	}
	if err := rows.Err(); err != nil {
		return 0, aqerr.NewDestinationError(dest.Name, "odbc", "iterating source rows", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, aqerr.NewDestinationError(dest.Name, "transaction_failed", "committing odbc transaction", err)
	}
	committed = true
	if onProgress != nil {
		onProgress(total)
	}
	return total, nil
}

func probeColumns(ctx context.Context, db *sql.DB, dest aqmodel.Destination) ([]string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s WHERE 1=0", dest.Name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rows.Columns()
}

func buildInsert(table string, cols []string) string {
	placeholders := make([]string, len(cols))
	quoted := make([]string, len(cols))
	for i, c := range cols {
		placeholders[i] = "?"
		quoted[i] = c
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
}

func scrub(msg, connStr string) string {
	if connStr == "" {
		return msg
	}
	return strings.ReplaceAll(msg, connStr, "<redacted>")
}
