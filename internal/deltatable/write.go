package deltatable

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
	"github.com/aqueducts-go/aqueducts/internal/sqlctx"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

// writeDataFile materialises selectQuery's result as a new Parquet data
// file under location, named by the new version, and returns its
// path relative to location (as recorded in the commit log) together
// with the row count. An empty result writes no file and returns an
// empty path.
func writeDataFile(ctx context.Context, session *sqlctx.Session, location string, version int64, selectQuery string) (string, int64, error) {
	relPath := fmt.Sprintf("part-%020d.parquet", version)
	absPath := filepath.Join(location, relPath)

	countQuery := fmt.Sprintf("SELECT count(*) FROM (%s) t", selectQuery)
	var rowCount int64
	row := session.DB().QueryRowContext(ctx, countQuery)
	if err := row.Scan(&rowCount); err != nil {
		return "", 0, fmt.Errorf("counting rows for new data file: %w", err)
	}
	if rowCount == 0 {
		return "", 0, nil
	}

	copyStmt := fmt.Sprintf("COPY (%s) TO '%s' (FORMAT PARQUET)", selectQuery, strings.ReplaceAll(absPath, "'", "''"))
	if err := session.Exec(ctx, copyStmt); err != nil {
		return "", 0, fmt.Errorf("writing parquet data file: %w", err)
	}
	return relPath, rowCount, nil
}

// Append adds sourceTable's rows as new data files and commits a new
// version whose active file list is the prior version's plus the new
// file.
func (t *Table) Append(ctx context.Context, session *sqlctx.Session, sourceTable string) (int64, error) {
	nextVersion := t.Commit.Version + 1
	selectQuery := fmt.Sprintf("SELECT * FROM %q", sourceTable)

	relPath, rowCount, err := writeDataFile(ctx, session, t.Location, nextVersion, selectQuery)
	if err != nil {
		return 0, aqerr.NewDestinationError(sourceTable, "transaction_failed", "append write failed", err)
	}

	activeFiles := append(append([]string{}, t.Commit.ActiveFiles...), nonEmpty(relPath)...)
	c := Commit{
		Version:          nextVersion,
		Timestamp:        time.Now(),
		Operation:        "APPEND",
		ActiveFiles:      activeFiles,
		Schema:           t.Commit.Schema,
		PartitionColumns: t.Commit.PartitionColumns,
		TableProperties:  t.Commit.TableProperties,
	}
	if err := writeCommit(t.Location, c); err != nil {
		return 0, aqerr.NewDestinationError(sourceTable, "transaction_failed", "append commit failed", err)
	}
	t.Commit = c
	return rowCount, nil
}

// Upsert performs an equality-keyed merge: matched rows (by mergeKeys)
// are replaced entirely by the new row, unmatched existing rows are
// kept, and new rows with no match are inserted. The whole table is
// rewritten as a single new data file, which keeps the merge a plain
// SQL anti-join/union rather than requiring row-level file surgery.
func (t *Table) Upsert(ctx context.Context, session *sqlctx.Session, sourceTable string, mergeKeys []string) (int64, error) {
	if len(mergeKeys) == 0 {
		return 0, aqerr.NewConfigError("invalid_write_mode", "upsert requires a non-empty merge_keys", nil)
	}

	nextVersion := t.Commit.Version + 1
	currentView := fmt.Sprintf("__delta_current_%d", nextVersion)
	if err := t.RegisterView(ctx, session, currentView); err != nil {
		return 0, aqerr.NewDestinationError(sourceTable, "transaction_failed", "registering current table state", err)
	}
	defer session.Deregister(ctx, currentView)

	onClause := make([]string, len(mergeKeys))
	for i, k := range mergeKeys {
		onClause[i] = fmt.Sprintf("cur.%q = new.%q", k, k)
	}
	mergedQuery := fmt.Sprintf(
		`SELECT cur.* FROM %q cur LEFT JOIN %q new ON %s WHERE new.%q IS NULL
		 UNION ALL
		 SELECT new.* FROM %q new`,
		currentView, sourceTable, strings.Join(onClause, " AND "), mergeKeys[0], sourceTable,
	)

	relPath, rowCount, err := writeDataFile(ctx, session, t.Location, nextVersion, mergedQuery)
	if err != nil {
		return 0, aqerr.NewDestinationError(sourceTable, "transaction_failed", "upsert write failed", err)
	}

	c := Commit{
		Version:          nextVersion,
		Timestamp:        time.Now(),
		Operation:        "UPSERT",
		ActiveFiles:      nonEmpty(relPath),
		Schema:           t.Commit.Schema,
		PartitionColumns: t.Commit.PartitionColumns,
		TableProperties:  t.Commit.TableProperties,
	}
	if err := writeCommit(t.Location, c); err != nil {
		return 0, aqerr.NewDestinationError(sourceTable, "transaction_failed", "upsert commit failed", err)
	}
	t.Commit = c
	return rowCount, nil
}

// Replace deletes every existing row satisfying the conjunction of
// predicates, then appends sourceTable's rows, as one rewritten data
// file and one commit (equivalent, per the runtime's testable
// properties, to `delete where Q ; append D`).
func (t *Table) Replace(ctx context.Context, session *sqlctx.Session, sourceTable string, predicates []aqmodel.ReplaceCondition) (int64, error) {
	if len(predicates) == 0 {
		return 0, aqerr.NewConfigError("invalid_write_mode", "replace requires a non-empty predicates", nil)
	}

	nextVersion := t.Commit.Version + 1
	currentView := fmt.Sprintf("__delta_current_%d", nextVersion)
	if err := t.RegisterView(ctx, session, currentView); err != nil {
		return 0, aqerr.NewDestinationError(sourceTable, "transaction_failed", "registering current table state", err)
	}
	defer session.Deregister(ctx, currentView)

	conds := make([]string, len(predicates))
	for i, p := range predicates {
		conds[i] = fmt.Sprintf("%q = '%s'", p.Column, strings.ReplaceAll(p.Value, "'", "''"))
	}
	whereClause := strings.Join(conds, " AND ")

	mergedQuery := fmt.Sprintf(
		`SELECT * FROM %q WHERE NOT (%s)
		 UNION ALL
		 SELECT * FROM %q`,
		currentView, whereClause, sourceTable,
	)

	relPath, rowCount, err := writeDataFile(ctx, session, t.Location, nextVersion, mergedQuery)
	if err != nil {
		return 0, aqerr.NewDestinationError(sourceTable, "transaction_failed", "replace write failed", err)
	}

	c := Commit{
		Version:          nextVersion,
		Timestamp:        time.Now(),
		Operation:        "REPLACE",
		ActiveFiles:      nonEmpty(relPath),
		Schema:           t.Commit.Schema,
		PartitionColumns: t.Commit.PartitionColumns,
		TableProperties:  t.Commit.TableProperties,
	}
	if err := writeCommit(t.Location, c); err != nil {
		return 0, aqerr.NewDestinationError(sourceTable, "transaction_failed", "replace commit failed", err)
	}
	t.Commit = c
	return rowCount, nil
}

func nonEmpty(path string) []string {
	if path == "" {
		return nil
	}
	return []string{path}
}
