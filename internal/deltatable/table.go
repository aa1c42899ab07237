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

// Table is a handle onto one table's commit log, pinned to a specific
// version (the latest, unless time travel was requested at Open).
type Table struct {
	Location string
	Commit   Commit
}

// OpenOptions selects a version via the mutually-exclusive Version or
// Timestamp time-travel knobs; both nil means "latest".
type OpenOptions struct {
	Version   *int64
	Timestamp *string // RFC3339
}

// Open reads the commit log at location and pins Table to the
// requested version.
func Open(location string, opts OpenOptions) (*Table, error) {
	commits, err := readLog(location)
	if err != nil {
		return nil, err
	}
	if len(commits) == 0 {
		return nil, aqerr.NewSourceError("", "not_found", fmt.Sprintf("no delta table exists at %q", location), nil)
	}

	var c *Commit
	switch {
	case opts.Version != nil:
		c, err = latestAtVersion(commits, *opts.Version)
	case opts.Timestamp != nil:
		ts, perr := time.Parse(time.RFC3339, *opts.Timestamp)
		if perr != nil {
			return nil, aqerr.NewConfigError("invalid_timestamp", fmt.Sprintf("cannot parse delta timestamp %q", *opts.Timestamp), perr)
		}
		if ts.Before(commits[0].Timestamp) {
			return nil, aqerr.NewSourceError("", "delta", fmt.Sprintf("timestamp %s precedes the table's earliest version", ts.Format(time.RFC3339)), nil)
		}
		c, err = latestAtOrBeforeTime(commits, ts)
	default:
		c, err = latest(commits)
	}
	if err != nil {
		return nil, aqerr.NewSourceError("", "delta", err.Error(), err)
	}
	return &Table{Location: location, Commit: *c}, nil
}

// Create initialises a new table at location with version 0 and no
// data files.
func Create(location string, schema []aqmodel.Field, partitionColumns []string, tableProperties map[string]*string) (*Table, error) {
	if Exists(location) {
		return nil, fmt.Errorf("a delta table already exists at %q", location)
	}
	c := Commit{
		Version:          0,
		Timestamp:        time.Now(),
		Operation:        "CREATE TABLE",
		ActiveFiles:      nil,
		Schema:           schema,
		PartitionColumns: partitionColumns,
		TableProperties:  tableProperties,
	}
	if err := writeCommit(location, c); err != nil {
		return nil, err
	}
	return &Table{Location: location, Commit: c}, nil
}

// activeFileGlobs returns the absolute paths of this table's active
// Parquet files, suitable for DuckDB's read_parquet([...]) table
// function.
func (t *Table) activeFileGlobs() []string {
	out := make([]string, len(t.Commit.ActiveFiles))
	for i, f := range t.Commit.ActiveFiles {
		out[i] = filepath.Join(t.Location, f)
	}
	return out
}

// RegisterView registers this table's current state as a readable view
// named name in session.
func (t *Table) RegisterView(ctx context.Context, session *sqlctx.Session, name string) error {
	if len(t.Commit.ActiveFiles) == 0 {
		return session.RegisterTableAs(ctx, sqlctx.KindSourceTable, name, emptyTableSelect(t.Commit.Schema))
	}
	query := fmt.Sprintf("SELECT * FROM read_parquet(%s)", parquetFileListLiteral(t.activeFileGlobs()))
	return session.RegisterView(ctx, sqlctx.KindSourceTable, name, query)
}

func parquetFileListLiteral(paths []string) string {
	quoted := make([]string, len(paths))
	for i, p := range paths {
		quoted[i] = "'" + strings.ReplaceAll(p, "'", "''") + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func emptyTableSelect(fields []aqmodel.Field) string {
	if len(fields) == 0 {
		return "SELECT NULL WHERE false"
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("NULL::%s AS %q", duckTypeOrVarchar(f), f.Name)
	}
	return "SELECT " + strings.Join(parts, ", ") + " WHERE false"
}
