// Package destwriter implements the C6 destination writer: schema
// preflight followed by dispatch to the in-memory, file, Delta or ODBC
// write path.
package destwriter

import (
	"context"
	"fmt"
	"strings"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
	"github.com/aqueducts-go/aqueducts/internal/deltatable"
	"github.com/aqueducts-go/aqueducts/internal/odbcdst"
	"github.com/aqueducts-go/aqueducts/internal/progress"
	"github.com/aqueducts-go/aqueducts/internal/schema"
	"github.com/aqueducts-go/aqueducts/internal/sqlctx"
	"github.com/aqueducts-go/aqueducts/internal/storage"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

// Write coerces sourceTable to dest's effective schema and dispatches
// to the matching write path, emitting DestinationStarted/Progress/Completed.
func Write(ctx context.Context, session *sqlctx.Session, sourceTable string, dest aqmodel.Destination, tracker progress.Tracker) error {
	tracker.OnEvent(progress.Event{Kind: progress.EventDestinationStarted, DestinationName: dest.Name})

	coerced, err := preflight(ctx, session, sourceTable, dest)
	if err != nil {
		return err
	}

	var rowsWritten int64
	switch dest.Kind {
	case aqmodel.DestInMemory:
		rowsWritten, err = writeInMemory(ctx, session, coerced, dest)
	case aqmodel.DestFile:
		rowsWritten, err = writeFile(ctx, session, coerced, dest)
	case aqmodel.DestDelta:
		rowsWritten, err = writeDelta(ctx, session, coerced, dest)
	case aqmodel.DestOdbc:
		rowsWritten, err = writeOdbc(ctx, session, coerced, dest, tracker)
	default:
		err = aqerr.NewConfigError("invalid_destination", fmt.Sprintf("unsupported destination kind %q", dest.Kind), nil)
	}
	if err != nil {
		return err
	}

	tracker.OnEvent(progress.Event{Kind: progress.EventDestinationCompleted, DestinationName: dest.Name, RowsWritten: rowsWritten})
	return nil
}

// preflight computes the destination's effective schema, coerces
// sourceTable to it (registering a throwaway view when a cast is
// needed), and returns the name of the table/view to read from.
func preflight(ctx context.Context, session *sqlctx.Session, sourceTable string, dest aqmodel.Destination) (string, error) {
	actual, err := session.TableSchema(ctx, sourceTable)
	if err != nil {
		return "", aqerr.NewDestinationError(dest.Name, "io", "reading source dataset schema", err)
	}

	declared, err := effectiveSchema(ctx, session, sourceTable, dest, actual)
	if err != nil {
		return "", err
	}
	if declared == nil {
		return sourceTable, nil
	}

	query, err := schema.BuildCoercionQuery(sourceTable, declared, actual)
	if err != nil {
		return "", err
	}
	coercedName := "__coerced_" + dest.Name
	if err := session.RegisterView(ctx, sqlctx.KindStageTable, coercedName, query); err != nil {
		return "", aqerr.NewDestinationError(dest.Name, "io", "registering coerced destination view", err)
	}
	return coercedName, nil
}

// effectiveSchema returns the declared schema to coerce to, or nil when
// the destination imposes no schema of its own (File or Delta with no
// declared schema; an existing Delta table's schema is not consulted).
func effectiveSchema(ctx context.Context, session *sqlctx.Session, sourceTable string, dest aqmodel.Destination, actual []aqmodel.Field) ([]aqmodel.Field, error) {
	switch dest.Kind {
	case aqmodel.DestDelta:
		if len(dest.Schema) > 0 {
			return dest.Schema, nil
		}
		return nil, nil
	case aqmodel.DestFile:
		if len(dest.Format.Schema) > 0 {
			return dest.Format.Schema, nil
		}
		return nil, nil
	case aqmodel.DestOdbc:
		return nil, nil // internal/odbcdst probes the target's column names; no cast is applied
	default:
		return nil, nil
	}
}

func writeInMemory(ctx context.Context, session *sqlctx.Session, sourceTable string, dest aqmodel.Destination) (int64, error) {
	if err := session.RegisterTableAs(ctx, sqlctx.KindStageTable, dest.Name, fmt.Sprintf("SELECT * FROM %q", sourceTable)); err != nil {
		return 0, aqerr.NewDestinationError(dest.Name, "io", "registering in_memory destination", err)
	}
	return session.RowCount(ctx, dest.Name)
}

func writeFile(ctx context.Context, session *sqlctx.Session, sourceTable string, dest aqmodel.Destination) (int64, error) {
	handle, err := storage.Open(ctx, dest.Location, dest.StorageConfig)
	if err != nil {
		return 0, err
	}
	path, err := handle.ResolvePath(dest.Location)
	if err != nil {
		return 0, aqerr.NewDestinationError(dest.Name, "io", "resolving file destination location", err)
	}

	copyStmt, err := buildCopyStatement(sourceTable, path, dest)
	if err != nil {
		return 0, err
	}
	if err := session.Exec(ctx, copyStmt); err != nil {
		return 0, aqerr.NewDestinationError(dest.Name, "io", "writing file destination", err)
	}
	return session.RowCount(ctx, sourceTable)
}

func buildCopyStatement(sourceTable, path string, dest aqmodel.Destination) (string, error) {
	opts := []string{formatOption(dest.Format.Kind)}
	switch dest.Format.Kind {
	case aqmodel.FormatCsv:
		if dest.Format.HasHeader {
			opts = append(opts, "HEADER")
		}
		if dest.Format.Delimiter != "" {
			opts = append(opts, fmt.Sprintf("DELIMITER '%s'", strings.ReplaceAll(dest.Format.Delimiter, "'", "''")))
		}
	case aqmodel.FormatParquet:
		if codec, ok := dest.Format.Options["compression"]; ok {
			opts = append(opts, fmt.Sprintf("COMPRESSION '%s'", strings.ReplaceAll(codec, "'", "''")))
		}
	}
	if !dest.SingleFile && len(dest.PartitionColumns) > 0 {
		quoted := make([]string, len(dest.PartitionColumns))
		for i, c := range dest.PartitionColumns {
			quoted[i] = fmt.Sprintf("%q", c)
		}
		opts = append(opts, fmt.Sprintf("PARTITION_BY (%s)", strings.Join(quoted, ", ")))
	}
	return fmt.Sprintf("COPY (SELECT * FROM %q) TO '%s' (%s)",
		sourceTable, strings.ReplaceAll(path, "'", "''"), strings.Join(opts, ", ")), nil
}

func formatOption(kind aqmodel.FileFormatKind) string {
	switch kind {
	case aqmodel.FormatCsv:
		return "FORMAT CSV"
	case aqmodel.FormatJson:
		return "FORMAT JSON"
	default:
		return "FORMAT PARQUET"
	}
}

func writeDelta(ctx context.Context, session *sqlctx.Session, sourceTable string, dest aqmodel.Destination) (int64, error) {
	handle, err := storage.Open(ctx, dest.Location, dest.StorageConfig)
	if err != nil {
		return 0, err
	}
	path, err := handle.ResolvePath(dest.Location)
	if err != nil {
		return 0, aqerr.NewDestinationError(dest.Name, "io", "resolving delta destination location", err)
	}

	table, err := deltatable.Open(path, deltatable.OpenOptions{})
	if err != nil {
		srcErr, ok := err.(*aqerr.SourceError)
		if !ok || srcErr.Kind != "not_found" {
			return 0, err
		}
		table, err = deltatable.Create(path, dest.Schema, dest.PartitionColumns, dest.TableProperties)
		if err != nil {
			return 0, aqerr.NewDestinationError(dest.Name, "delta", "creating delta table", err)
		}
	}

	var rows int64
	switch dest.WriteMode.Kind {
	case aqmodel.WriteAppend:
		rows, err = table.Append(ctx, session, sourceTable)
	case aqmodel.WriteUpsert:
		if len(dest.WriteMode.MergeKeys) == 0 {
			return 0, aqerr.NewConfigError("invalid_write_mode", fmt.Sprintf("delta destination %q: upsert requires merge_keys", dest.Name), nil)
		}
		rows, err = table.Upsert(ctx, session, sourceTable, dest.WriteMode.MergeKeys)
	case aqmodel.WriteReplace:
		if len(dest.WriteMode.Predicates) == 0 {
			return 0, aqerr.NewConfigError("invalid_write_mode", fmt.Sprintf("delta destination %q: replace requires predicates", dest.Name), nil)
		}
		rows, err = table.Replace(ctx, session, sourceTable, dest.WriteMode.Predicates)
	default:
		return 0, aqerr.NewConfigError("invalid_write_mode", fmt.Sprintf("delta destination %q: unsupported write_mode %q", dest.Name, dest.WriteMode.Kind), nil)
	}
	if err != nil {
		return 0, aqerr.NewDestinationError(dest.Name, "delta", "writing delta table", err)
	}
	return rows, nil
}

func writeOdbc(ctx context.Context, session *sqlctx.Session, sourceTable string, dest aqmodel.Destination, tracker progress.Tracker) (int64, error) {
	return odbcdst.Write(ctx, session, sourceTable, dest, func(rowsWritten int64) {
		tracker.OnEvent(progress.Event{Kind: progress.EventDestinationProgress, DestinationName: dest.Name, RowsWritten: rowsWritten})
	})
}
