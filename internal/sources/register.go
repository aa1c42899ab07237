// Package sources implements the C4 source registrar: dispatching on
// source kind to register a named table into the run's SQL session
// context, with LIFO teardown of everything registered once the run
// reaches a terminal state.
package sources

import (
	"context"
	"fmt"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
	"github.com/aqueducts-go/aqueducts/internal/deltatable"
	"github.com/aqueducts-go/aqueducts/internal/odbcsrc"
	"github.com/aqueducts-go/aqueducts/internal/progress"
	"github.com/aqueducts-go/aqueducts/internal/schema"
	"github.com/aqueducts-go/aqueducts/internal/sqlctx"
	"github.com/aqueducts-go/aqueducts/internal/storage"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

// RegisterAll registers every source in order, emitting SourceRegistered
// after each success. On the first failure it stops and the caller is
// expected to invoke session.DeregisterAll (the runner owns that
// LIFO-teardown responsibility for the whole run, not just sources).
func RegisterAll(ctx context.Context, session *sqlctx.Session, srcs []aqmodel.Source, tracker progress.Tracker) error {
	for _, src := range srcs {
		if err := registerOne(ctx, session, src); err != nil {
			return err
		}
		tracker.OnEvent(progress.Event{Kind: progress.EventSourceRegistered, SourceName: src.Name})
	}
	return nil
}

func registerOne(ctx context.Context, session *sqlctx.Session, src aqmodel.Source) error {
	switch src.Kind {
	case aqmodel.SourceInMemory:
		return registerInMemory(ctx, session, src)
	case aqmodel.SourceFile:
		return registerFile(ctx, session, src)
	case aqmodel.SourceDirectory:
		return registerDirectory(ctx, session, src)
	case aqmodel.SourceOdbc:
		return odbcsrc.Register(ctx, session, src)
	case aqmodel.SourceDelta:
		return registerDelta(ctx, session, src)
	default:
		return aqerr.NewSourceError(src.Name, "unsupported_scheme", fmt.Sprintf("unknown source kind %q", src.Kind), nil)
	}
}

func registerInMemory(ctx context.Context, session *sqlctx.Session, src aqmodel.Source) error {
	ok, err := session.HasTable(ctx, src.Name)
	if err != nil {
		return aqerr.NewSourceError(src.Name, "io", "checking for pre-registered in_memory table", err)
	}
	if !ok {
		return aqerr.NewSourceError(src.Name, "not_found", fmt.Sprintf("in_memory source %q must already be registered in the session", src.Name), nil)
	}
	session.MarkRegistered(sqlctx.KindSourceTable, src.Name)
	return nil
}

func registerFile(ctx context.Context, session *sqlctx.Session, src aqmodel.Source) error {
	handle, err := storage.Open(ctx, src.Location, src.StorageConfig)
	if err != nil {
		return err
	}
	path, err := handle.ResolvePath(src.Location)
	if err != nil {
		return aqerr.NewSourceError(src.Name, "io", "resolving file source location", err)
	}

	readExpr, err := readTableFunction(src.Format, path)
	if err != nil {
		return aqerr.NewSourceError(src.Name, "io", "building file reader expression", err)
	}

	query := fmt.Sprintf("SELECT * FROM %s", readExpr)
	if len(src.Format.Schema) > 0 {
		query, err = applyDeclaredSchema(ctx, session, readExpr, src.Format.Schema)
		if err != nil {
			return err
		}
	}

	if err := session.RegisterView(ctx, sqlctx.KindSourceTable, src.Name, query); err != nil {
		return aqerr.NewSourceError(src.Name, "io", "registering file source", err)
	}
	return nil
}

func registerDirectory(ctx context.Context, session *sqlctx.Session, src aqmodel.Source) error {
	handle, err := storage.Open(ctx, src.Location, src.StorageConfig)
	if err != nil {
		return err
	}
	path, err := handle.ResolvePath(src.Location)
	if err != nil {
		return aqerr.NewSourceError(src.Name, "io", "resolving directory source location", err)
	}

	readExpr, err := readDirectoryTableFunction(src.Format, path)
	if err != nil {
		return aqerr.NewSourceError(src.Name, "io", "building directory reader expression", err)
	}

	query := fmt.Sprintf("SELECT * FROM %s", readExpr)
	if err := session.RegisterView(ctx, sqlctx.KindSourceTable, src.Name, query); err != nil {
		return aqerr.NewSourceError(src.Name, "io", "registering directory source", err)
	}
	return nil
}

func registerDelta(ctx context.Context, session *sqlctx.Session, src aqmodel.Source) error {
	handle, err := storage.Open(ctx, src.Location, src.StorageConfig)
	if err != nil {
		return err
	}
	path, err := handle.ResolvePath(src.Location)
	if err != nil {
		return aqerr.NewSourceError(src.Name, "io", "resolving delta source location", err)
	}

	table, err := deltatable.Open(path, deltatable.OpenOptions{Version: src.Version, Timestamp: src.Timestamp})
	if err != nil {
		return err
	}
	if err := table.RegisterView(ctx, session, src.Name); err != nil {
		return aqerr.NewSourceError(src.Name, "delta", "registering delta source", err)
	}
	return nil
}

// applyDeclaredSchema wraps readExpr in a CAST-projecting SELECT so the
// registered view exposes the declared schema per §4.3's coercion
// rules, rather than whatever DuckDB inferred. It reflects readExpr's
// actual schema with DESCRIBE rather than registering a probe view:
// the coercion query it returns still references readExpr directly,
// so the source view created from it never depends on a name that
// could be dropped or collide with another source's probe.
func applyDeclaredSchema(ctx context.Context, session *sqlctx.Session, readExpr string, declared []aqmodel.Field) (string, error) {
	actual, err := session.DescribeQuery(ctx, fmt.Sprintf("SELECT * FROM %s", readExpr))
	if err != nil {
		return "", err
	}
	return schema.BuildCoercionQueryOverExpr(fmt.Sprintf("SELECT * FROM %s", readExpr), declared, actual)
}
