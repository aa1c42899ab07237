// Package runner implements the C8 pipeline runner: it owns a run's
// session context end to end, driving source registration, stage
// execution and the destination write, with guaranteed teardown and a
// panic-safe, exactly-once terminal event.
package runner

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
	"github.com/aqueducts-go/aqueducts/internal/destwriter"
	"github.com/aqueducts-go/aqueducts/internal/progress"
	"github.com/aqueducts-go/aqueducts/internal/sources"
	"github.com/aqueducts-go/aqueducts/internal/sqlctx"
	"github.com/aqueducts-go/aqueducts/internal/stageexec"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

// Result is what Run returns on success: the run's generated ID and the
// name of the final dataset registered in the session (empty if the
// pipeline declared no stages).
type Result struct {
	RunID       string
	OutputTable string
}

// Run drives source registration, stage execution and the optional
// destination write for one pipeline over a fresh DuckDB session,
// tearing the session down on every exit path and reporting exactly
// one terminal event (Completed, Failed or Cancelled) to tracker.
func Run(ctx context.Context, pipeline aqmodel.Pipeline, cfg sqlctx.Config, tracker progress.Tracker) (Result, error) {
	if tracker == nil {
		tracker = progress.Null{}
	}
	runID := uuid.NewString()

	session, err := sqlctx.Open(ctx, cfg)
	if err != nil {
		if ctx.Err() != nil {
			tracker.OnEvent(progress.Event{Kind: progress.EventCancelled, RunID: runID})
			return Result{RunID: runID}, aqerr.NewCancelledError(runID)
		}
		err = aqerr.NewInternalError("session_open", err)
		tracker.OnEvent(progress.Event{Kind: progress.EventFailed, RunID: runID, ErrorCategory: aqerr.Category(err), Message: err.Error()})
		return Result{RunID: runID}, err
	}
	defer func() {
		errs := session.DeregisterAll(ctx)
		_ = errs // best-effort teardown; already logged by the session
		session.Close()
	}()

	result, err := runGuarded(ctx, session, pipeline, runID, tracker)

	switch {
	case err == nil:
		tracker.OnEvent(progress.Event{Kind: progress.EventCompleted, RunID: runID})
	case isCancelled(err):
		tracker.OnEvent(progress.Event{Kind: progress.EventCancelled, RunID: runID})
	default:
		tracker.OnEvent(progress.Event{Kind: progress.EventFailed, RunID: runID, ErrorCategory: aqerr.Category(err), Message: err.Error()})
	}
	return result, err
}

// runGuarded recovers any panic from the three execution phases and
// converts it into an InternalError, so a bug in one stage's SQL never
// takes down the host process running the executor service.
func runGuarded(ctx context.Context, session *sqlctx.Session, pipeline aqmodel.Pipeline, runID string, tracker progress.Tracker) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = aqerr.NewInternalError("runner", fmt.Errorf("panic: %v\n%s", r, debug.Stack()))
		}
	}()

	tracker.OnEvent(progress.Event{Kind: progress.EventStarted, RunID: runID})

	if len(pipeline.Stages) == 0 && pipeline.Destination != nil {
		return Result{RunID: runID}, aqerr.NewConfigError("empty_pipeline", "pipeline declares a destination but has no stages", nil)
	}

	if err := ctx.Err(); err != nil {
		return Result{RunID: runID}, aqerr.NewCancelledError(runID)
	}
	if err := sources.RegisterAll(ctx, session, pipeline.Sources, tracker); err != nil {
		return Result{RunID: runID}, err
	}

	outputTable, err := stageexec.Run(ctx, session, pipeline, tracker)
	if err != nil {
		return Result{RunID: runID}, err
	}

	if pipeline.Destination != nil {
		if err := ctx.Err(); err != nil {
			return Result{RunID: runID, OutputTable: outputTable}, aqerr.NewCancelledError(runID)
		}
		if err := destwriter.Write(ctx, session, outputTable, *pipeline.Destination, tracker); err != nil {
			return Result{RunID: runID, OutputTable: outputTable}, err
		}
	}

	return Result{RunID: runID, OutputTable: outputTable}, nil
}

func isCancelled(err error) bool {
	_, ok := err.(*aqerr.CancelledError)
	return ok
}
