// Package stageexec implements the C5 stage executor: one errgroup per
// level, running every sub-stage in that level concurrently, materialising
// each stage's result into the session and reporting its progress.
package stageexec

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
	"github.com/aqueducts-go/aqueducts/internal/progress"
	"github.com/aqueducts-go/aqueducts/internal/sqlctx"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

const maxShowRowsPerBatch = 1000

// Run executes every level of stages in order, stopping at the first
// level that fails or the first cancellation check that trips. It
// returns the name of the final stage (the pipeline's output dataset)
// on success.
func Run(ctx context.Context, session *sqlctx.Session, pipeline aqmodel.Pipeline, tracker progress.Tracker) (string, error) {
	ttl := calculateTTL(pipeline)

	for levelIdx, level := range pipeline.Stages {
		if err := ctx.Err(); err != nil {
			return "", aqerr.NewCancelledError("")
		}
		if err := runLevel(ctx, session, levelIdx, level, tracker); err != nil {
			return "", err
		}
		deregisterExpired(ctx, session, ttl, levelIdx)
	}

	last, ok := pipeline.LastStage()
	if !ok {
		if pipeline.Destination != nil {
			return "", aqerr.NewConfigError("empty_pipeline", "pipeline declares a destination but has no stages to feed it", nil)
		}
		return "", nil
	}
	return last.Name, nil
}

func runLevel(ctx context.Context, session *sqlctx.Session, levelIdx int, level []aqmodel.Stage, tracker progress.Tracker) error {
	g, gctx := errgroup.WithContext(ctx)
	for subIdx, stage := range level {
		stage := stage
		subIdx := subIdx
		g.Go(func() error {
			return runStage(gctx, session, stage, levelIdx, subIdx, tracker)
		})
	}
	return g.Wait()
}

func runStage(ctx context.Context, session *sqlctx.Session, stage aqmodel.Stage, levelIdx, subIdx int, tracker progress.Tracker) error {
	if err := ctx.Err(); err != nil {
		return aqerr.NewCancelledError("")
	}

	tracker.OnEvent(progress.Event{
		Kind: progress.EventStageStarted, StageName: stage.Name, LevelIdx: levelIdx, SubIdx: subIdx,
	})
	start := time.Now()

	if stage.ExplainAnalyze || stage.Explain {
		planText, err := explainPlan(ctx, session, stage)
		if err != nil {
			return aqerr.NewDataProcessingError("compile", fmt.Sprintf("explaining stage %q", stage.Name), err)
		}
		tracker.OnEvent(progress.Event{Kind: progress.EventStagePlan, StageName: stage.Name, PlanText: planText})
	}

	if err := ctx.Err(); err != nil {
		return aqerr.NewCancelledError("")
	}

	if err := session.RegisterTableAs(ctx, sqlctx.KindStageTable, stage.Name, stage.Query); err != nil {
		kind := "execute"
		if strings.Contains(err.Error(), "Out of Memory") {
			kind = "memory_exhausted"
		}
		return aqerr.NewDataProcessingError(kind, fmt.Sprintf("materialising stage %q", stage.Name), err)
	}

	if stage.PrintSchema {
		schema, err := session.TableSchema(ctx, stage.Name)
		if err != nil {
			return aqerr.NewDataProcessingError("execute", fmt.Sprintf("reading schema of stage %q", stage.Name), err)
		}
		tracker.OnEvent(progress.Event{Kind: progress.EventStageOutputSchema, StageName: stage.Name, Schema: schema})
	}

	if stage.Show != nil {
		if err := ctx.Err(); err != nil {
			return aqerr.NewCancelledError("")
		}
		if err := emitRows(ctx, session, stage, tracker); err != nil {
			return err
		}
	}

	tracker.OnEvent(progress.Event{
		Kind: progress.EventStageCompleted, StageName: stage.Name, LevelIdx: levelIdx, SubIdx: subIdx,
		DurationMS: time.Since(start).Milliseconds(),
	})
	return nil
}

func explainPlan(ctx context.Context, session *sqlctx.Session, stage aqmodel.Stage) (string, error) {
	keyword := "EXPLAIN"
	if stage.ExplainAnalyze {
		keyword = "EXPLAIN ANALYZE"
	}
	rows, err := session.Query(ctx, fmt.Sprintf("%s %s", keyword, stage.Query))
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var plan string
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return "", err
		}
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", err
		}
		for _, v := range dest {
			if s, ok := v.(string); ok {
				plan += s + "\n"
			}
		}
	}
	return plan, rows.Err()
}

// emitRows delivers up to stage.Show rows (0 meaning unlimited) to the
// tracker in fixed-size batches, so an unlimited show on a large stage
// output never builds one unbounded in-memory slice before the first
// event fires.
func emitRows(ctx context.Context, session *sqlctx.Session, stage aqmodel.Stage, tracker progress.Tracker) error {
	limit := *stage.Show
	query := fmt.Sprintf("SELECT * FROM %q", stage.Name)
	if limit > 0 {
		query = fmt.Sprintf("SELECT * FROM %q LIMIT %d", stage.Name, limit)
	}

	rows, err := session.Query(ctx, query)
	if err != nil {
		return aqerr.NewDataProcessingError("execute", fmt.Sprintf("reading stage %q output", stage.Name), err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	batch := 0
	var pending [][]any
	flush := func() {
		if len(pending) == 0 {
			return
		}
		tracker.OnEvent(progress.Event{
			Kind: progress.EventStageOutputRows, StageName: stage.Name, Columns: cols, Rows: pending, Batch: batch,
		})
		batch++
		pending = nil
	}

	emitted := 0
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return aqerr.NewCancelledError("")
		}
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		pending = append(pending, dest)
		emitted++
		if len(pending) >= maxShowRowsPerBatch {
			flush()
		}
		if limit > 0 && emitted >= limit {
			break
		}
	}
	flush()
	return rows.Err()
}
