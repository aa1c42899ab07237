package progress

import (
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Logging forwards every event to a structured logger, and additionally
// renders StageOutputRows as a table the way the CLI's `run` command
// does for a terminal attached to stdout.
type Logging struct {
	Logger *slog.Logger
	// RenderOutput, when true, also writes StageOutputRows as a go-pretty
	// table to Writer, in addition to logging a summary.
	RenderOutput bool
	Writer       interface{ Write([]byte) (int, error) }
}

func (l Logging) OnEvent(e Event) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch e.Kind {
	case EventStarted:
		logger.Info("pipeline started", "run_id", e.RunID)
	case EventSourceRegistered:
		logger.Info("source registered", "name", e.SourceName)
	case EventStageStarted:
		logger.Info("stage started", "name", e.StageName, "level", e.LevelIdx, "sub", e.SubIdx)
	case EventStageCompleted:
		logger.Info("stage completed", "name", e.StageName, "level", e.LevelIdx, "sub", e.SubIdx, "duration_ms", e.DurationMS)
	case EventStageOutputSchema:
		logger.Info("stage schema", "name", e.StageName, "fields", len(e.Schema))
	case EventStagePlan:
		logger.Info("stage plan", "name", e.StageName, "plan", e.PlanText)
	case EventStageOutputRows:
		logger.Info("stage output", "name", e.StageName, "batch", e.Batch, "rows", len(e.Rows))
		if l.RenderOutput && l.Writer != nil {
			l.renderTable(e)
		}
	case EventDestinationStarted:
		logger.Info("destination started", "name", e.DestinationName)
	case EventDestinationProgress:
		logger.Info("destination progress", "name", e.DestinationName, "rows_written", e.RowsWritten)
	case EventDestinationCompleted:
		logger.Info("destination completed", "name", e.DestinationName, "rows_written", e.RowsWritten)
	case EventCompleted:
		logger.Info("pipeline completed", "run_id", e.RunID)
	case EventFailed:
		logger.Error("pipeline failed", "run_id", e.RunID, "category", e.ErrorCategory, "message", e.Message)
	case EventCancelled:
		logger.Warn("pipeline cancelled", "run_id", e.RunID)
	case EventQueuePosition:
		logger.Info("queue position", "run_id", e.RunID, "position", e.Position)
	}
}

func (l Logging) renderTable(e Event) {
	tw := table.NewWriter()
	tw.SetOutputMirror(l.Writer)
	header := make(table.Row, len(e.Columns))
	for i, c := range e.Columns {
		header[i] = c
	}
	tw.AppendHeader(header)
	for _, r := range e.Rows {
		row := make(table.Row, len(r))
		copy(row, r)
		tw.AppendRow(row)
	}
	tw.Render()
}

var _ Tracker = Logging{}
