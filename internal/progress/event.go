// Package progress implements the C7 progress tracker: a sink interface
// invoked by the stage executor and destination writer at lifecycle
// points, plus Null/Logging/ChannelBridge implementations.
package progress

import "github.com/aqueducts-go/aqueducts/pkg/aqmodel"

// EventKind discriminates the closed set of tracker events.
type EventKind string

const (
	EventStarted            EventKind = "started"
	EventSourceRegistered    EventKind = "source_registered"
	EventStageStarted        EventKind = "stage_started"
	EventStageOutputRows     EventKind = "stage_output_rows"
	EventStageOutputSchema   EventKind = "stage_output_schema"
	EventStagePlan           EventKind = "stage_plan"
	EventStageCompleted      EventKind = "stage_completed"
	EventDestinationStarted  EventKind = "destination_started"
	EventDestinationProgress EventKind = "destination_progress"
	EventDestinationCompleted EventKind = "destination_completed"
	EventCompleted           EventKind = "completed"
	EventFailed              EventKind = "failed"
	EventCancelled           EventKind = "cancelled"
	EventQueuePosition       EventKind = "queue_position"
)

// Event is the single payload type carried by every tracker
// notification; only the fields relevant to Kind are populated. This
// mirrors the tagged-union style used throughout the data model so the
// wire envelope (see internal/protocol) can serialise it uniformly.
type Event struct {
	Kind EventKind

	RunID string

	// SourceRegistered
	SourceName string

	// StageStarted / StageCompleted / StageOutput* / StagePlan
	StageName string
	LevelIdx  int
	SubIdx    int
	DurationMS int64

	// StageOutputRows
	Columns []string
	Rows    [][]any
	Batch   int // sequence number of this output chunk

	// StageOutputSchema
	Schema []aqmodel.Field

	// StagePlan
	PlanText string

	// Destination*
	DestinationName string
	RowsWritten     int64

	// Failed
	ErrorCategory string
	Message       string

	// QueuePosition
	Position int
}

// Tracker is the sink interface invoked at every lifecycle point.
type Tracker interface {
	OnEvent(Event)
}

// Null discards every event; the default when a caller supplies no
// reporter.
type Null struct{}

func (Null) OnEvent(Event) {}

var _ Tracker = Null{}
