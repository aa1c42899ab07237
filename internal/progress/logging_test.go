package progress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogging_RendersOutputRowsAsTable(t *testing.T) {
	buf := new(bytes.Buffer)
	l := Logging{RenderOutput: true, Writer: buf}

	l.OnEvent(Event{
		Kind:      EventStageOutputRows,
		StageName: "totals",
		Columns:   []string{"id", "name"},
		Rows:      [][]any{{1, "a"}, {2, "b"}},
	})

	out := buf.String()
	require.Contains(t, out, "ID")
	require.Contains(t, out, "a")
	require.Contains(t, out, "b")
}

func TestLogging_SkipsRenderWhenDisabled(t *testing.T) {
	buf := new(bytes.Buffer)
	l := Logging{RenderOutput: false, Writer: buf}

	l.OnEvent(Event{
		Kind:    EventStageOutputRows,
		Columns: []string{"id"},
		Rows:    [][]any{{1}},
	})

	require.Empty(t, buf.String())
}

type recordingSink struct {
	events []Event
}

func (s *recordingSink) SendEvent(executionID string, e Event) {
	s.events = append(s.events, e)
}

func TestChannelBridge_ForwardsToSink(t *testing.T) {
	sink := &recordingSink{}
	bridge := ChannelBridge{ExecutionID: "exec-1", Sink: sink}

	bridge.OnEvent(Event{Kind: EventStarted, RunID: "run-1"})

	require.Len(t, sink.events, 1)
	require.Equal(t, EventStarted, sink.events[0].Kind)
}

func TestMulti_FansOutToEveryTracker(t *testing.T) {
	sinkA := &recordingSink{}
	sinkB := &recordingSink{}
	multi := Multi{
		ChannelBridge{ExecutionID: "a", Sink: sinkA},
		ChannelBridge{ExecutionID: "b", Sink: sinkB},
	}

	multi.OnEvent(Event{Kind: EventCompleted, RunID: "run-1"})

	require.Len(t, sinkA.events, 1)
	require.Len(t, sinkB.events, 1)
}
