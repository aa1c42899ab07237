package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
	"github.com/aqueducts-go/aqueducts/internal/progress"
	"github.com/aqueducts-go/aqueducts/internal/sqlctx"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

type recordingTracker struct {
	events []progress.Event
}

func (r *recordingTracker) OnEvent(e progress.Event) { r.events = append(r.events, e) }

func TestRun_CompletesAndDeregistersEverything(t *testing.T) {
	ctx := context.Background()

	pipeline := aqmodel.Pipeline{
		Stages: [][]aqmodel.Stage{
			{{Name: "totals", Query: "SELECT 1 AS n"}},
		},
	}

	tracker := &recordingTracker{}
	result, err := Run(ctx, pipeline, sqlctx.Config{}, tracker)
	require.NoError(t, err)
	require.NotEmpty(t, result.RunID)
	require.Equal(t, "totals", result.OutputTable)

	var kinds []progress.EventKind
	for _, e := range tracker.events {
		kinds = append(kinds, e.Kind)
	}
	require.Contains(t, kinds, progress.EventStarted)
	require.Contains(t, kinds, progress.EventCompleted)
	require.NotContains(t, kinds, progress.EventFailed)
}

func TestRun_EmptyPipelineWithDestinationFails(t *testing.T) {
	ctx := context.Background()
	pipeline := aqmodel.Pipeline{
		Destination: &aqmodel.Destination{Kind: aqmodel.DestInMemory, Name: "out"},
	}

	tracker := &recordingTracker{}
	_, err := Run(ctx, pipeline, sqlctx.Config{}, tracker)
	require.Error(t, err)

	var cfgErr *aqerr.ConfigError
	require.ErrorAs(t, err, &cfgErr)

	var sawFailed bool
	for _, e := range tracker.events {
		if e.Kind == progress.EventFailed {
			sawFailed = true
		}
	}
	require.True(t, sawFailed)
}

func TestRun_CancelledContextStopsBeforeStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pipeline := aqmodel.Pipeline{
		Stages: [][]aqmodel.Stage{{{Name: "totals", Query: "SELECT 1"}}},
	}

	tracker := &recordingTracker{}
	_, err := Run(ctx, pipeline, sqlctx.Config{}, tracker)
	require.Error(t, err)

	var cancelled *aqerr.CancelledError
	require.ErrorAs(t, err, &cancelled)
}
