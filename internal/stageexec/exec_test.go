package stageexec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aqueducts-go/aqueducts/internal/progress"
	"github.com/aqueducts-go/aqueducts/internal/sqlctx"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

type recordingTracker struct {
	events []progress.Event
}

func (r *recordingTracker) OnEvent(e progress.Event) { r.events = append(r.events, e) }

func newSession(t *testing.T) *sqlctx.Session {
	t.Helper()
	session, err := sqlctx.Open(context.Background(), sqlctx.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func TestRun_SingleLevelMaterialisesStage(t *testing.T) {
	ctx := context.Background()
	session := newSession(t)
	require.NoError(t, session.RegisterTableAs(ctx, sqlctx.KindSourceTable, "orders", "SELECT 1 AS id, 10 AS amount"))

	show := 10
	pipeline := aqmodel.Pipeline{
		Stages: [][]aqmodel.Stage{
			{{Name: "totals", Query: "SELECT sum(amount) AS total FROM orders", Show: &show, PrintSchema: true}},
		},
	}

	tracker := &recordingTracker{}
	finalStage, err := Run(ctx, session, pipeline, tracker)
	require.NoError(t, err)
	require.Equal(t, "totals", finalStage)

	n, err := session.RowCount(ctx, "totals")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	var kinds []progress.EventKind
	for _, e := range tracker.events {
		kinds = append(kinds, e.Kind)
	}
	require.Contains(t, kinds, progress.EventStageStarted)
	require.Contains(t, kinds, progress.EventStageOutputSchema)
	require.Contains(t, kinds, progress.EventStageOutputRows)
	require.Contains(t, kinds, progress.EventStageCompleted)
}

func TestRun_LevelDependencyOrdering(t *testing.T) {
	ctx := context.Background()
	session := newSession(t)
	require.NoError(t, session.RegisterTableAs(ctx, sqlctx.KindSourceTable, "orders", "SELECT 1 AS id"))

	pipeline := aqmodel.Pipeline{
		Stages: [][]aqmodel.Stage{
			{{Name: "stage_a", Query: "SELECT * FROM orders"}},
			{{Name: "stage_b", Query: "SELECT * FROM stage_a"}},
		},
	}

	finalStage, err := Run(ctx, session, pipeline, progress.Null{})
	require.NoError(t, err)
	require.Equal(t, "stage_b", finalStage)
}

func TestRun_EmptyPipelineWithDestinationFails(t *testing.T) {
	ctx := context.Background()
	session := newSession(t)

	pipeline := aqmodel.Pipeline{
		Destination: &aqmodel.Destination{Kind: aqmodel.DestInMemory, Name: "out"},
	}

	_, err := Run(ctx, session, pipeline, progress.Null{})
	require.Error(t, err)
}
