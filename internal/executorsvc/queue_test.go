package executorsvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueController_FirstSubmissionPromotedImmediately(t *testing.T) {
	c := newQueueController(4)
	started := make(chan struct{})

	pos, _, ok := c.Submit("a", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	})
	require.True(t, ok)
	require.Equal(t, 0, pos)

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("job was never promoted into the slot")
	}

	c.Cancel("a")
}

func TestQueueController_SecondSubmissionWaitsAndGetsPromoted(t *testing.T) {
	c := newQueueController(4)
	release := make(chan struct{})
	firstStarted := make(chan struct{})
	secondStarted := make(chan struct{})

	_, _, ok := c.Submit("first", func(ctx context.Context) {
		close(firstStarted)
		<-release
	})
	require.True(t, ok)

	<-firstStarted

	pos, _, ok := c.Submit("second", func(ctx context.Context) {
		close(secondStarted)
	})
	require.True(t, ok)
	require.Equal(t, 0, pos, "second job is alone in the queue behind the running slot")

	select {
	case <-secondStarted:
		t.Fatal("second job must not start while the slot is occupied")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case <-secondStarted:
	case <-time.After(time.Second):
		t.Fatal("second job was never promoted after the slot freed up")
	}
}

func TestQueueController_CancelQueuedJobRemovesItWithoutRunning(t *testing.T) {
	c := newQueueController(4)
	release := make(chan struct{})
	ran := make(chan struct{})

	_, _, ok := c.Submit("first", func(ctx context.Context) {
		<-release
	})
	require.True(t, ok)

	_, _, ok = c.Submit("second", func(ctx context.Context) {
		close(ran)
	})
	require.True(t, ok)

	require.True(t, c.Cancel("second"))

	close(release)

	select {
	case <-ran:
		t.Fatal("cancelled queued job must never run")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestQueueController_BroadcastsFullPositionListOnEveryChange(t *testing.T) {
	c := newQueueController(4)
	release := make(chan struct{})

	_, _, ok := c.Submit("running", func(ctx context.Context) { <-release })
	require.True(t, ok)

	posB, chB, ok := c.Submit("b", func(ctx context.Context) {})
	require.True(t, ok)
	require.Equal(t, 0, posB)

	posC, _, ok := c.Submit("c", func(ctx context.Context) {})
	require.True(t, ok)
	require.Equal(t, 1, posC)

	// b's own admission already notified it once.
	select {
	case update := <-chB:
		require.Equal(t, "b", update.ExecutionID)
		require.Equal(t, 0, update.Position)
	case <-time.After(time.Second):
		t.Fatal("b was not notified of its position on admission")
	}

	// Submitting c re-broadcasts b's position too, even though only c changed.
	select {
	case update := <-chB:
		require.Equal(t, "b", update.ExecutionID)
		require.Equal(t, 0, update.Position)
	case <-time.After(time.Second):
		t.Fatal("b was not re-notified of its unchanged position")
	}

	require.True(t, c.Cancel("b"))

	_, stillOpen := <-chB
	require.False(t, stillOpen, "b's listener channel should close once it leaves the queue")

	close(release)
}

func TestQueueController_QueueFullRejectsSubmission(t *testing.T) {
	c := newQueueController(1)
	release := make(chan struct{})
	defer close(release)

	_, _, ok := c.Submit("running", func(ctx context.Context) { <-release })
	require.True(t, ok)

	_, _, ok = c.Submit("queued", func(ctx context.Context) {})
	require.True(t, ok)

	_, _, ok = c.Submit("overflow", func(ctx context.Context) {})
	require.False(t, ok, "queue is at capacity")
}

func TestQueueController_CancelRunningJobTriggersContext(t *testing.T) {
	c := newQueueController(4)
	cancelled := make(chan struct{})

	_, _, ok := c.Submit("running", func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	})
	require.True(t, ok)

	require.Eventually(t, func() bool {
		return c.Cancel("running")
	}, time.Second, time.Millisecond)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("running job's context was never cancelled")
	}
}
