package executorsvc

import (
	"context"
	"sync"

	"github.com/aqueducts-go/aqueducts/internal/protocol"
)

// waitingJob is one admitted-but-not-yet-running submission.
type waitingJob struct {
	id      string
	execute func(ctx context.Context)
}

// runningJob is the single job currently occupying the slot.
type runningJob struct {
	id     string
	cancel context.CancelFunc
}

// queueController enforces the executor's single-slot invariant: at
// most one execution runs at a time, the rest wait in FIFO order.
// Every time the queue's shape changes — a job is admitted, promoted
// into the slot or cancelled out of the queue — every remaining
// waiter's position is recomputed and pushed to whichever session is
// listening for it, mirroring the full-list rebroadcast semantics of a
// single-producer multi-consumer position feed rather than diffing the
// one job that changed.
type queueController struct {
	mu        sync.Mutex
	capacity  int
	pending   []*waitingJob
	current   *runningJob
	listeners map[string]chan protocol.QueuePosition
}

func newQueueController(capacity int) *queueController {
	return &queueController{
		capacity:  capacity,
		listeners: make(map[string]chan protocol.QueuePosition),
	}
}

// Submit admits a job to the back of the queue and returns its position
// (0 meaning it will be promoted into the slot next) along with a
// channel that receives this execution's position every time it
// changes while still waiting. The channel is registered atomically
// with admission, before the job can possibly be promoted or
// cancelled, and is always closed once the job leaves the queue either
// way. ok is false when the queue is already at capacity, in which
// case the returned channel is nil.
func (c *queueController) Submit(id string, execute func(ctx context.Context)) (position int, updates <-chan protocol.QueuePosition, ok bool) {
	c.mu.Lock()
	if len(c.pending) >= c.capacity {
		c.mu.Unlock()
		return 0, nil, false
	}
	ch := make(chan protocol.QueuePosition, 8)
	c.listeners[id] = ch
	c.pending = append(c.pending, &waitingJob{id: id, execute: execute})
	position = len(c.pending) - 1
	c.broadcastPositionsLocked()
	c.mu.Unlock()

	c.tryAdvance()
	return position, ch, true
}

// Cancel stops a job wherever it currently is: if it's running, its
// cancellation token fires; if it's still queued, it's removed without
// ever running. Returns false if no such job exists in either place.
func (c *queueController) Cancel(id string) bool {
	c.mu.Lock()
	if c.current != nil && c.current.id == id {
		cancel := c.current.cancel
		c.mu.Unlock()
		cancel()
		return true
	}

	for i, job := range c.pending {
		if job.id != id {
			continue
		}
		c.pending = append(c.pending[:i], c.pending[i+1:]...)
		c.closeListenerLocked(id)
		c.broadcastPositionsLocked()
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()
	return false
}

// tryAdvance promotes the head of the queue into the slot if the slot
// is free and the queue is non-empty.
func (c *queueController) tryAdvance() {
	c.mu.Lock()
	if c.current != nil || len(c.pending) == 0 {
		c.mu.Unlock()
		return
	}

	job := c.pending[0]
	c.pending = c.pending[1:]
	c.closeListenerLocked(job.id)

	ctx, cancel := context.WithCancel(context.Background())
	c.current = &runningJob{id: job.id, cancel: cancel}
	c.broadcastPositionsLocked()
	c.mu.Unlock()

	go func() {
		job.execute(ctx)
		cancel()
		c.complete(job.id)
	}()
}

// complete clears the slot once a job finishes, regardless of outcome,
// then gives the next queued job a chance to run.
func (c *queueController) complete(id string) {
	c.mu.Lock()
	if c.current != nil && c.current.id == id {
		c.current = nil
	}
	c.mu.Unlock()
	c.tryAdvance()
}

// broadcastPositionsLocked must be called with mu held. It resends the
// position of every remaining queued job, not just the one that moved,
// to whichever listener is registered for it.
func (c *queueController) broadcastPositionsLocked() {
	for i, job := range c.pending {
		ch, ok := c.listeners[job.id]
		if !ok {
			continue
		}
		select {
		case ch <- protocol.QueuePosition{ExecutionID: job.id, Position: i}:
		default:
		}
	}
}

func (c *queueController) closeListenerLocked(id string) {
	if ch, ok := c.listeners[id]; ok {
		close(ch)
		delete(c.listeners, id)
	}
}
