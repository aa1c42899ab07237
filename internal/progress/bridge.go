package progress

// OutboundSink is the minimal surface the executor service's per-session
// actor exposes for a ChannelBridge to push encoded events onto a
// client's socket without ever touching the socket directly.
type OutboundSink interface {
	SendEvent(executionID string, e Event)
}

// ChannelBridge translates tracker events into protocol messages for a
// single execution, forwarding them onto the owning session's outbound
// channel. It never blocks the stage executor beyond the channel send:
// a full channel backpressures the pipeline run, which is the documented
// show=0 memory policy.
type ChannelBridge struct {
	ExecutionID string
	Sink        OutboundSink
}

func (b ChannelBridge) OnEvent(e Event) {
	b.Sink.SendEvent(b.ExecutionID, e)
}

var _ Tracker = ChannelBridge{}

// Multi fans a single event out to several trackers, e.g. a Logging
// tracker for the executor's own log plus a ChannelBridge for the
// owning session.
type Multi []Tracker

func (m Multi) OnEvent(e Event) {
	for _, t := range m {
		t.OnEvent(e)
	}
}

var _ Tracker = Multi(nil)
