package realtime

import "context"

type Emitter interface {
	Emit(ctx context.Context, msg SSEMessage)
}

type Publisher interface {
	Publish(ctx context.Context, msg SSEMessage) error
}

// HubEmitter delivers straight to the in-process hub.
type HubEmitter struct{ Hub *SSEHub }

func (e HubEmitter) Emit(_ context.Context, msg SSEMessage) {
	if e.Hub == nil {
		return
	}
	e.Hub.Broadcast(msg)
}

// PublisherEmitter sends through a cross-instance bus and falls back to the
// local hub when publishing fails.
type PublisherEmitter struct {
	Bus      Publisher
	Fallback *SSEHub
}

func (e PublisherEmitter) Emit(ctx context.Context, msg SSEMessage) {
	if e.Bus != nil {
		if err := e.Bus.Publish(ctx, msg); err == nil {
			return
		}
	}
	if e.Fallback != nil {
		e.Fallback.Broadcast(msg)
	}
}
