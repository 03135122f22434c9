package audit

import (
	"context"
	"log/slog"
)

// Publisher is the sink side of the audit pipeline.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Worker consumes audit events from a channel and forwards them to a sink.
// It keeps background processing testable without wiring queue
// implementations into domain services.
type Worker struct {
	sink  Publisher
	inbox <-chan Event
}

func NewWorker(sink Publisher, inbox <-chan Event) *Worker {
	return &Worker{sink: sink, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Emit(ctx, event); err != nil {
				return err
			}
		}
	}
}

// ChannelPublisher hands events to a Worker instead of emitting inline,
// so registry writes never wait on the sink. Events are stamped with the
// request metadata before the request context is gone. A full inbox
// drops the event instead of stalling the operation.
type ChannelPublisher struct {
	inbox  chan<- Event
	logger *slog.Logger
}

func NewChannelPublisher(inbox chan<- Event, logger *slog.Logger) *ChannelPublisher {
	return &ChannelPublisher{inbox: inbox, logger: logger}
}

func (p *ChannelPublisher) Emit(ctx context.Context, event Event) error {
	event = stamped(ctx, event)
	select {
	case p.inbox <- event:
	default:
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit inbox full, dropping event", "action", event.Action)
		}
	}
	return nil
}
