package sampler

import (
	"context"
	"time"

	"github.com/Dicklesworthstone/resmon/internal/model"
)

// StreamEvent carries either a snapshot or the error that prevented it.
type StreamEvent struct {
	Snapshot model.Snapshot
	Err      error
}

// Stream returns a channel that will receive a snapshot every interval until
// ctx is done. Failed reads are delivered as events and do not stop the stream.
func Stream(ctx context.Context, b *Builder, interval time.Duration) <-chan StreamEvent {
	ch := make(chan StreamEvent)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(ch)
		for {
			select {
			case <-ticker.C:
				snap, err := b.Build(ctx, Counters{})
				select {
				case ch <- StreamEvent{Snapshot: snap, Err: err}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
