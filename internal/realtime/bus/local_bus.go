package bus

import (
	"context"
	"sync"

	"github.com/yungbote/senseboard-backend/internal/realtime"
)

// localBus is the single-instance fallback: published frames loop straight
// back to the forwarder callback.
type localBus struct {
	mu      sync.RWMutex
	onFrame func(realtime.ServerFrame)
}

func NewLocalBus() Bus {
	return &localBus{}
}

func (b *localBus) Publish(ctx context.Context, frame realtime.ServerFrame) error {
	b.mu.RLock()
	onFrame := b.onFrame
	b.mu.RUnlock()
	if onFrame != nil {
		onFrame(frame)
	}
	return nil
}

func (b *localBus) StartForwarder(ctx context.Context, onFrame func(f realtime.ServerFrame)) error {
	b.mu.Lock()
	b.onFrame = onFrame
	b.mu.Unlock()
	return nil
}

func (b *localBus) Close() error { return nil }
