package bus

import (
	"context"

	"github.com/yungbote/senseboard-backend/internal/realtime"
)

// Bus carries server frames between instances so every node's hub sees every
// room broadcast.
type Bus interface {
	Publish(ctx context.Context, frame realtime.ServerFrame) error
	StartForwarder(ctx context.Context, onFrame func(f realtime.ServerFrame)) error
	Close() error
}
