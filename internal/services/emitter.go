package services

import (
	"context"

	"github.com/yungbote/studysync-backend/internal/platform/logger"
	"github.com/yungbote/studysync-backend/internal/realtime"
	"github.com/yungbote/studysync-backend/internal/realtime/bus"
)

// Emitter hands one message to the fan-out layer. It never blocks on
// subscribers and reports nothing back; delivery is at most once.
type Emitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage)
}

// HubEmitter delivers to subscribers of this instance only.
type HubEmitter struct{ Hub *realtime.SSEHub }

func (e *HubEmitter) Emit(_ context.Context, msg realtime.SSEMessage) {
	e.Hub.Broadcast(msg)
}

// BusEmitter publishes to the bus; every instance, this one included,
// forwards bus traffic into its own hub. When the bus rejects a message it
// still reaches Local, so viewers on this instance stay in sync.
type BusEmitter struct {
	Bus   bus.Bus
	Local *realtime.SSEHub
	Log   *logger.Logger
}

func (e *BusEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	err := e.Bus.Publish(ctx, msg)
	if err == nil {
		return
	}
	if e.Log != nil {
		e.Log.Warn("Bus publish failed, delivering locally", "channel", msg.Channel, "error", err)
	}
	if e.Local != nil {
		e.Local.Broadcast(msg)
	}
}
