package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/studysync-backend/internal/navigation"
	"github.com/yungbote/studysync-backend/internal/observability"
	"github.com/yungbote/studysync-backend/internal/platform/logger"
	"github.com/yungbote/studysync-backend/internal/realtime"
)

// StateUpdatedPayload is the data of every state.updated event.
type StateUpdatedPayload struct {
	Action navigation.Action `json:"action"`
	State  navigation.State  `json:"state"`
}

type PresentationBroadcaster interface {
	Publish(ctx context.Context, weekID uuid.UUID, action navigation.Action, state navigation.State, excludeSocketID string)
}

type presentationBroadcaster struct {
	log     *logger.Logger
	emitter Emitter
}

func NewPresentationBroadcaster(log *logger.Logger, emitter Emitter) PresentationBroadcaster {
	return &presentationBroadcaster{
		log:     log.With("service", "PresentationBroadcaster"),
		emitter: emitter,
	}
}

// Publish sends one full snapshot to the week's channel. Delivery is best
// effort and never reported back to the caller.
func (b *presentationBroadcaster) Publish(ctx context.Context, weekID uuid.UUID, action navigation.Action, state navigation.State, excludeSocketID string) {
	if b == nil || b.emitter == nil {
		return
	}
	msg := realtime.SSEMessage{
		Channel:         realtime.PresentationChannel(weekID),
		Event:           realtime.SSEEventStateUpdated,
		Data:            StateUpdatedPayload{Action: action, State: state.Clone()},
		ExcludeClientID: excludeSocketID,
	}
	b.emitter.Emit(ctx, msg)
	observability.Current().IncBroadcast(string(action))
	b.log.Debug("State broadcast", "week_id", weekID, "action", action)
}
