package realtime

import (
	"strings"

	"github.com/google/uuid"
)

type SSEEvent string

const (
	SSEEventStateUpdated          SSEEvent = "state.updated"
	SSEEventConnectionEstablished SSEEvent = "connection_established"
	SSEEventSubscribed            SSEEvent = "subscription_succeeded"
	SSEEventError                 SSEEvent = "error"
)

const presentationPrefix = "presentation."

// SSEMessage is routed by Channel. ExcludeClientID names the socket that
// must not receive the message; it never reaches subscribers.
type SSEMessage struct {
	Channel         string   `json:"channel"`
	Event           SSEEvent `json:"event"`
	Data            any      `json:"data,omitempty"`
	ExcludeClientID string   `json:"exclude_client_id,omitempty"`
}

// Frame is the subscriber-facing encoding of a message.
type Frame struct {
	Channel string   `json:"channel,omitempty"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

func (m SSEMessage) Frame() Frame {
	return Frame{Channel: m.Channel, Event: m.Event, Data: m.Data}
}

// PresentationChannel is the topic carrying one week's navigation state.
func PresentationChannel(weekID uuid.UUID) string {
	return presentationPrefix + weekID.String()
}

// IsPublicChannel reports whether anyone may subscribe to channel.
func IsPublicChannel(channel string) bool {
	id, ok := strings.CutPrefix(channel, presentationPrefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
