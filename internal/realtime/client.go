package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/studysync-backend/internal/observability"
	"github.com/yungbote/studysync-backend/internal/platform/logger"
)

// Transport names how a subscriber is attached.
type Transport string

const (
	TransportWebsocket Transport = "ws"
	TransportSSE       Transport = "sse"
)

// SSEClient is one subscriber. Channels is guarded by the hub lock; the
// client is finished once CloseClient has run.
type SSEClient struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Transport Transport
	Channels  map[string]bool
	Outbound  chan SSEMessage
	Logger    *logger.Logger

	done chan struct{}
	once sync.Once
}

// SocketID is the identifier a publisher passes to skip this client.
func (c *SSEClient) SocketID() string {
	return c.ID.String()
}

func (c *SSEClient) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// attach records the transport and counts the open connection until the
// returned func is called.
func (c *SSEClient) attach(t Transport) func() {
	c.Transport = t
	c.Logger = c.Logger.With("transport", string(t))
	observability.Current().ConnectionOpened(string(t))
	return func() { observability.Current().ConnectionClosed(string(t)) }
}
