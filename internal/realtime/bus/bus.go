// Package bus relays presentation events between server instances so that a
// mutation accepted by one instance reaches viewers attached to any other.
package bus

import (
	"context"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/studysync-backend/internal/realtime"
)

type Bus interface {
	// Publish is fire-and-forget: a message nobody is forwarding is lost.
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	// StartForwarder hands every bus message to onMsg until ctx ends,
	// including the ones this instance published itself.
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Ping(ctx context.Context) error
	Close() error
	// Client exposes the connection to the redis collector.
	Client() goredis.UniversalClient
}
