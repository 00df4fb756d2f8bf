package app

import (
	"fmt"

	"github.com/yungbote/studysync-backend/internal/platform/envutil"
	"github.com/yungbote/studysync-backend/internal/platform/logger"
	"github.com/yungbote/studysync-backend/internal/realtime/bus"
)

type Clients struct {
	// Bus is nil for a single instance without Redis.
	Bus bus.Bus
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	var b bus.Bus
	if envutil.String("REDIS_ADDR", "", log) != "" {
		rb, err := bus.NewRedisBus(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis bus: %w", err)
		}
		b = rb
	}
	return Clients{Bus: b}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
}
