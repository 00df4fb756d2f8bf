package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/studysync-backend/internal/platform/logger"
	"github.com/yungbote/studysync-backend/internal/realtime"
	"github.com/yungbote/studysync-backend/internal/services"
)

type Services struct {
	Emitter      services.Emitter
	Broadcaster  services.PresentationBroadcaster
	Auth         services.AuthService
	User         services.UserService
	Presentation services.PresentationService
	Outline      services.OutlineService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients, hub *realtime.SSEHub) Services {
	log.Info("Wiring services...")

	// With a bus every instance, this one included, receives broadcasts
	// through its forwarder; emitting to the hub as well would duplicate them.
	var emitter services.Emitter = &services.HubEmitter{Hub: hub}
	if clients.Bus != nil {
		emitter = &services.BusEmitter{Bus: clients.Bus, Local: hub, Log: log}
	}
	broadcaster := services.NewPresentationBroadcaster(log, emitter)
	presentation := services.NewPresentationService(db, log, repos.Week, repos.PresentationState, broadcaster)

	return Services{
		Emitter:      emitter,
		Broadcaster:  broadcaster,
		Auth:         services.NewAuthService(log, repos.User, cfg.JWTSecretKey, cfg.AccessTokenTTL),
		User:         services.NewUserService(log, repos.User),
		Presentation: presentation,
		Outline:      services.NewOutlineService(log, repos.Series, repos.Week, presentation),
	}
}
