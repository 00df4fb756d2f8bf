package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/studysync-backend/internal/data/repos"
	"github.com/yungbote/studysync-backend/internal/platform/logger"
)

type Repos struct {
	User              repos.UserRepo
	Series            repos.SeriesRepo
	Week              repos.WeekRepo
	PresentationState repos.PresentationStateRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:              repos.NewUserRepo(db, log),
		Series:            repos.NewSeriesRepo(db, log),
		Week:              repos.NewWeekRepo(db, log),
		PresentationState: repos.NewPresentationStateRepo(db, log),
	}
}
