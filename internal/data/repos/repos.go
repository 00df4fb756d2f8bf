package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/studysync-backend/internal/data/repos/outline"
	"github.com/yungbote/studysync-backend/internal/data/repos/presentation"
	"github.com/yungbote/studysync-backend/internal/data/repos/user"
	"github.com/yungbote/studysync-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type SeriesRepo = outline.SeriesRepo
type WeekRepo = outline.WeekRepo
type PresentationStateRepo = presentation.PresentationStateRepo

func NewUserRepo(db *gorm.DB, log *logger.Logger) UserRepo {
	return user.NewUserRepo(db, log)
}

func NewSeriesRepo(db *gorm.DB, log *logger.Logger) SeriesRepo {
	return outline.NewSeriesRepo(db, log)
}

func NewWeekRepo(db *gorm.DB, log *logger.Logger) WeekRepo {
	return outline.NewWeekRepo(db, log)
}

func NewPresentationStateRepo(db *gorm.DB, log *logger.Logger) PresentationStateRepo {
	return presentation.NewPresentationStateRepo(db, log)
}
