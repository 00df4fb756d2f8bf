package outline

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/studysync-backend/internal/domain"
	"github.com/yungbote/studysync-backend/internal/platform/ctxutil"
	"github.com/yungbote/studysync-backend/internal/platform/dbctx"
	"github.com/yungbote/studysync-backend/internal/platform/logger"
)

type WeekRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Week, error)
	GetBySeriesAndNumber(dbc dbctx.Context, seriesID uuid.UUID, number int) (*types.Week, error)
	CountBySeries(dbc dbctx.Context, seriesID uuid.UUID) (int64, error)
	Upsert(dbc dbctx.Context, week *types.Week) (*types.Week, error)
}

type weekRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWeekRepo(db *gorm.DB, log *logger.Logger) WeekRepo {
	return &weekRepo{db: db, log: log.With("repo", "WeekRepo")}
}

// GetByID returns nil, nil when the week does not exist.
func (r *weekRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Week, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing week id")
	}
	var out types.Week
	err := dbc.DB(r.db).WithContext(ctxutil.Default(dbc.Ctx)).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *weekRepo) GetBySeriesAndNumber(dbc dbctx.Context, seriesID uuid.UUID, number int) (*types.Week, error) {
	var out types.Week
	err := dbc.DB(r.db).WithContext(ctxutil.Default(dbc.Ctx)).
		Where("series_id = ? AND week_number = ?", seriesID, number).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *weekRepo) CountBySeries(dbc dbctx.Context, seriesID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.DB(r.db).WithContext(ctxutil.Default(dbc.Ctx)).
		Model(&types.Week{}).
		Where("series_id = ?", seriesID).
		Count(&n).Error
	return n, err
}

// Upsert keys on (series_id, week_number).
func (r *weekRepo) Upsert(dbc dbctx.Context, week *types.Week) (*types.Week, error) {
	if week == nil || week.SeriesID == uuid.Nil {
		return nil, fmt.Errorf("missing series_id")
	}
	transaction := dbc.DB(r.db).WithContext(ctxutil.Default(dbc.Ctx))
	row := *week
	if err := transaction.
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "series_id"}, {Name: "week_number"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "question", "icon", "memory_verse", "memory_verse_ref",
				"recap", "next_week_title", "next_week_homework", "sections", "updated_at",
			}),
		}).
		Create(&row).Error; err != nil {
		return nil, fmt.Errorf("upsert week %d: %w", week.WeekNumber, err)
	}
	return r.GetBySeriesAndNumber(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, week.SeriesID, week.WeekNumber)
}
