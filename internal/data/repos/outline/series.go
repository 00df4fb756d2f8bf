package outline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/studysync-backend/internal/domain"
	"github.com/yungbote/studysync-backend/internal/platform/ctxutil"
	"github.com/yungbote/studysync-backend/internal/platform/dbctx"
	"github.com/yungbote/studysync-backend/internal/platform/logger"
)

type SeriesRepo interface {
	ListPublished(dbc dbctx.Context) ([]*types.Series, error)
	GetPublishedBySlug(dbc dbctx.Context, slug string, withWeeks bool) (*types.Series, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Series, error)
	UpsertBySlug(dbc dbctx.Context, series *types.Series) (*types.Series, error)
}

type seriesRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSeriesRepo(db *gorm.DB, log *logger.Logger) SeriesRepo {
	return &seriesRepo{db: db, log: log.With("repo", "SeriesRepo")}
}

func (r *seriesRepo) ListPublished(dbc dbctx.Context) ([]*types.Series, error) {
	var out []*types.Series
	if err := dbc.DB(r.db).WithContext(ctxutil.Default(dbc.Ctx)).
		Where("is_published = ?", true).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetPublishedBySlug returns nil, nil for unknown or unpublished series.
func (r *seriesRepo) GetPublishedBySlug(dbc dbctx.Context, slug string, withWeeks bool) (*types.Series, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("missing slug")
	}
	q := dbc.DB(r.db).WithContext(ctxutil.Default(dbc.Ctx)).
		Where("slug = ? AND is_published = ?", slug, true)
	if withWeeks {
		q = q.Preload("Weeks", func(db *gorm.DB) *gorm.DB {
			return db.Order("week_number ASC")
		})
	}
	var out types.Series
	err := q.First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *seriesRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Series, error) {
	var out types.Series
	err := dbc.DB(r.db).WithContext(ctxutil.Default(dbc.Ctx)).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpsertBySlug inserts the series or refreshes its descriptive columns.
func (r *seriesRepo) UpsertBySlug(dbc dbctx.Context, series *types.Series) (*types.Series, error) {
	if series == nil || strings.TrimSpace(series.Slug) == "" {
		return nil, fmt.Errorf("missing slug")
	}
	transaction := dbc.DB(r.db).WithContext(ctxutil.Default(dbc.Ctx))
	row := *series
	row.Weeks = nil
	if err := transaction.
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "subtitle", "badge_text", "description",
				"key_verse", "key_verse_ref", "icon", "is_published", "updated_at",
			}),
		}).
		Create(&row).Error; err != nil {
		return nil, fmt.Errorf("upsert series %q: %w", series.Slug, err)
	}
	var out types.Series
	if err := transaction.Where("slug = ?", series.Slug).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}
