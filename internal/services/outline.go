package services

import (
	"context"
	"fmt"

	"github.com/yungbote/studysync-backend/internal/data/repos"
	types "github.com/yungbote/studysync-backend/internal/domain"
	"github.com/yungbote/studysync-backend/internal/domain/outline"
	"github.com/yungbote/studysync-backend/internal/navigation"
	"github.com/yungbote/studysync-backend/internal/platform/apierr"
	"github.com/yungbote/studysync-backend/internal/platform/dbctx"
	"github.com/yungbote/studysync-backend/internal/platform/logger"
)

type WeekView struct {
	Series   *types.Series   `json:"series"`
	Week     *types.Week     `json:"week"`
	View     outline.View    `json:"view"`
	Sections outline.Outline `json:"sections"`
}

// PresentView is what a viewer screen loads before subscribing.
type PresentView struct {
	WeekView
	State navigation.State `json:"state"`
}

// ControlView is the leader's console: the full outline plus the series size.
type ControlView struct {
	WeekView
	State      navigation.State `json:"state"`
	TotalWeeks int64            `json:"total_weeks"`
}

type OutlineService interface {
	ListSeries(ctx context.Context) ([]*types.Series, error)
	GetSeries(ctx context.Context, slug string) (*types.Series, error)
	GetWeek(ctx context.Context, slug string, number int) (*WeekView, error)
	Present(ctx context.Context, slug string, number int) (*PresentView, error)
	Control(ctx context.Context, slug string, number int) (*ControlView, error)
}

type outlineService struct {
	log          *logger.Logger
	series       repos.SeriesRepo
	weeks        repos.WeekRepo
	presentation PresentationService
}

func NewOutlineService(log *logger.Logger, series repos.SeriesRepo, weeks repos.WeekRepo, presentation PresentationService) OutlineService {
	return &outlineService{
		log:          log.With("service", "OutlineService"),
		series:       series,
		weeks:        weeks,
		presentation: presentation,
	}
}

func (s *outlineService) ListSeries(ctx context.Context) ([]*types.Series, error) {
	out, err := s.series.ListPublished(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	return out, nil
}

func (s *outlineService) GetSeries(ctx context.Context, slug string) (*types.Series, error) {
	series, err := s.series.GetPublishedBySlug(dbctx.Context{Ctx: ctx}, slug, true)
	if err != nil {
		return nil, fmt.Errorf("load series: %w", err)
	}
	if series == nil {
		return nil, apierr.NotFound("series")
	}
	return series, nil
}

func (s *outlineService) GetWeek(ctx context.Context, slug string, number int) (*WeekView, error) {
	return s.view(ctx, slug, number, outline.ViewParticipant)
}

func (s *outlineService) Present(ctx context.Context, slug string, number int) (*PresentView, error) {
	wv, err := s.view(ctx, slug, number, outline.ViewParticipant)
	if err != nil {
		return nil, err
	}
	state, err := s.presentation.GetState(ctx, wv.Week.ID)
	if err != nil {
		return nil, err
	}
	return &PresentView{WeekView: *wv, State: state}, nil
}

func (s *outlineService) Control(ctx context.Context, slug string, number int) (*ControlView, error) {
	if _, err := requireLeader(ctx); err != nil {
		return nil, err
	}
	wv, err := s.view(ctx, slug, number, outline.ViewFull)
	if err != nil {
		return nil, err
	}
	state, err := s.presentation.GetState(ctx, wv.Week.ID)
	if err != nil {
		return nil, err
	}
	total, err := s.weeks.CountBySeries(dbctx.Context{Ctx: ctx}, wv.Series.ID)
	if err != nil {
		return nil, fmt.Errorf("count weeks: %w", err)
	}
	return &ControlView{WeekView: *wv, State: state, TotalWeeks: total}, nil
}

func (s *outlineService) view(ctx context.Context, slug string, number int, v outline.View) (*WeekView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	series, err := s.series.GetPublishedBySlug(dbc, slug, false)
	if err != nil {
		return nil, fmt.Errorf("load series: %w", err)
	}
	if series == nil {
		return nil, apierr.NotFound("series")
	}
	week, err := s.weeks.GetBySeriesAndNumber(dbc, series.ID, number)
	if err != nil {
		return nil, fmt.Errorf("load week: %w", err)
	}
	if week == nil {
		return nil, apierr.NotFound("week")
	}
	tree, err := week.Outline()
	if err != nil {
		return nil, err
	}
	return &WeekView{Series: series, Week: week, View: v, Sections: tree.View(v)}, nil
}
