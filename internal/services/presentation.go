package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/studysync-backend/internal/data/repos"
	types "github.com/yungbote/studysync-backend/internal/domain"
	"github.com/yungbote/studysync-backend/internal/domain/outline"
	"github.com/yungbote/studysync-backend/internal/navigation"
	"github.com/yungbote/studysync-backend/internal/observability"
	"github.com/yungbote/studysync-backend/internal/platform/apierr"
	"github.com/yungbote/studysync-backend/internal/platform/ctxutil"
	"github.com/yungbote/studysync-backend/internal/platform/dbctx"
	"github.com/yungbote/studysync-backend/internal/platform/logger"
)

type PresentationService interface {
	GetState(ctx context.Context, weekID uuid.UUID) (navigation.State, error)
	Apply(ctx context.Context, weekID uuid.UUID, op navigation.Operation) (navigation.State, error)
}

type presentationService struct {
	db          *gorm.DB
	log         *logger.Logger
	weeks       repos.WeekRepo
	states      repos.PresentationStateRepo
	broadcaster PresentationBroadcaster
}

func NewPresentationService(
	db *gorm.DB,
	log *logger.Logger,
	weeks repos.WeekRepo,
	states repos.PresentationStateRepo,
	broadcaster PresentationBroadcaster,
) PresentationService {
	return &presentationService{
		db:          db,
		log:         log.With("service", "PresentationService"),
		weeks:       weeks,
		states:      states,
		broadcaster: broadcaster,
	}
}

// GetState returns the current snapshot, creating the default row on first
// read. Anyone may read.
func (s *presentationService) GetState(ctx context.Context, weekID uuid.UUID) (navigation.State, error) {
	if _, err := s.loadWeek(dbctx.Context{Ctx: ctx}, weekID); err != nil {
		return navigation.State{}, err
	}
	row, err := s.states.GetOrCreate(dbctx.Context{Ctx: ctx}, weekID)
	if err != nil {
		return navigation.State{}, fmt.Errorf("load presentation state: %w", err)
	}
	return row.Navigation()
}

// Apply runs op against the stored state in one transaction, then publishes
// the result to every subscriber except the caller's own socket.
func (s *presentationService) Apply(ctx context.Context, weekID uuid.UUID, op navigation.Operation) (st navigation.State, err error) {
	action := ""
	if op != nil {
		action = string(op.Action())
	}
	ctx, span := observability.StartSpan(ctx, "presentation.apply",
		attribute.String("week_id", weekID.String()),
		attribute.String("action", action),
	)
	defer func() {
		observability.Current().ObserveMutation(action, outcome(err))
		observability.EndSpan(span, err)
	}()

	rd, err := requireLeader(ctx)
	if err != nil {
		return navigation.State{}, err
	}
	if op == nil {
		return navigation.State{}, apierr.Validation("", errors.New("missing operation"))
	}

	var next navigation.State
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		week, err := s.loadWeek(dbc, weekID)
		if err != nil {
			return err
		}
		tree, err := week.Outline()
		if err != nil {
			return err
		}
		shape := navigation.Shape(tree.View(outline.ViewParticipant).Shape())

		row, err := s.states.GetOrCreate(dbc, weekID)
		if err != nil {
			return fmt.Errorf("load presentation state: %w", err)
		}
		current, err := row.Navigation()
		if err != nil {
			return err
		}

		next, err = navigation.Apply(shape, current, op)
		if err != nil {
			return validationError(err)
		}
		if navigation.MovesCursor(op) {
			if err := navigation.CheckCursor(shape, next); err != nil {
				return validationError(err)
			}
		}

		if err := row.SetNavigation(next); err != nil {
			return err
		}
		leaderID := rd.UserID
		row.LeaderID = &leaderID
		return s.states.Save(dbc, row)
	})
	if err != nil {
		return navigation.State{}, err
	}

	s.broadcaster.Publish(ctx, weekID, op.Action(), next, rd.SocketID)
	s.log.Info("Presentation state updated",
		"week_id", weekID,
		"action", op.Action(),
		"section_index", next.SectionIndex,
		"item_index", next.ItemIndex,
		"leader_id", rd.UserID,
	)
	return next, nil
}

func (s *presentationService) loadWeek(dbc dbctx.Context, weekID uuid.UUID) (*types.Week, error) {
	if weekID == uuid.Nil {
		return nil, apierr.NotFound("week")
	}
	week, err := s.weeks.GetByID(dbc, weekID)
	if err != nil {
		return nil, fmt.Errorf("load week: %w", err)
	}
	if week == nil {
		return nil, apierr.NotFound("week")
	}
	return week, nil
}

func requireLeader(ctx context.Context) (*ctxutil.RequestData, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized(nil)
	}
	if rd.Role != types.RoleLeader {
		return nil, apierr.Forbidden(nil)
	}
	return rd, nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if ae, ok := apierr.As(err); ok && ae.Code != "" {
		return ae.Code
	}
	return "error"
}

func validationError(err error) error {
	if errors.Is(err, navigation.ErrCursorOutOfRange) {
		return apierr.Validation("cursor_out_of_range", err)
	}
	return apierr.Validation("", err)
}
