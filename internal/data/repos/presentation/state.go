package presentation

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/studysync-backend/internal/domain"
	"github.com/yungbote/studysync-backend/internal/platform/ctxutil"
	"github.com/yungbote/studysync-backend/internal/platform/dbctx"
	"github.com/yungbote/studysync-backend/internal/platform/logger"
)

type PresentationStateRepo interface {
	GetByWeekID(dbc dbctx.Context, weekID uuid.UUID) (*types.PresentationState, error)
	GetOrCreate(dbc dbctx.Context, weekID uuid.UUID) (*types.PresentationState, error)
	Save(dbc dbctx.Context, row *types.PresentationState) error
}

type presentationStateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPresentationStateRepo(db *gorm.DB, log *logger.Logger) PresentationStateRepo {
	return &presentationStateRepo{
		db:  db,
		log: log.With("repo", "PresentationStateRepo"),
	}
}

// GetByWeekID returns nil, nil when no row exists yet.
func (r *presentationStateRepo) GetByWeekID(dbc dbctx.Context, weekID uuid.UUID) (*types.PresentationState, error) {
	if weekID == uuid.Nil {
		return nil, fmt.Errorf("missing week_id")
	}
	var out types.PresentationState
	err := dbc.DB(r.db).WithContext(ctxutil.Default(dbc.Ctx)).
		Where("week_id = ?", weekID).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrCreate inserts the default row if absent and returns the stored row.
// The unique index on week_id makes concurrent first access converge on one
// record without application locking.
func (r *presentationStateRepo) GetOrCreate(dbc dbctx.Context, weekID uuid.UUID) (*types.PresentationState, error) {
	if weekID == uuid.Nil {
		return nil, fmt.Errorf("missing week_id")
	}
	transaction := dbc.DB(r.db)
	ctx := ctxutil.Default(dbc.Ctx)

	row := &types.PresentationState{
		WeekID:       weekID,
		RevealedRefs: datatypes.JSON("[]"),
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "week_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return nil, fmt.Errorf("insert presentation_state: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		r.log.Debug("Presentation state created", "week_id", weekID)
	}

	out, err := r.GetByWeekID(dbctx.Context{Ctx: ctx, Tx: transaction}, weekID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("presentation_state for week %s missing after insert", weekID)
	}
	return out, nil
}

// Save replaces every column of an existing row.
func (r *presentationStateRepo) Save(dbc dbctx.Context, row *types.PresentationState) error {
	if row == nil || row.ID == uuid.Nil {
		return fmt.Errorf("missing presentation_state id")
	}
	if len(row.RevealedRefs) == 0 {
		row.RevealedRefs = datatypes.JSON("[]")
	}
	return dbc.DB(r.db).WithContext(ctxutil.Default(dbc.Ctx)).Save(row).Error
}
