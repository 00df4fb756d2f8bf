package user

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

type UserRepo interface {
	Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error)
	GetByEmail(dbc dbctx.Context, email string) (*types.User, error)
	EnsureByEmail(dbc dbctx.Context, u *types.User) (*types.User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (ur *userRepo) Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error) {
	if len(users) == 0 {
		return []*types.User{}, nil
	}
	if err := dbc.DB(ur.db).WithContext(ctxutil.Default(dbc.Ctx)).Create(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (ur *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	var out types.User
	err := dbc.DB(ur.db).WithContext(ctxutil.Default(dbc.Ctx)).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (ur *userRepo) GetByEmail(dbc dbctx.Context, email string) (*types.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	var out types.User
	err := dbc.DB(ur.db).WithContext(ctxutil.Default(dbc.Ctx)).Where("email = ?", email).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// EnsureByEmail creates u unless a user with the same email exists, and
// returns the stored user either way.
func (ur *userRepo) EnsureByEmail(dbc dbctx.Context, u *types.User) (*types.User, error) {
	if u == nil || strings.TrimSpace(u.Email) == "" {
		return nil, fmt.Errorf("missing email")
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	transaction := dbc.DB(ur.db)
	if err := transaction.WithContext(ctxutil.Default(dbc.Ctx)).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(u).Error; err != nil {
		return nil, err
	}
	return ur.GetByEmail(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, u.Email)
}
