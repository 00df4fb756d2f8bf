package domain

import (
	"github.com/yungbote/studysync-backend/internal/domain/outline"
	"github.com/yungbote/studysync-backend/internal/domain/presentation"
	"github.com/yungbote/studysync-backend/internal/domain/user"
)

type (
	Series            = outline.Series
	Week              = outline.Week
	Section           = outline.Section
	Outline           = outline.Outline
	PresentationState = presentation.PresentationState
	User              = user.User
)

const (
	RoleLeader = user.RoleLeader
	RoleViewer = user.RoleViewer
)

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&User{},
		&Series{},
		&Week{},
		&PresentationState{},
	}
}
