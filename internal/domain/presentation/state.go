package presentation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/studysync-backend/internal/navigation"
)

// PresentationState is the stored navigation cursor of one week. There is
// exactly one row per week; it is created on first access and never deleted
// by the presentation flow.
type PresentationState struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WeekID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex;column:week_id" json:"week_id"`

	SectionIndex int `gorm:"not null;default:0;column:section_index" json:"section_index"`
	ItemIndex    int `gorm:"not null;default:0;column:item_index" json:"item_index"`

	// Ordered list of "{section}-{item}" keys.
	RevealedRefs           datatypes.JSON `gorm:"column:revealed_refs;type:jsonb" json:"revealed_refs"`
	HighlightedPromptIndex *int           `gorm:"column:highlighted_prompt_index" json:"highlighted_prompt_index"`
	IsActive               bool           `gorm:"not null;default:false;column:is_active" json:"is_active"`

	// Last writer, audit only.
	LeaderID *uuid.UUID `gorm:"type:uuid;column:leader_id" json:"leader_id,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (PresentationState) TableName() string { return "presentation_state" }

func (p *PresentationState) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if len(p.RevealedRefs) == 0 {
		p.RevealedRefs = datatypes.JSON("[]")
	}
	return nil
}

// Navigation decodes the row into its public shape.
func (p *PresentationState) Navigation() (navigation.State, error) {
	s := navigation.Default()
	if p == nil {
		return s, nil
	}
	s.SectionIndex = p.SectionIndex
	s.ItemIndex = p.ItemIndex
	s.Active = p.IsActive
	if p.HighlightedPromptIndex != nil {
		v := *p.HighlightedPromptIndex
		s.HighlightedPromptIndex = &v
	}
	if len(p.RevealedRefs) > 0 {
		if err := json.Unmarshal(p.RevealedRefs, &s.RevealedRefs); err != nil {
			return s, fmt.Errorf("decode revealed_refs for week %s: %w", p.WeekID, err)
		}
		if s.RevealedRefs == nil {
			s.RevealedRefs = []navigation.RevealKey{}
		}
	}
	return s, nil
}

// SetNavigation copies s into the row, replacing every navigation field.
func (p *PresentationState) SetNavigation(s navigation.State) error {
	refs := s.RevealedRefs
	if refs == nil {
		refs = []navigation.RevealKey{}
	}
	raw, err := json.Marshal(refs)
	if err != nil {
		return err
	}
	p.SectionIndex = s.SectionIndex
	p.ItemIndex = s.ItemIndex
	p.RevealedRefs = datatypes.JSON(raw)
	p.HighlightedPromptIndex = nil
	if s.HighlightedPromptIndex != nil {
		v := *s.HighlightedPromptIndex
		p.HighlightedPromptIndex = &v
	}
	p.IsActive = s.Active
	return nil
}
