package outline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// View selects which items of an outline are visible.
type View string

const (
	ViewFull        View = "full"
	ViewParticipant View = "participant"
)

type Section struct {
	Title   string `json:"title"`
	Icon    string `json:"icon,omitempty"`
	Content Items  `json:"content"`
}

// Outline is the ordered section tree of one week.
type Outline []Section

// Week is one presentable outline. Sections are stored as JSON and decoded
// through Outline().
type Week struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SeriesID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_week_series_number,priority:1" json:"series_id"`
	WeekNumber       int            `gorm:"not null;column:week_number;uniqueIndex:idx_week_series_number,priority:2" json:"week_number"`
	Title            string         `gorm:"not null;column:title" json:"title"`
	Question         string         `gorm:"column:question" json:"question"`
	Icon             string         `gorm:"column:icon" json:"icon"`
	MemoryVerse      *string        `gorm:"column:memory_verse" json:"memory_verse"`
	MemoryVerseRef   *string        `gorm:"column:memory_verse_ref" json:"memory_verse_ref"`
	Recap            *string        `gorm:"column:recap" json:"recap,omitempty"`
	NextWeekTitle    *string        `gorm:"column:next_week_title" json:"next_week_title,omitempty"`
	NextWeekHomework *string        `gorm:"column:next_week_homework" json:"next_week_homework,omitempty"`
	Sections         datatypes.JSON `gorm:"column:sections;type:jsonb" json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Week) TableName() string { return "week" }

func (w *Week) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// Outline decodes the stored sections. An empty column is an empty outline.
func (w *Week) Outline() (Outline, error) {
	if w == nil || len(w.Sections) == 0 {
		return Outline{}, nil
	}
	var out Outline
	if err := json.Unmarshal(w.Sections, &out); err != nil {
		return nil, fmt.Errorf("decode sections for week %s: %w", w.ID, err)
	}
	return out, nil
}

// SetOutline encodes o into the sections column.
func (w *Week) SetOutline(o Outline) error {
	raw, err := json.Marshal(o)
	if err != nil {
		return err
	}
	w.Sections = datatypes.JSON(raw)
	return nil
}

// View returns the outline as seen by v. The receiver is not modified.
func (o Outline) View(v View) Outline {
	if v == ViewFull {
		return o
	}
	return o.Participant()
}

// Participant drops facilitator-only items from every section.
func (o Outline) Participant() Outline {
	out := make(Outline, 0, len(o))
	for _, s := range o {
		items := make(Items, 0, len(s.Content))
		for _, it := range s.Content {
			if VisibleToParticipants(it) {
				items = append(items, it)
			}
		}
		out = append(out, Section{Title: s.Title, Icon: s.Icon, Content: items})
	}
	return out
}

// Shape returns the item count of each section.
func (o Outline) Shape() []int {
	out := make([]int, len(o))
	for i, s := range o {
		out[i] = len(s.Content)
	}
	return out
}

// ItemAt returns the item under a cursor, or nil when it is out of range.
func (o Outline) ItemAt(section, item int) ContentItem {
	if section < 0 || section >= len(o) {
		return nil
	}
	content := o[section].Content
	if item < 0 || item >= len(content) {
		return nil
	}
	return content[item]
}
