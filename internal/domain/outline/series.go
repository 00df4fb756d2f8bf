package outline

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Series struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Slug        string    `gorm:"uniqueIndex;not null;column:slug" json:"slug"`
	Title       string    `gorm:"not null;column:title" json:"title"`
	Subtitle    string    `gorm:"column:subtitle" json:"subtitle"`
	BadgeText   string    `gorm:"column:badge_text" json:"badge_text"`
	Description string    `gorm:"column:description" json:"description"`
	KeyVerse    string    `gorm:"column:key_verse" json:"key_verse"`
	KeyVerseRef string    `gorm:"column:key_verse_ref" json:"key_verse_ref"`
	Icon        string    `gorm:"column:icon" json:"icon"`
	IsPublished bool      `gorm:"not null;default:false;column:is_published;index" json:"is_published"`

	Weeks []Week `gorm:"foreignKey:SeriesID" json:"weeks,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Series) TableName() string { return "series" }

func (s *Series) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
