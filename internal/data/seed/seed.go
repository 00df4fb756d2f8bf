package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/yungbote/studysync-backend/internal/data/repos"
	types "github.com/yungbote/studysync-backend/internal/domain"
	"github.com/yungbote/studysync-backend/internal/domain/outline"
	"github.com/yungbote/studysync-backend/internal/platform/dbctx"
	"github.com/yungbote/studysync-backend/internal/platform/logger"
)

//go:embed fixtures/series.yaml
var defaultFixture []byte

type Fixture struct {
	Series []SeriesFixture `yaml:"series"`
}

type SeriesFixture struct {
	Slug        string        `yaml:"slug"`
	Title       string        `yaml:"title"`
	Subtitle    string        `yaml:"subtitle"`
	BadgeText   string        `yaml:"badge_text"`
	Description string        `yaml:"description"`
	KeyVerse    string        `yaml:"key_verse"`
	KeyVerseRef string        `yaml:"key_verse_ref"`
	Icon        string        `yaml:"icon"`
	Published   bool          `yaml:"published"`
	Weeks       []WeekFixture `yaml:"weeks"`
}

type WeekFixture struct {
	Number         int              `yaml:"number"`
	Title          string           `yaml:"title"`
	Question       string           `yaml:"question"`
	Icon           string           `yaml:"icon"`
	Recap          *string          `yaml:"recap"`
	MemoryVerse    *string          `yaml:"memory_verse"`
	MemoryVerseRef *string          `yaml:"memory_verse_ref"`
	NextWeek       *NextWeekFixture `yaml:"next_week"`
	Sections       []SectionFixture `yaml:"sections"`
}

type NextWeekFixture struct {
	Title    string `yaml:"title"`
	Homework string `yaml:"homework"`
}

type SectionFixture struct {
	Title   string        `yaml:"title" json:"title"`
	Icon    string        `yaml:"icon" json:"icon,omitempty"`
	Content []ItemFixture `yaml:"content" json:"content"`
}

// ItemFixture mirrors the stored item encoding so sections can be decoded
// through outline.Outline and rejected on unknown types.
type ItemFixture struct {
	Type      string   `yaml:"type" json:"type"`
	Text      string   `yaml:"text" json:"text,omitempty"`
	Ref       string   `yaml:"ref" json:"ref,omitempty"`
	Questions []string `yaml:"questions" json:"questions,omitempty"`
	Title     string   `yaml:"title" json:"title,omitempty"`
	Content   string   `yaml:"content" json:"content,omitempty"`
}

// Leader is the optional facilitator account created with the seed.
type Leader struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
}

// Parse decodes a YAML fixture.
func Parse(raw []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

// Default returns the embedded demo fixture.
func Default() (*Fixture, error) {
	return Parse(defaultFixture)
}

func (w WeekFixture) outline() (outline.Outline, error) {
	raw, err := json.Marshal(w.Sections)
	if err != nil {
		return nil, err
	}
	var o outline.Outline
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("week %d: %w", w.Number, err)
	}
	return o, nil
}

type Seeder struct {
	db     *gorm.DB
	log    *logger.Logger
	users  repos.UserRepo
	series repos.SeriesRepo
	weeks  repos.WeekRepo
}

func NewSeeder(db *gorm.DB, log *logger.Logger, users repos.UserRepo, series repos.SeriesRepo, weeks repos.WeekRepo) *Seeder {
	return &Seeder{db: db, log: log.With("service", "Seeder"), users: users, series: series, weeks: weeks}
}

// Run upserts every series and week in f, and the leader when given, in one
// transaction. Running it again refreshes content without changing ids.
func (s *Seeder) Run(ctx context.Context, f *Fixture, leader *Leader) error {
	if f == nil {
		return fmt.Errorf("missing fixture")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		for _, sf := range f.Series {
			row, err := s.series.UpsertBySlug(dbc, &types.Series{
				Slug:        sf.Slug,
				Title:       sf.Title,
				Subtitle:    sf.Subtitle,
				BadgeText:   sf.BadgeText,
				Description: sf.Description,
				KeyVerse:    sf.KeyVerse,
				KeyVerseRef: sf.KeyVerseRef,
				Icon:        sf.Icon,
				IsPublished: sf.Published,
			})
			if err != nil {
				return err
			}
			for _, wf := range sf.Weeks {
				tree, err := wf.outline()
				if err != nil {
					return fmt.Errorf("series %q: %w", sf.Slug, err)
				}
				week := &types.Week{
					SeriesID:       row.ID,
					WeekNumber:     wf.Number,
					Title:          wf.Title,
					Question:       wf.Question,
					Icon:           wf.Icon,
					Recap:          wf.Recap,
					MemoryVerse:    wf.MemoryVerse,
					MemoryVerseRef: wf.MemoryVerseRef,
				}
				if wf.NextWeek != nil {
					week.NextWeekTitle = &wf.NextWeek.Title
					week.NextWeekHomework = &wf.NextWeek.Homework
				}
				if err := week.SetOutline(tree); err != nil {
					return err
				}
				if _, err := s.weeks.Upsert(dbc, week); err != nil {
					return err
				}
			}
			s.log.Info("Seeded series", "slug", sf.Slug, "weeks", len(sf.Weeks))
		}

		if leader != nil && leader.Email != "" {
			u, err := s.users.EnsureByEmail(dbc, &types.User{
				Email:     leader.Email,
				Password:  leader.PasswordHash,
				FirstName: leader.FirstName,
				LastName:  leader.LastName,
				Role:      types.RoleLeader,
			})
			if err != nil {
				return fmt.Errorf("seed leader: %w", err)
			}
			s.log.Info("Seeded leader", "user_id", u.ID)
		}
		return nil
	})
}
