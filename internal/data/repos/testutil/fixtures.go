package testutil

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/studysync-backend/internal/domain"
	"github.com/yungbote/studysync-backend/internal/domain/user"
)

// TwoSectionOutline has participant shape [3,2] and full shape [4,2].
const TwoSectionOutline = `[
  {"title":"Opening","content":[
    {"type":"body","text":"welcome"},
    {"type":"leaderNote","text":"pray first"},
    {"type":"prompts","questions":["q1","q2"]},
    {"type":"scripture","ref":"Genesis 2:18","text":"not good"}
  ]},
  {"title":"Close","content":[
    {"type":"callout","title":"Remember","content":"two are better"},
    {"type":"body","text":"bye"}
  ]}
]`

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email, role string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  "pw",
		FirstName: "A",
		LastName:  "B",
		Role:      role,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedLeader(tb testing.TB, ctx context.Context, tx *gorm.DB) *types.User {
	tb.Helper()
	return SeedUser(tb, ctx, tx, "leader-"+uuid.NewString()[:8]+"@example.com", user.RoleLeader)
}

func SeedSeries(tb testing.TB, ctx context.Context, tx *gorm.DB, slug string, published bool) *types.Series {
	tb.Helper()
	s := &types.Series{
		ID:          uuid.New(),
		Slug:        slug,
		Title:       "Series " + slug,
		IsPublished: published,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed series: %v", err)
	}
	return s
}

func SeedWeek(tb testing.TB, ctx context.Context, tx *gorm.DB, seriesID uuid.UUID, number int, sections string) *types.Week {
	tb.Helper()
	w := &types.Week{
		ID:         uuid.New(),
		SeriesID:   seriesID,
		WeekNumber: number,
		Title:      "Week",
	}
	if !json.Valid([]byte(sections)) {
		tb.Fatalf("seed week: invalid sections json")
	}
	w.Sections = []byte(sections)
	if err := tx.WithContext(ctx).Create(w).Error; err != nil {
		tb.Fatalf("seed week: %v", err)
	}
	return w
}

func PtrInt(v int) *int { return &v }
