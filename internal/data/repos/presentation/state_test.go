package presentation

import (
	"context"
	"slices"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/studysync-backend/internal/data/repos/testutil"
	types "github.com/yungbote/studysync-backend/internal/domain"
	"github.com/yungbote/studysync-backend/internal/navigation"
	"github.com/yungbote/studysync-backend/internal/platform/dbctx"
)

func TestPresentationStateRepoGetOrCreateDefaults(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	series := testutil.SeedSeries(t, ctx, db, "defaults", true)
	week := testutil.SeedWeek(t, ctx, db, series.ID, 1, testutil.TwoSectionOutline)

	repo := NewPresentationStateRepo(db, testutil.Logger(t))

	existing, err := repo.GetByWeekID(dbctx.Context{Ctx: ctx}, week.ID)
	if err != nil {
		t.Fatalf("GetByWeekID: %v", err)
	}
	if existing != nil {
		t.Fatalf("GetByWeekID: expected no row before first access")
	}

	row, err := repo.GetOrCreate(dbctx.Context{Ctx: ctx}, week.ID)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	nav, err := row.Navigation()
	if err != nil {
		t.Fatalf("Navigation: %v", err)
	}
	if nav.SectionIndex != 0 || nav.ItemIndex != 0 || nav.Active || nav.HighlightedPromptIndex != nil || len(nav.RevealedRefs) != 0 {
		t.Fatalf("unexpected defaults: %+v", nav)
	}

	again, err := repo.GetOrCreate(dbctx.Context{Ctx: ctx}, week.ID)
	if err != nil {
		t.Fatalf("GetOrCreate again: %v", err)
	}
	if again.ID != row.ID {
		t.Fatalf("GetOrCreate created a second row: %s vs %s", again.ID, row.ID)
	}
}

func TestPresentationStateRepoConcurrentFirstAccess(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	series := testutil.SeedSeries(t, ctx, db, "race", true)
	week := testutil.SeedWeek(t, ctx, db, series.ID, 1, testutil.TwoSectionOutline)

	repo := NewPresentationStateRepo(db, testutil.Logger(t))

	const callers = 16
	rows := make([]*types.PresentationState, callers)
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			row, err := repo.GetOrCreate(dbctx.Context{Ctx: ctx}, week.ID)
			rows[i] = row
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	var count int64
	if err := db.Model(&types.PresentationState{}).Where("week_id = ?", week.ID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one row, got %d", count)
	}
	for i, row := range rows {
		if row == nil || row.ID != rows[0].ID {
			t.Fatalf("caller %d observed a different row", i)
		}
		if row.SectionIndex != 0 || row.ItemIndex != 0 || row.IsActive {
			t.Fatalf("caller %d observed non-default values: %+v", i, row)
		}
	}
}

func TestPresentationStateRepoSaveReplacesRecord(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	series := testutil.SeedSeries(t, ctx, db, "save", true)
	week := testutil.SeedWeek(t, ctx, db, series.ID, 1, testutil.TwoSectionOutline)
	leader := testutil.SeedLeader(t, ctx, db)

	repo := NewPresentationStateRepo(db, testutil.Logger(t))
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	row, err := repo.GetOrCreate(dbc, week.ID)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	next := navigation.State{
		SectionIndex:           1,
		ItemIndex:              1,
		RevealedRefs:           []navigation.RevealKey{"0-3", "1-0"},
		HighlightedPromptIndex: testutil.PtrInt(2),
		Active:                 true,
	}
	if err := row.SetNavigation(next); err != nil {
		t.Fatalf("SetNavigation: %v", err)
	}
	row.LeaderID = &leader.ID
	if err := repo.Save(dbc, row); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.GetByWeekID(dbc, week.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByWeekID: row=%v err=%v", got, err)
	}
	nav, err := got.Navigation()
	if err != nil {
		t.Fatalf("Navigation: %v", err)
	}
	if nav.SectionIndex != 1 || nav.ItemIndex != 1 || !nav.Active {
		t.Fatalf("cursor not saved: %+v", nav)
	}
	if !slices.Equal(nav.RevealedRefs, next.RevealedRefs) {
		t.Fatalf("revealed refs: want %v got %v", next.RevealedRefs, nav.RevealedRefs)
	}
	if nav.HighlightedPromptIndex == nil || *nav.HighlightedPromptIndex != 2 {
		t.Fatalf("highlight not saved")
	}
	if got.LeaderID == nil || *got.LeaderID != leader.ID {
		t.Fatalf("leader id not saved")
	}
}
