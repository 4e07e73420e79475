package domain

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/questx-lab/luckydraw/internal/domain/drawing"
	"github.com/questx-lab/luckydraw/internal/entity"
	"github.com/questx-lab/luckydraw/internal/model"
	"github.com/questx-lab/luckydraw/internal/repository"
	"github.com/questx-lab/luckydraw/pkg/errorx"
	"github.com/questx-lab/luckydraw/pkg/pubsub"
	"github.com/questx-lab/luckydraw/pkg/testutil"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const testPeriod = "2026-02"

func newTestDrawDomain(publisher pubsub.Publisher) *drawDomain {
	return NewDrawDomain(
		repository.NewDrawRepository(),
		repository.NewWinnerRepository(),
		repository.NewEntryRepository(testutil.NewSnowflakeNode()),
		repository.NewUserRepository(),
		NewAuditRecorder(repository.NewAuditRepository()),
		publisher,
	)
}

// lockedDraw creates the draw of testPeriod with userA holding 5 general
// tickets and userB holding 3, then locks it.
func lockedDraw(t *testing.T, ctx context.Context, d *drawDomain) model.Draw {
	testutil.InsertUser(ctx, "userA", "Alice Nguyen")
	testutil.InsertUser(ctx, "userB", "Bob")

	before := time.Now().Add(-time.Hour)
	testutil.InsertEntry(ctx, "userA", entity.GeneralCategory, 2, testPeriod, before)
	testutil.InsertEntry(ctx, "userA", entity.GeneralCategory, 3, testPeriod, before)
	testutil.InsertEntry(ctx, "userB", entity.GeneralCategory, 3, testPeriod, before)

	ensured, err := d.EnsureDraw(ctx, &model.EnsureDrawRequest{PeriodKey: testPeriod})
	require.NoError(t, err)

	locked, err := d.Lock(ctx, &model.LockDrawRequest{DrawID: ensured.Draw.ID})
	require.NoError(t, err)
	require.Equal(t, "locked", locked.Draw.Status)

	return locked.Draw
}

func Test_drawDomain_EnsureDraw_Concurrent(t *testing.T) {
	ctx := testutil.NewMockContext()
	d := newTestDrawDomain(nil)

	ids := make([]string, 8)
	g := errgroup.Group{}
	for i := range ids {
		i := i
		g.Go(func() error {
			resp, err := d.EnsureDraw(ctx, &model.EnsureDrawRequest{PeriodKey: testPeriod})
			if err != nil {
				return err
			}

			ids[i] = resp.Draw.ID
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, id := range ids {
		require.Equal(t, ids[0], id)
	}

	var count int64
	require.NoError(t, xcontext.DB(ctx).Model(&entity.Draw{}).Where("period_key=?", testPeriod).Count(&count).Error)
	require.Equal(t, int64(1), count)

	resp, err := d.EnsureDraw(ctx, &model.EnsureDrawRequest{PeriodKey: testPeriod})
	require.NoError(t, err)
	require.Equal(t, ids[0], resp.Draw.ID)
	require.Equal(t, "open", resp.Draw.Status)
	require.Equal(t, "2026-02-28", resp.Draw.DrawDate)
}

func Test_drawDomain_EnsureDraw_InvalidPeriod(t *testing.T) {
	ctx := testutil.NewMockContext()
	d := newTestDrawDomain(nil)

	_, err := d.EnsureDraw(ctx, &model.EnsureDrawRequest{PeriodKey: "2026-13"})
	require.True(t, errorx.Is(err, errorx.BadRequest))
}

func Test_drawDomain_Lock(t *testing.T) {
	ctx := testutil.NewMockContext()
	publisher := &testutil.RecordingPublisher{}
	d := newTestDrawDomain(publisher)

	draw := lockedDraw(t, ctx, d)
	require.NotEmpty(t, draw.LockedAt)
	require.Equal(t, 1, publisher.Len())

	var event model.DrawEvent
	require.NoError(t, json.Unmarshal(publisher.Packs[0].Msg, &event))
	require.Equal(t, DrawLockedEvent, event.Event)
	require.Equal(t, draw.ID, event.Draw.ID)
	require.Equal(t, testPeriod, string(publisher.Packs[0].Key))
	require.Equal(t, DrawLockedEvent, publisher.Packs[0].Headers["event"])

	// Locking twice is an out of order call.
	_, err := d.Lock(ctx, &model.LockDrawRequest{DrawID: draw.ID})
	require.True(t, errorx.Is(err, errorx.InvalidTransition))

	_, err = d.Lock(ctx, &model.LockDrawRequest{DrawID: "unknown"})
	require.True(t, errorx.Is(err, errorx.NotFound))
}

func Test_drawDomain_SelectWinner_RequiresLock(t *testing.T) {
	ctx := testutil.NewMockContext()
	d := newTestDrawDomain(nil)
	testutil.InsertEntry(ctx, "userA", entity.GeneralCategory, 1, testPeriod, time.Now().Add(-time.Hour))

	ensured, err := d.EnsureDraw(ctx, &model.EnsureDrawRequest{PeriodKey: testPeriod})
	require.NoError(t, err)

	_, err = d.SelectWinner(ctx, &model.SelectWinnerRequest{DrawID: ensured.Draw.ID})
	require.True(t, errorx.Is(err, errorx.DrawNotLocked))
}

func Test_drawDomain_SelectWinner_ExcludesEntriesAfterLock(t *testing.T) {
	ctx := testutil.NewMockContext()
	d := newTestDrawDomain(nil)
	draw := lockedDraw(t, ctx, d)

	// An in-flight spin committed after the lock.
	testutil.InsertEntry(ctx, "userC", entity.GeneralCategory, 100, testPeriod, time.Now().Add(time.Hour))

	var seen *drawing.Pool
	d.pick = func(p *drawing.Pool) (drawing.Entrant, error) {
		seen = p
		return p.Pick()
	}

	resp, err := d.SelectWinner(ctx, &model.SelectWinnerRequest{DrawID: draw.ID, Category: "general"})
	require.NoError(t, err)
	require.NotNil(t, seen)
	require.Equal(t, 2, seen.Len())
	require.Equal(t, int64(8), seen.Total())
	require.Contains(t, []string{"userA", "userB"}, resp.Winner.UserID)
	require.Equal(t, int64(8), resp.Winner.PoolSize)
	require.Empty(t, resp.Winner.AnnouncedAt)

	// Reroll reads the same frozen pool.
	seen = nil
	_, err = d.RerollWinner(testutil.NewMockContextWithActor(ctx, "admin"), &model.RerollWinnerRequest{
		DrawID: draw.ID, Category: "general", Reason: "winner unreachable",
	})
	require.NoError(t, err)
	require.Equal(t, int64(8), seen.Total())
}

// lockingEntryRepository runs lock right before the entries are written, like
// an operator locking the draw while a spin is in flight.
type lockingEntryRepository struct {
	repository.EntryRepository
	lock func(ctx context.Context)
}

func (r *lockingEntryRepository) Create(ctx context.Context, entries []entity.Entry) error {
	r.lock(ctx)
	return r.EntryRepository.Create(ctx, entries)
}

func Test_drawDomain_SelectWinner_ExcludesSpinWrittenAfterLock(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.InsertWheel(ctx)
	d := newTestDrawDomain(nil)

	ensured, err := d.EnsureDraw(ctx, &model.EnsureDrawRequest{PeriodKey: dateutilKey(ctx)})
	require.NoError(t, err)

	wheel := newTestWheelDomain(0)
	locking := &lockingEntryRepository{EntryRepository: wheel.entryRepo}
	locking.lock = func(ctx context.Context) {
		_, err := d.Lock(ctx, &model.LockDrawRequest{DrawID: ensured.Draw.ID})
		require.NoError(t, err)
	}
	wheel.entryRepo = locking

	spin, err := wheel.Spin(testutil.NewMockContextWithUserID(ctx, "late"), &model.SpinRequest{Tier: "standard"})
	require.NoError(t, err)
	require.Equal(t, 1, spin.Granted)

	stored, err := d.drawRepo.GetByID(ctx, ensured.Draw.ID)
	require.NoError(t, err)
	require.Equal(t, entity.DrawLocked, stored.Status)

	var entry entity.Entry
	require.NoError(t, xcontext.DB(ctx).Where("user_id=?", "late").Take(&entry).Error)
	require.True(t, entry.CreatedAt.After(stored.LockedAt.Time))

	_, err = d.SelectWinner(ctx, &model.SelectWinnerRequest{DrawID: ensured.Draw.ID, Category: "general"})
	require.True(t, errorx.Is(err, errorx.NoEligibleEntries))
}

func Test_newDrawEventPublisher_TypedNil(t *testing.T) {
	ctx := testutil.NewMockContext()
	var publisher *testutil.RecordingPublisher

	p := newDrawEventPublisher(publisher)
	require.NotPanics(t, func() {
		p.publish(ctx, DrawLockedEvent, &entity.Draw{Base: entity.Base{ID: "draw1"}, PeriodKey: testPeriod})
	})
}

func Test_drawDomain_SelectWinner_Idempotent(t *testing.T) {
	ctx := testutil.NewMockContext()
	publisher := &testutil.RecordingPublisher{}
	d := newTestDrawDomain(publisher)
	draw := lockedDraw(t, ctx, d)

	d.pick = func(p *drawing.Pool) (drawing.Entrant, error) {
		return p.PickWith(func(int64) int64 { return 0 })
	}

	first, err := d.SelectWinner(ctx, &model.SelectWinnerRequest{DrawID: draw.ID})
	require.NoError(t, err)
	require.Equal(t, "userA", first.Winner.UserID)
	require.Equal(t, "general", first.Winner.Category)
	require.Equal(t, "Alice N.", first.Winner.PublicName)
	require.Equal(t, int64(5), first.Winner.Tickets)

	// A second selection must not sample again.
	d.pick = func(p *drawing.Pool) (drawing.Entrant, error) {
		return p.PickWith(func(int64) int64 { return 7 })
	}

	second, err := d.SelectWinner(ctx, &model.SelectWinnerRequest{DrawID: draw.ID, Category: "general"})
	require.NoError(t, err)
	require.Equal(t, first.Winner, second.Winner)

	var count int64
	require.NoError(t, xcontext.DB(ctx).Model(&entity.Winner{}).Where("draw_id=?", draw.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)

	got, err := d.GetDraw(ctx, &model.GetDrawRequest{PeriodKey: testPeriod})
	require.NoError(t, err)
	require.Equal(t, "drawn", got.Draw.Status)
	require.NotEmpty(t, got.Draw.DrawnAt)

	// Lock and select events.
	require.Equal(t, 2, publisher.Len())
}

func Test_drawDomain_SelectWinner_Concurrent(t *testing.T) {
	ctx := testutil.NewMockContext()
	d := newTestDrawDomain(nil)
	draw := lockedDraw(t, ctx, d)

	winners := make([]model.Winner, 6)
	g := errgroup.Group{}
	for i := range winners {
		i := i
		g.Go(func() error {
			resp, err := d.SelectWinner(ctx, &model.SelectWinnerRequest{DrawID: draw.ID})
			if err != nil {
				return err
			}

			winners[i] = resp.Winner
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, w := range winners {
		require.Equal(t, winners[0].ID, w.ID)
		require.Equal(t, winners[0].UserID, w.UserID)
	}

	var count int64
	require.NoError(t, xcontext.DB(ctx).Model(&entity.Winner{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func Test_drawDomain_SelectWinner_NoEligibleEntries(t *testing.T) {
	ctx := testutil.NewMockContext()
	d := newTestDrawDomain(nil)
	draw := lockedDraw(t, ctx, d)

	_, err := d.SelectWinner(ctx, &model.SelectWinnerRequest{DrawID: draw.ID, Category: "merchandise"})
	require.True(t, errorx.Is(err, errorx.NoEligibleEntries))

	_, err = d.SelectWinner(ctx, &model.SelectWinnerRequest{DrawID: draw.ID, Category: "unknown"})
	require.True(t, errorx.Is(err, errorx.BadRequest))

	got, err := d.GetDraw(ctx, &model.GetDrawRequest{DrawID: draw.ID})
	require.NoError(t, err)
	require.Equal(t, "locked", got.Draw.Status)
}

func Test_drawDomain_SelectWinner_Distribution(t *testing.T) {
	ctx := testutil.NewMockContext()
	d := newTestDrawDomain(nil)
	draw := lockedDraw(t, ctx, d)

	stored, err := d.drawRepo.GetByID(ctx, draw.ID)
	require.NoError(t, err)

	const trials = 8000
	counts := map[string]int{}
	for i := 0; i < trials; i++ {
		winner, err := d.sample(ctx, stored, entity.GeneralCategory)
		require.NoError(t, err)
		counts[winner.UserID]++
	}

	expected := map[string]float64{"userA": trials * 5.0 / 8, "userB": trials * 3.0 / 8}
	chi2 := 0.0
	for user, e := range expected {
		diff := float64(counts[user]) - e
		chi2 += diff * diff / e
	}

	// Critical value of one degree of freedom at p=0.001.
	require.Less(t, chi2, 10.828, "counts %v", counts)
	require.InDelta(t, 5.0/8, float64(counts["userA"])/trials, 0.05)
	require.False(t, math.IsNaN(chi2))
}

func Test_drawDomain_RerollWinner(t *testing.T) {
	ctx := testutil.NewMockContext()
	publisher := &testutil.RecordingPublisher{}
	d := newTestDrawDomain(publisher)
	draw := lockedDraw(t, ctx, d)

	d.pick = func(p *drawing.Pool) (drawing.Entrant, error) {
		return p.PickWith(func(int64) int64 { return 0 })
	}

	_, err := d.SelectWinner(ctx, &model.SelectWinnerRequest{DrawID: draw.ID})
	require.NoError(t, err)

	// Without an actor.
	_, err = d.RerollWinner(ctx, &model.RerollWinnerRequest{DrawID: draw.ID, Reason: "no show"})
	require.True(t, errorx.Is(err, errorx.PermissionDenied))

	adminCtx := testutil.NewMockContextWithActor(ctx, "admin@example.com")
	_, err = d.RerollWinner(adminCtx, &model.RerollWinnerRequest{DrawID: draw.ID})
	require.True(t, errorx.Is(err, errorx.BadRequest))

	d.pick = func(p *drawing.Pool) (drawing.Entrant, error) {
		return p.PickWith(func(int64) int64 { return 7 })
	}

	resp, err := d.RerollWinner(adminCtx, &model.RerollWinnerRequest{
		DrawID:   draw.ID,
		Category: "general",
		Reason:   "no show",
	})
	require.NoError(t, err)
	require.Equal(t, "userB", resp.Winner.UserID)
	require.Equal(t, "Bob", resp.Winner.PublicName)
	require.NotNil(t, resp.Previous)
	require.Equal(t, "userA", resp.Previous.UserID)

	// The row is overwritten in place.
	require.Equal(t, resp.Previous.ID, resp.Winner.ID)
	var count int64
	require.NoError(t, xcontext.DB(ctx).Model(&entity.Winner{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	var events []entity.AuditEvent
	require.NoError(t, xcontext.DB(ctx).Where("entity_type=?", entity.AuditWinner).Find(&events).Error)
	require.Len(t, events, 1)
	require.Equal(t, "admin@example.com", events[0].Actor)
	require.Equal(t, resp.Winner.ID, events[0].EntityID)
	require.Equal(t, "no show", events[0].Reason)
	require.Equal(t, "userA", events[0].Before["user_id"])
	require.Equal(t, "userB", events[0].After["user_id"])

	// Lock, select and reroll events.
	require.Equal(t, 3, publisher.Len())
}

func Test_drawDomain_Publish(t *testing.T) {
	ctx := testutil.NewMockContext()
	publisher := &testutil.RecordingPublisher{}
	d := newTestDrawDomain(publisher)
	draw := lockedDraw(t, ctx, d)

	// No winner yet, the draw stays locked.
	_, err := d.Publish(ctx, &model.PublishDrawRequest{DrawID: draw.ID})
	require.True(t, errorx.Is(err, errorx.NoWinnersSelected))

	got, err := d.GetDraw(ctx, &model.GetDrawRequest{DrawID: draw.ID})
	require.NoError(t, err)
	require.Equal(t, "locked", got.Draw.Status)
	require.Empty(t, got.Draw.PublishedAt)

	selected, err := d.SelectWinner(ctx, &model.SelectWinnerRequest{DrawID: draw.ID})
	require.NoError(t, err)

	resp, err := d.Publish(ctx, &model.PublishDrawRequest{DrawID: draw.ID})
	require.NoError(t, err)
	require.Equal(t, "published", resp.Draw.Status)
	require.NotEmpty(t, resp.Draw.PublishedAt)
	require.Len(t, resp.Winners, 1)
	require.Equal(t, selected.Winner.UserID, resp.Winners[0].UserID)
	require.Equal(t, resp.Draw.PublishedAt, resp.Winners[0].AnnouncedAt)

	// Everything after publish is rejected and leaves rows untouched.
	_, err = d.Lock(ctx, &model.LockDrawRequest{DrawID: draw.ID})
	require.True(t, errorx.Is(err, errorx.DrawFinalized))

	_, err = d.SelectWinner(ctx, &model.SelectWinnerRequest{DrawID: draw.ID})
	require.True(t, errorx.Is(err, errorx.DrawFinalized))

	_, err = d.RerollWinner(testutil.NewMockContextWithActor(ctx, "admin"), &model.RerollWinnerRequest{
		DrawID: draw.ID, Reason: "late complaint",
	})
	require.True(t, errorx.Is(err, errorx.DrawFinalized))

	_, err = d.Publish(ctx, &model.PublishDrawRequest{DrawID: draw.ID})
	require.True(t, errorx.Is(err, errorx.DrawFinalized))

	winners, err := d.GetWinners(ctx, &model.GetWinnersRequest{DrawID: draw.ID})
	require.NoError(t, err)
	require.Equal(t, resp.Winners, winners.Winners)

	got, err = d.GetDraw(ctx, &model.GetDrawRequest{DrawID: draw.ID})
	require.NoError(t, err)
	require.Equal(t, resp.Draw, got.Draw)

	// Lock, select and publish events.
	require.Equal(t, 3, publisher.Len())
	var event model.DrawEvent
	require.NoError(t, json.Unmarshal(publisher.Packs[2].Msg, &event))
	require.Equal(t, DrawPublishedEvent, event.Event)
	require.Len(t, event.Winners, 1)
}

func Test_drawDomain_Publish_Concurrent(t *testing.T) {
	ctx := testutil.NewMockContext()
	d := newTestDrawDomain(nil)
	draw := lockedDraw(t, ctx, d)

	_, err := d.SelectWinner(ctx, &model.SelectWinnerRequest{DrawID: draw.ID})
	require.NoError(t, err)

	errs := make([]error, 4)
	g := errgroup.Group{}
	for i := range errs {
		i := i
		g.Go(func() error {
			_, errs[i] = d.Publish(ctx, &model.PublishDrawRequest{DrawID: draw.ID})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}

		require.True(t, errorx.Is(err, errorx.DrawFinalized), "unexpected error %v", err)
	}
	require.Equal(t, 1, succeeded)

	stored, err := d.drawRepo.GetByID(ctx, draw.ID)
	require.NoError(t, err)
	winner, err := d.winnerRepo.Get(ctx, draw.ID, entity.GeneralCategory)
	require.NoError(t, err)
	require.True(t, winner.AnnouncedAt.Time.Equal(stored.PublishedAt.Time))
}

func Test_drawDomain_Publish_RequiresDrawn(t *testing.T) {
	ctx := testutil.NewMockContext()
	d := newTestDrawDomain(nil)

	ensured, err := d.EnsureDraw(ctx, &model.EnsureDrawRequest{PeriodKey: testPeriod})
	require.NoError(t, err)

	_, err = d.Publish(ctx, &model.PublishDrawRequest{DrawID: ensured.Draw.ID})
	require.True(t, errorx.Is(err, errorx.NoWinnersSelected))

	_, err = d.GetDraw(ctx, &model.GetDrawRequest{})
	require.True(t, errorx.Is(err, errorx.BadRequest))

	_, err = d.GetDraw(ctx, &model.GetDrawRequest{PeriodKey: "2025-01"})
	require.True(t, errorx.Is(err, errorx.NotFound))
}
