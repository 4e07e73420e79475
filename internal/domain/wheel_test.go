package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/questx-lab/luckydraw/internal/common"
	"github.com/questx-lab/luckydraw/internal/domain/spinner"
	"github.com/questx-lab/luckydraw/internal/entity"
	"github.com/questx-lab/luckydraw/internal/model"
	"github.com/questx-lab/luckydraw/internal/repository"
	"github.com/questx-lab/luckydraw/pkg/dateutil"
	"github.com/questx-lab/luckydraw/pkg/errorx"
	"github.com/questx-lab/luckydraw/pkg/testutil"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
	"github.com/questx-lab/luckydraw/pkg/xredis"
	"github.com/stretchr/testify/require"
)

func newTestWheelDomain(value int) *wheelDomain {
	return newTestWheelDomainWithRedis(value, nil)
}

func newTestWheelDomainWithRedis(value int, redisClient xredis.Client) *wheelDomain {
	wheelRepo := repository.NewWheelRepository()
	return NewWheelDomain(
		wheelRepo,
		repository.NewEntryRepository(testutil.NewSnowflakeNode()),
		repository.NewUserRepository(),
		NewWheelProvider(wheelRepo, nil),
		redisClient,
		spinner.NewResolverWithRand(func(int) int { return value }),
		NewAuditRecorder(repository.NewAuditRepository()),
	)
}

func sumEntries(t *testing.T, ctx context.Context, userID string) int {
	var entries []entity.Entry
	require.NoError(t, xcontext.DB(ctx).Where("user_id=?", userID).Find(&entries).Error)

	total := 0
	for _, e := range entries {
		total += e.Quantity
	}

	return total
}

func Test_wheelDomain_Spin_PremiumMultiplier(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.InsertWheel(ctx)
	d := newTestWheelDomain(0)

	// Both tiers land on the "+1 entry" segment.
	standard, err := d.Spin(testutil.NewMockContextWithUserID(ctx, "user1"), &model.SpinRequest{
		Tier:        "standard",
		DisplayName: "Alice Nguyen",
	})
	require.NoError(t, err)
	require.Equal(t, 0, standard.Segment.Index)
	require.Equal(t, "entry", standard.Outcome)
	require.Equal(t, 1, standard.Granted)
	require.Len(t, standard.Entries, 1)
	require.Equal(t, "general", standard.Entries[0].Category)
	require.Equal(t, "spin", standard.Entries[0].Source)
	require.Equal(t, dateutilKey(ctx), standard.PeriodKey)

	premium, err := d.Spin(testutil.NewMockContextWithUserID(ctx, "user2"), &model.SpinRequest{Tier: "premium"})
	require.NoError(t, err)
	require.Equal(t, 2, premium.Granted)
	require.Equal(t, 2, premium.Entries[0].Quantity)

	require.Equal(t, 1, sumEntries(t, ctx, "user1"))
	require.Equal(t, 2, sumEntries(t, ctx, "user2"))

	user, err := repository.NewUserRepository().GetByID(ctx, "user1")
	require.NoError(t, err)
	require.Equal(t, "Alice Nguyen", user.Name)
	require.Equal(t, "Alice N.", user.PublicName)
}

func Test_wheelDomain_Spin_CategoryAndMiss(t *testing.T) {
	ctx := testutil.NewMockContextWithUserID(testutil.NewMockContext(), "user1")
	testutil.InsertWheel(ctx)

	// 72 is the first value past the four leading standard segments.
	resp, err := newTestWheelDomain(72).Spin(ctx, &model.SpinRequest{})
	require.NoError(t, err)
	require.Equal(t, 4, resp.Segment.Index)
	require.Equal(t, "category_entry", resp.Outcome)
	require.Equal(t, "service", resp.Entries[0].Category)
	require.NotNil(t, resp.Entries[0].SegmentIndex)
	require.Equal(t, 4, *resp.Entries[0].SegmentIndex)

	resp, err = newTestWheelDomain(18).Spin(ctx, &model.SpinRequest{})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Segment.Index)
	require.Equal(t, "miss", resp.Outcome)
	require.Empty(t, resp.Entries)
	require.Equal(t, 0, resp.Granted)

	require.Equal(t, 1, sumEntries(t, ctx, "user1"))
}

func Test_wheelDomain_Spin_StreakBonusOncePerDay(t *testing.T) {
	ctx := testutil.NewMockContextWithUserID(testutil.NewMockContext(), "user1")
	testutil.InsertWheel(ctx)
	d := newTestWheelDomain(0)

	resp, err := d.Spin(ctx, &model.SpinRequest{Tier: "premium", StreakDays: 7})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 2)
	require.Equal(t, "streak_bonus", resp.Entries[1].Source)
	require.Equal(t, "general", resp.Entries[1].Category)
	require.Equal(t, 3, resp.Entries[1].Quantity)
	require.Equal(t, 5, resp.Granted)

	resp, err = d.Spin(ctx, &model.SpinRequest{Tier: "premium", StreakDays: 7})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	require.Equal(t, 2, resp.Granted)

	// A streak below the window earns nothing extra.
	other := testutil.NewMockContextWithUserID(ctx, "user2")
	resp, err = d.Spin(other, &model.SpinRequest{StreakDays: 6})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)

	require.Equal(t, 7, sumEntries(t, ctx, "user1"))
}

func Test_wheelDomain_Spin_StreakBonusClaim(t *testing.T) {
	ctx := testutil.NewMockContextWithUserID(testutil.NewMockContext(), "user1")
	testutil.InsertWheel(ctx)
	redisClient, keys := testutil.NewClaimRedisClient()
	d := newTestWheelDomainWithRedis(0, redisClient)

	// Another instance is granting the bonus of user1 right now.
	day := dateutil.BeginningOfDay(localNow(ctx))
	keys[common.RedisKeyStreakBonus("user1", day)] = "other"

	resp, err := d.Spin(ctx, &model.SpinRequest{Tier: "premium", StreakDays: 7})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)

	other := testutil.NewMockContextWithUserID(ctx, "user2")
	resp, err = d.Spin(other, &model.SpinRequest{Tier: "premium", StreakDays: 7})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 2)
	require.Contains(t, keys, common.RedisKeyStreakBonus("user2", day))

	// A failed spin gives the claim back.
	failing := newTestWheelDomainWithRedis(0, redisClient)
	failing.entryRepo = &failingEntryRepository{EntryRepository: failing.entryRepo}
	third := testutil.NewMockContextWithUserID(ctx, "user3")
	_, err = failing.Spin(third, &model.SpinRequest{Tier: "premium", StreakDays: 7})
	require.True(t, errorx.Is(err, errorx.Unknown.Code))
	require.NotContains(t, keys, common.RedisKeyStreakBonus("user3", day))
}

type failingEntryRepository struct {
	repository.EntryRepository
}

func (r *failingEntryRepository) Create(context.Context, []entity.Entry) error {
	return errors.New("disk full")
}

func Test_wheelDomain_Spin_Errors(t *testing.T) {
	ctx := testutil.NewMockContext()
	d := newTestWheelDomain(0)

	_, err := d.Spin(ctx, &model.SpinRequest{})
	require.True(t, errorx.Is(err, errorx.Unauthenticated))

	userCtx := testutil.NewMockContextWithUserID(ctx, "user1")
	_, err = d.Spin(userCtx, &model.SpinRequest{Tier: "gold"})
	require.True(t, errorx.Is(err, errorx.BadRequest))

	// Nothing is configured yet.
	_, err = d.Spin(userCtx, &model.SpinRequest{})
	require.True(t, errorx.Is(err, errorx.WheelUnavailable))

	_, err = d.GetWheel(userCtx, &model.GetWheelRequest{})
	require.True(t, errorx.Is(err, errorx.WheelUnavailable))

	// A tier whose weights are all zero cannot spin, the other tier still can.
	testutil.InsertWheel(ctx)
	require.NoError(t, xcontext.DB(ctx).Model(&entity.WheelSegment{}).
		Where("1=1").Update("weight_premium", 0).Error)

	_, err = newTestWheelDomain(0).Spin(userCtx, &model.SpinRequest{Tier: "premium"})
	require.True(t, errorx.Is(err, errorx.WheelUnavailable))

	_, err = newTestWheelDomain(0).Spin(userCtx, &model.SpinRequest{Tier: "standard"})
	require.NoError(t, err)
}

func Test_wheelDomain_GetWheel(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.InsertWheel(ctx)
	require.NoError(t, xcontext.DB(ctx).Model(&entity.WheelSegment{}).
		Where(`"index"=?`, 7).Update("active", false).Error)

	resp, err := newTestWheelDomain(0).GetWheel(ctx, &model.GetWheelRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Segments, 8)
	require.Equal(t, 2, resp.Config.PremiumMultiplier)

	// Standard weights of the active segments sum to 98.
	require.InDelta(t, 18.0/98, resp.Segments[0].ProbabilityStandard, 1e-9)
	require.InDelta(t, 16.0/96, resp.Segments[0].ProbabilityPremium, 1e-9)
	require.False(t, resp.Segments[7].Active)
	require.Zero(t, resp.Segments[7].ProbabilityStandard)
}

func Test_wheelDomain_UpdateSegments(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.InsertWheel(ctx)
	d := newTestWheelDomain(0)

	segments := convertSegments(testutil.ReferenceSegments())
	segments[0].Quantity = 4

	_, err := d.UpdateSegments(ctx, &model.UpdateSegmentsRequest{Segments: segments})
	require.True(t, errorx.Is(err, errorx.PermissionDenied))

	adminCtx := testutil.NewMockContextWithActor(ctx, "admin")

	// Warm the cache, the update must invalidate it.
	_, err = d.GetWheel(adminCtx, &model.GetWheelRequest{})
	require.NoError(t, err)

	resp, err := d.UpdateSegments(adminCtx, &model.UpdateSegmentsRequest{Segments: segments, Reason: "promo"})
	require.NoError(t, err)
	require.Equal(t, 4, resp.Segments[0].Quantity)

	wheel, err := d.GetWheel(adminCtx, &model.GetWheelRequest{})
	require.NoError(t, err)
	require.Equal(t, 4, wheel.Segments[0].Quantity)

	var events []entity.AuditEvent
	require.NoError(t, xcontext.DB(ctx).Where("entity_type=?", entity.AuditSegment).Find(&events).Error)
	require.Len(t, events, 1)
	require.Equal(t, "admin", events[0].Actor)
	require.Equal(t, "promo", events[0].Reason)
	require.Len(t, events[0].Before["value"], 8)

	testCases := []struct {
		name   string
		mutate func([]model.WheelSegment) []model.WheelSegment
		code   errorx.Code
	}{
		{
			name:   "missing segment",
			mutate: func(s []model.WheelSegment) []model.WheelSegment { return s[:7] },
			code:   errorx.ConfigInvalid,
		},
		{
			name: "negative weight",
			mutate: func(s []model.WheelSegment) []model.WheelSegment {
				s[2].WeightStandard = -1
				return s
			},
			code: errorx.ConfigInvalid,
		},
		{
			name: "unknown outcome",
			mutate: func(s []model.WheelSegment) []model.WheelSegment {
				s[2].Outcome = "jackpot"
				return s
			},
			code: errorx.ConfigInvalid,
		},
		{
			name: "zero total weight",
			mutate: func(s []model.WheelSegment) []model.WheelSegment {
				for i := range s {
					s[i].WeightPremium = 0
				}
				return s
			},
			code: errorx.ConfigInvalid,
		},
		{
			name: "duplicated index",
			mutate: func(s []model.WheelSegment) []model.WheelSegment {
				s[1].Index = 0
				return s
			},
			code: errorx.ConfigInvalid,
		},
		{
			name: "category entry without category",
			mutate: func(s []model.WheelSegment) []model.WheelSegment {
				s[4].Category = ""
				return s
			},
			code: errorx.ConfigInvalid,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			req := &model.UpdateSegmentsRequest{
				Segments: tt.mutate(convertSegments(testutil.ReferenceSegments())),
			}
			_, err := d.UpdateSegments(adminCtx, req)
			require.True(t, errorx.Is(err, tt.code), "got %v", err)
		})
	}
}

func Test_wheelDomain_UpdateAppConfig(t *testing.T) {
	ctx := testutil.NewMockContextWithActor(nil, "admin")
	d := newTestWheelDomain(0)

	_, err := d.UpdateAppConfig(ctx, &model.UpdateAppConfigRequest{PremiumMultiplier: 0, StreakWindowDays: 7})
	require.True(t, errorx.Is(err, errorx.ConfigInvalid))

	_, err = d.UpdateAppConfig(ctx, &model.UpdateAppConfigRequest{PremiumMultiplier: 2, StreakWindowDays: 0})
	require.True(t, errorx.Is(err, errorx.ConfigInvalid))

	_, err = d.UpdateAppConfig(ctx, &model.UpdateAppConfigRequest{
		PremiumMultiplier: 2, StreakWindowDays: 7, StreakBonusPremium: -1,
	})
	require.True(t, errorx.Is(err, errorx.ConfigInvalid))

	resp, err := d.UpdateAppConfig(ctx, &model.UpdateAppConfigRequest{
		PremiumMultiplier:   3,
		StreakWindowDays:    5,
		StreakBonusStandard: 1,
		StreakBonusPremium:  2,
	})
	require.NoError(t, err)
	require.Equal(t, 3, resp.Config.PremiumMultiplier)

	cfg, err := repository.NewWheelRepository().GetAppConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, cfg.StreakWindowDays)

	// The first save has nothing before it.
	var event entity.AuditEvent
	require.NoError(t, xcontext.DB(ctx).Where("entity_type=?", entity.AuditAppConfig).First(&event).Error)
	require.Nil(t, event.Before)
	require.EqualValues(t, 3, event.After["premium_multiplier"])
}

func Test_WheelProvider_Redis(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.InsertWheel(ctx)

	cached := map[string]any{}
	redisClient := &testutil.MockRedisClient{
		SetObjFunc: func(ctx context.Context, key string, obj any, ttl time.Duration) error {
			require.Equal(t, common.RedisKeyWheel, key)
			require.Equal(t, xcontext.Configs(ctx).Redis.ConfigTTL, ttl)
			cached[key] = obj
			return nil
		},
		DelFunc: func(ctx context.Context, keys ...string) error {
			for _, k := range keys {
				delete(cached, k)
			}
			return nil
		},
	}

	p := NewWheelProvider(repository.NewWheelRepository(), redisClient)
	wheel, err := p.Get(ctx)
	require.NoError(t, err)
	require.Len(t, wheel.Segments, 8)
	require.Contains(t, cached, common.RedisKeyWheel)

	// Served from the local copy even when the database changes.
	require.NoError(t, xcontext.DB(ctx).Where("1=1").Delete(&entity.WheelSegment{}).Error)
	wheel, err = p.Get(ctx)
	require.NoError(t, err)
	require.Len(t, wheel.Segments, 8)

	p.Invalidate(ctx)
	require.NotContains(t, cached, common.RedisKeyWheel)

	wheel, err = p.Get(ctx)
	require.NoError(t, err)
	require.Empty(t, wheel.Segments)

	// A broken redis falls back to the database.
	redisClient.GetObjFunc = func(context.Context, string, any) error { return errors.New("connection refused") }
	p.Invalidate(ctx)
	_, err = p.Get(ctx)
	require.NoError(t, err)
}

func dateutilKey(ctx context.Context) string {
	period, _ := parsePeriodKey(ctx, "")
	return period.Key()
}
