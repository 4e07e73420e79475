package domain

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/questx-lab/luckydraw/internal/common"
	"github.com/questx-lab/luckydraw/internal/domain/ledger"
	"github.com/questx-lab/luckydraw/internal/domain/spinner"
	"github.com/questx-lab/luckydraw/internal/entity"
	"github.com/questx-lab/luckydraw/internal/model"
	"github.com/questx-lab/luckydraw/internal/repository"
	"github.com/questx-lab/luckydraw/pkg/dateutil"
	"github.com/questx-lab/luckydraw/pkg/enum"
	"github.com/questx-lab/luckydraw/pkg/errorx"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
	"github.com/questx-lab/luckydraw/pkg/xredis"
	"gorm.io/gorm"
)

// A claim outlives the day it covers in any time zone.
const streakClaimTTL = 48 * time.Hour

type WheelDomain interface {
	GetWheel(context.Context, *model.GetWheelRequest) (*model.GetWheelResponse, error)
	Spin(context.Context, *model.SpinRequest) (*model.SpinResponse, error)
	UpdateSegments(context.Context, *model.UpdateSegmentsRequest) (*model.UpdateSegmentsResponse, error)
	UpdateAppConfig(context.Context, *model.UpdateAppConfigRequest) (*model.UpdateAppConfigResponse, error)
}

type wheelDomain struct {
	wheelRepo     repository.WheelRepository
	entryRepo     repository.EntryRepository
	userRepo      repository.UserRepository
	wheelProvider *WheelProvider
	redisClient   xredis.Client
	resolver      *spinner.Resolver
	auditRecorder *AuditRecorder
}

func NewWheelDomain(
	wheelRepo repository.WheelRepository,
	entryRepo repository.EntryRepository,
	userRepo repository.UserRepository,
	wheelProvider *WheelProvider,
	redisClient xredis.Client,
	resolver *spinner.Resolver,
	auditRecorder *AuditRecorder,
) *wheelDomain {
	return &wheelDomain{
		wheelRepo:     wheelRepo,
		entryRepo:     entryRepo,
		userRepo:      userRepo,
		wheelProvider: wheelProvider,
		redisClient:   redisClient,
		resolver:      resolver,
		auditRecorder: auditRecorder,
	}
}

func (d *wheelDomain) GetWheel(
	ctx context.Context, req *model.GetWheelRequest,
) (*model.GetWheelResponse, error) {
	wheel, err := d.wheelProvider.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.WheelUnavailable, "The wheel is not configured")
		}

		xcontext.Logger(ctx).Errorf("Cannot get wheel: %v", err)
		return nil, errorx.Unknown
	}

	// A tier with a broken config keeps zero probabilities.
	standard, _ := spinner.Probabilities(entity.StandardTier, wheel.Segments)
	premium, _ := spinner.Probabilities(entity.PremiumTier, wheel.Segments)

	segments := []model.WheelSegment{}
	for i := range wheel.Segments {
		s := &wheel.Segments[i]
		segments = append(segments, convertWheelSegment(s, standard[s.Index], premium[s.Index]))
	}

	return &model.GetWheelResponse{
		Segments: segments,
		Config:   convertAppConfig(&wheel.Config),
	}, nil
}

func (d *wheelDomain) Spin(ctx context.Context, req *model.SpinRequest) (*model.SpinResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	if userID == "" {
		return nil, errorx.New(errorx.Unauthenticated, "You need to authenticate before")
	}

	tier, err := parseTier(req.Tier)
	if err != nil {
		return nil, err
	}

	if req.StreakDays < 0 {
		return nil, errorx.New(errorx.BadRequest, "Streak days must not be negative")
	}

	wheel, err := d.wheelProvider.Get(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get wheel: %v", err)
		return nil, errorx.New(errorx.WheelUnavailable, "The wheel is unavailable")
	}

	segment, err := d.resolver.Resolve(tier, wheel.Segments)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot resolve spin for %s tier: %v", tier, err)
		return nil, errorx.New(errorx.WheelUnavailable, "The wheel is unavailable")
	}

	now := localNow(ctx)
	streak := ledger.StreakState{Days: req.StreakDays}
	claimKey := ""
	if ledger.EarnsStreakBonus(wheel.Config, streak) {
		since := dateutil.BeginningOfDay(now).UTC()
		count, err := d.entryRepo.CountBySource(ctx, userID, entity.StreakBonusSource, since)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot count streak bonus: %v", err)
			return nil, errorx.Unknown
		}

		streak.BonusGranted = count > 0
		if !streak.BonusGranted {
			var claimed bool
			claimKey, claimed = d.claimStreakBonus(ctx, userID, now)
			streak.BonusGranted = !claimed
		}
	}

	committed := false
	defer func() {
		if !committed {
			d.releaseStreakBonus(ctx, claimKey)
		}
	}()

	entries, err := ledger.Grant(userID, segment, tier, wheel.Config, streak, now)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidQuantity) {
			xcontext.Logger(ctx).Errorf("Invalid grant of segment %d: %v", segment.Index, err)
			return nil, errorx.New(errorx.InvalidQuantity, "The wheel grants an invalid quantity")
		}

		xcontext.Logger(ctx).Errorf("Cannot grant entries: %v", err)
		return nil, errorx.Unknown
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	user := &entity.User{
		Base:       entity.Base{ID: userID},
		Name:       req.DisplayName,
		PublicName: common.PublicName(req.DisplayName),
	}
	if err := d.userRepo.Upsert(ctx, user); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot upsert user: %v", err)
		return nil, errorx.Unknown
	}

	if err := d.entryRepo.Create(ctx, entries); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create entries: %v", err)
		return nil, errorx.Unknown
	}

	if _, err := xcontext.CommitDBTransaction(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit spin: %v", err)
		return nil, errorx.Unknown
	}
	committed = true

	common.PromCounters[common.SpinTotal].WithLabelValues(string(tier), string(segment.Outcome)).Inc()
	clientEntries := []model.Entry{}
	for i := range entries {
		common.PromCounters[common.EntryGrantedTotal].
			WithLabelValues(string(entries[i].Category), string(entries[i].Source)).
			Add(float64(entries[i].Quantity))
		clientEntries = append(clientEntries, convertEntry(&entries[i]))
	}

	return &model.SpinResponse{
		Segment:   convertWheelSegment(&segment, 0, 0),
		Outcome:   string(segment.Outcome),
		Label:     segment.Label,
		Icon:      segment.Icon,
		PeriodKey: dateutil.PeriodOf(now).Key(),
		Entries:   clientEntries,
		Granted:   ledger.Total(entries),
	}, nil
}

// claimStreakBonus reserves the streak bonus of the day for userID so that
// concurrent spins cannot both collect it. Without redis every spin may claim
// and only the ledger check applies.
func (d *wheelDomain) claimStreakBonus(ctx context.Context, userID string, now time.Time) (string, bool) {
	if d.redisClient == nil {
		return "", true
	}

	key := common.RedisKeyStreakBonus(userID, dateutil.BeginningOfDay(now))
	ok, err := d.redisClient.SetNX(ctx, key, now.Format(time.RFC3339), streakClaimTTL)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot claim streak bonus of %s: %v", userID, err)
		return "", true
	}

	if !ok {
		return "", false
	}

	return key, true
}

func (d *wheelDomain) releaseStreakBonus(ctx context.Context, key string) {
	if key == "" {
		return
	}

	if err := d.redisClient.Del(ctx, key); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot release streak bonus claim %s: %v", key, err)
	}
}

func (d *wheelDomain) UpdateSegments(
	ctx context.Context, req *model.UpdateSegmentsRequest,
) (*model.UpdateSegmentsResponse, error) {
	if err := requireActor(ctx); err != nil {
		return nil, err
	}

	segments := []entity.WheelSegment{}
	for _, s := range req.Segments {
		segment, err := toWheelSegment(s)
		if err != nil {
			return nil, err
		}

		segments = append(segments, segment)
	}

	if err := ValidateSegments(segments, xcontext.Configs(ctx).Wheel.SegmentCount); err != nil {
		return nil, errorx.New(errorx.ConfigInvalid, "%v", err)
	}

	before, err := d.wheelRepo.GetSegments(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get segments: %v", err)
		return nil, errorx.Unknown
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.wheelRepo.ReplaceSegments(ctx, segments); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot replace segments: %v", err)
		return nil, errorx.Unknown
	}

	ctx, err = xcontext.CommitDBTransaction(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit segments: %v", err)
		return nil, errorx.Unknown
	}

	d.wheelProvider.Invalidate(ctx)
	d.auditRecorder.Record(ctx, entity.AuditSegment, "wheel", req.Reason,
		convertSegments(before), convertSegments(segments))

	return &model.UpdateSegmentsResponse{Segments: convertSegments(segments)}, nil
}

func (d *wheelDomain) UpdateAppConfig(
	ctx context.Context, req *model.UpdateAppConfigRequest,
) (*model.UpdateAppConfigResponse, error) {
	if err := requireActor(ctx); err != nil {
		return nil, err
	}

	cfg := &entity.AppConfig{
		ID:                  entity.AppConfigID,
		PremiumMultiplier:   req.PremiumMultiplier,
		StreakWindowDays:    req.StreakWindowDays,
		StreakBonusStandard: req.StreakBonusStandard,
		StreakBonusPremium:  req.StreakBonusPremium,
	}

	if err := ValidateAppConfig(cfg); err != nil {
		return nil, errorx.New(errorx.ConfigInvalid, "%v", err)
	}

	var before *model.AppConfig
	old, err := d.wheelRepo.GetAppConfig(ctx)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get app config: %v", err)
		return nil, errorx.Unknown
	}

	if err == nil {
		c := convertAppConfig(old)
		before = &c
	}

	if err := d.wheelRepo.SaveAppConfig(ctx, cfg); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot save app config: %v", err)
		return nil, errorx.Unknown
	}

	d.wheelProvider.Invalidate(ctx)
	after := convertAppConfig(cfg)
	d.auditRecorder.Record(ctx, entity.AuditAppConfig, strconv.Itoa(entity.AppConfigID), req.Reason,
		before, after)

	return &model.UpdateAppConfigResponse{Config: after}, nil
}

// ValidateSegments checks a complete wheel. count is the required number of
// segments.
func ValidateSegments(segments []entity.WheelSegment, count int) error {
	if len(segments) != count {
		return fmt.Errorf("the wheel must have exactly %d segments, got %d", count, len(segments))
	}

	seen := map[int]bool{}
	for _, s := range segments {
		if s.Index < 0 || s.Index >= count {
			return fmt.Errorf("segment index %d is out of range [0, %d)", s.Index, count)
		}

		if seen[s.Index] {
			return fmt.Errorf("duplicated segment index %d", s.Index)
		}
		seen[s.Index] = true

		if !enum.IsValid(s.Outcome) {
			return fmt.Errorf("segment %d has invalid outcome %q", s.Index, s.Outcome)
		}

		if s.WeightStandard < 0 || s.WeightPremium < 0 {
			return fmt.Errorf("segment %d has a negative weight", s.Index)
		}

		switch s.Outcome {
		case entity.CategoryEntryOutcome:
			if !enum.IsValid(s.Category) {
				return fmt.Errorf("segment %d has invalid category %q", s.Index, s.Category)
			}
			fallthrough
		case entity.EntryOutcome:
			if s.Quantity <= 0 {
				return fmt.Errorf("segment %d must grant a positive quantity", s.Index)
			}
		}
	}

	for _, tier := range enum.Values[entity.Tier]() {
		if _, _, err := spinner.PrefixSum(tier, segments); err != nil {
			return err
		}
	}

	return nil
}

func ValidateAppConfig(cfg *entity.AppConfig) error {
	if cfg.PremiumMultiplier < 1 {
		return fmt.Errorf("premium multiplier must be at least 1, got %d", cfg.PremiumMultiplier)
	}

	if cfg.StreakWindowDays < 1 {
		return fmt.Errorf("streak window must be at least 1 day, got %d", cfg.StreakWindowDays)
	}

	if cfg.StreakBonusStandard < 0 || cfg.StreakBonusPremium < 0 {
		return errors.New("streak bonus must not be negative")
	}

	return nil
}

func toWheelSegment(s model.WheelSegment) (entity.WheelSegment, error) {
	outcome, err := enum.ToEnum[entity.OutcomeKind](s.Outcome)
	if err != nil {
		return entity.WheelSegment{}, errorx.New(errorx.ConfigInvalid,
			"Invalid outcome %q of segment %d", s.Outcome, s.Index)
	}

	var category entity.EntryCategory
	if s.Category != "" {
		category, err = enum.ToEnum[entity.EntryCategory](s.Category)
		if err != nil {
			return entity.WheelSegment{}, errorx.New(errorx.ConfigInvalid,
				"Invalid category %q of segment %d", s.Category, s.Index)
		}
	}

	return entity.WheelSegment{
		Index:          s.Index,
		Label:          s.Label,
		Icon:           s.Icon,
		Outcome:        outcome,
		Category:       category,
		Quantity:       s.Quantity,
		WeightStandard: s.WeightStandard,
		WeightPremium:  s.WeightPremium,
		Active:         s.Active,
	}, nil
}

func convertSegments(segments []entity.WheelSegment) []model.WheelSegment {
	result := []model.WheelSegment{}
	for i := range segments {
		result = append(result, convertWheelSegment(&segments[i], 0, 0))
	}

	return result
}

func requireActor(ctx context.Context) error {
	if xcontext.Actor(ctx) == "" {
		return errorx.New(errorx.PermissionDenied, "Require an actor for administrative actions")
	}

	return nil
}
