package domain

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync"
	"github.com/questx-lab/luckydraw/internal/common"
	"github.com/questx-lab/luckydraw/internal/entity"
	"github.com/questx-lab/luckydraw/internal/repository"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
	"github.com/questx-lab/luckydraw/pkg/xredis"
)

type wheelConfig struct {
	Segments []entity.WheelSegment `json:"segments"`
	Config   entity.AppConfig      `json:"config"`
}

type cachedWheel struct {
	wheel    *wheelConfig
	expireAt time.Time
}

// WheelProvider serves the wheel configuration with a short TTL cache. Redis
// is shared between instances, the local map only saves round trips.
type WheelProvider struct {
	wheelRepo   repository.WheelRepository
	redisClient xredis.Client
	local       *xsync.MapOf[string, cachedWheel]
}

// NewWheelProvider creates a provider. redisClient may be nil.
func NewWheelProvider(wheelRepo repository.WheelRepository, redisClient xredis.Client) *WheelProvider {
	return &WheelProvider{
		wheelRepo:   wheelRepo,
		redisClient: redisClient,
		local:       xsync.NewMapOf[cachedWheel](),
	}
}

func (p *WheelProvider) Get(ctx context.Context) (*wheelConfig, error) {
	ttl := xcontext.Configs(ctx).Redis.ConfigTTL
	if ttl <= 0 {
		return p.load(ctx)
	}

	if cached, ok := p.local.Load(common.RedisKeyWheel); ok && time.Now().Before(cached.expireAt) {
		return cached.wheel, nil
	}

	if p.redisClient != nil {
		var wheel wheelConfig
		err := p.redisClient.GetObj(ctx, common.RedisKeyWheel, &wheel)
		if err == nil {
			p.local.Store(common.RedisKeyWheel, cachedWheel{wheel: &wheel, expireAt: time.Now().Add(ttl)})
			return &wheel, nil
		}

		if !xredis.IsNil(err) {
			xcontext.Logger(ctx).Warnf("Cannot get wheel from redis: %v", err)
		}
	}

	wheel, err := p.load(ctx)
	if err != nil {
		return nil, err
	}

	if p.redisClient != nil {
		if err := p.redisClient.SetObj(ctx, common.RedisKeyWheel, wheel, ttl); err != nil {
			xcontext.Logger(ctx).Warnf("Cannot set wheel to redis: %v", err)
		}
	}

	p.local.Store(common.RedisKeyWheel, cachedWheel{wheel: wheel, expireAt: time.Now().Add(ttl)})
	return wheel, nil
}

// Invalidate drops cached copies after the wheel has been edited. Other
// instances keep their local copy until it expires.
func (p *WheelProvider) Invalidate(ctx context.Context) {
	p.local.Delete(common.RedisKeyWheel)
	if p.redisClient != nil {
		if err := p.redisClient.Del(ctx, common.RedisKeyWheel); err != nil {
			xcontext.Logger(ctx).Warnf("Cannot delete wheel from redis: %v", err)
		}
	}
}

func (p *WheelProvider) load(ctx context.Context) (*wheelConfig, error) {
	segments, err := p.wheelRepo.GetSegments(ctx)
	if err != nil {
		return nil, err
	}

	cfg, err := p.wheelRepo.GetAppConfig(ctx)
	if err != nil {
		return nil, err
	}

	return &wheelConfig{Segments: segments, Config: *cfg}, nil
}
