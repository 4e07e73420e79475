package domain

import (
	"context"
	"encoding/json"
	"reflect"
	"time"

	"github.com/fatih/structs"
	"github.com/google/uuid"
	"github.com/questx-lab/luckydraw/internal/common"
	"github.com/questx-lab/luckydraw/internal/entity"
	"github.com/questx-lab/luckydraw/internal/model"
	"github.com/questx-lab/luckydraw/internal/repository"
	"github.com/questx-lab/luckydraw/pkg/dateutil"
	"github.com/questx-lab/luckydraw/pkg/enum"
	"github.com/questx-lab/luckydraw/pkg/errorx"
	"github.com/questx-lab/luckydraw/pkg/pubsub"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
)

const (
	DrawLockedEvent    = "draw_locked"
	WinnerSelected     = "winner_selected"
	WinnerRerolled     = "winner_rerolled"
	DrawPublishedEvent = "draw_published"
)

// AuditRecorder appends before/after snapshots of administrative changes.
// Writes are best-effort: a failure is logged and counted, never returned to
// the action being documented.
type AuditRecorder struct {
	auditRepo repository.AuditRepository
}

func NewAuditRecorder(auditRepo repository.AuditRepository) *AuditRecorder {
	return &AuditRecorder{auditRepo: auditRepo}
}

// Record writes the event with the actor of ctx and returns its id, or an
// empty string if the event could not be written. It must not be called with
// a transaction context, the change it documents is already committed.
func (r *AuditRecorder) Record(
	ctx context.Context,
	entityType entity.AuditEntityType,
	entityID, reason string,
	before, after any,
) string {
	event, err := r.write(ctx, entityType, entityID, reason, before, after)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot write audit event of %s %s: %v", entityType, entityID, err)
		common.PromCounters[common.AuditWriteFailure].WithLabelValues(string(entityType)).Inc()
		return ""
	}

	return event.ID
}

func (r *AuditRecorder) write(
	ctx context.Context,
	entityType entity.AuditEntityType,
	entityID, reason string,
	before, after any,
) (*entity.AuditEvent, error) {
	actor := xcontext.Actor(ctx)
	if actor == "" {
		return nil, errorx.New(errorx.BadRequest, "Require an actor")
	}

	if entityType == "" || entityID == "" {
		return nil, errorx.New(errorx.BadRequest, "Require an entity reference")
	}

	event := &entity.AuditEvent{
		ID:         uuid.NewString(),
		Actor:      actor,
		EntityType: entityType,
		EntityID:   entityID,
		Reason:     reason,
		Before:     snapshot(before),
		After:      snapshot(after),
		CreatedAt:  time.Now().UTC(),
	}

	if err := r.auditRepo.Create(ctx, event); err != nil {
		return nil, err
	}

	return event, nil
}

// snapshot flattens v into a json-like map. Structs use their json field
// names.
func snapshot(v any) entity.Map {
	if isNil(v) {
		return nil
	}

	switch t := v.(type) {
	case map[string]any:
		return t
	case entity.Map:
		return t
	}

	if structs.IsStruct(v) {
		s := structs.New(v)
		s.TagName = "json"
		return s.Map()
	}

	// Slices and scalars are kept through a json round trip.
	b, err := json.Marshal(v)
	if err != nil {
		return entity.Map{"value": err.Error()}
	}

	var value any
	if err := json.Unmarshal(b, &value); err != nil {
		return entity.Map{"value": string(b)}
	}

	return entity.Map{"value": value}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// drawEventPublisher emits draw lifecycle events. Publishing failures never
// fail the lifecycle operation.
type drawEventPublisher struct {
	publisher pubsub.Publisher
}

// newDrawEventPublisher drops events when publisher is nil, including a typed
// nil pointer.
func newDrawEventPublisher(publisher pubsub.Publisher) *drawEventPublisher {
	if isNil(publisher) {
		publisher = pubsub.NewNoopPublisher()
	}

	return &drawEventPublisher{publisher: publisher}
}

func (p *drawEventPublisher) publish(
	ctx context.Context, event string, draw *entity.Draw, winners ...entity.Winner,
) {
	b, err := json.Marshal(model.DrawEvent{
		Event:   event,
		Draw:    convertDraw(draw),
		Winners: convertWinners(winners),
		Actor:   xcontext.Actor(ctx),
		At:      time.Now().UTC().Format(defaultTimeLayout),
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot marshal draw event: %v", err)
		return
	}

	topic := xcontext.Configs(ctx).Kafka.Topic
	err = p.publisher.Publish(ctx, topic, &pubsub.Pack{
		Key:     []byte(draw.PeriodKey),
		Msg:     b,
		Headers: map[string]string{"event": event, "actor": xcontext.Actor(ctx)},
	})
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot publish %s event of draw %s: %v", event, draw.ID, err)
		common.PromCounters[common.EventPublishFailure].WithLabelValues(event).Inc()
	}
}

func drawLocation(ctx context.Context) *time.Location {
	return xcontext.Configs(ctx).Draw.TimeLocation()
}

// localNow returns the current time in the location draws are scheduled in.
func localNow(ctx context.Context) time.Time {
	return time.Now().In(drawLocation(ctx))
}

// parsePeriodKey returns the period of key, or the current period if key is
// empty.
func parsePeriodKey(ctx context.Context, key string) (dateutil.Period, error) {
	if key == "" {
		return dateutil.PeriodOf(localNow(ctx)), nil
	}

	period, err := dateutil.ParsePeriod(key, drawLocation(ctx))
	if err != nil {
		return dateutil.Period{}, errorx.New(errorx.BadRequest, "Invalid period key %q", key)
	}

	return period, nil
}

// parseCategory defaults to the general category.
func parseCategory(s string) (entity.EntryCategory, error) {
	if s == "" {
		return entity.GeneralCategory, nil
	}

	category, err := enum.ToEnum[entity.EntryCategory](s)
	if err != nil {
		return "", errorx.New(errorx.BadRequest, "Invalid category %q", s)
	}

	return category, nil
}

func parseTier(s string) (entity.Tier, error) {
	if s == "" {
		return entity.StandardTier, nil
	}

	tier, err := enum.ToEnum[entity.Tier](s)
	if err != nil {
		return "", errorx.New(errorx.BadRequest, "Invalid tier %q", s)
	}

	return tier, nil
}
