package domain

import (
	"context"

	"github.com/questx-lab/luckydraw/internal/entity"
	"github.com/questx-lab/luckydraw/internal/model"
	"github.com/questx-lab/luckydraw/internal/repository"
	"github.com/questx-lab/luckydraw/pkg/errorx"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
	"golang.org/x/exp/slices"
)

const maxAuditEventsLimit = 200

var auditEntityTypes = []entity.AuditEntityType{
	entity.AuditDraw,
	entity.AuditWinner,
	entity.AuditEntry,
	entity.AuditSegment,
	entity.AuditAppConfig,
	entity.AuditBooking,
	entity.AuditPayment,
}

type AuditDomain interface {
	RecordOverride(context.Context, *model.RecordOverrideRequest) (*model.RecordOverrideResponse, error)
	GetAuditEvents(context.Context, *model.GetAuditEventsRequest) (*model.GetAuditEventsResponse, error)
}

type auditDomain struct {
	auditRepo     repository.AuditRepository
	auditRecorder *AuditRecorder
}

func NewAuditDomain(auditRepo repository.AuditRepository, auditRecorder *AuditRecorder) *auditDomain {
	return &auditDomain{auditRepo: auditRepo, auditRecorder: auditRecorder}
}

// RecordOverride documents a manual change made outside the engine, such as a
// forced payment status. Unlike the recorder used by the engine itself, the
// write is the whole action so its failure is returned.
func (d *auditDomain) RecordOverride(
	ctx context.Context, req *model.RecordOverrideRequest,
) (*model.RecordOverrideResponse, error) {
	if err := requireActor(ctx); err != nil {
		return nil, err
	}

	entityType := entity.AuditEntityType(req.EntityType)
	if !slices.Contains(auditEntityTypes, entityType) {
		return nil, errorx.New(errorx.BadRequest, "Invalid entity type %q", req.EntityType)
	}

	if req.EntityID == "" {
		return nil, errorx.New(errorx.BadRequest, "Require an entity id")
	}

	event, err := d.auditRecorder.write(ctx, entityType, req.EntityID, req.Reason, req.Before, req.After)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot record override: %v", err)
		return nil, errorx.Unknown
	}

	return &model.RecordOverrideResponse{ID: event.ID}, nil
}

func (d *auditDomain) GetAuditEvents(
	ctx context.Context, req *model.GetAuditEventsRequest,
) (*model.GetAuditEventsResponse, error) {
	if req.EntityType != "" && !slices.Contains(auditEntityTypes, entity.AuditEntityType(req.EntityType)) {
		return nil, errorx.New(errorx.BadRequest, "Invalid entity type %q", req.EntityType)
	}

	if req.Offset < 0 || req.Limit < 0 {
		return nil, errorx.New(errorx.BadRequest, "Offset and limit must not be negative")
	}

	limit := req.Limit
	if limit == 0 || limit > maxAuditEventsLimit {
		limit = maxAuditEventsLimit
	}

	events, err := d.auditRepo.GetList(ctx, repository.AuditFilter{
		EntityType: entity.AuditEntityType(req.EntityType),
		EntityID:   req.EntityID,
		Actor:      req.Actor,
		Offset:     req.Offset,
		Limit:      limit,
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get audit events: %v", err)
		return nil, errorx.Unknown
	}

	result := []model.AuditEvent{}
	for i := range events {
		result = append(result, convertAuditEvent(&events[i]))
	}

	return &model.GetAuditEventsResponse{Events: result}, nil
}
