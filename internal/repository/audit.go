package repository

import (
	"context"
	"time"

	"github.com/questx-lab/luckydraw/internal/entity"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
)

type AuditFilter struct {
	EntityType entity.AuditEntityType
	EntityID   string
	Actor      string
	Since      time.Time
	Offset     int
	Limit      int
}

type AuditRepository interface {
	Create(ctx context.Context, data *entity.AuditEvent) error
	GetList(ctx context.Context, filter AuditFilter) ([]entity.AuditEvent, error)
}

type auditRepository struct{}

func NewAuditRepository() *auditRepository {
	return &auditRepository{}
}

func (r *auditRepository) Create(ctx context.Context, data *entity.AuditEvent) error {
	return xcontext.DB(ctx).Create(data).Error
}

func (r *auditRepository) GetList(ctx context.Context, filter AuditFilter) ([]entity.AuditEvent, error) {
	tx := xcontext.DB(ctx).Model(&entity.AuditEvent{})
	if filter.EntityType != "" {
		tx = tx.Where("entity_type=?", filter.EntityType)
	}

	if filter.EntityID != "" {
		tx = tx.Where("entity_id=?", filter.EntityID)
	}

	if filter.Actor != "" {
		tx = tx.Where("actor=?", filter.Actor)
	}

	if !filter.Since.IsZero() {
		tx = tx.Where("created_at>=?", filter.Since)
	}

	if filter.Limit > 0 {
		tx = tx.Offset(filter.Offset).Limit(filter.Limit)
	}

	var result []entity.AuditEvent
	if err := tx.Order("created_at DESC, id DESC").Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}
