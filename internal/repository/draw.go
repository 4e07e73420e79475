package repository

import (
	"context"
	"time"

	"github.com/questx-lab/luckydraw/internal/entity"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DrawFilter struct {
	Status entity.DrawStatus
	Offset int
	Limit  int
}

type DrawRepository interface {
	// Create inserts the draw unless one already exists for the period, in
	// which case ErrDuplicated is returned.
	Create(ctx context.Context, data *entity.Draw) error
	GetByID(ctx context.Context, id string) (*entity.Draw, error)
	GetByPeriod(ctx context.Context, periodKey string) (*entity.Draw, error)
	GetList(ctx context.Context, filter DrawFilter) ([]entity.Draw, error)
	Lock(ctx context.Context, id string, at time.Time) error
	MarkDrawn(ctx context.Context, id string, at time.Time) error
	Publish(ctx context.Context, id string, at time.Time) error
}

type drawRepository struct{}

func NewDrawRepository() *drawRepository {
	return &drawRepository{}
}

func (r *drawRepository) Create(ctx context.Context, data *entity.Draw) error {
	tx := xcontext.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "period_key"}},
		DoNothing: true,
	}).Create(data)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return ErrDuplicated
	}

	return nil
}

func (r *drawRepository) GetByID(ctx context.Context, id string) (*entity.Draw, error) {
	var result entity.Draw
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *drawRepository) GetByPeriod(ctx context.Context, periodKey string) (*entity.Draw, error) {
	var result entity.Draw
	if err := xcontext.DB(ctx).Take(&result, "period_key=?", periodKey).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *drawRepository) GetList(ctx context.Context, filter DrawFilter) ([]entity.Draw, error) {
	tx := xcontext.DB(ctx).Model(&entity.Draw{})
	if filter.Status != "" {
		tx = tx.Where("status=?", filter.Status)
	}

	if filter.Limit > 0 {
		tx = tx.Offset(filter.Offset).Limit(filter.Limit)
	}

	var result []entity.Draw
	if err := tx.Order("period_key DESC").Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *drawRepository) Lock(ctx context.Context, id string, at time.Time) error {
	return r.transition(ctx, id, entity.DrawOpen, entity.DrawLocked, "locked_at", at)
}

// MarkDrawn moves a locked draw to drawn. It also matches an already drawn
// draw so that every winner write holds the draw row until its transaction
// ends. It returns gorm.ErrRecordNotFound if the draw is neither locked nor
// drawn, or if nothing changed.
func (r *drawRepository) MarkDrawn(ctx context.Context, id string, at time.Time) error {
	tx := xcontext.DB(ctx).Model(&entity.Draw{}).
		Where("id=? AND status IN (?)", id, []entity.DrawStatus{entity.DrawLocked, entity.DrawDrawn}).
		Updates(map[string]any{
			"status":     entity.DrawDrawn,
			"drawn_at":   gorm.Expr("COALESCE(drawn_at, ?)", at),
			"updated_at": at,
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *drawRepository) Publish(ctx context.Context, id string, at time.Time) error {
	return r.transition(ctx, id, entity.DrawDrawn, entity.DrawPublished, "published_at", at)
}

// transition moves a draw from one status to the next in a single conditional
// update. It returns gorm.ErrRecordNotFound if the draw was not in the expected
// status.
func (r *drawRepository) transition(
	ctx context.Context,
	id string,
	from, to entity.DrawStatus,
	column string,
	at time.Time,
) error {
	tx := xcontext.DB(ctx).Model(&entity.Draw{}).
		Where("id=? AND status=?", id, from).
		Updates(map[string]any{
			"status":     to,
			column:       at,
			"updated_at": at,
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
