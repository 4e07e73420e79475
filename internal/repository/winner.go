package repository

import (
	"context"
	"time"

	"github.com/questx-lab/luckydraw/internal/entity"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
	"gorm.io/gorm/clause"
)

type WinnerRepository interface {
	// CreateIfNotExists returns ErrDuplicated if a winner already exists for
	// the draw and category.
	CreateIfNotExists(ctx context.Context, data *entity.Winner) error
	Upsert(ctx context.Context, data *entity.Winner) error
	Get(ctx context.Context, drawID string, category entity.EntryCategory) (*entity.Winner, error)
	GetByDrawID(ctx context.Context, drawID string) ([]entity.Winner, error)
	Count(ctx context.Context, drawID string) (int64, error)
	Announce(ctx context.Context, drawID string, at time.Time) error
}

type winnerRepository struct{}

func NewWinnerRepository() *winnerRepository {
	return &winnerRepository{}
}

func (r *winnerRepository) CreateIfNotExists(ctx context.Context, data *entity.Winner) error {
	tx := xcontext.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "draw_id"}, {Name: "category"}},
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

func (r *winnerRepository) Upsert(ctx context.Context, data *entity.Winner) error {
	return xcontext.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "draw_id"}, {Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id", "public_name", "tickets", "pool_size", "selected_at", "updated_at",
		}),
	}).Create(data).Error
}

func (r *winnerRepository) Get(
	ctx context.Context, drawID string, category entity.EntryCategory,
) (*entity.Winner, error) {
	var result entity.Winner
	err := xcontext.DB(ctx).Take(&result, "draw_id=? AND category=?", drawID, category).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *winnerRepository) GetByDrawID(ctx context.Context, drawID string) ([]entity.Winner, error) {
	var result []entity.Winner
	err := xcontext.DB(ctx).Where("draw_id=?", drawID).Order("category ASC").Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *winnerRepository) Count(ctx context.Context, drawID string) (int64, error) {
	var result int64
	if err := xcontext.DB(ctx).Model(&entity.Winner{}).Where("draw_id=?", drawID).
		Count(&result).Error; err != nil {
		return 0, err
	}

	return result, nil
}

func (r *winnerRepository) Announce(ctx context.Context, drawID string, at time.Time) error {
	return xcontext.DB(ctx).Model(&entity.Winner{}).
		Where("draw_id=? AND announced_at IS NULL", drawID).
		Update("announced_at", at).Error
}
