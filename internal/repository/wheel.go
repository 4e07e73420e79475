package repository

import (
	"context"

	"github.com/questx-lab/luckydraw/internal/entity"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
	"gorm.io/gorm/clause"
)

type WheelRepository interface {
	GetSegments(ctx context.Context) ([]entity.WheelSegment, error)
	ReplaceSegments(ctx context.Context, segments []entity.WheelSegment) error
	GetAppConfig(ctx context.Context) (*entity.AppConfig, error)
	SaveAppConfig(ctx context.Context, cfg *entity.AppConfig) error
}

type wheelRepository struct{}

func NewWheelRepository() *wheelRepository {
	return &wheelRepository{}
}

func (r *wheelRepository) GetSegments(ctx context.Context) ([]entity.WheelSegment, error) {
	var result []entity.WheelSegment
	if err := xcontext.DB(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: "index"}}).
		Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

// ReplaceSegments swaps the whole segment table. It should be called inside a
// transaction.
func (r *wheelRepository) ReplaceSegments(ctx context.Context, segments []entity.WheelSegment) error {
	if err := xcontext.DB(ctx).Where("1=1").Delete(&entity.WheelSegment{}).Error; err != nil {
		return err
	}

	if len(segments) == 0 {
		return nil
	}

	return xcontext.DB(ctx).Create(&segments).Error
}

func (r *wheelRepository) GetAppConfig(ctx context.Context) (*entity.AppConfig, error) {
	var result entity.AppConfig
	if err := xcontext.DB(ctx).Take(&result, "id=?", entity.AppConfigID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *wheelRepository) SaveAppConfig(ctx context.Context, cfg *entity.AppConfig) error {
	cfg.ID = entity.AppConfigID
	return xcontext.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(cfg).Error
}
