package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/questx-lab/luckydraw/internal/entity"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
)

type PoolEntrant struct {
	UserID  string
	Tickets int64
}

type CategoryTotal struct {
	Category entity.EntryCategory
	Tickets  int64
}

type EntryPoolFilter struct {
	PeriodKey string
	Category  entity.EntryCategory

	// Until excludes entries written after this instant. Zero means no limit.
	Until time.Time
}

type EntryFilter struct {
	PeriodKey string
	Category  entity.EntryCategory
	UserID    string
	Until     time.Time
}

type EntryRepository interface {
	Create(ctx context.Context, entries []entity.Entry) error
	GetList(ctx context.Context, filter EntryFilter) ([]entity.Entry, error)
	Pool(ctx context.Context, filter EntryPoolFilter) ([]PoolEntrant, error)
	GetCategories(ctx context.Context, periodKey string, until time.Time) ([]entity.EntryCategory, error)
	SumByCategory(ctx context.Context, userID, periodKey string) ([]CategoryTotal, error)
	CountBySource(ctx context.Context, userID string, source entity.EntrySource, since time.Time) (int64, error)
}

type entryRepository struct {
	node *snowflake.Node
}

func NewEntryRepository(node *snowflake.Node) *entryRepository {
	return &entryRepository{node: node}
}

// Create appends entries to the ledger. CreatedAt is always the write time,
// rounded up to the millisecond precision of draw lock timestamps so that an
// entry stored after a lock sorts strictly after it.
func (r *entryRepository) Create(ctx context.Context, entries []entity.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	now := time.Now().UTC()
	if ms := now.Truncate(time.Millisecond); !ms.Equal(now) {
		now = ms.Add(time.Millisecond)
	}

	for i := range entries {
		if entries[i].ID == 0 {
			entries[i].ID = r.node.Generate().Int64()
		}

		entries[i].CreatedAt = now
	}

	return xcontext.DB(ctx).Create(&entries).Error
}

func (r *entryRepository) GetList(ctx context.Context, filter EntryFilter) ([]entity.Entry, error) {
	tx := xcontext.DB(ctx).Model(&entity.Entry{})
	if filter.PeriodKey != "" {
		tx = tx.Where("period_key=?", filter.PeriodKey)
	}

	if filter.Category != "" {
		tx = tx.Where("category=?", filter.Category)
	}

	if filter.UserID != "" {
		tx = tx.Where("user_id=?", filter.UserID)
	}

	if !filter.Until.IsZero() {
		tx = tx.Where("created_at<=?", filter.Until)
	}

	var result []entity.Entry
	if err := tx.Order("created_at ASC, id ASC").Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

// Pool returns the number of tickets each user holds in a category, ordered by
// user id so that the result is stable across calls.
func (r *entryRepository) Pool(ctx context.Context, filter EntryPoolFilter) ([]PoolEntrant, error) {
	tx := xcontext.DB(ctx).Model(&entity.Entry{}).
		Select("user_id, SUM(quantity) AS tickets").
		Where("period_key=? AND category=?", filter.PeriodKey, filter.Category)

	if !filter.Until.IsZero() {
		tx = tx.Where("created_at<=?", filter.Until)
	}

	var result []PoolEntrant
	if err := tx.Group("user_id").Having("SUM(quantity)>0").Order("user_id ASC").
		Scan(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *entryRepository) GetCategories(
	ctx context.Context, periodKey string, until time.Time,
) ([]entity.EntryCategory, error) {
	tx := xcontext.DB(ctx).Model(&entity.Entry{}).Where("period_key=?", periodKey)
	if !until.IsZero() {
		tx = tx.Where("created_at<=?", until)
	}

	var result []entity.EntryCategory
	if err := tx.Distinct("category").Order("category ASC").Pluck("category", &result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *entryRepository) SumByCategory(ctx context.Context, userID, periodKey string) ([]CategoryTotal, error) {
	var result []CategoryTotal
	err := xcontext.DB(ctx).Model(&entity.Entry{}).
		Select("category, SUM(quantity) AS tickets").
		Where("user_id=? AND period_key=?", userID, periodKey).
		Group("category").Order("category ASC").
		Scan(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *entryRepository) CountBySource(
	ctx context.Context, userID string, source entity.EntrySource, since time.Time,
) (int64, error) {
	var result int64
	err := xcontext.DB(ctx).Model(&entity.Entry{}).
		Where("user_id=? AND source=? AND created_at>=?", userID, source, since).
		Count(&result).Error
	if err != nil {
		return 0, err
	}

	return result, nil
}
