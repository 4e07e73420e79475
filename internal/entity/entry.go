package entity

import (
	"time"

	"github.com/questx-lab/luckydraw/pkg/enum"
)

type EntrySource string

var (
	SpinSource        = enum.New(EntrySource("spin"))
	StreakBonusSource = enum.New(EntrySource("streak_bonus"))
	AdminSource       = enum.New(EntrySource("admin"))
)

// Entry is an immutable grant of lottery tickets. Rows are only ever inserted.
type Entry struct {
	ID           int64         `gorm:"primaryKey;autoIncrement:false"`
	UserID       string        `gorm:"index:idx_entries_user_period,priority:1"`
	Category     EntryCategory `gorm:"index:idx_entries_pool,priority:2"`
	Quantity     int
	PeriodKey    string `gorm:"index:idx_entries_pool,priority:1;index:idx_entries_user_period,priority:2"`
	Source       EntrySource
	SegmentIndex *int
	CreatedAt    time.Time `gorm:"index:idx_entries_pool,priority:3"`
}
