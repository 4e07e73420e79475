package entity

import (
	"database/sql"
	"time"

	"github.com/questx-lab/luckydraw/pkg/enum"
)

type DrawStatus string

var (
	DrawOpen      = enum.New(DrawStatus("open"))
	DrawLocked    = enum.New(DrawStatus("locked"))
	DrawDrawn     = enum.New(DrawStatus("drawn"))
	DrawPublished = enum.New(DrawStatus("published"))
)

// Draw is one monthly lottery round. Status only moves forward:
// open -> locked -> drawn -> published.
type Draw struct {
	Base

	PeriodKey   string `gorm:"uniqueIndex"`
	DrawDate    time.Time
	Status      DrawStatus
	LockedAt    sql.NullTime
	DrawnAt     sql.NullTime
	PublishedAt sql.NullTime
}

type Winner struct {
	Base

	DrawID   string        `gorm:"uniqueIndex:idx_winners_draw_category,priority:1"`
	Category EntryCategory `gorm:"uniqueIndex:idx_winners_draw_category,priority:2"`

	UserID     string
	PublicName string

	// Tickets is the winner's share of the pool and PoolSize the total pool at
	// selection time.
	Tickets  int64
	PoolSize int64

	SelectedAt  time.Time
	AnnouncedAt sql.NullTime
}
