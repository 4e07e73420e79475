package entity

import (
	"time"

	"github.com/questx-lab/luckydraw/pkg/enum"
)

type Tier string

var (
	StandardTier = enum.New(Tier("standard"))
	PremiumTier  = enum.New(Tier("premium"))
)

type OutcomeKind string

var (
	MissOutcome          = enum.New(OutcomeKind("miss"))
	EntryOutcome         = enum.New(OutcomeKind("entry"))
	CategoryEntryOutcome = enum.New(OutcomeKind("category_entry"))
)

type EntryCategory string

var (
	GeneralCategory     = enum.New(EntryCategory("general"))
	ServiceCategory     = enum.New(EntryCategory("service"))
	MerchandiseCategory = enum.New(EntryCategory("merchandise"))
)

// WheelSegment is one slice of the reward wheel. Index is the position on the
// wheel and also the primary key.
type WheelSegment struct {
	Index          int `gorm:"primaryKey;autoIncrement:false"`
	Label          string
	Icon           string
	Outcome        OutcomeKind
	Category       EntryCategory
	Quantity       int
	WeightStandard int
	WeightPremium  int
	Active         bool
	UpdatedAt      time.Time
}

// Weight returns the weight column selected by tier.
func (s WheelSegment) Weight(tier Tier) int {
	if tier == PremiumTier {
		return s.WeightPremium
	}

	return s.WeightStandard
}

// EntryCategory returns the category entries granted by this segment belong
// to. Plain entry outcomes always go to the general pool.
func (s WheelSegment) EntryCategory() EntryCategory {
	if s.Outcome == CategoryEntryOutcome {
		return s.Category
	}

	return GeneralCategory
}

const AppConfigID = 1

// AppConfig holds the global tunables. There is a single row with
// ID=AppConfigID.
type AppConfig struct {
	ID                  int `gorm:"primaryKey;autoIncrement:false"`
	PremiumMultiplier   int
	StreakWindowDays    int
	StreakBonusStandard int
	StreakBonusPremium  int
	UpdatedAt           time.Time
}

func (c AppConfig) StreakBonus(tier Tier) int {
	if tier == PremiumTier {
		return c.StreakBonusPremium
	}

	return c.StreakBonusStandard
}
