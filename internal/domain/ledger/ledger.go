// Package ledger turns a resolved spin into entry grants.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/questx-lab/luckydraw/internal/entity"
	"github.com/questx-lab/luckydraw/pkg/dateutil"
)

var ErrInvalidQuantity = errors.New("invalid entry quantity")

// StreakState is the user's consecutive activity as tracked by the caller.
type StreakState struct {
	Days int

	// BonusGranted is true if a streak bonus was already granted in the
	// current day.
	BonusGranted bool
}

// Grant computes the entries earned by landing on segment. A miss earns
// nothing. The returned entries have neither id nor write time, both are
// assigned when they are stored.
func Grant(
	userID string,
	segment entity.WheelSegment,
	tier entity.Tier,
	cfg entity.AppConfig,
	streak StreakState,
	now time.Time,
) ([]entity.Entry, error) {
	if segment.Outcome == entity.MissOutcome {
		return nil, nil
	}

	quantity := segment.Quantity
	if tier == entity.PremiumTier {
		quantity *= cfg.PremiumMultiplier
	}

	if quantity <= 0 {
		return nil, fmt.Errorf("%w: segment %d grants %d entries", ErrInvalidQuantity, segment.Index, quantity)
	}

	periodKey := dateutil.PeriodOf(now).Key()
	index := segment.Index

	entries := []entity.Entry{{
		UserID:       userID,
		Category:     segment.EntryCategory(),
		Quantity:     quantity,
		PeriodKey:    periodKey,
		Source:       entity.SpinSource,
		SegmentIndex: &index,
	}}

	if EarnsStreakBonus(cfg, streak) {
		bonus := cfg.StreakBonus(tier)
		if bonus < 0 {
			return nil, fmt.Errorf("%w: streak bonus of %s tier is %d", ErrInvalidQuantity, tier, bonus)
		}

		if bonus > 0 {
			entries = append(entries, entity.Entry{
				UserID:    userID,
				Category:  entity.GeneralCategory,
				Quantity:  bonus,
				PeriodKey: periodKey,
				Source:    entity.StreakBonusSource,
			})
		}
	}

	return entries, nil
}

func EarnsStreakBonus(cfg entity.AppConfig, streak StreakState) bool {
	return cfg.StreakWindowDays >= 1 && streak.Days >= cfg.StreakWindowDays && !streak.BonusGranted
}

// Total sums the quantities of entries.
func Total(entries []entity.Entry) int {
	total := 0
	for _, e := range entries {
		total += e.Quantity
	}

	return total
}
