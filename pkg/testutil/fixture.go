package testutil

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/questx-lab/luckydraw/internal/entity"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
)

// ReferenceSegments is the eight-slice wheel used across tests. Standard
// weights sum to 100.
func ReferenceSegments() []entity.WheelSegment {
	return []entity.WheelSegment{
		{Index: 0, Label: "+1 entry", Icon: "ticket", Outcome: entity.EntryOutcome, Quantity: 1, WeightStandard: 18, WeightPremium: 16, Active: true},
		{Index: 1, Label: "Try again", Icon: "retry", Outcome: entity.MissOutcome, WeightStandard: 18, WeightPremium: 12, Active: true},
		{Index: 2, Label: "+2 entries", Icon: "tickets", Outcome: entity.EntryOutcome, Quantity: 2, WeightStandard: 18, WeightPremium: 18, Active: true},
		{Index: 3, Label: "Try again", Icon: "retry", Outcome: entity.MissOutcome, WeightStandard: 18, WeightPremium: 12, Active: true},
		{Index: 4, Label: "+1 service entry", Icon: "spa", Outcome: entity.CategoryEntryOutcome, Category: entity.ServiceCategory, Quantity: 1, WeightStandard: 14, WeightPremium: 18, Active: true},
		{Index: 5, Label: "+1 merch entry", Icon: "gift", Outcome: entity.CategoryEntryOutcome, Category: entity.MerchandiseCategory, Quantity: 1, WeightStandard: 10, WeightPremium: 14, Active: true},
		{Index: 6, Label: "+5 entries", Icon: "star", Outcome: entity.EntryOutcome, Quantity: 5, WeightStandard: 2, WeightPremium: 6, Active: true},
		{Index: 7, Label: "+3 service entries", Icon: "crown", Outcome: entity.CategoryEntryOutcome, Category: entity.ServiceCategory, Quantity: 3, WeightStandard: 2, WeightPremium: 4, Active: true},
	}
}

func ReferenceAppConfig() entity.AppConfig {
	return entity.AppConfig{
		ID:                  entity.AppConfigID,
		PremiumMultiplier:   2,
		StreakWindowDays:    7,
		StreakBonusStandard: 1,
		StreakBonusPremium:  3,
	}
}

// InsertWheel writes the reference wheel and app config into the database of
// ctx.
func InsertWheel(ctx context.Context) {
	segments := ReferenceSegments()
	if err := xcontext.DB(ctx).Create(&segments).Error; err != nil {
		panic(err)
	}

	cfg := ReferenceAppConfig()
	if err := xcontext.DB(ctx).Create(&cfg).Error; err != nil {
		panic(err)
	}
}

func InsertUser(ctx context.Context, id, name string) entity.User {
	user := entity.User{Base: entity.Base{ID: id}, Name: name}
	if err := xcontext.DB(ctx).Create(&user).Error; err != nil {
		panic(err)
	}

	return user
}

var entryID atomic.Int64

// InsertEntry appends a ledger row directly, bypassing id generation.
func InsertEntry(
	ctx context.Context,
	userID string,
	category entity.EntryCategory,
	quantity int,
	periodKey string,
	createdAt time.Time,
) entity.Entry {
	entry := entity.Entry{
		ID:        entryID.Add(1),
		UserID:    userID,
		Category:  category,
		Quantity:  quantity,
		PeriodKey: periodKey,
		Source:    entity.SpinSource,
		CreatedAt: createdAt.UTC(),
	}

	if err := xcontext.DB(ctx).Create(&entry).Error; err != nil {
		panic(err)
	}

	return entry
}
