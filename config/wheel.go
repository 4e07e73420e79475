package config

import (
	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// WheelSeed is the initial wheel configuration loaded by the seed command.
type WheelSeed struct {
	PremiumMultiplier int                `toml:"premium_multiplier" validate:"gte=1"`
	StreakWindowDays  int                `toml:"streak_window_days" validate:"gte=1"`
	StreakBonus       StreakBonusSeed    `toml:"streak_bonus"`
	Segments          []WheelSegmentSeed `toml:"segments" validate:"required,dive"`
}

type StreakBonusSeed struct {
	Standard int `toml:"standard" validate:"gte=0"`
	Premium  int `toml:"premium" validate:"gte=0"`
}

type WheelSegmentSeed struct {
	Index          int    `toml:"index"`
	Label          string `toml:"label" validate:"required"`
	Icon           string `toml:"icon"`
	Outcome        string `toml:"outcome" validate:"required"`
	Category       string `toml:"category"`
	Quantity       int    `toml:"quantity"`
	WeightStandard int    `toml:"weight_standard"`
	WeightPremium  int    `toml:"weight_premium"`
	Active         *bool  `toml:"active"`
}

// IsActive defaults to true when the seed omits the field.
func (s WheelSegmentSeed) IsActive() bool {
	return s.Active == nil || *s.Active
}

func LoadWheelSeed(path string) (WheelSeed, error) {
	var seed WheelSeed
	if _, err := toml.DecodeFile(path, &seed); err != nil {
		return WheelSeed{}, err
	}

	if err := validator.New().Struct(seed); err != nil {
		return WheelSeed{}, err
	}

	return seed, nil
}
