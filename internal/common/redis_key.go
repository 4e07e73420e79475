package common

import (
	"fmt"
	"time"
)

const RedisKeyWheel = "lottery:wheel"

// RedisKeyStreakBonus is claimed by the first spin of day that earns the
// streak bonus of userID.
func RedisKeyStreakBonus(userID string, day time.Time) string {
	return fmt.Sprintf("lottery:streak_bonus:%s:%s", day.Format(time.DateOnly), userID)
}
