package model

type SpinRequest struct {
	Tier string `json:"tier" validate:"omitempty,oneof=standard premium"`

	// StreakDays is the caller's count of consecutive active days.
	StreakDays  int    `json:"streak_days" validate:"gte=0"`
	DisplayName string `json:"display_name"`
}

type SpinResponse struct {
	Segment   WheelSegment `json:"segment"`
	Outcome   string       `json:"outcome"`
	Label     string       `json:"label"`
	Icon      string       `json:"icon"`
	PeriodKey string       `json:"period_key"`
	Entries   []Entry      `json:"entries"`
	Granted   int          `json:"granted"`
}

type GetWheelRequest struct{}

type GetWheelResponse struct {
	Segments []WheelSegment `json:"segments"`
	Config   AppConfig      `json:"config"`
}

type GetMyEntriesRequest struct {
	PeriodKey string `json:"period_key"`
}

type GetMyEntriesResponse struct {
	PeriodKey  string            `json:"period_key"`
	Total      int64             `json:"total"`
	Categories []CategoryTickets `json:"categories"`
}

type UpdateSegmentsRequest struct {
	Segments []WheelSegment `json:"segments" validate:"required,dive"`
	Reason   string         `json:"reason"`
}

type UpdateSegmentsResponse struct {
	Segments []WheelSegment `json:"segments"`
}

type UpdateAppConfigRequest struct {
	PremiumMultiplier   int    `json:"premium_multiplier"`
	StreakWindowDays    int    `json:"streak_window_days"`
	StreakBonusStandard int    `json:"streak_bonus_standard"`
	StreakBonusPremium  int    `json:"streak_bonus_premium"`
	Reason              string `json:"reason"`
}

type UpdateAppConfigResponse struct {
	Config AppConfig `json:"config"`
}

type GrantEntriesRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	Category  string `json:"category"`
	Quantity  int    `json:"quantity"`
	PeriodKey string `json:"period_key"`
	Reason    string `json:"reason"`
}

type GrantEntriesResponse struct {
	Entry Entry `json:"entry"`
}
