package model

type WheelSegment struct {
	Index          int    `json:"index"`
	Label          string `json:"label"`
	Icon           string `json:"icon"`
	Outcome        string `json:"outcome"`
	Category       string `json:"category,omitempty"`
	Quantity       int    `json:"quantity"`
	WeightStandard int    `json:"weight_standard"`
	WeightPremium  int    `json:"weight_premium"`
	Active         bool   `json:"active"`

	// Chance of landing on this segment, only filled for active segments.
	ProbabilityStandard float64 `json:"probability_standard,omitempty"`
	ProbabilityPremium  float64 `json:"probability_premium,omitempty"`
}

type AppConfig struct {
	PremiumMultiplier   int    `json:"premium_multiplier"`
	StreakWindowDays    int    `json:"streak_window_days"`
	StreakBonusStandard int    `json:"streak_bonus_standard"`
	StreakBonusPremium  int    `json:"streak_bonus_premium"`
	UpdatedAt           string `json:"updated_at,omitempty"`
}

type Entry struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Category     string `json:"category"`
	Quantity     int    `json:"quantity"`
	PeriodKey    string `json:"period_key"`
	Source       string `json:"source"`
	SegmentIndex *int   `json:"segment_index,omitempty"`
	CreatedAt    string `json:"created_at"`
}

type CategoryTickets struct {
	Category string `json:"category"`
	Tickets  int64  `json:"tickets"`
}

type Draw struct {
	ID          string `json:"id"`
	PeriodKey   string `json:"period_key"`
	DrawDate    string `json:"draw_date"`
	Status      string `json:"status"`
	LockedAt    string `json:"locked_at,omitempty"`
	DrawnAt     string `json:"drawn_at,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

type Winner struct {
	ID          string `json:"id"`
	DrawID      string `json:"draw_id"`
	Category    string `json:"category"`
	UserID      string `json:"user_id"`
	PublicName  string `json:"public_name"`
	Tickets     int64  `json:"tickets"`
	PoolSize    int64  `json:"pool_size"`
	SelectedAt  string `json:"selected_at"`
	AnnouncedAt string `json:"announced_at,omitempty"`
}

type AuditEvent struct {
	ID         string         `json:"id"`
	Actor      string         `json:"actor"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Reason     string         `json:"reason,omitempty"`
	Before     map[string]any `json:"before"`
	After      map[string]any `json:"after"`
	CreatedAt  string         `json:"created_at"`
}

type EntryRow struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Category    string `json:"category"`
	Quantity    int    `json:"quantity"`
	Source      string `json:"source"`
	CreatedAt   string `json:"created_at"`
}

type WinnerRow struct {
	Category    string `json:"category"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	PublicName  string `json:"public_name"`
	AnnouncedAt string `json:"announced_at"`
}
