package domain

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/questx-lab/luckydraw/internal/entity"
	"github.com/questx-lab/luckydraw/internal/model"
)

const defaultTimeLayout string = time.RFC3339Nano

func formatNullTime(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}

	return t.Time.UTC().Format(defaultTimeLayout)
}

func convertWheelSegment(s *entity.WheelSegment, probStandard, probPremium float64) model.WheelSegment {
	return model.WheelSegment{
		Index:               s.Index,
		Label:               s.Label,
		Icon:                s.Icon,
		Outcome:             string(s.Outcome),
		Category:            string(s.Category),
		Quantity:            s.Quantity,
		WeightStandard:      s.WeightStandard,
		WeightPremium:       s.WeightPremium,
		Active:              s.Active,
		ProbabilityStandard: probStandard,
		ProbabilityPremium:  probPremium,
	}
}

func convertAppConfig(c *entity.AppConfig) model.AppConfig {
	if c == nil {
		return model.AppConfig{}
	}

	updatedAt := ""
	if !c.UpdatedAt.IsZero() {
		updatedAt = c.UpdatedAt.UTC().Format(defaultTimeLayout)
	}

	return model.AppConfig{
		PremiumMultiplier:   c.PremiumMultiplier,
		StreakWindowDays:    c.StreakWindowDays,
		StreakBonusStandard: c.StreakBonusStandard,
		StreakBonusPremium:  c.StreakBonusPremium,
		UpdatedAt:           updatedAt,
	}
}

func convertEntry(e *entity.Entry) model.Entry {
	return model.Entry{
		ID:           strconv.FormatInt(e.ID, 10),
		UserID:       e.UserID,
		Category:     string(e.Category),
		Quantity:     e.Quantity,
		PeriodKey:    e.PeriodKey,
		Source:       string(e.Source),
		SegmentIndex: e.SegmentIndex,
		CreatedAt:    e.CreatedAt.UTC().Format(defaultTimeLayout),
	}
}

func convertDraw(d *entity.Draw) model.Draw {
	if d == nil {
		return model.Draw{}
	}

	return model.Draw{
		ID:          d.ID,
		PeriodKey:   d.PeriodKey,
		DrawDate:    d.DrawDate.Format(time.DateOnly),
		Status:      string(d.Status),
		LockedAt:    formatNullTime(d.LockedAt),
		DrawnAt:     formatNullTime(d.DrawnAt),
		PublishedAt: formatNullTime(d.PublishedAt),
	}
}

func convertWinner(w *entity.Winner) model.Winner {
	if w == nil {
		return model.Winner{}
	}

	return model.Winner{
		ID:          w.ID,
		DrawID:      w.DrawID,
		Category:    string(w.Category),
		UserID:      w.UserID,
		PublicName:  w.PublicName,
		Tickets:     w.Tickets,
		PoolSize:    w.PoolSize,
		SelectedAt:  w.SelectedAt.UTC().Format(defaultTimeLayout),
		AnnouncedAt: formatNullTime(w.AnnouncedAt),
	}
}

func convertWinners(winners []entity.Winner) []model.Winner {
	result := []model.Winner{}
	for i := range winners {
		result = append(result, convertWinner(&winners[i]))
	}

	return result
}

func convertAuditEvent(e *entity.AuditEvent) model.AuditEvent {
	return model.AuditEvent{
		ID:         e.ID,
		Actor:      e.Actor,
		EntityType: string(e.EntityType),
		EntityID:   e.EntityID,
		Reason:     e.Reason,
		Before:     e.Before,
		After:      e.After,
		CreatedAt:  e.CreatedAt.UTC().Format(defaultTimeLayout),
	}
}
