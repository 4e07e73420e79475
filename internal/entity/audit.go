package entity

import "time"

type AuditEntityType string

const (
	AuditDraw      AuditEntityType = "draw"
	AuditWinner    AuditEntityType = "winner"
	AuditEntry     AuditEntityType = "entry"
	AuditSegment   AuditEntityType = "wheel_segment"
	AuditAppConfig AuditEntityType = "app_config"
	AuditBooking   AuditEntityType = "booking"
	AuditPayment   AuditEntityType = "payment"
)

// AuditEvent is an append-only before/after record of an administrative
// override.
type AuditEvent struct {
	ID         string `gorm:"primaryKey"`
	Actor      string
	EntityType AuditEntityType `gorm:"index:idx_audit_entity,priority:1"`
	EntityID   string          `gorm:"index:idx_audit_entity,priority:2"`
	Reason     string
	Before     Map
	After      Map
	CreatedAt  time.Time
}
