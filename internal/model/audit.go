package model

type RecordOverrideRequest struct {
	EntityType string         `json:"entity_type" validate:"required"`
	EntityID   string         `json:"entity_id" validate:"required"`
	Before     map[string]any `json:"before"`
	After      map[string]any `json:"after"`
	Reason     string         `json:"reason"`
}

type RecordOverrideResponse struct {
	ID string `json:"id"`
}

type GetAuditEventsRequest struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Actor      string `json:"actor"`
	Offset     int    `json:"offset"`
	Limit      int    `json:"limit"`
}

type GetAuditEventsResponse struct {
	Events []AuditEvent `json:"events"`
}
