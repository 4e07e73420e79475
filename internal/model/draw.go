package model

type EnsureDrawRequest struct {
	PeriodKey string `json:"period_key"`
}

type EnsureDrawResponse struct {
	Draw Draw `json:"draw"`
}

type LockDrawRequest struct {
	DrawID string `json:"draw_id" validate:"required"`
}

type LockDrawResponse struct {
	Draw Draw `json:"draw"`
}

type SelectWinnerRequest struct {
	DrawID   string `json:"draw_id" validate:"required"`
	Category string `json:"category"`
}

type SelectWinnerResponse struct {
	Winner Winner `json:"winner"`
}

type RerollWinnerRequest struct {
	DrawID   string `json:"draw_id" validate:"required"`
	Category string `json:"category"`
	Reason   string `json:"reason" validate:"required"`
}

type RerollWinnerResponse struct {
	Winner   Winner  `json:"winner"`
	Previous *Winner `json:"previous,omitempty"`
}

type PublishDrawRequest struct {
	DrawID string `json:"draw_id" validate:"required"`
}

type PublishDrawResponse struct {
	Draw    Draw     `json:"draw"`
	Winners []Winner `json:"winners"`
}

type GetDrawRequest struct {
	DrawID    string `json:"draw_id"`
	PeriodKey string `json:"period_key"`
}

type GetDrawResponse struct {
	Draw Draw `json:"draw"`
}

type GetWinnersRequest struct {
	DrawID string `json:"draw_id" validate:"required"`
}

type GetWinnersResponse struct {
	Winners []Winner `json:"winners"`
}

type ExportEntriesRequest struct {
	PeriodKey string `json:"period_key" validate:"required"`
	Category  string `json:"category"`

	// Format is either json or xlsx.
	Format string `json:"format" validate:"omitempty,oneof=json xlsx"`
}

type ExportEntriesResponse struct {
	Rows []EntryRow `json:"rows"`
}

type ExportWinnersRequest struct {
	PeriodKey string `json:"period_key" validate:"required"`
	Format    string `json:"format" validate:"omitempty,oneof=json xlsx"`
}

type ExportWinnersResponse struct {
	Rows []WinnerRow `json:"rows"`
}

type ArchiveExportRequest struct {
	PeriodKey string `json:"period_key" validate:"required"`
}

type ArchiveExportResponse struct {
	Url       string `json:"url"`
	Key       string `json:"key"`
	ExpiresAt string `json:"expires_at"`
}
