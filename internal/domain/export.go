package domain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/questx-lab/luckydraw/internal/common"
	"github.com/questx-lab/luckydraw/internal/entity"
	"github.com/questx-lab/luckydraw/internal/model"
	"github.com/questx-lab/luckydraw/internal/repository"
	"github.com/questx-lab/luckydraw/pkg/errorx"
	"github.com/questx-lab/luckydraw/pkg/storage"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	xlsxFormat = "xlsx"
	xlsxMime   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	winnersSheet = "winners"

	userBatchSize = 500
)

var (
	entryHeader  = []string{"user_id", "display_name", "category", "quantity", "source", "created_at"}
	winnerHeader = []string{"category", "user_id", "display_name", "public_name", "announced_at"}
)

type ExportDomain interface {
	ExportEntries(context.Context, *model.ExportEntriesRequest) (*model.ExportEntriesResponse, error)
	ExportWinners(context.Context, *model.ExportWinnersRequest) (*model.ExportWinnersResponse, error)
	ArchiveExport(context.Context, *model.ArchiveExportRequest) (*model.ArchiveExportResponse, error)
	WriteWorkbook(ctx context.Context, periodKey string, w io.Writer) error
}

type exportDomain struct {
	entryRepo  repository.EntryRepository
	drawRepo   repository.DrawRepository
	winnerRepo repository.WinnerRepository
	userRepo   repository.UserRepository
	storage    storage.Storage
}

func NewExportDomain(
	entryRepo repository.EntryRepository,
	drawRepo repository.DrawRepository,
	winnerRepo repository.WinnerRepository,
	userRepo repository.UserRepository,
	storage storage.Storage,
) *exportDomain {
	return &exportDomain{
		entryRepo:  entryRepo,
		drawRepo:   drawRepo,
		winnerRepo: winnerRepo,
		userRepo:   userRepo,
		storage:    storage,
	}
}

// ExportEntries lists the ledger of a period. Once the draw of the period is
// locked, only entries written before the lock are listed. With the xlsx
// format the workbook is written to the http response and no rows are
// returned.
func (d *exportDomain) ExportEntries(
	ctx context.Context, req *model.ExportEntriesRequest,
) (*model.ExportEntriesResponse, error) {
	period, err := parsePeriodKey(ctx, req.PeriodKey)
	if err != nil {
		return nil, err
	}

	var category entity.EntryCategory
	if req.Category != "" {
		if category, err = parseCategory(req.Category); err != nil {
			return nil, err
		}
	}

	rows, err := d.entryRows(ctx, period.Key(), category)
	if err != nil {
		return nil, err
	}

	if req.Format != xlsxFormat {
		return &model.ExportEntriesResponse{Rows: rows}, nil
	}

	sheet := "entries"
	if category != "" {
		sheet = string(category)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, sheet, entryHeader, entryRecords(rows)); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot write entries sheet: %v", err)
		return nil, errorx.Unknown
	}

	return nil, writeAttachment(ctx, f, fmt.Sprintf("entries-%s.xlsx", period.Key()))
}

func (d *exportDomain) ExportWinners(
	ctx context.Context, req *model.ExportWinnersRequest,
) (*model.ExportWinnersResponse, error) {
	period, err := parsePeriodKey(ctx, req.PeriodKey)
	if err != nil {
		return nil, err
	}

	rows, err := d.winnerRows(ctx, period.Key())
	if err != nil {
		return nil, err
	}

	if req.Format != xlsxFormat {
		return &model.ExportWinnersResponse{Rows: rows}, nil
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, winnersSheet, winnerHeader, winnerRecords(rows)); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot write winners sheet: %v", err)
		return nil, errorx.Unknown
	}

	return nil, writeAttachment(ctx, f, fmt.Sprintf("winners-%s.xlsx", period.Key()))
}

// ArchiveExport uploads the full workbook of a period, one sheet per entry
// category plus the winners sheet.
func (d *exportDomain) ArchiveExport(
	ctx context.Context, req *model.ArchiveExportRequest,
) (*model.ArchiveExportResponse, error) {
	if d.storage == nil {
		return nil, errorx.New(errorx.Unavailable, "Export storage is not configured")
	}

	period, err := parsePeriodKey(ctx, req.PeriodKey)
	if err != nil {
		return nil, err
	}

	f, err := d.workbook(ctx, period.Key())
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot write workbook: %v", err)
		return nil, errorx.Unknown
	}

	resp, err := d.storage.Upload(ctx, &storage.UploadObject{
		Prefix:   "exports/" + period.Key(),
		FileName: fmt.Sprintf("lottery-%s.xlsx", period.Key()),
		Mime:     xlsxMime,
		Data:     buf.Bytes(),
		Metadata: map[string]string{
			"period": period.Key(),
			"actor":  xcontext.Actor(ctx),
		},
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot upload workbook: %v", err)
		return nil, errorx.New(errorx.Unavailable, "Cannot upload the export")
	}

	return &model.ArchiveExportResponse{
		Url:       resp.Url,
		Key:       resp.Key,
		ExpiresAt: resp.ExpiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// WriteWorkbook writes the same workbook as ArchiveExport to w.
func (d *exportDomain) WriteWorkbook(ctx context.Context, periodKey string, w io.Writer) error {
	period, err := parsePeriodKey(ctx, periodKey)
	if err != nil {
		return err
	}

	f, err := d.workbook(ctx, period.Key())
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot write workbook: %v", err)
		return errorx.Unknown
	}

	return nil
}

func (d *exportDomain) workbook(ctx context.Context, periodKey string) (*excelize.File, error) {
	until, err := d.lockTime(ctx, periodKey)
	if err != nil {
		return nil, err
	}

	categories, err := d.entryRepo.GetCategories(ctx, periodKey, until)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get categories: %v", err)
		return nil, errorx.Unknown
	}

	f := excelize.NewFile()
	for _, category := range categories {
		rows, err := d.entryRows(ctx, periodKey, category)
		if err != nil {
			f.Close()
			return nil, err
		}

		if err := writeSheet(f, string(category), entryHeader, entryRecords(rows)); err != nil {
			f.Close()
			xcontext.Logger(ctx).Errorf("Cannot write sheet %s: %v", category, err)
			return nil, errorx.Unknown
		}
	}

	winners, err := d.winnerRows(ctx, periodKey)
	if err != nil && !errorx.Is(err, errorx.NotFound) {
		f.Close()
		return nil, err
	}

	if err := writeSheet(f, winnersSheet, winnerHeader, winnerRecords(winners)); err != nil {
		f.Close()
		xcontext.Logger(ctx).Errorf("Cannot write winners sheet: %v", err)
		return nil, errorx.Unknown
	}

	return f, nil
}

// lockTime returns the lock time of the period's draw, or the zero time if the
// period is not locked yet.
func (d *exportDomain) lockTime(ctx context.Context, periodKey string) (time.Time, error) {
	draw, err := d.drawRepo.GetByPeriod(ctx, periodKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, nil
		}

		xcontext.Logger(ctx).Errorf("Cannot get draw: %v", err)
		return time.Time{}, errorx.Unknown
	}

	if !draw.LockedAt.Valid {
		return time.Time{}, nil
	}

	return draw.LockedAt.Time, nil
}

func (d *exportDomain) entryRows(
	ctx context.Context, periodKey string, category entity.EntryCategory,
) ([]model.EntryRow, error) {
	until, err := d.lockTime(ctx, periodKey)
	if err != nil {
		return nil, err
	}

	entries, err := d.entryRepo.GetList(ctx, repository.EntryFilter{
		PeriodKey: periodKey,
		Category:  category,
		Until:     until,
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get entries: %v", err)
		return nil, errorx.Unknown
	}

	userIDs := []string{}
	for _, e := range entries {
		userIDs = append(userIDs, e.UserID)
	}

	names, err := d.displayNames(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	rows := []model.EntryRow{}
	for _, e := range entries {
		rows = append(rows, model.EntryRow{
			UserID:      e.UserID,
			DisplayName: names[e.UserID],
			Category:    string(e.Category),
			Quantity:    e.Quantity,
			Source:      string(e.Source),
			CreatedAt:   e.CreatedAt.UTC().Format(defaultTimeLayout),
		})
	}

	return rows, nil
}

func (d *exportDomain) winnerRows(ctx context.Context, periodKey string) ([]model.WinnerRow, error) {
	draw, err := d.drawRepo.GetByPeriod(ctx, periodKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found draw of %s", periodKey)
		}

		xcontext.Logger(ctx).Errorf("Cannot get draw: %v", err)
		return nil, errorx.Unknown
	}

	winners, err := d.winnerRepo.GetByDrawID(ctx, draw.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get winners: %v", err)
		return nil, errorx.Unknown
	}

	userIDs := []string{}
	for _, w := range winners {
		userIDs = append(userIDs, w.UserID)
	}

	names, err := d.displayNames(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	rows := []model.WinnerRow{}
	for _, w := range winners {
		rows = append(rows, model.WinnerRow{
			Category:    string(w.Category),
			UserID:      w.UserID,
			DisplayName: names[w.UserID],
			PublicName:  w.PublicName,
			AnnouncedAt: formatNullTime(w.AnnouncedAt),
		})
	}

	return rows, nil
}

// displayNames maps user ids to their names. Users without a profile are left
// out of the map.
func (d *exportDomain) displayNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	seen := map[string]bool{}
	pending := []string{}
	for _, id := range userIDs {
		if !seen[id] {
			seen[id] = true
			pending = append(pending, id)
		}
	}

	names := map[string]string{}
	for len(pending) > 0 {
		batch := common.Batch(&pending, userBatchSize)
		users, err := d.userRepo.GetByIDs(ctx, batch)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot get users: %v", err)
			return nil, errorx.Unknown
		}

		for _, u := range users {
			names[u.ID] = u.Name
		}
	}

	return names, nil
}

func entryRecords(rows []model.EntryRow) [][]any {
	records := [][]any{}
	for _, r := range rows {
		records = append(records, []any{
			r.UserID, r.DisplayName, r.Category, r.Quantity, r.Source, r.CreatedAt,
		})
	}

	return records
}

func winnerRecords(rows []model.WinnerRow) [][]any {
	records := [][]any{}
	for _, r := range rows {
		records = append(records, []any{
			r.Category, r.UserID, r.DisplayName, r.PublicName, r.AnnouncedAt,
		})
	}

	return records
}

// writeSheet fills a sheet with a header row followed by records. The default
// sheet of a new workbook is renamed for the first sheet written.
func writeSheet(f *excelize.File, name string, header []string, records [][]any) error {
	if f.SheetCount == 1 && f.GetSheetName(0) == "Sheet1" {
		if err := f.SetSheetName("Sheet1", name); err != nil {
			return err
		}
	} else if _, err := f.NewSheet(name); err != nil {
		return err
	}

	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}

	for i := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		if err := f.SetSheetRow(name, cell, &records[i]); err != nil {
			return err
		}
	}

	return nil
}

func writeAttachment(ctx context.Context, f *excelize.File, fileName string) error {
	w := xcontext.HTTPWriter(ctx)
	if w == nil {
		return errorx.New(errorx.BadRequest, "Format xlsx is only available over http")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot write workbook: %v", err)
		return errorx.Unknown
	}

	w.Header().Set("Content-Type", xlsxMime)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot send workbook: %v", err)
	}

	return nil
}
