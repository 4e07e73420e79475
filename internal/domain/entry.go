package domain

import (
	"context"
	"errors"

	"github.com/questx-lab/luckydraw/internal/common"
	"github.com/questx-lab/luckydraw/internal/entity"
	"github.com/questx-lab/luckydraw/internal/model"
	"github.com/questx-lab/luckydraw/internal/repository"
	"github.com/questx-lab/luckydraw/pkg/errorx"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
	"gorm.io/gorm"
)

type EntryDomain interface {
	GetMyEntries(context.Context, *model.GetMyEntriesRequest) (*model.GetMyEntriesResponse, error)
	GrantEntries(context.Context, *model.GrantEntriesRequest) (*model.GrantEntriesResponse, error)
}

type entryDomain struct {
	entryRepo     repository.EntryRepository
	drawRepo      repository.DrawRepository
	userRepo      repository.UserRepository
	auditRecorder *AuditRecorder
}

func NewEntryDomain(
	entryRepo repository.EntryRepository,
	drawRepo repository.DrawRepository,
	userRepo repository.UserRepository,
	auditRecorder *AuditRecorder,
) *entryDomain {
	return &entryDomain{
		entryRepo:     entryRepo,
		drawRepo:      drawRepo,
		userRepo:      userRepo,
		auditRecorder: auditRecorder,
	}
}

func (d *entryDomain) GetMyEntries(
	ctx context.Context, req *model.GetMyEntriesRequest,
) (*model.GetMyEntriesResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	if userID == "" {
		return nil, errorx.New(errorx.Unauthenticated, "You need to authenticate before")
	}

	period, err := parsePeriodKey(ctx, req.PeriodKey)
	if err != nil {
		return nil, err
	}

	totals, err := d.entryRepo.SumByCategory(ctx, userID, period.Key())
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot sum entries: %v", err)
		return nil, errorx.Unknown
	}

	resp := &model.GetMyEntriesResponse{
		PeriodKey:  period.Key(),
		Categories: []model.CategoryTickets{},
	}
	for _, t := range totals {
		resp.Total += t.Tickets
		resp.Categories = append(resp.Categories, model.CategoryTickets{
			Category: string(t.Category),
			Tickets:  t.Tickets,
		})
	}

	return resp, nil
}

// GrantEntries writes an administrative grant. Grants into the period of a
// published draw are rejected.
func (d *entryDomain) GrantEntries(
	ctx context.Context, req *model.GrantEntriesRequest,
) (*model.GrantEntriesResponse, error) {
	if err := requireActor(ctx); err != nil {
		return nil, err
	}

	if req.UserID == "" {
		return nil, errorx.New(errorx.BadRequest, "Require a user id")
	}

	if req.Quantity <= 0 {
		return nil, errorx.New(errorx.InvalidQuantity, "Quantity must be a positive number")
	}

	category, err := parseCategory(req.Category)
	if err != nil {
		return nil, err
	}

	period, err := parsePeriodKey(ctx, req.PeriodKey)
	if err != nil {
		return nil, err
	}

	draw, err := d.drawRepo.GetByPeriod(ctx, period.Key())
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get draw: %v", err)
		return nil, errorx.Unknown
	}

	if err == nil && draw.Status == entity.DrawPublished {
		return nil, errorx.New(errorx.DrawFinalized, "The draw of %s is already published", period.Key())
	}

	entry := entity.Entry{
		UserID:    req.UserID,
		Category:  category,
		Quantity:  req.Quantity,
		PeriodKey: period.Key(),
		Source:    entity.AdminSource,
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.userRepo.Upsert(ctx, &entity.User{Base: entity.Base{ID: req.UserID}}); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot upsert user: %v", err)
		return nil, errorx.Unknown
	}

	entries := []entity.Entry{entry}
	if err := d.entryRepo.Create(ctx, entries); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create entry: %v", err)
		return nil, errorx.Unknown
	}

	ctx, err = xcontext.CommitDBTransaction(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit entry grant: %v", err)
		return nil, errorx.Unknown
	}

	common.PromCounters[common.EntryGrantedTotal].
		WithLabelValues(string(category), string(entity.AdminSource)).
		Add(float64(req.Quantity))

	clientEntry := convertEntry(&entries[0])
	d.auditRecorder.Record(ctx, entity.AuditEntry, clientEntry.ID, req.Reason, nil, clientEntry)

	return &model.GrantEntriesResponse{Entry: clientEntry}, nil
}
