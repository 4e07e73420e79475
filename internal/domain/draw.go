package domain

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/questx-lab/luckydraw/internal/common"
	"github.com/questx-lab/luckydraw/internal/domain/drawing"
	"github.com/questx-lab/luckydraw/internal/entity"
	"github.com/questx-lab/luckydraw/internal/model"
	"github.com/questx-lab/luckydraw/internal/repository"
	"github.com/questx-lab/luckydraw/pkg/errorx"
	"github.com/questx-lab/luckydraw/pkg/pubsub"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
	"gorm.io/gorm"
)

type DrawDomain interface {
	EnsureDraw(context.Context, *model.EnsureDrawRequest) (*model.EnsureDrawResponse, error)
	Lock(context.Context, *model.LockDrawRequest) (*model.LockDrawResponse, error)
	SelectWinner(context.Context, *model.SelectWinnerRequest) (*model.SelectWinnerResponse, error)
	RerollWinner(context.Context, *model.RerollWinnerRequest) (*model.RerollWinnerResponse, error)
	Publish(context.Context, *model.PublishDrawRequest) (*model.PublishDrawResponse, error)
	GetDraw(context.Context, *model.GetDrawRequest) (*model.GetDrawResponse, error)
	GetWinners(context.Context, *model.GetWinnersRequest) (*model.GetWinnersResponse, error)
}

type drawDomain struct {
	drawRepo       repository.DrawRepository
	winnerRepo     repository.WinnerRepository
	entryRepo      repository.EntryRepository
	userRepo       repository.UserRepository
	auditRecorder  *AuditRecorder
	eventPublisher *drawEventPublisher

	// pick draws one entrant from a pool. It is replaceable in tests.
	pick func(*drawing.Pool) (drawing.Entrant, error)
}

func NewDrawDomain(
	drawRepo repository.DrawRepository,
	winnerRepo repository.WinnerRepository,
	entryRepo repository.EntryRepository,
	userRepo repository.UserRepository,
	auditRecorder *AuditRecorder,
	publisher pubsub.Publisher,
) *drawDomain {
	return &drawDomain{
		drawRepo:       drawRepo,
		winnerRepo:     winnerRepo,
		entryRepo:      entryRepo,
		userRepo:       userRepo,
		auditRecorder:  auditRecorder,
		eventPublisher: newDrawEventPublisher(publisher),
		pick:           (*drawing.Pool).Pick,
	}
}

func (d *drawDomain) EnsureDraw(
	ctx context.Context, req *model.EnsureDrawRequest,
) (*model.EnsureDrawResponse, error) {
	period, err := parsePeriodKey(ctx, req.PeriodKey)
	if err != nil {
		return nil, err
	}

	// The draw date is a calendar date, it is stored at midnight UTC so that
	// it reads back as the same day.
	drawDate := period.DrawDate()
	draw := &entity.Draw{
		Base:      entity.Base{ID: uuid.NewString()},
		PeriodKey: period.Key(),
		DrawDate:  time.Date(drawDate.Year(), drawDate.Month(), drawDate.Day(), 0, 0, 0, 0, time.UTC),
		Status:    entity.DrawOpen,
	}

	err = d.drawRepo.Create(ctx, draw)
	if errors.Is(err, repository.ErrDuplicated) {
		draw, err = d.drawRepo.GetByPeriod(ctx, period.Key())
	}

	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot ensure draw of %s: %v", period.Key(), err)
		return nil, errorx.Unknown
	}

	return &model.EnsureDrawResponse{Draw: convertDraw(draw)}, nil
}

func (d *drawDomain) Lock(ctx context.Context, req *model.LockDrawRequest) (*model.LockDrawResponse, error) {
	draw, err := d.getDraw(ctx, req.DrawID)
	if err != nil {
		return nil, err
	}

	if err := checkTransition(draw, entity.DrawOpen); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	if err := d.drawRepo.Lock(ctx, draw.ID, now); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, d.lostTransition(ctx, draw.ID)
		}

		xcontext.Logger(ctx).Errorf("Cannot lock draw: %v", err)
		return nil, errorx.Unknown
	}

	draw.Status = entity.DrawLocked
	draw.LockedAt = sql.NullTime{Time: now, Valid: true}

	common.PromCounters[common.DrawTransitionTotal].WithLabelValues(string(entity.DrawLocked)).Inc()
	d.eventPublisher.publish(ctx, DrawLockedEvent, draw)

	return &model.LockDrawResponse{Draw: convertDraw(draw)}, nil
}

// SelectWinner returns the winner of the category, selecting one if none was
// selected yet. Use RerollWinner to replace an existing winner.
func (d *drawDomain) SelectWinner(
	ctx context.Context, req *model.SelectWinnerRequest,
) (*model.SelectWinnerResponse, error) {
	category, err := parseCategory(req.Category)
	if err != nil {
		return nil, err
	}

	draw, err := d.getDraw(ctx, req.DrawID)
	if err != nil {
		return nil, err
	}

	if err := checkSelectable(draw); err != nil {
		return nil, err
	}

	existing, err := d.winnerRepo.Get(ctx, draw.ID, category)
	if err == nil {
		return &model.SelectWinnerResponse{Winner: convertWinner(existing)}, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get winner: %v", err)
		return nil, errorx.Unknown
	}

	winner, err := d.sample(ctx, draw, category)
	if err != nil {
		return nil, err
	}

	txCtx := xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(txCtx)

	if err := d.winnerRepo.CreateIfNotExists(txCtx, winner); err != nil {
		if errors.Is(err, repository.ErrDuplicated) {
			// Lost the race against another selection, keep its result.
			xcontext.WithRollbackDBTransaction(txCtx)
			existing, err := d.winnerRepo.Get(ctx, draw.ID, category)
			if err != nil {
				xcontext.Logger(ctx).Errorf("Cannot get winner: %v", err)
				return nil, errorx.Unknown
			}

			return &model.SelectWinnerResponse{Winner: convertWinner(existing)}, nil
		}

		xcontext.Logger(ctx).Errorf("Cannot create winner: %v", err)
		return nil, errorx.Unknown
	}

	if err := d.markDrawnAndCommit(txCtx, draw); err != nil {
		return nil, err
	}

	d.eventPublisher.publish(ctx, WinnerSelected, draw, *winner)
	return &model.SelectWinnerResponse{Winner: convertWinner(winner)}, nil
}

// RerollWinner samples the pool again and overwrites the winner of the
// category. Every reroll is audited.
func (d *drawDomain) RerollWinner(
	ctx context.Context, req *model.RerollWinnerRequest,
) (*model.RerollWinnerResponse, error) {
	if err := requireActor(ctx); err != nil {
		return nil, err
	}

	if req.Reason == "" {
		return nil, errorx.New(errorx.BadRequest, "Require a reason to reroll a winner")
	}

	category, err := parseCategory(req.Category)
	if err != nil {
		return nil, err
	}

	draw, err := d.getDraw(ctx, req.DrawID)
	if err != nil {
		return nil, err
	}

	if err := checkSelectable(draw); err != nil {
		return nil, err
	}

	var previous *model.Winner
	old, err := d.winnerRepo.Get(ctx, draw.ID, category)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get winner: %v", err)
		return nil, errorx.Unknown
	}

	if err == nil {
		w := convertWinner(old)
		previous = &w
	}

	winner, err := d.sample(ctx, draw, category)
	if err != nil {
		return nil, err
	}

	txCtx := xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(txCtx)

	if err := d.winnerRepo.Upsert(txCtx, winner); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot upsert winner: %v", err)
		return nil, errorx.Unknown
	}

	// The upsert keeps the id of an existing row.
	stored, err := d.winnerRepo.Get(txCtx, draw.ID, category)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get winner: %v", err)
		return nil, errorx.Unknown
	}

	if err := d.markDrawnAndCommit(txCtx, draw); err != nil {
		return nil, err
	}

	current := convertWinner(stored)
	d.auditRecorder.Record(ctx, entity.AuditWinner, stored.ID, req.Reason, previous, current)
	d.eventPublisher.publish(ctx, WinnerRerolled, draw, *stored)

	return &model.RerollWinnerResponse{Winner: current, Previous: previous}, nil
}

func (d *drawDomain) Publish(
	ctx context.Context, req *model.PublishDrawRequest,
) (*model.PublishDrawResponse, error) {
	draw, err := d.getDraw(ctx, req.DrawID)
	if err != nil {
		return nil, err
	}

	if draw.Status == entity.DrawPublished {
		return nil, errorx.New(errorx.DrawFinalized, "The draw is already published")
	}

	count, err := d.winnerRepo.Count(ctx, draw.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot count winners: %v", err)
		return nil, errorx.Unknown
	}

	if count == 0 {
		return nil, errorx.New(errorx.NoWinnersSelected, "No winner has been selected yet")
	}

	if err := checkTransition(draw, entity.DrawDrawn); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	txCtx := xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(txCtx)

	if err := d.drawRepo.Publish(txCtx, draw.ID, now); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.WithRollbackDBTransaction(txCtx)
			return nil, d.lostTransition(ctx, draw.ID)
		}

		xcontext.Logger(ctx).Errorf("Cannot publish draw: %v", err)
		return nil, errorx.Unknown
	}

	if err := d.winnerRepo.Announce(txCtx, draw.ID, now); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot announce winners: %v", err)
		return nil, errorx.Unknown
	}

	if _, err := xcontext.CommitDBTransaction(txCtx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit publish: %v", err)
		return nil, errorx.Unknown
	}

	draw.Status = entity.DrawPublished
	draw.PublishedAt = sql.NullTime{Time: now, Valid: true}

	winners, err := d.winnerRepo.GetByDrawID(ctx, draw.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get winners: %v", err)
		return nil, errorx.Unknown
	}

	common.PromCounters[common.DrawTransitionTotal].WithLabelValues(string(entity.DrawPublished)).Inc()
	d.eventPublisher.publish(ctx, DrawPublishedEvent, draw, winners...)

	return &model.PublishDrawResponse{Draw: convertDraw(draw), Winners: convertWinners(winners)}, nil
}

func (d *drawDomain) GetDraw(ctx context.Context, req *model.GetDrawRequest) (*model.GetDrawResponse, error) {
	var draw *entity.Draw
	var err error
	switch {
	case req.DrawID != "":
		draw, err = d.getDraw(ctx, req.DrawID)
	case req.PeriodKey != "":
		period, perr := parsePeriodKey(ctx, req.PeriodKey)
		if perr != nil {
			return nil, perr
		}

		draw, err = d.drawRepo.GetByPeriod(ctx, period.Key())
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errorx.New(errorx.NotFound, "Not found draw of %s", period.Key())
			}

			xcontext.Logger(ctx).Errorf("Cannot get draw: %v", err)
			return nil, errorx.Unknown
		}
	default:
		return nil, errorx.New(errorx.BadRequest, "Require a draw id or a period key")
	}

	if err != nil {
		return nil, err
	}

	return &model.GetDrawResponse{Draw: convertDraw(draw)}, nil
}

func (d *drawDomain) GetWinners(
	ctx context.Context, req *model.GetWinnersRequest,
) (*model.GetWinnersResponse, error) {
	draw, err := d.getDraw(ctx, req.DrawID)
	if err != nil {
		return nil, err
	}

	winners, err := d.winnerRepo.GetByDrawID(ctx, draw.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get winners: %v", err)
		return nil, errorx.Unknown
	}

	return &model.GetWinnersResponse{Winners: convertWinners(winners)}, nil
}

func (d *drawDomain) getDraw(ctx context.Context, drawID string) (*entity.Draw, error) {
	if drawID == "" {
		return nil, errorx.New(errorx.BadRequest, "Require a draw id")
	}

	draw, err := d.drawRepo.GetByID(ctx, drawID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found draw")
		}

		xcontext.Logger(ctx).Errorf("Cannot get draw: %v", err)
		return nil, errorx.Unknown
	}

	return draw, nil
}

// sample picks a winner from the pool as it was when the draw was locked.
func (d *drawDomain) sample(
	ctx context.Context, draw *entity.Draw, category entity.EntryCategory,
) (*entity.Winner, error) {
	if !draw.LockedAt.Valid {
		xcontext.Logger(ctx).Errorf("Draw %s is %s without a lock time", draw.ID, draw.Status)
		return nil, errorx.Unknown
	}

	pool, err := d.entryRepo.Pool(ctx, repository.EntryPoolFilter{
		PeriodKey: draw.PeriodKey,
		Category:  category,
		Until:     draw.LockedAt.Time,
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get entry pool: %v", err)
		return nil, errorx.Unknown
	}

	entrants := make([]drawing.Entrant, 0, len(pool))
	for _, e := range pool {
		entrants = append(entrants, drawing.Entrant{UserID: e.UserID, Tickets: e.Tickets})
	}

	p := drawing.NewPool(entrants)
	picked, err := d.pick(p)
	if err != nil {
		if errors.Is(err, drawing.ErrEmptyPool) {
			return nil, errorx.New(errorx.NoEligibleEntries,
				"No eligible entries in category %s of %s", category, draw.PeriodKey)
		}

		xcontext.Logger(ctx).Errorf("Cannot pick winner: %v", err)
		return nil, errorx.Unknown
	}

	publicName := ""
	user, err := d.userRepo.GetByID(ctx, picked.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get user: %v", err)
		return nil, errorx.Unknown
	}

	if err == nil {
		publicName = user.PublicName
		if publicName == "" {
			publicName = common.PublicName(user.Name)
		}
	}

	return &entity.Winner{
		Base:       entity.Base{ID: uuid.NewString()},
		DrawID:     draw.ID,
		Category:   category,
		UserID:     picked.UserID,
		PublicName: publicName,
		Tickets:    picked.Tickets,
		PoolSize:   p.Total(),
		SelectedAt: time.Now().UTC().Truncate(time.Millisecond),
	}, nil
}

// markDrawnAndCommit advances the draw to drawn and commits txCtx. The update
// holds the draw row, so a selection racing with a publish either commits
// before it or observes the published status and is rolled back.
func (d *drawDomain) markDrawnAndCommit(txCtx context.Context, draw *entity.Draw) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	err := d.drawRepo.MarkDrawn(txCtx, draw.ID, now)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(txCtx).Errorf("Cannot mark draw as drawn: %v", err)
		return errorx.Unknown
	}

	current, err := d.drawRepo.GetByID(txCtx, draw.ID)
	if err != nil {
		xcontext.Logger(txCtx).Errorf("Cannot get draw: %v", err)
		return errorx.Unknown
	}

	if err := checkSelectable(current); err != nil {
		return err
	}

	if _, err := xcontext.CommitDBTransaction(txCtx); err != nil {
		xcontext.Logger(txCtx).Errorf("Cannot commit winner: %v", err)
		return errorx.Unknown
	}

	if draw.Status == entity.DrawLocked && current.Status == entity.DrawDrawn {
		common.PromCounters[common.DrawTransitionTotal].WithLabelValues(string(entity.DrawDrawn)).Inc()
	}

	*draw = *current
	return nil
}

// lostTransition explains why a conditional status update matched no row.
func (d *drawDomain) lostTransition(ctx context.Context, drawID string) error {
	draw, err := d.getDraw(ctx, drawID)
	if err != nil {
		return err
	}

	if draw.Status == entity.DrawPublished {
		return errorx.New(errorx.DrawFinalized, "The draw is already published")
	}

	return errorx.New(errorx.InvalidTransition, "The draw is %s", draw.Status)
}

// checkTransition verifies that draw can leave the from status.
func checkTransition(draw *entity.Draw, from entity.DrawStatus) error {
	if draw.Status == entity.DrawPublished {
		return errorx.New(errorx.DrawFinalized, "The draw is already published")
	}

	if draw.Status != from {
		return errorx.New(errorx.InvalidTransition, "The draw is %s, expected %s", draw.Status, from)
	}

	return nil
}

func checkSelectable(draw *entity.Draw) error {
	switch draw.Status {
	case entity.DrawPublished:
		return errorx.New(errorx.DrawFinalized, "The draw is already published")
	case entity.DrawLocked, entity.DrawDrawn:
		return nil
	default:
		return errorx.New(errorx.DrawNotLocked, "The draw must be locked before selecting winners")
	}
}
