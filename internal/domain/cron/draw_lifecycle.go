package cron

import (
	"context"
	"sync"
	"time"

	"github.com/questx-lab/luckydraw/internal/domain"
	"github.com/questx-lab/luckydraw/internal/entity"
	"github.com/questx-lab/luckydraw/internal/model"
	"github.com/questx-lab/luckydraw/internal/repository"
	"github.com/questx-lab/luckydraw/pkg/dateutil"
	"github.com/questx-lab/luckydraw/pkg/errorx"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// CronActor attributes the actions of scheduled jobs in audit events and
// draw events.
const CronActor = "system:cron"

// DrawLifecycleCronJob keeps the monthly draws moving: it creates the draw of
// the current period and locks the draw of the previous one. With auto select
// enabled it also selects a winner for every category of the previous period,
// publishes the draw and archives its workbook.
type DrawLifecycleCronJob struct {
	drawDomain   domain.DrawDomain
	exportDomain domain.ExportDomain
	drawRepo     repository.DrawRepository
	entryRepo    repository.EntryRepository
	schedule     cron.Schedule
	autoSelect   bool
	location     *time.Location
}

func NewDrawLifecycleCronJob(
	drawDomain domain.DrawDomain,
	exportDomain domain.ExportDomain,
	drawRepo repository.DrawRepository,
	entryRepo repository.EntryRepository,
	expr string,
	autoSelect bool,
	location *time.Location,
) (*DrawLifecycleCronJob, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, err
	}

	if location == nil {
		location = time.UTC
	}

	return &DrawLifecycleCronJob{
		drawDomain:   drawDomain,
		exportDomain: exportDomain,
		drawRepo:     drawRepo,
		entryRepo:    entryRepo,
		schedule:     schedule,
		autoSelect:   autoSelect,
		location:     location,
	}, nil
}

func (job *DrawLifecycleCronJob) Do(ctx context.Context) {
	job.do(ctx, time.Now().In(job.location))
}

func (job *DrawLifecycleCronJob) do(ctx context.Context, now time.Time) {
	ctx = xcontext.WithActor(ctx, CronActor)

	current := dateutil.PeriodOf(now)
	if _, err := job.drawDomain.EnsureDraw(ctx, &model.EnsureDrawRequest{PeriodKey: current.Key()}); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot ensure draw of %s: %v", current.Key(), err)
	}

	previous := current.Previous()
	resp, err := job.drawDomain.EnsureDraw(ctx, &model.EnsureDrawRequest{PeriodKey: previous.Key()})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot ensure draw of %s: %v", previous.Key(), err)
		return
	}

	if resp.Draw.Status == string(entity.DrawOpen) {
		_, err := job.drawDomain.Lock(ctx, &model.LockDrawRequest{DrawID: resp.Draw.ID})
		if err != nil && !errorx.Is(err, errorx.InvalidTransition) {
			xcontext.Logger(ctx).Errorf("Cannot lock draw of %s: %v", previous.Key(), err)
			return
		}
	}

	if job.autoSelect {
		job.selectAndPublish(ctx, previous.Key())
	}
}

func (job *DrawLifecycleCronJob) selectAndPublish(ctx context.Context, periodKey string) {
	draw, err := job.drawRepo.GetByPeriod(ctx, periodKey)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get draw of %s: %v", periodKey, err)
		return
	}

	if draw.Status == entity.DrawPublished || !draw.LockedAt.Valid {
		return
	}

	categories, err := job.entryRepo.GetCategories(ctx, periodKey, draw.LockedAt.Time)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get categories of %s: %v", periodKey, err)
		return
	}

	if len(categories) == 0 {
		xcontext.Logger(ctx).Infof("No entries in %s, the draw stays %s", periodKey, draw.Status)
		return
	}

	var mutex sync.Mutex
	selected := 0
	g, gctx := errgroup.WithContext(ctx)
	for _, category := range categories {
		category := category
		g.Go(func() error {
			_, err := job.drawDomain.SelectWinner(gctx, &model.SelectWinnerRequest{
				DrawID:   draw.ID,
				Category: string(category),
			})
			if err != nil {
				// A category without a winner does not prevent the others from
				// being published.
				xcontext.Logger(ctx).Warnf("Cannot select winner of %s in %s: %v", category, periodKey, err)
				return nil
			}

			mutex.Lock()
			selected++
			mutex.Unlock()
			return nil
		})
	}

	// Every goroutine swallows its error.
	_ = g.Wait()

	if selected == 0 {
		return
	}

	_, err = job.drawDomain.Publish(ctx, &model.PublishDrawRequest{DrawID: draw.ID})
	if err != nil && !errorx.Is(err, errorx.DrawFinalized) {
		xcontext.Logger(ctx).Errorf("Cannot publish draw of %s: %v", periodKey, err)
		return
	}

	xcontext.Logger(ctx).Infof("Published draw of %s with %d winners", periodKey, selected)
	job.archive(ctx, periodKey)
}

func (job *DrawLifecycleCronJob) archive(ctx context.Context, periodKey string) {
	if job.exportDomain == nil {
		return
	}

	resp, err := job.exportDomain.ArchiveExport(ctx, &model.ArchiveExportRequest{PeriodKey: periodKey})
	if err != nil {
		if errorx.Is(err, errorx.Unavailable) {
			xcontext.Logger(ctx).Warnf("Draw of %s is not archived: %v", periodKey, err)
			return
		}

		xcontext.Logger(ctx).Errorf("Cannot archive draw of %s: %v", periodKey, err)
		return
	}

	xcontext.Logger(ctx).Infof("Archived draw of %s to %s", periodKey, resp.Key)
}

// RunNow is true as every step is idempotent, a restart catches up on a missed
// run.
func (job *DrawLifecycleCronJob) RunNow() bool {
	return true
}

func (job *DrawLifecycleCronJob) Next() time.Time {
	return job.schedule.Next(time.Now().In(job.location))
}
