package cron

import (
	"context"
	"testing"
	"time"

	"github.com/questx-lab/luckydraw/internal/domain"
	"github.com/questx-lab/luckydraw/internal/entity"
	"github.com/questx-lab/luckydraw/internal/repository"
	"github.com/questx-lab/luckydraw/pkg/storage"
	"github.com/questx-lab/luckydraw/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func newTestDrawLifecycleCronJob(t *testing.T, autoSelect bool, store storage.Storage) *DrawLifecycleCronJob {
	drawRepo := repository.NewDrawRepository()
	winnerRepo := repository.NewWinnerRepository()
	entryRepo := repository.NewEntryRepository(testutil.NewSnowflakeNode())
	userRepo := repository.NewUserRepository()
	drawDomain := domain.NewDrawDomain(
		drawRepo,
		winnerRepo,
		entryRepo,
		userRepo,
		domain.NewAuditRecorder(repository.NewAuditRepository()),
		nil,
	)
	exportDomain := domain.NewExportDomain(entryRepo, drawRepo, winnerRepo, userRepo, store)

	job, err := NewDrawLifecycleCronJob(drawDomain, exportDomain, drawRepo, entryRepo,
		"5 0 1 * *", autoSelect, time.UTC)
	require.NoError(t, err)
	return job
}

func getDraw(t *testing.T, ctx context.Context, periodKey string) *entity.Draw {
	draw, err := repository.NewDrawRepository().GetByPeriod(ctx, periodKey)
	require.NoError(t, err)
	return draw
}

func Test_DrawLifecycleCronJob_LockOnly(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.InsertEntry(ctx, "user1", entity.GeneralCategory, 3, "2026-02", time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC))

	job := newTestDrawLifecycleCronJob(t, false, nil)
	job.do(ctx, time.Date(2026, 3, 1, 0, 5, 0, 0, time.UTC))

	require.Equal(t, entity.DrawOpen, getDraw(t, ctx, "2026-03").Status)

	previous := getDraw(t, ctx, "2026-02")
	require.Equal(t, entity.DrawLocked, previous.Status)
	require.True(t, previous.LockedAt.Valid)

	// A second run changes nothing.
	job.do(ctx, time.Date(2026, 3, 1, 0, 6, 0, 0, time.UTC))
	require.Equal(t, previous.LockedAt.Time, getDraw(t, ctx, "2026-02").LockedAt.Time)
}

func Test_DrawLifecycleCronJob_AutoSelect(t *testing.T) {
	ctx := testutil.NewMockContext()
	at := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	testutil.InsertEntry(ctx, "user1", entity.GeneralCategory, 3, "2026-02", at)
	testutil.InsertEntry(ctx, "user2", entity.ServiceCategory, 1, "2026-02", at)

	store := &testutil.MockStorage{}
	job := newTestDrawLifecycleCronJob(t, true, store)
	job.do(ctx, time.Date(2026, 3, 1, 0, 5, 0, 0, time.UTC))

	draw := getDraw(t, ctx, "2026-02")
	require.Equal(t, entity.DrawPublished, draw.Status)

	winners, err := repository.NewWinnerRepository().GetByDrawID(ctx, draw.ID)
	require.NoError(t, err)
	require.Len(t, winners, 2)
	require.Equal(t, "user1", winners[0].UserID)
	require.Equal(t, "user2", winners[1].UserID)
	for _, w := range winners {
		require.True(t, w.AnnouncedAt.Valid)
	}

	require.Len(t, store.Uploaded, 1)
	require.Equal(t, "exports/2026-02", store.Uploaded[0].Prefix)
	require.Equal(t, CronActor, store.Uploaded[0].Metadata["actor"])

	// A published draw is left alone.
	job.do(ctx, time.Date(2026, 3, 2, 0, 5, 0, 0, time.UTC))
	require.Equal(t, draw.PublishedAt.Time, getDraw(t, ctx, "2026-02").PublishedAt.Time)
	require.Len(t, store.Uploaded, 1)
}

func Test_DrawLifecycleCronJob_AutoSelect_NoEntries(t *testing.T) {
	ctx := testutil.NewMockContext()

	job := newTestDrawLifecycleCronJob(t, true, nil)
	job.do(ctx, time.Date(2026, 3, 1, 0, 5, 0, 0, time.UTC))

	require.Equal(t, entity.DrawLocked, getDraw(t, ctx, "2026-02").Status)
}

func Test_DrawLifecycleCronJob_Next(t *testing.T) {
	_, err := NewDrawLifecycleCronJob(nil, nil, nil, nil, "every month", false, nil)
	require.Error(t, err)

	job := newTestDrawLifecycleCronJob(t, false, nil)
	next := job.Next()
	require.True(t, next.After(time.Now()))
	require.Equal(t, 1, next.Day())
	require.Equal(t, 5, next.Minute())
}

type countingJob struct {
	calls chan struct{}
}

func (j *countingJob) Do(context.Context) { j.calls <- struct{}{} }
func (j *countingJob) RunNow() bool       { return true }
func (j *countingJob) Next() time.Time    { return time.Now().Add(time.Hour) }

func Test_CronJobManager(t *testing.T) {
	ctx := testutil.NewMockContext()
	job := &countingJob{calls: make(chan struct{}, 1)}

	m := NewCronJobManager()
	m.Register(job)

	stopped := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(stopped)
	}()

	select {
	case <-job.calls:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}

	// Wait for the job to be scheduled again before cancelling.
	require.Eventually(t, func() bool {
		m.mutex.Lock()
		defer m.mutex.Unlock()
		return m.jobs[job] != nil
	}, 5*time.Second, 10*time.Millisecond)

	m.Cancel(ctx)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not stop")
	}
}
