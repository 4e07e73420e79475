package main

import (
	"os/signal"
	"syscall"

	"github.com/questx-lab/luckydraw/internal/domain/cron"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startCron(ct *cli.Context) error {
	if err := s.loadCommon(ct); err != nil {
		return err
	}
	defer s.stop()

	cfg := xcontext.Configs(s.ctx).Draw
	drawJob, err := cron.NewDrawLifecycleCronJob(
		s.drawDomain,
		s.exportDomain,
		s.drawRepo,
		s.entryRepo,
		cfg.Schedule,
		cfg.AutoSelect,
		cfg.TimeLocation(),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(s.ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronJobManager := cron.NewCronJobManager()
	cronJobManager.Register(drawJob)

	go func() {
		<-ctx.Done()
		cronJobManager.Cancel(s.ctx)
	}()

	cronJobManager.Start(s.ctx)
	return nil
}
