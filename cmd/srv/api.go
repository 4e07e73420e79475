package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/questx-lab/luckydraw/internal/middleware"
	"github.com/questx-lab/luckydraw/pkg/prometheus"
	"github.com/questx-lab/luckydraw/pkg/router"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
	"github.com/rs/cors"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 10 * time.Second

func (s *srv) startApi(ct *cli.Context) error {
	if err := s.loadCommon(ct); err != nil {
		return err
	}
	defer s.stop()

	if err := s.loadRouter(); err != nil {
		return err
	}

	cfg := xcontext.Configs(s.ctx).ApiServer
	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.router.Handler())

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return s.ctx
		},
	}

	ctx, stop := signal.NotifyContext(s.ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			xcontext.Logger(s.ctx).Errorf("Cannot shutdown server: %v", err)
		}
	}()

	xcontext.Logger(s.ctx).Infof("Starting server on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	xcontext.Logger(s.ctx).Infof("Server stopped")
	return nil
}

func (s *srv) loadRouter() error {
	metricsHandler, err := prometheus.NewHandler()
	if err != nil {
		return err
	}

	s.router = router.New()
	s.router.Before(middleware.WithStartTime())
	s.router.Before(middleware.Identify())
	s.router.After(middleware.Logger())
	s.router.After(middleware.Prometheus())

	s.router.Handle("/metrics", metricsHandler)

	// Wheel API, the caller is identified by the gateway.
	userRouter := s.router.Branch()
	userRouter.Before(middleware.Authenticate())
	{
		router.POST(userRouter, "/spin", s.wheelDomain.Spin)
		router.GET(userRouter, "/getWheel", s.wheelDomain.GetWheel)
		router.GET(userRouter, "/getMyEntries", s.entryDomain.GetMyEntries)
	}

	// Operator API.
	adminRouter := s.router.Group("/admin")
	adminRouter.Before(middleware.OnlyAdmin())
	{
		// Draw API
		router.POST(adminRouter, "/ensureDraw", s.drawDomain.EnsureDraw)
		router.POST(adminRouter, "/lockDraw", s.drawDomain.Lock)
		router.POST(adminRouter, "/selectWinner", s.drawDomain.SelectWinner)
		router.POST(adminRouter, "/rerollWinner", s.drawDomain.RerollWinner)
		router.POST(adminRouter, "/publishDraw", s.drawDomain.Publish)
		router.GET(adminRouter, "/getDraw", s.drawDomain.GetDraw)
		router.GET(adminRouter, "/getWinners", s.drawDomain.GetWinners)

		// Export API
		router.GET(adminRouter, "/exportEntries", s.exportDomain.ExportEntries)
		router.GET(adminRouter, "/exportWinners", s.exportDomain.ExportWinners)
		router.POST(adminRouter, "/archiveExport", s.exportDomain.ArchiveExport)

		// Ledger API
		router.POST(adminRouter, "/grantEntries", s.entryDomain.GrantEntries)

		// Config API
		router.POST(adminRouter, "/updateSegments", s.wheelDomain.UpdateSegments)
		router.POST(adminRouter, "/updateAppConfig", s.wheelDomain.UpdateAppConfig)

		// Audit API
		router.POST(adminRouter, "/recordOverride", s.auditDomain.RecordOverride)
		router.GET(adminRouter, "/getAuditEvents", s.auditDomain.GetAuditEvents)
	}

	return nil
}
