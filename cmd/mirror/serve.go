package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cronrunner "ticketmirror/internal/cron"
	"ticketmirror/internal/handler"
	"ticketmirror/internal/middleware"
	"ticketmirror/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin API and the scheduled backup loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		return runServe(a)
	},
}

func runServe(a *app) error {
	cfg := a.Cfg
	log := a.Logger

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.RequireToken(cfg.Server.AdminToken))
	engine.Use(middleware.RequestLog(log))

	healthHandler := &handler.HealthHandler{DB: a.DB.Gorm}
	healthHandler.Register(engine)
	mirrorHandler := &handler.MirrorHandler{
		Backup:  a.Backup,
		Restore: a.Restore,
		Store:   a.Store,
		Logger:  log,
	}
	mirrorHandler.Register(engine)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(log, ctx)
	if cfg.Cron.Enabled {
		if _, err := cronRunner.Add(cfg.Cron.Backup, func(ctx context.Context) {
			started := time.Now()
			if err := a.Backup.Run(ctx); err != nil {
				// A pass outlasting the schedule interval is expected
				// under load; the next tick picks up from its cursors.
				if errors.Is(err, service.ErrPassInProgress) {
					log.Info("cron backup skipped, previous pass still running")
					return
				}
				log.Warn("cron backup failed", zap.Error(err))
				return
			}
			log.Info("cron backup ok", zap.Duration("elapsed", time.Since(started)))
		}); err != nil {
			log.Warn("cron register backup failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
