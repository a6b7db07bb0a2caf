package main

import (
	"net/http"

	"go.uber.org/zap"

	"ticketmirror/internal/client/zendesk"
	"ticketmirror/internal/config"
	"ticketmirror/internal/db"
	"ticketmirror/internal/logger"
	"ticketmirror/internal/repository"
	gormrepository "ticketmirror/internal/repository/gorm"
	"ticketmirror/internal/service"
)

// app bundles the shared wiring every subcommand needs.
type app struct {
	Cfg     config.Config
	Logger  *zap.Logger
	DB      *db.DB
	Store   repository.MirrorStore
	Client  *zendesk.Client
	Backup  *service.MirrorService
	Restore *service.RestoreService
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath(), envOnly())
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		log.Error("db open failed", zap.Error(err))
		return nil, err
	}
	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		log.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		db.Close(dbConn)
		log.Error("auto-migrate failed", zap.Error(err))
		return nil, err
	}

	baseURL := cfg.Zendesk.BaseURL
	if baseURL == "" {
		baseURL = zendesk.BaseURLFor(cfg.Zendesk.Subdomain)
	}
	httpClient := &http.Client{Timeout: cfg.Zendesk.Timeout}
	client := zendesk.NewClient(httpClient, baseURL, cfg.Zendesk.Email, cfg.Zendesk.APIToken)

	store := gormrepository.New(dbConn.Gorm)
	writer := &service.EntityWriter{Store: store}
	downloader := service.NewAttachmentDownloader(client, cfg.Attachments.Dir, cfg.Attachments.Download, log)

	return &app{
		Cfg:     cfg,
		Logger:  log,
		DB:      dbConn,
		Store:   store,
		Client:  client,
		Backup:  service.NewMirrorService(store, client, writer, downloader, log, cfg),
		Restore: service.NewRestoreService(store, writer, log),
	}, nil
}

func (a *app) close() {
	db.Close(a.DB)
	a.Logger.Sync()
}
