package app

import (
	"log/slog"
	"net/http"
	"path/filepath"

	"posto/config"
	"posto/internal/services/handover"
	"posto/internal/services/session"
)

type App struct {
	Session    *session.Manager
	Handover   *handover.Service
	StorageApp *StorageApp

	// MediaURL is the base for product image paths returned by the API.
	MediaURL string
}

func New(log *slog.Logger, cfg *config.Config, storageApp *StorageApp) *App {
	httpClient := &http.Client{Timeout: cfg.API.Timeout}

	sessionManager := session.New(log, storageApp.Storage(), cfg.API.BaseURL, httpClient)

	receiptDir := filepath.Join(filepath.Dir(cfg.Storage.Path), "receipts")
	handoverService := handover.New(log, sessionManager, handover.FileOpener{Dir: receiptDir})

	return &App{
		Session:    sessionManager,
		Handover:   handoverService,
		StorageApp: storageApp,
		MediaURL:   cfg.API.MediaURL,
	}
}
