package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	h "github.com/assetflow/uploader/internal/api/http"
	"github.com/assetflow/uploader/internal/assetstore"
	cfgpkg "github.com/assetflow/uploader/internal/config"
	"github.com/assetflow/uploader/internal/ratelimit"
	repo "github.com/assetflow/uploader/internal/repository"
	svc "github.com/assetflow/uploader/internal/service"
	"github.com/assetflow/uploader/internal/storage"
	"github.com/assetflow/uploader/internal/worker"
)

func main() {

	cfg, err := cfgpkg.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	cfgpkg.SetupLogger(cfg)
	slog.Info("configuration loaded successfully", "inbox_dir", cfg.InboxDir, "parallel", cfg.ParallelCount)

	bus := ratelimit.NewBus()
	store := assetstore.NewContentfulClient(assetstore.Options{
		APIBaseURL:    cfg.APIBaseURL,
		UploadBaseURL: cfg.UploadBaseURL,
	}, bus, slog.Default())

	batch := repo.NewBatch()
	inbox := storage.NewInbox(cfg.InboxDir)
	runner := worker.NewRunner(store, inbox, batch, cfg.SpaceID, cfg.EnvironmentID, cfg.AssetTag, slog.Default())
	uploadService := svc.NewUploadService(batch, store, runner, bus, cfg, slog.Default())

	router := h.NewRouter(uploadService, slog.Default())
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  cfg.HTTPTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	uploadService.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	} else {
		slog.Info("server stopped gracefully")
	}
}
