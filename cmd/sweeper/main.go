// Command sweeper runs one retention cycle over the upload and audio directories
// while the API is down. With no live registry every file counts as unowned, so
// only the age thresholds decide what is removed.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tayaladitya/dyslexofly/internal/config"
	"github.com/tayaladitya/dyslexofly/internal/core/registry"
	"github.com/tayaladitya/dyslexofly/internal/core/retention"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/storage/localfs"
	"github.com/tayaladitya/dyslexofly/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("dyslexofly-sweeper", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	uploads, err := localfs.New(cfg.UploadDir)
	if err != nil {
		logger.Error("init_upload_storage_failed", "error", err)
		os.Exit(1)
	}
	audio, err := localfs.New(cfg.AudioDir)
	if err != nil {
		logger.Error("init_audio_storage_failed", "error", err)
		os.Exit(1)
	}

	scheduler := retention.NewScheduler(retention.Config{
		UploadGrace: cfg.RetentionUploadGrace,
		MaxAge:      cfg.RetentionMaxAge,
	}, registry.New(), retention.Areas{Uploads: uploads, Audio: audio}, logger)

	report := scheduler.RunOnce(ctx)
	if err := report.Err(); err != nil {
		logger.Error("sweep_failed", "removed", report.Removed(), "error", err)
		os.Exit(1)
	}
	logger.Info("sweep_finished", "removed", report.Removed())
}
