package shutdown

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"finparser/core"
)

// UploadPattern matches the per-request scratch directories created under
// the upload directory.
const UploadPattern = "upload_*"

// CleanupUploads returns a shutdown function that removes scratch entries
// left in uploadDir by interrupted requests. Failures are logged, never
// returned, so cleanup cannot block shutdown.
//
//	manager.Register("cleanup-uploads", 45, shutdown.CleanupUploads(logger, cfg.UploadDir))
func CleanupUploads(logger *zap.Logger, uploadDir string) core.ShutdownFunc {
	return func(ctx context.Context) error {
		removeUploads(ctx, logger, uploadDir)
		return nil
	}
}

// removeUploads deletes every UploadPattern entry in uploadDir and returns
// how many were removed.
func removeUploads(ctx context.Context, logger *zap.Logger, uploadDir string) int {
	pattern := filepath.Join(uploadDir, UploadPattern)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		logger.Error("Failed to list upload scratch entries",
			zap.String("pattern", pattern),
			zap.Error(err))
		return 0
	}
	if len(matches) == 0 {
		logger.Debug("No upload scratch entries to clean up")
		return 0
	}

	var removed, failed int
	for _, match := range matches {
		select {
		case <-ctx.Done():
			logger.Warn("Shutdown context cancelled during cleanup",
				zap.Int("removed", removed),
				zap.Int("remaining", len(matches)-removed-failed))
			return removed
		default:
		}

		if err := os.RemoveAll(match); err != nil {
			failed++
			logger.Warn("Failed to remove upload scratch entry",
				zap.String("path", filepath.Base(match)),
				zap.Error(err))
			continue
		}
		removed++
	}

	logger.Info("Upload cleanup complete",
		zap.Int("removed", removed),
		zap.Int("failed", failed))
	return removed
}
