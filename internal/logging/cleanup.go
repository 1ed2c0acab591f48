package logging

import (
	"context"
	"log/slog"
	"time"
)

// TokenPruner deletes refresh tokens that can no longer be used.
type TokenPruner interface {
	PruneTokens(ctx context.Context) (int64, error)
}

// StartCleanup runs a daily goroutine that prunes expired and revoked
// refresh tokens.
func StartCleanup(pruner TokenPruner, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				deleted, err := pruner.PruneTokens(ctx)
				cancel()
				if err != nil {
					slog.Error("refresh token cleanup failed", "error", err)
				} else if deleted > 0 {
					slog.Info("refresh token cleanup completed", "deleted", deleted)
				}
			case <-done:
				return
			}
		}
	}()
}
