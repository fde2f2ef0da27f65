package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// sweepExpired deletes expired documents every interval until ctx is done.
func sweepExpired(ctx context.Context, store documentStore, interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sweepOnce(ctx, store, now, timeout)
		}
	}
}

func sweepOnce(ctx context.Context, store documentStore, now time.Time, timeout time.Duration) int64 {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	n, err := store.DeleteExpired(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("failed to delete expired documents")
		return 0
	}
	if n > 0 {
		log.Info().Int64("count", n).Msg("deleted expired documents")
	}
	return n
}
