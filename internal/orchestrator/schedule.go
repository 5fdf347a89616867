package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Schedule calls fn on every tick of the cron spec until ctx is cancelled.
// A tick that fires while fn is still running is skipped.
func Schedule(ctx context.Context, spec string, fn func(context.Context) error, logger zerolog.Logger) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(spec, func() {
		start := time.Now()
		logger.Info().Str("schedule", spec).Msg("scheduled run started")
		if err := fn(ctx); err != nil {
			logger.Error().Err(err).Msg("scheduled run failed")
			return
		}
		logger.Info().Dur("duration", time.Since(start)).Msg("scheduled run completed")
	})
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", spec, err)
	}

	c.Start()
	logger.Info().Str("schedule", spec).Msg("scheduler started")

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info().Msg("scheduler stopped")
	return nil
}
