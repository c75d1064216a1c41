package watcher

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ldb/internal/config"
)

type syncFunc func(ctx context.Context) error

// Service keeps the catalog current: the ERP import and the reference
// refresh each run on their own interval until the context is cancelled.
// A cycle failure is logged and retried on the next tick.
type Service struct {
	sync    syncFunc
	refresh syncFunc
	cfg     config.Config
	logger  zerolog.Logger
}

func NewService(sync, refresh func(ctx context.Context) error, cfg config.Config, logger zerolog.Logger) *Service {
	return &Service{sync: sync, refresh: refresh, cfg: cfg, logger: logger}
}

func (s *Service) Run(ctx context.Context) error {
	syncTicker := time.NewTicker(time.Duration(s.cfg.SyncIntervalMin) * time.Minute)
	defer syncTicker.Stop()
	refreshTicker := time.NewTicker(time.Duration(s.cfg.RefDataIntervalMin) * time.Minute)
	defer refreshTicker.Stop()

	// Both jobs run once at startup so a fresh deployment has data before
	// the first tick.
	s.runSync(ctx)
	s.runRefresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-syncTicker.C:
			s.runSync(ctx)
		case <-refreshTicker.C:
			s.runRefresh(ctx)
		}
	}
}

func (s *Service) runSync(ctx context.Context) {
	if s.sync == nil {
		return
	}
	start := time.Now()
	if err := s.sync(ctx); err != nil {
		s.logger.Error().Err(err).Msg("catalog sync failed")
		return
	}
	s.logger.Info().Dur("duration", time.Since(start)).Msg("catalog sync done")
}

func (s *Service) runRefresh(ctx context.Context) {
	if s.refresh == nil {
		return
	}
	start := time.Now()
	if err := s.refresh(ctx); err != nil {
		s.logger.Error().Err(err).Msg("refdata refresh failed")
		return
	}
	s.logger.Info().Dur("duration", time.Since(start)).Msg("refdata refresh done")
}
