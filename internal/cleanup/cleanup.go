// Package cleanup runs the scheduled interview expiry job.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Expirer marks stored interviews past their retention as expired
type Expirer interface {
	ExpireInterviews(ctx context.Context) (int64, error)
}

// Service handles background expiry of interview results
type Service struct {
	expirer  Expirer
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
	logger   *zap.Logger
}

// NewService creates a new cleanup service. schedule uses cron syntax,
// including descriptors such as "@every 1h".
func NewService(expirer Expirer, schedule string, logger *zap.Logger) *Service {
	if schedule == "" {
		schedule = "@every 1h"
	}
	return &Service{
		expirer:  expirer,
		schedule: schedule,
		timeout:  5 * time.Minute,
		cron:     cron.New(cron.WithLocation(time.UTC)),
		logger:   logger,
	}
}

// Start registers the job and starts the scheduler
func (s *Service) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.RunOnce); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.Info("Interview cleanup service started", zap.String("schedule", s.schedule))
	return nil
}

// Stop waits for a running job to finish
func (s *Service) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Interview cleanup service stopped")
}

// RunOnce performs one expiry pass
func (s *Service) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.logger.Debug("Starting interview cleanup")

	n, err := s.expirer.ExpireInterviews(ctx)
	if err != nil {
		s.logger.Error("Failed to expire interviews", zap.Error(err))
		return
	}

	s.logger.Info("Interview cleanup completed", zap.Int64("expired", n))
}
