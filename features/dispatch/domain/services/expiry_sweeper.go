package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/resqnow/dispatch-core/core/logger"
	"github.com/resqnow/dispatch-core/features/dispatch/domain/repositories"
)

// ExpirySweeper periodically marks overdue pending DispatchOffers expired.
// It is cosmetic: acceptJob gates on the request's status='pending', not on
// offer expiry, so an overdue offer stays acceptable while its request is
// pending, and a sweep cycle missed or delayed only leaves a stale
// "pending" row in listings.
type ExpirySweeper struct {
	repository repositories.DispatchRepository
	logger     logger.Logger
	cron       *cron.Cron
}

// NewExpirySweeper builds the sweeper without starting it.
func NewExpirySweeper(repository repositories.DispatchRepository, logger logger.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		repository: repository,
		logger:     logger,
		cron:       cron.New(),
	}
}

// Start schedules the sweep every 10 seconds and runs it in the background.
func (s *ExpirySweeper) Start() error {
	_, err := s.cron.AddFunc("@every 10s", s.sweep)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any in-flight sweep to finish.
func (s *ExpirySweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *ExpirySweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := s.repository.ExpirePending(ctx)
	if err != nil {
		s.logger.Error(ctx, "dispatch offer expiry sweep failed", logger.Fields{"error": err.Error()})
		return
	}
	if count > 0 {
		s.logger.Info(ctx, "expired stale dispatch offers", logger.Fields{"count": count})
	}
}
