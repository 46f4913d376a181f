// Package schedulersvc runs periodic maintenance jobs.
package schedulersvc

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
)

type Scheduler struct {
	cron    *cron.Cron
	acctSvc account.ServiceInterface
	logger  core.Logger
}

func New(acctSvc account.ServiceInterface, logger core.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		acctSvc: acctSvc,
		logger:  logger,
	}
}

// Start registers the jobs and launches the cron loop in its own goroutine.
func (s *Scheduler) Start() error {
	// expired guest accounts are invisible to reads; hard-remove them hourly
	_, err := s.cron.AddFunc("@hourly", s.purgeExpiredGuests)
	if err != nil {
		return errors.Wrap(err, "registering guest purge job")
	}
	s.cron.Start()
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) purgeExpiredGuests() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.acctSvc.PurgeExpiredGuests(ctx)
	if err != nil {
		s.logger.Error("scheduler: purging expired guests", err)
		return
	}
	if n > 0 {
		s.logger.Info("scheduler: purged expired guest accounts", map[string]interface{}{"count": n})
	}
}
