package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/venuehunt/venuehunt/internal/recommend"
)

// SimilarityRefresher rebuilds the persisted similarity cache.
type SimilarityRefresher interface {
	Refresh(ctx context.Context, force bool) (int, error)
}

// TokenPurger deletes refresh tokens that expired before cutoff.
type TokenPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// CronService runs the scheduled maintenance jobs.  Schedules use the
// six field format with seconds.
type CronService struct {
	cron      *cron.Cron
	refresher SimilarityRefresher
	tokens    TokenPurger
	logger    logrus.FieldLogger

	RefreshSchedule string
	PurgeSchedule   string
	JobTimeout      time.Duration
	Now             func() time.Time
}

func NewCronService(refresher SimilarityRefresher, tokens TokenPurger, logger logrus.FieldLogger) *CronService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CronService{
		cron:            cron.New(cron.WithSeconds()),
		refresher:       refresher,
		tokens:          tokens,
		logger:          logger.WithField("component", "cron"),
		RefreshSchedule: "0 0 3 * * *",
		PurgeSchedule:   "0 30 4 * * *",
		JobTimeout:      10 * time.Minute,
		Now:             time.Now,
	}
}

// Start schedules the jobs and starts the scheduler.
func (s *CronService) Start() error {
	if s.refresher != nil {
		if _, err := s.cron.AddFunc(s.RefreshSchedule, s.refreshSimilarityJob); err != nil {
			return fmt.Errorf("failed to schedule similarity refresh job: %w", err)
		}
		s.logger.WithField("schedule", s.RefreshSchedule).Info("scheduled similarity refresh")
	}
	if s.tokens != nil {
		if _, err := s.cron.AddFunc(s.PurgeSchedule, s.purgeTokensJob); err != nil {
			return fmt.Errorf("failed to schedule token purge job: %w", err)
		}
		s.logger.WithField("schedule", s.PurgeSchedule).Info("scheduled refresh token purge")
	}
	s.cron.Start()
	return nil
}

// Stop waits for running jobs to finish.
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("cron stopped")
}

func (s *CronService) refreshSimilarityJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.JobTimeout)
	defer cancel()
	start := s.Now()
	n, err := s.refresher.Refresh(ctx, false)
	if recommend.IsLockHeld(err) {
		s.logger.Info("similarity refresh running on another instance")
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("similarity refresh failed")
		return
	}
	s.logger.WithFields(logrus.Fields{"pairs": n, "took": s.Now().Sub(start).String()}).Info("similarity refresh done")
}

func (s *CronService) purgeTokensJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.JobTimeout)
	defer cancel()
	n, err := s.tokens.PurgeExpired(ctx, s.Now())
	if err != nil {
		s.logger.WithError(err).Error("refresh token purge failed")
		return
	}
	s.logger.WithField("deleted", n).Info("expired refresh tokens purged")
}
