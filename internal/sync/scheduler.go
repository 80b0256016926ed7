package sync

import (
	"errors"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"catalog-sync-service/internal/config"
	"catalog-sync-service/internal/logger"
)

// Triggerer starts a sync run without waiting for it.
type Triggerer interface {
	Trigger() error
}

type Scheduler struct {
	cfg     config.SchedulerConfig
	manager Triggerer
	cron    *cron.Cron
	entryID cron.EntryID
}

func NewScheduler(cfg config.SchedulerConfig, manager Triggerer) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		manager: manager,
		cron:    cron.New(),
	}
}

func (s *Scheduler) Start() {
	if !s.cfg.Enabled {
		logger.Log.Info("Scheduler is disabled")
		return
	}

	logger.Log.Info("Starting scheduler", zap.String("interval", s.cfg.Interval))

	id, err := s.cron.AddFunc(s.cfg.Interval, func() {
		s.triggerSync()
	})

	if err != nil {
		logger.Log.Error("Failed to schedule job", zap.Error(err))
		return
	}

	s.entryID = id
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		s.entryID = 0
	}
	<-s.cron.Stop().Done()
	logger.Log.Info("Stopped scheduler")
}

func (s *Scheduler) triggerSync() {
	logger.Log.Info("Triggering scheduled sync")

	err := s.manager.Trigger()
	if errors.Is(err, ErrAlreadyRunning) {
		logger.Log.Info("Sync already running, skipping scheduled run")
		return
	}
	if err != nil {
		logger.Log.Error("Failed to start scheduled sync", zap.Error(err))
	}
}
