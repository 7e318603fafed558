package queue

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"library-backend/internal/config"
	"library-backend/internal/shared"
	"library-backend/pkg/logger"
)

type Scheduler struct {
	scheduler *asynq.Scheduler
	queueCfg  config.QueueConfig
}

func NewScheduler(redisCfg config.RedisConfig, queueCfg config.QueueConfig, loc *time.Location) *Scheduler {
	scheduler := asynq.NewScheduler(
		RedisOpt(redisCfg),
		&asynq.SchedulerOpts{
			Location: loc,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		queueCfg:  queueCfg,
	}
}

// RegisterJobs registers all periodic jobs
func (s *Scheduler) RegisterJobs() error {
	return s.registerDueReminderJob()
}

// ================================================
// JOB: Due Reminder (daily, default 8 AM library time)
// ================================================
func (s *Scheduler) registerDueReminderJob() error {
	task := asynq.NewTask(shared.TypeBorrowingReminder, nil)

	entryID, err := s.scheduler.Register(
		s.queueCfg.ReminderCronSpec,
		task,
		asynq.Queue(shared.QueueScheduled),
		asynq.MaxRetry(2),
		asynq.Timeout(5*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register DueReminder job", err)
		return fmt.Errorf("register due reminder: %w", err)
	}

	logger.Info("Registered DueReminder job", map[string]interface{}{
		"entry_id": entryID,
		"cron":     s.queueCfg.ReminderCronSpec,
	})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Start()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
