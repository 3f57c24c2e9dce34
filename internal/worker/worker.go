package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

const TaskDailyReminders = "reminders:daily"

const (
	workerConcurrency   = 1
	workerShutdown      = 30 * time.Second
	reminderTaskTimeout = 10 * time.Minute
	reminderUniqueFor   = 23 * time.Hour
)

// ReminderRunner sends the day's reminders and reports how many went out.
type ReminderRunner interface {
	RunReminders(ctx context.Context) int
}

type Config struct {
	RedisURL string
	Schedule string
	Location *time.Location
}

// Start registers the daily reminder on an asynq scheduler and runs a worker
// that handles it. Several app instances may share one Redis; the unique
// option keeps a day's run from being enqueued twice.
func Start(cfg Config, runner ReminderRunner, logger zerolog.Logger) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	location := cfg.Location
	if location == nil {
		location = time.UTC
	}
	logger = logger.With().Str("component", "worker").Logger()

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:     workerConcurrency,
		ShutdownTimeout: workerShutdown,
		Logger:          asynqLogger{logger: logger},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskDailyReminders, handleDailyReminders(runner, logger))
	if err := server.Start(mux); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: location,
		LogLevel: asynq.InfoLevel,
		Logger:   asynqLogger{logger: logger},
	})
	entryID, err := scheduler.Register(cfg.Schedule, NewDailyRemindersTask())
	if err != nil {
		server.Shutdown()
		return nil, fmt.Errorf("register reminder schedule %q: %w", cfg.Schedule, err)
	}
	if err := scheduler.Start(); err != nil {
		server.Shutdown()
		return nil, fmt.Errorf("start scheduler: %w", err)
	}

	logger.Info().
		Str("schedule", cfg.Schedule).
		Str("tz", location.String()).
		Str("entry_id", entryID).
		Msg("reminder scheduler started")

	return func() {
		scheduler.Shutdown()
		server.Shutdown()
	}, nil
}

func NewDailyRemindersTask() *asynq.Task {
	return asynq.NewTask(
		TaskDailyReminders,
		nil,
		asynq.MaxRetry(3),
		asynq.Timeout(reminderTaskTimeout),
		asynq.Unique(reminderUniqueFor),
	)
}

// handleDailyReminders never asks for a retry: the runner logs its own push
// failures and already skips patients reminded today.
func handleDailyReminders(runner ReminderRunner, logger zerolog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		started := time.Now()
		sent := runner.RunReminders(ctx)
		logger.Info().
			Str("task", task.Type()).
			Int("sent", sent).
			Dur("elapsed", time.Since(started)).
			Msg("daily reminders processed")
		return ctx.Err()
	}
}
