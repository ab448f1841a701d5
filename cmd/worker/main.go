package main

import (
	"context"
	"log"
	"time"

	"stylemateapi/config"
	"stylemateapi/dbhelper"
	"stylemateapi/logging"
	"stylemateapi/services"
	"stylemateapi/tasks"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func runScheduler(redis asynq.RedisClientOpt, logger *zap.Logger) {
	scheduler := asynq.NewScheduler(redis, &asynq.SchedulerOpts{
		LogLevel: asynq.InfoLevel,
	})

	entries := []struct {
		cron string
		task *asynq.Task
		desc string
	}{
		{
			cron: "@hourly",
			task: tasks.NewPurgeExpiredTokensTask(),
			desc: "Purge expired password reset tokens",
		},
	}

	for _, t := range entries {
		entryID, err := scheduler.Register(t.cron, t.task)
		if err != nil {
			logger.Fatal("failed to register scheduled task", zap.String("task", t.desc), zap.Error(err))
		}
		logger.Info("registered scheduled task", zap.String("task", t.desc), zap.String("id", entryID), zap.String("cron", t.cron))
	}

	logger.Info("starting scheduler")
	if err := scheduler.Run(); err != nil {
		logger.Fatal("scheduler failed", zap.Error(err))
	}
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.Env, Release: cfg.Sentry.Release}); err != nil {
		logger.Fatal("sentry.Init", zap.Error(err))
	}
	defer sentry.Flush(2 * time.Second)

	redis := asynq.RedisClientOpt{Addr: cfg.Redis.Addr}
	srv := asynq.NewServer(redis, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			tasks.QueueDefault:     6,
			tasks.QueueMaintenance: 2,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("task failed", zap.String("type", task.Type()), zap.Error(err))
			sentry.CaptureException(err)
		}),
	})

	awsService := services.NewAWSService(cfg.Storage)
	if err := awsService.InitPresignClient(context.Background()); err != nil {
		logger.Fatal("failed to initialize storage client", zap.Error(err))
	}
	db, err := dbhelper.SetupDB(cfg.Database)
	if err != nil {
		logger.Fatal("database setup failed", zap.Error(err))
	}
	mailer := services.NewMailer(cfg.Mail, logger)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSendEmail, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleSendEmailTask(ctx, t, mailer)
	})
	mux.HandleFunc(tasks.TypeDeleteObject, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleDeleteObjectTask(ctx, t, awsService, logger)
	})
	mux.HandleFunc(tasks.TypePurgeExpiredTokens, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandlePurgeExpiredTokensTask(ctx, t, db, time.Now(), logger)
	})

	go runScheduler(redis, logger)
	if err := srv.Run(mux); err != nil {
		logger.Fatal("worker stopped", zap.Error(err))
	}
}
