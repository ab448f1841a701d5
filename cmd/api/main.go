package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stylemateapi/config"
	"stylemateapi/controllers"
	"stylemateapi/dbhelper"
	"stylemateapi/logging"
	"stylemateapi/services"
	"stylemateapi/weather"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

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

	err = sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      cfg.Env,
		Release:          cfg.Sentry.Release,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		logger.Fatal("sentry.Init", zap.Error(err))
	}
	defer sentry.Recover()
	defer sentry.Flush(2 * time.Second)

	db, err := dbhelper.SetupDB(cfg.Database)
	if err != nil {
		logger.Fatal("database setup failed", zap.Error(err))
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr})
	defer asynqClient.Close()

	awsService := services.NewAWSService(cfg.Storage)
	urlCache, err := services.NewURLCacheService(awsService, cfg.Storage.Bucket, cfg.Storage.ReadURLTTL, logger)
	if err != nil {
		logger.Fatal("failed to initialize URL cache service", zap.Error(err))
	}

	var provider weather.Provider
	if cfg.WeatherLive() {
		resilient, err := weather.NewResilient(weather.NewOpenWeatherClient(cfg.Weather), cfg.Weather.CacheTTL, logger)
		if err != nil {
			logger.Fatal("failed to initialize weather provider", zap.Error(err))
		}
		provider = resilient
	} else {
		logger.Warn("weather api key not set, recommendations use the default weather")
	}

	e := controllers.SetupServer(controllers.Dependencies{
		DB:       db,
		Config:   cfg,
		Logger:   logger,
		Storage:  awsService,
		URLCache: urlCache,
		Weather:  provider,
		Tasks:    asynqClient,
	})
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info("starting api", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
