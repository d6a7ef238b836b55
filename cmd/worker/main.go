// Command worker archives and mails exported reports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/AgentDesk/internal/config"
	"github.com/dharsanguruparan/AgentDesk/internal/email"
	"github.com/dharsanguruparan/AgentDesk/internal/logging"
	"github.com/dharsanguruparan/AgentDesk/internal/s3storage"
	"github.com/dharsanguruparan/AgentDesk/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "agentdesk worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.Dev, false)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	store, err := s3storage.New(cfg)
	if err != nil {
		return err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}

	var mailer email.Sender = email.LogSender{Log: log}
	if cfg.EmailEnabled() {
		mailer = email.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom, log)
	}

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.WorkerPoolSize,
		Logger:      log.Sugar(),
	})
	processor := worker.NewProcessor(store, mailer, cfg.EmailRecipients, log)

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	log.Info("worker started", zap.Int("concurrency", cfg.WorkerPoolSize), zap.Bool("email", cfg.EmailEnabled()))
	if err := server.Run(processor.Handler()); err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}
	return nil
}
