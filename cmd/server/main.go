// Command server runs the AgentDesk HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dharsanguruparan/AgentDesk/internal/api"
	"github.com/dharsanguruparan/AgentDesk/internal/config"
	"github.com/dharsanguruparan/AgentDesk/internal/database"
	"github.com/dharsanguruparan/AgentDesk/internal/identity"
	"github.com/dharsanguruparan/AgentDesk/internal/logging"
	"github.com/dharsanguruparan/AgentDesk/internal/notify"
	"github.com/dharsanguruparan/AgentDesk/internal/report"
	"github.com/dharsanguruparan/AgentDesk/internal/s3storage"
	"github.com/dharsanguruparan/AgentDesk/internal/session"
	"github.com/dharsanguruparan/AgentDesk/internal/signing"
	"github.com/dharsanguruparan/AgentDesk/internal/translate"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "agentdesk server: %v\n", err)
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

	gw, closeGateway, err := database.OpenGateway(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	defer closeGateway()

	var dir *identity.Directory
	if cfg.IdentityMapPath != "" {
		if dir, err = identity.LoadDirectory(cfg.IdentityMapPath); err != nil {
			return err
		}
	}
	roster := dir.TeamRoster()

	registry := session.NewRegistry(func(id, email string, inbox *notify.Inbox) *report.Store {
		return report.NewStore(report.Deps{
			Identity:      id,
			Email:         email,
			Roster:        roster,
			Gateway:       gw,
			Notifier:      inbox,
			Logger:        log,
			AutosaveDelay: cfg.AutosaveDelay,
		})
	}, cfg.SessionIdle, log)

	deps := api.Deps{
		Gateway:  gw,
		Resolver: dir.Resolver(),
		Sessions: registry,
		Translator: translate.New(translate.Options{
			BaseURL: cfg.TranslateURL,
			Rate:    rate.Limit(cfg.TranslateRPS),
			Logger:  log,
		}),
		Signer: signing.NewSigner(cfg.SigningSecret),
		Logger: log,
	}
	if cfg.S3AccessKey != "" {
		store, err := s3storage.New(cfg)
		if err != nil {
			return err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("ensure bucket: %w", err)
		}
		queueClient := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer queueClient.Close()
		deps.Queue = queueClient
		deps.Exports = store
	} else {
		log.Warn("object storage not configured, report export disabled")
	}

	srv := api.New(cfg, deps)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return registry.Run(gctx) })
	if err := g.Wait(); err != nil {
		log.Error("server stopped", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}
