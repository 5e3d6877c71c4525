package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mattmezza/ticketwatch/internal/checker"
	"github.com/mattmezza/ticketwatch/internal/config"
	"github.com/mattmezza/ticketwatch/internal/fetcher"
	"github.com/mattmezza/ticketwatch/internal/logging"
	"github.com/mattmezza/ticketwatch/internal/notifier"
	"github.com/mattmezza/ticketwatch/internal/runner"
	"github.com/mattmezza/ticketwatch/internal/state"
)

// app holds the wired components for one command invocation.
type app struct {
	cfg        *config.Config
	log        zerolog.Logger
	store      state.Store
	dispatcher *notifier.Dispatcher
	checker    *checker.Checker
	runner     *runner.Runner
}

func newApp(ctx context.Context, configFile string) (*app, error) {
	configFile = configPathFromEnv(configFile)
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("load configuration from %s: %w", configFile, err)
	}

	log := logging.New(cfg.Log)
	if cfg.Source == "" {
		log.Warn().Str("config", configFile).Msg("config file not found, running on defaults and environment")
	} else {
		log.Info().Str("config", cfg.Source).Msg("configuration loaded")
	}

	configuredNotifiers, err := notifier.InitializeNotifiers(cfg.NotificationChannels, logging.Component(log, "notifier"))
	if err != nil {
		return nil, fmt.Errorf("initialize notifiers: %w", err)
	}
	dispatcher := notifier.NewDispatcher(configuredNotifiers, notifier.Templates{
		FiredTemplate:   cfg.Templates.AlertFired,
		ClearedTemplate: cfg.Templates.AlertCleared,
	}, logging.Component(log, "notifier"))

	store, err := state.Open(ctx, cfg.State.Backend, cfg.State.Path)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	sites := make([]checker.Site, 0, len(cfg.Sites))
	for _, s := range cfg.Sites {
		sites = append(sites, checker.Site{Name: s.Name, URL: s.URL})
	}

	chk := checker.New(
		fetcher.New(cfg.HTTP.Timeout, cfg.HTTP.UserAgent),
		dispatcher,
		cfg.Keywords,
		checker.Options{NotifyOnClear: cfg.NotifyOnClear},
		logging.Component(log, "checker"),
	)
	if len(chk.Keywords()) == 0 {
		log.Warn().Str("env", config.EnvKeywords).Msg("no keywords configured, no alert can fire")
	}

	log.Info().
		Int("sites", len(sites)).
		Strs("keywords", chk.Keywords()).
		Strs("channels", dispatcher.Channels()).
		Str("state_backend", cfg.State.Backend).
		Str("state_path", cfg.State.Path).
		Msg("components initialized")

	return &app{
		cfg:        cfg,
		log:        log,
		store:      store,
		dispatcher: dispatcher,
		checker:    chk,
		runner:     runner.New(chk, store, sites, logging.Component(log, "runner")),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Error().Err(err).Msg("closing state store")
	}
}
