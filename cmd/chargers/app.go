package main

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-charger-client/api"
	"github.com/jrsteele09/go-charger-client/charger"
	"github.com/jrsteele09/go-charger-client/internal/config"
	apperrors "github.com/jrsteele09/go-charger-client/internal/errors"
	"github.com/jrsteele09/go-charger-client/internal/logging"
	"github.com/jrsteele09/go-charger-client/session"
	"github.com/jrsteele09/go-charger-client/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// app is everything a command needs, built once per invocation
type app struct {
	cfg      config.Config
	logger   zerolog.Logger
	store    store.Store
	registry *prometheus.Registry
	session  *session.Manager
	client   *api.Client
	chargers *charger.Service
}

func newApp(configPath, logLevel string) (*app, error) {
	cfg, err := config.New(configPath)
	if err != nil {
		return nil, err
	}

	level := cfg.GetLogLevel()
	if logLevel != "" {
		level = logLevel
	}
	logger := logging.New(level, cfg.GetLogPretty())

	s, err := store.Open(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    s,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// renewal goes through a client without a token source, it only uses public endpoints
	renewer, err := api.New(cfg.GetBaseURL(),
		api.WithTimeout(cfg.GetRequestTimeout()),
		api.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	opts := append(session.OptionsFromConfig(cfg),
		session.WithLogger(logger),
		session.WithMetrics(session.NewMetrics(a.registry)),
	)
	a.session = session.New(s, renewer, opts...)

	a.client, err = api.New(cfg.GetBaseURL(),
		api.WithTimeout(cfg.GetRequestTimeout()),
		api.WithTokenSource(a.session),
		api.WithReservationsLimit(cfg.GetReservationsLimit()),
		api.WithOnUnauthorized(a.onUnauthorized),
		api.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	a.chargers = charger.NewService(a.client, a.session, charger.WithLogger(logger))
	return a, nil
}

func (a *app) onUnauthorized(ctx context.Context) {
	if err := a.session.Logout(ctx); err != nil {
		a.logger.Err(err).Msg("failed to clear credentials")
	}
}

// requireSession runs the check a page load would and fails unless a session remains
func (a *app) requireSession(ctx context.Context) error {
	outcome, err := a.session.RefreshIfNeeded(ctx)
	if err != nil {
		a.logger.Debug().Err(err).Str("outcome", outcome.String()).Msg("session check")
	}
	if a.session.EvaluatePhase(ctx) == session.PhaseLoggedOut {
		return errSignIn
	}
	return nil
}

var errSignIn = fmt.Errorf("session expired, please sign in with 'chargers login': %w", apperrors.ErrNotAuthenticated)

// friendly turns errors a user can act on into a short message
func friendly(err error) error {
	switch {
	case err == nil:
		return nil
	case apperrors.Is(err, apperrors.ErrUnauthorized), apperrors.Is(err, apperrors.ErrNotAuthenticated):
		return errSignIn
	case apperrors.Is(err, apperrors.ErrSlotUnavailable):
		return fmt.Errorf("time slot not available")
	case apperrors.Is(err, apperrors.ErrNotOwner):
		return fmt.Errorf("only the user who made a reservation can cancel it")
	case apperrors.Is(err, apperrors.ErrInvalidTimeRange):
		return fmt.Errorf("a reservation must end after it starts")
	case apperrors.Is(err, apperrors.ErrNotFound):
		return fmt.Errorf("something went wrong: not found")
	default:
		return err
	}
}

func (a *app) close() {
	if err := store.Close(a.store); err != nil {
		a.logger.Warn().Err(err).Msg("failed to close credential store")
	}
}
