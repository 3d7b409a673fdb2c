package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/chatguard-server/internal/advisory"
	"github.com/vovakirdan/chatguard-server/internal/auth"
	"github.com/vovakirdan/chatguard-server/internal/coaching"
	"github.com/vovakirdan/chatguard-server/internal/config"
	"github.com/vovakirdan/chatguard-server/internal/core"
	"github.com/vovakirdan/chatguard-server/internal/intent"
	"github.com/vovakirdan/chatguard-server/internal/log"
	"github.com/vovakirdan/chatguard-server/internal/pipeline"
	"github.com/vovakirdan/chatguard-server/internal/session"
	"github.com/vovakirdan/chatguard-server/internal/store"
	"github.com/vovakirdan/chatguard-server/internal/store/postgres"
	"github.com/vovakirdan/chatguard-server/internal/store/sqlite"
	"github.com/vovakirdan/chatguard-server/internal/tone"
	"github.com/vovakirdan/chatguard-server/internal/toxicity"
	transporthttp "github.com/vovakirdan/chatguard-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	closers         []func() error
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	logger = log.OrNop(logger)
	a := &App{shutdownTimeout: cfg.ShutdownTimeout, log: logger}

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	a.store = st
	logger.Info().Str("driver", cfg.Store.Driver).Msg("message store initialized")

	scorer, err := a.buildScorer(ctx, cfg)
	if err != nil {
		a.cleanup()
		return nil, err
	}

	advisor, err := advisory.New(cfg.Advisory)
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("init advisory: %w", err)
	}
	if advisor == nil {
		logger.Info().Msg("advisory service disabled, using rule-based tone and coaching")
	} else {
		logger.Info().Str("provider", cfg.Advisory.Provider).Str("model", cfg.Advisory.Model).Msg("advisory service enabled")
	}

	p, err := pipeline.New(pipeline.Deps{
		Scorer:     scorer,
		Classifier: intent.New(),
		Tone:       tone.NewResolver(advisor, cfg.Advisory.Timeout, logger),
		Coaching:   coaching.NewGenerator(advisor, cfg.Advisory.Timeout, logger),
		Store:      st,
		Logger:     logger,
	}, pipeline.Options{Threshold: cfg.Toxicity.Threshold, Room: cfg.DefaultRoom})
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("init pipeline: %w", err)
	}

	authService := auth.NewService(cfg.Auth)
	if !authService.Enabled() {
		logger.Warn().Msg("moderator auth disabled, moderation endpoints are open")
	}

	a.hub = core.NewHub(logger)
	a.server = transporthttp.NewServer(transporthttp.Deps{
		Analyzer: p,
		Sessions: session.New(p, a.hub, logger),
		Hub:      a.hub,
		Store:    st,
		Auth:     authService,
		Components: transporthttp.Components{
			Toxicity: scorer != nil,
			Advisory: advisor != nil,
		},
	}, cfg, logger)

	return a, nil
}

// Handler exposes the router, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the hub and the HTTP server and blocks until ctx is cancelled or
// either of them fails.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.hub.Run(gctx)
	})

	g.Go(func() error {
		select {
		case <-a.hub.Started():
		case <-gctx.Done():
			return nil
		}
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *App) buildScorer(ctx context.Context, cfg *config.Config) (toxicity.Scorer, error) {
	if strings.TrimSpace(cfg.Toxicity.URL) == "" {
		a.log.Warn().Msg("toxicity scorer not configured, every message scores zero")
		return nil, nil
	}

	httpScorer, err := toxicity.NewHTTPScorer(cfg.Toxicity.URL, cfg.Toxicity.APIKey, cfg.Toxicity.Timeout)
	if err != nil {
		return nil, fmt.Errorf("init toxicity scorer: %w", err)
	}
	a.log.Info().Str("url", cfg.Toxicity.URL).Msg("toxicity scorer enabled")

	if cfg.RedisURL == "" {
		return httpScorer, nil
	}
	cache, err := toxicity.NewRedisCache(ctx, cfg.RedisURL)
	if err != nil {
		// The cache is optional; scoring works without it.
		a.log.Warn().Err(err).Msg("redis unavailable, toxicity cache disabled")
		return httpScorer, nil
	}
	a.closers = append(a.closers, cache.Close)
	a.log.Info().Dur("ttl", cfg.Toxicity.CacheTTL).Msg("toxicity cache enabled")
	return toxicity.NewCachedScorer(httpScorer, cache, cfg.Toxicity.CacheTTL, a.log), nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		return sqlite.New(cfg.DSN)
	case "postgres":
		return postgres.New(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// cleanup closes the store and other resources.
func (a *App) cleanup() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close resource")
		}
	}
	a.closers = nil

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
		a.store = nil
	}
}
