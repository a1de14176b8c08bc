package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/pokedex/internal/config"
	"github.com/Skotchmaster/pokedex/internal/es"
	"github.com/Skotchmaster/pokedex/internal/httpserver"
	"github.com/Skotchmaster/pokedex/internal/metrics"
	"github.com/Skotchmaster/pokedex/internal/middleware"
	"github.com/Skotchmaster/pokedex/internal/mykafka"
	"github.com/Skotchmaster/pokedex/internal/repo"
	"github.com/Skotchmaster/pokedex/internal/service"
	"github.com/Skotchmaster/pokedex/internal/species"
	pkgdb "github.com/Skotchmaster/pokedex/pkg/db"
	"github.com/Skotchmaster/pokedex/pkg/hash"
	"github.com/Skotchmaster/pokedex/pkg/tokens"
)

// App holds the wired service. Build it with New and release it with Close.
type App struct {
	Cfg     config.Config
	Log     *slog.Logger
	DB      *gorm.DB
	Repo    *repo.GormRepo
	Auth    *service.AuthService
	Pokedex *service.PokedexService
	Events  mykafka.Publisher
	Echo    *echo.Echo
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(ctx, db); err != nil {
		_ = pkgdb.Close(db)
		return nil, err
	}

	r := &repo.GormRepo{DB: db}
	if err := r.EnsureRoles(ctx, repo.DefaultRoles...); err != nil {
		_ = pkgdb.Close(db)
		return nil, fmt.Errorf("seed roles: %w", err)
	}

	secret := cfg.JWTSecret
	if len(secret) == 0 {
		if secret, err = tokens.GenerateSecret(); err != nil {
			_ = pkgdb.Close(db)
			return nil, err
		}
		log.Warn("jwt_secret_generated", "reason", "JWT_SECRET is not set, tokens will not survive a restart")
	}
	tk, err := tokens.NewService(secret, cfg.AccessTokenTTL)
	if err != nil {
		_ = pkgdb.Close(db)
		return nil, fmt.Errorf("token service: %w", err)
	}

	var events mykafka.Publisher = mykafka.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		events = mykafka.NewProducer(cfg.KafkaBrokers)
	} else {
		log.Info("events_disabled", "reason", "KAFKA_BROKERS is empty")
	}

	sp := species.NewClient(cfg.SpeciesAPIURL, cfg.SpeciesTimeout)
	sp.OnResult = metrics.RecordSpeciesFetch

	auth := &service.AuthService{
		Repo:        r,
		Tokens:      tk,
		Hasher:      hash.New(cfg.HashIterations),
		DefaultRole: cfg.DefaultRole,
		Events:      events,
	}
	pokedex := &service.PokedexService{
		Repo:    r,
		Species: sp,
		Events:  events,
	}

	// A nil *es.Index stored in the interface would not compare equal to nil,
	// so the field is only set on success.
	if cfg.ESURL != "" {
		ix, err := es.NewIndex(ctx, es.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword, Index: cfg.ESIndex})
		if err != nil {
			log.Warn("search_index_disabled", "reason", "elasticsearch unavailable", "error", err)
		} else {
			pokedex.Index = ix
		}
	}

	e := httpserver.NewEcho(log)
	httpserver.Register(e, &httpserver.Deps{
		DB:             db,
		AuthHandler:    &httpserver.AuthHTTP{Svc: auth},
		PokedexHandler: &httpserver.PokedexHTTP{Svc: pokedex},
		UsersHandler:   &httpserver.UsersHTTP{Svc: auth},
		Gate:           middleware.NewGate(auth),
		LoginRateLimit: cfg.LoginRateLimit,
	})

	return &App{
		Cfg:     cfg,
		Log:     log,
		DB:      db,
		Repo:    r,
		Auth:    auth,
		Pokedex: pokedex,
		Events:  events,
		Echo:    e,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.Cfg.ServerPort,
		Handler:           a.Echo,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	pruneCtx, stopPruner := context.WithCancel(ctx)
	defer stopPruner()
	go a.pruneLoop(pruneCtx, a.Cfg.RevocationPruneInterval)

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("server_started", "addr", srv.Addr, "service", a.Cfg.ServiceName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.Log.Info("shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func (a *App) pruneLoop(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.Auth.PruneRevoked(ctx)
			if err != nil {
				a.Log.Error("prune_revoked_failed", "error", err)
				continue
			}
			a.Log.Info("prune_revoked_done", "deleted", n)
		}
	}
}

func (a *App) Close() error {
	var errs []error
	if err := a.Events.Close(); err != nil {
		errs = append(errs, fmt.Errorf("kafka close: %w", err))
	}
	if err := pkgdb.Close(a.DB); err != nil {
		errs = append(errs, fmt.Errorf("db close: %w", err))
	}
	return errors.Join(errs...)
}
