package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/audience-backend/internal/data/db"
	"github.com/yungbote/audience-backend/internal/http"
	"github.com/yungbote/audience-backend/internal/jobs/worker"
	"github.com/yungbote/audience-backend/internal/observability"
	"github.com/yungbote/audience-backend/internal/platform/logger"
	"github.com/yungbote/audience-backend/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *http.Server
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics

	dbService    *db.Service
	otelShutdown func(context.Context) error
}

// RunOptions picks which parts of the process Run starts.
type RunOptions struct {
	// HTTP serves the API, the round sweeper and the status collector.
	HTTP bool
	// Worker runs round_execute jobs: on Temporal when it is configured, in-process otherwise.
	Worker bool
}

func New(ctx context.Context) (*App, error) {
	cfg := LoadConfig()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("config: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)
	metrics := observability.Init()

	dbs, err := db.NewService(log, cfg.DB)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbs.AutoMigrateAll(); err != nil {
		_ = dbs.Close()
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	theDB := dbs.DB()

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = dbs.Close()
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, clients)
	if err != nil {
		clients.Close()
		_ = dbs.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, theDB, serviceset)
	middleware := wireMiddleware(log, serviceset)
	server := wireServer(log, cfg, metrics, handlerset, middleware)

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Metrics:      metrics,
		dbService:    dbs,
		otelShutdown: otelShutdown,
	}, nil
}

// Run blocks until ctx is done or a component fails.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	if !opts.HTTP && !opts.Worker {
		return fmt.Errorf("nothing to run")
	}
	g, ctx := errgroup.WithContext(ctx)

	if opts.HTTP {
		if err := a.Services.Sweeper.Start(); err != nil {
			return err
		}
		defer a.Services.Sweeper.Stop()

		if a.Metrics != nil {
			a.Metrics.StartStatusCollector(ctx, a.Log, a.DB, a.Cfg.StatusCollectorEvery)
		}

		g.Go(func() error {
			a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTPAddr)
			return a.Server.Run(ctx, a.Cfg.HTTPAddr)
		})
	}

	if opts.Worker {
		if err := a.startWorker(ctx, g); err != nil {
			return err
		}
	}

	return g.Wait()
}

func (a *App) startWorker(ctx context.Context, g *errgroup.Group) error {
	if a.Clients.Temporal != nil {
		runner, err := temporalworker.NewRunner(a.Log, a.Cfg.Temporal, a.Clients.Temporal, a.DB,
			a.Repos.JobRun, a.Services.JobRegistry, a.Services.JobNotifier)
		if err != nil {
			return fmt.Errorf("init temporal worker: %w", err)
		}
		if err := runner.Start(ctx); err != nil {
			return err
		}
		g.Go(func() error {
			<-ctx.Done()
			return nil
		})
		return nil
	}

	w := worker.NewWorker(a.DB, a.Log, a.Repos.JobRun, a.Services.JobRegistry, a.Services.JobNotifier, a.Cfg.Worker)
	w.Start(ctx)
	g.Go(func() error {
		w.Wait()
		return nil
	})
	return nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil {
			a.Log.Warn("database close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

// Migrate applies the schema and exits without wiring any clients.
func Migrate(ctx context.Context) error {
	cfg := LoadConfig()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	dbs, err := db.NewService(log, cfg.DB)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer func() { _ = dbs.Close() }()
	if err := ctx.Err(); err != nil {
		return err
	}
	return dbs.AutoMigrateAll()
}
