package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/cove/pkg/analytics"
	"github.com/platinummonkey/cove/pkg/api"
	"github.com/platinummonkey/cove/pkg/async"
	"github.com/platinummonkey/cove/pkg/audit"
	"github.com/platinummonkey/cove/pkg/authz"
	"github.com/platinummonkey/cove/pkg/billing"
	"github.com/platinummonkey/cove/pkg/catalog"
	"github.com/platinummonkey/cove/pkg/config"
	"github.com/platinummonkey/cove/pkg/middleware"
	"github.com/platinummonkey/cove/pkg/observability"
	"github.com/platinummonkey/cove/pkg/orgs"
	"github.com/platinummonkey/cove/pkg/sso"
	"github.com/platinummonkey/cove/pkg/users"
)

// invites invalidated more than this long ago carry no audit value
const invitePruneAge = 30 * 24 * time.Hour

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Error("invalid configuration")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.WithError(err).Error("failed to open database")
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		logger.WithError(err).Error("failed to connect to database")
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	classes, err := catalog.ParseWorkspaceClasses(cfg.Installation.WorkspaceClasses)
	if err != nil {
		logger.WithError(err).Error("failed to parse workspace classes")
		os.Exit(1)
	}
	installationCatalog := catalog.NewStaticCatalog(classes, catalog.DefaultEditors(), cfg.Installation.DefaultMaxParallelWorkspaces)

	store := orgs.NewPostgresStore(db)
	authorizer := authz.NewAuthorizer(authz.NewPostgresRelationshipStore(db), logger)
	service := orgs.NewService(orgs.ServiceDeps{
		Store:        store,
		Authorizer:   authorizer,
		Users:        users.NewPostgresService(db),
		Billing:      billing.NewPostgresService(db),
		Analytics:    analytics.NewEventTracker(db),
		Projects:     orgs.NewPostgresProjects(db),
		Classes:      installationCatalog,
		Editors:      installationCatalog,
		Entitlements: installationCatalog,
		Flags:        orgs.StaticFlags{},
		Logger:       logger,
		Metrics:      metrics,
	})

	handler := api.NewRouter(api.RouterDeps{
		Service:    service,
		Authorizer: authorizer,
		SSO:        sso.NewPostgresStorage(db),
		Audit:      audit.NewPostgresStore(db),
		RateLimit:  middleware.NewRateLimiter(nil),
		Logger:     logger,
	})

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.MetricsPort,
		Handler: metricsMux,
	}

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.Installation.InvitePruneSchedule, func() {
		async.SafeGo(context.Background(), logger, time.Minute, "invite prune", func(ctx context.Context) error {
			pruned, pruneErr := store.PruneInvalidatedInvites(ctx, invitePruneAge)
			if pruneErr != nil {
				return pruneErr
			}
			if pruned > 0 {
				logger.WithField("pruned", pruned).Info("pruned invalidated invites")
			}
			return nil
		})
	})
	if err != nil {
		logger.WithError(err).Error("invalid invite prune schedule")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("starting API server")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Observability.MetricsEnabled {
		group.Go(func() error {
			logger.WithField("addr", metricsServer.Addr).Info("starting metrics server")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	scheduler.Start()

	group.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		<-scheduler.Stop().Done()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("API server shutdown failed")
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("metrics server shutdown failed")
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
