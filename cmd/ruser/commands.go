package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/ruser/internal/config"
	httpapi "github.com/tbourn/ruser/internal/http"
	"github.com/tbourn/ruser/internal/observability"
	"github.com/tbourn/ruser/internal/repo"
	"github.com/tbourn/ruser/internal/sysutil"
)

// purgeEvery bounds how often expired idempotency records are removed.
const purgeEvery = time.Hour

// app carries state shared by the subcommands after PersistentPreRunE.
type app struct {
	envFile    string
	configPath string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "ruser",
		Short:         "HTTP API for people and keyboards stored in SQLite",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), a.cfg)
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment (missing file is ignored)")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (overrides "+config.ConfigPathEnv+")")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), a.cfg)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables for the configured resources and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return migrate(cmd.Context(), a.cfg)
		},
	})
	return root
}

// load reads the dotenv file, the configuration and installs the logger.
func (a *app) load() error {
	if !sysutil.IsTruthy(os.Getenv("SKIP_DOTENV")) && a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}
	if a.configPath != "" {
		if err := os.Setenv(config.ConfigPathEnv, a.configPath); err != nil {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg = cfg
	sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty)
	return nil
}

// openDatabase prepares the database file, opens it with the configured
// driver and pool, ensures the schema and drops expired idempotency records.
func openDatabase(ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	if err := repo.PrepareDatabasePath(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("prepare database path: %w", err)
	}
	db, err := repo.OpenSQLite(cfg.DB.Path,
		repo.WithDriver(cfg.DB.Driver),
		repo.WithMaxOpenConns(cfg.DB.MaxOpenConns),
		repo.WithBusyTimeout(cfg.DB.BusyTimeout),
		repo.WithSlowQuery(cfg.DB.SlowQuery),
		repo.WithTracing(cfg.OTEL.Enabled),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := repo.EnsureSchema(ctx, db, cfg.Resources); err != nil {
		_ = repo.Close(db)
		return nil, err
	}
	n, err := repo.PurgeExpiredIdempotency(ctx, db, time.Now())
	if err != nil {
		_ = repo.Close(db)
		return nil, fmt.Errorf("purge idempotency: %w", err)
	}
	log.Info().
		Str("path", cfg.DB.Path).
		Str("driver", cfg.DB.Driver).
		Strs("resources", cfg.Resources).
		Int64("purged_idempotency", n).
		Msg("database ready")
	return db, nil
}

func migrate(ctx context.Context, cfg config.Config) error {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	return repo.Close(db)
}

// serve runs the HTTP server and the idempotency purger until ctx is done or
// the process receives SIGINT/SIGTERM, then shuts down gracefully.
func serve(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version, cfg.Resources...)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(db); err != nil {
			log.Warn().Err(err).Msg("close database")
		}
	}()

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	if err := httpapi.RegisterRoutes(r, db, cfg); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		purgeLoop(gctx, db, purgeEvery)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// purgeLoop removes expired idempotency records every interval until ctx is
// done. Failures are logged and retried on the next tick.
func purgeLoop(ctx context.Context, db *gorm.DB, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now)
			if err != nil {
				log.Warn().Err(err).Msg("purge idempotency")
				continue
			}
			if n > 0 {
				log.Debug().Int64("purged", n).Msg("purge idempotency")
			}
		}
	}
}
