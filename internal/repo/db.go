// Package repo implements the data persistence layer for resource kinds,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite: data directory creation, driver selection, per-connection PRAGMAs
// and pool sizing.
package repo

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	_ "github.com/mattn/go-sqlite3" // registers the CGO "sqlite3" driver
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// Supported database/sql driver names.
const (
	DriverPureGo = "sqlite"  // github.com/glebarez/go-sqlite
	DriverCGO    = "sqlite3" // github.com/mattn/go-sqlite3
)

type openOptions struct {
	driver      string
	maxOpen     int
	busyTimeout time.Duration
	slowQuery   time.Duration
	tracing     bool
	silent      bool
}

// Option customizes OpenSQLite.
type Option func(*openOptions)

// WithDriver selects the SQL driver ("sqlite" or "sqlite3").
func WithDriver(name string) Option { return func(o *openOptions) { o.driver = name } }

// WithMaxOpenConns bounds the connection pool.
func WithMaxOpenConns(n int) Option { return func(o *openOptions) { o.maxOpen = n } }

// WithBusyTimeout sets how long a connection waits on a locked database.
func WithBusyTimeout(d time.Duration) Option { return func(o *openOptions) { o.busyTimeout = d } }

// WithSlowQuery sets the threshold above which SQL is logged as slow.
func WithSlowQuery(d time.Duration) Option { return func(o *openOptions) { o.slowQuery = d } }

// WithTracing toggles the OpenTelemetry GORM plugin.
func WithTracing(on bool) Option { return func(o *openOptions) { o.tracing = on } }

// WithSilentLogger disables SQL logging (tests).
func WithSilentLogger() Option { return func(o *openOptions) { o.silent = true } }

// PrepareDatabasePath creates the parent directory of the database file if
// it does not exist yet.
func PrepareDatabasePath(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory %s: %w", dir, err)
	}
	return nil
}

// OpenSQLite opens (or creates) a SQLite database. PRAGMAs are encoded in the
// DSN so every pooled connection gets them, not only the first one.
func OpenSQLite(path string, opts ...Option) (*gorm.DB, error) {
	o := openOptions{
		driver:      DriverPureGo,
		maxOpen:     5,
		busyTimeout: 5 * time.Second,
		slowQuery:   200 * time.Millisecond,
		tracing:     true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	dsn, err := buildDSN(o.driver, path, o.busyTimeout)
	if err != nil {
		return nil, err
	}

	cfg := &gorm.Config{Logger: NewGormLogger(o.slowQuery)}
	if o.silent {
		cfg.Logger = cfg.Logger.LogMode(gormlogger.Silent)
	}
	db, err := gorm.Open(sqlite.Dialector{DriverName: o.driver, DSN: dsn}, cfg)
	if err != nil {
		return nil, err
	}

	if o.tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, fmt.Errorf("gorm tracing plugin: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(o.maxOpen)
	sqlDB.SetMaxIdleConns(o.maxOpen)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// buildDSN renders path plus the driver-specific PRAGMA parameters.
func buildDSN(driver, path string, busy time.Duration) (string, error) {
	ms := busy.Milliseconds()
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	q := url.Values{}
	switch driver {
	case DriverPureGo:
		q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", ms))
		q.Add("_pragma", "journal_mode(WAL)")
		q.Add("_pragma", "synchronous(NORMAL)")
		q.Add("_pragma", "foreign_keys(1)")
	case DriverCGO:
		q.Set("_busy_timeout", fmt.Sprint(ms))
		q.Set("_journal_mode", "WAL")
		q.Set("_synchronous", "NORMAL")
		q.Set("_foreign_keys", "1")
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q", driver)
	}
	return path + sep + q.Encode(), nil
}

// Ping checks the database is reachable.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
