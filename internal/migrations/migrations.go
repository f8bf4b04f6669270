// Package migrations holds the versioned schema for every supported driver
// and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// goose keeps its base FS, dialect and logger in package state.
var gooseMu sync.Mutex

// dialects maps a database.driver value to its goose dialect and SQL directory.
var dialects = map[string]struct {
	dialect string
	dir     string
}{
	"postgres": {dialect: "postgres", dir: "postgres"},
	"sqlite":   {dialect: "sqlite3", dir: "sqlite"},
}

// Up applies all pending migrations for driver to db.
func Up(ctx context.Context, db *sql.DB, driver string, logger *slog.Logger) error {
	return run(driver, logger, func(dir string) error {
		return goose.UpContext(ctx, db, dir)
	})
}

// Version returns the current schema version recorded in db.
func Version(ctx context.Context, db *sql.DB, driver string, logger *slog.Logger) (int64, error) {
	var version int64
	err := run(driver, logger, func(string) error {
		v, err := goose.GetDBVersionContext(ctx, db)
		version = v
		return err
	})
	return version, err
}

func run(driver string, logger *slog.Logger, fn func(dir string) error) error {
	d, ok := dialects[driver]
	if !ok {
		return fmt.Errorf("migrations: unsupported driver %q", driver)
	}
	if logger == nil {
		logger = slog.Default()
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(files)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(&gooseLogger{logger: logger})
	if err := goose.SetDialect(d.dialect); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if err := fn(d.dir); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// gooseLogger routes goose output to slog.
type gooseLogger struct {
	logger *slog.Logger
}

func (l *gooseLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "migrations"))
}

func (l *gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "migrations"))
	panic(fmt.Sprintf(format, v...))
}
