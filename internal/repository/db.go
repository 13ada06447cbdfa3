package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/notafiscal/internal/common"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DB is the run history store. Postgres DSNs go through a pgx pool wrapped as
// *sql.DB; anything else is opened as a SQLite file.
type DB struct {
	SQL     *sql.DB
	Pool    *pgxpool.Pool
	Dialect Dialect
	logger  *slog.Logger
}

// Open connects and migrates the schema.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, common.NewAppError(common.CodeConfig, "database DSN is empty", common.ErrInvalidInput)
	}

	var (
		db  *DB
		err error
	)
	if cfg.IsPostgres() {
		db, err = openPostgres(ctx, cfg, logger)
	} else {
		db, err = openSQLite(cfg, logger)
	}
	if err != nil {
		return nil, common.NewAppError(common.CodeDatabase, "failed to connect to database", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}

	if err := db.HealthCheck(ctx, cfg.DialTimeout); err != nil {
		db.Close()
		return nil, common.NewAppError(common.CodeDatabase, "database ping failed", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, common.NewAppError(common.CodeDatabase, "schema migration failed", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}

	logger.Info("db.connected", "dialect", db.Dialect)
	return db, nil
}

func openPostgres(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	logger.Info("db.connecting", "dialect", DialectPostgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("db.parse_dsn_failed", "error", err)
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "notafiscal"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("db.connect_failed", "error", err)
		return nil, err
	}

	return &DB{
		SQL:     stdlib.OpenDBFromPool(pool),
		Pool:    pool,
		Dialect: DialectPostgres,
		logger:  logger,
	}, nil
}

func openSQLite(cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	path := strings.TrimPrefix(cfg.DSN, "sqlite://")
	logger.Info("db.connecting", "dialect", DialectSQLite, "path", path)

	dsn := path
	if path != ":memory:" && !strings.Contains(path, "?") {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// a single writer; also keeps ":memory:" on one connection
	sqlDB.SetMaxOpenConns(1)

	return &DB{SQL: sqlDB, Dialect: DialectSQLite, logger: logger}, nil
}

// Close closes the database connections gracefully
func (db *DB) Close() {
	if db == nil {
		return
	}
	db.logger.Info("db.closing")
	if db.SQL != nil {
		if err := db.SQL.Close(); err != nil {
			db.logger.Error("db.close_failed", "error", err)
		}
	}
	if db.Pool != nil {
		db.Pool.Close()
	}
	db.logger.Info("db.closed")
}

// HealthCheck pings using database/sql to catch DSN issues early.
func (db *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.SQL.PingContext(ctx); err != nil {
		db.logger.Error("db.ping_failed", "error", err)
		return err
	}
	db.logger.Debug("db.ping_ok")
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS batch_runs (
		id                 TEXT PRIMARY KEY,
		source             TEXT NOT NULL DEFAULT '',
		status             TEXT NOT NULL,
		documents          INTEGER NOT NULL DEFAULT 0,
		row_count          INTEGER NOT NULL DEFAULT 0,
		duplicates_removed INTEGER NOT NULL DEFAULT 0,
		failures           INTEGER NOT NULL DEFAULT 0,
		started_at         TEXT NOT NULL,
		finished_at        TEXT,
		error_message      TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_batch_runs_started_at ON batch_runs (started_at)`,
	`CREATE TABLE IF NOT EXISTS batch_failures (
		run_id   TEXT NOT NULL REFERENCES batch_runs (id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		document TEXT NOT NULL,
		error    TEXT NOT NULL,
		PRIMARY KEY (run_id, position)
	)`,
}

// Migrate creates the run history tables if they do not exist.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.SQL.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// rebind rewrites '?' placeholders to '$n' for Postgres.
func (db *DB) rebind(query string) string {
	if db.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
