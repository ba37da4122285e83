package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"horse.fit/glossa/internal/config"
)

const (
	defaultMaxOpenConns = 8
	connMaxIdleTime     = 5 * time.Minute
	connMaxLifetime     = 30 * time.Minute
)

// ErrNoRows reports an empty query result.
var ErrNoRows = sql.ErrNoRows

// IsNoRows reports whether err means the query matched nothing.
func IsNoRows(err error) bool {
	return errors.Is(err, ErrNoRows)
}

// Pool is the raw-SQL surface over one gorm connection pool. Automigration
// runs once at construction.
type Pool struct {
	orm *gorm.DB
	std *sql.DB
}

// NewPool opens the database, tunes the connection pool, verifies
// connectivity, and applies migrations.
func NewPool(ctx context.Context, cfg *config.Config) (*Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	orm, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel, cfg.Environment)),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm database: %w", err)
	}

	std, err := orm.DB()
	if err != nil {
		return nil, fmt.Errorf("get gorm sql db: %w", err)
	}
	tuneConnections(std, cfg)

	if err := std.PingContext(ctx); err != nil {
		_ = std.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pool := &Pool{orm: orm, std: std}
	if err := pool.autoMigrate(ctx); err != nil {
		_ = std.Close()
		return nil, fmt.Errorf("auto-migrate schema: %w", err)
	}
	return pool, nil
}

func tuneConnections(std *sql.DB, cfg *config.Config) {
	maxOpen := int(cfg.DBMaxConns)
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	std.SetMaxOpenConns(maxOpen)
	std.SetMaxIdleConns(max(1, min(int(cfg.DBMinConns), maxOpen)))
	std.SetConnMaxIdleTime(connMaxIdleTime)
	std.SetConnMaxLifetime(connMaxLifetime)
}

// QueryRow runs a raw query expected to return at most one row.
func (p *Pool) QueryRow(ctx context.Context, query string, args ...any) *Row {
	if p == nil || p.orm == nil {
		return &Row{}
	}
	return &Row{row: p.orm.WithContext(ctx).Raw(query, args...).Row()}
}

// Query runs a raw query returning any number of rows.
func (p *Pool) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	if p == nil || p.orm == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}
	rows, err := p.orm.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, err
	}
	return &Rows{rows: rows}, nil
}

// Exec runs a statement and reports how many rows it touched.
func (p *Pool) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if p == nil || p.orm == nil {
		return 0, fmt.Errorf("database pool is not initialized")
	}
	res := p.orm.WithContext(ctx).Exec(query, args...)
	return res.RowsAffected, res.Error
}

// Ping verifies the database is reachable.
func (p *Pool) Ping(ctx context.Context) error {
	if p == nil || p.std == nil {
		return fmt.Errorf("database pool is not initialized")
	}
	return p.std.PingContext(ctx)
}

// Close releases the underlying connections.
func (p *Pool) Close() error {
	if p == nil || p.std == nil {
		return nil
	}
	return p.std.Close()
}

// Row adapts sql.Row with nil guards so query helpers can chain Scan.
type Row struct {
	row *sql.Row
}

func (r *Row) Scan(dest ...any) error {
	if r == nil || r.row == nil {
		return ErrNoRows
	}
	return r.row.Scan(dest...)
}

// Rows adapts sql.Rows with nil guards.
type Rows struct {
	rows *sql.Rows
}

func (r *Rows) Next() bool {
	if r == nil || r.rows == nil {
		return false
	}
	return r.rows.Next()
}

func (r *Rows) Scan(dest ...any) error {
	if r == nil || r.rows == nil {
		return ErrNoRows
	}
	return r.rows.Scan(dest...)
}

func (r *Rows) Err() error {
	if r == nil || r.rows == nil {
		return nil
	}
	return r.rows.Err()
}

func (r *Rows) Close() {
	if r == nil || r.rows == nil {
		return
	}
	_ = r.rows.Close()
}

// gormLogLevel maps the service log level onto gorm's coarser scale.
func gormLogLevel(appLogLevel, environment string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(appLogLevel)) {
	case "trace", "debug":
		return logger.Info
	case "warn", "warning", "info", "":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	}
	if strings.EqualFold(strings.TrimSpace(environment), "local") {
		return logger.Warn
	}
	return logger.Error
}
