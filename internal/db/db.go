// Package db opens the system database and reports its identity.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/danmuck/deskctl/internal/config"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DialectSQLite     = "sqlite"
	DialectPostgreSQL = "postgresql"
)

var ErrUnsupportedDriver = errors.New("unsupported database driver")

// DSNInfo is the non-secret part of a connection string.
type DSNInfo struct {
	Host     string
	Database string
	User     string
}

// DB wraps *sql.DB with the dialect it was opened for.
type DB struct {
	*sql.DB
	driver string
	info   DSNInfo
}

// Open connects and pings the configured database.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	info, err := ParseDSN(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	handle, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if cfg.Driver == "sqlite" {
		// sqlite allows one writer; a single connection also keeps :memory: databases shared.
		handle.SetMaxOpenConns(1)
	}
	if err := handle.PingContext(ctx); err != nil {
		handle.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	return &DB{DB: handle, driver: cfg.Driver, info: info}, nil
}

func (d *DB) Driver() string {
	return d.driver
}

func (d *DB) Dialect() string {
	return DialectOf(d.driver)
}

func (d *DB) Info() DSNInfo {
	return d.info
}

// Version asks the server for its version string.
func (d *DB) Version(ctx context.Context) (string, error) {
	var query string
	switch d.Dialect() {
	case DialectSQLite:
		query = "select sqlite_version()"
	case DialectPostgreSQL:
		query = "show server_version"
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDriver, d.driver)
	}
	var version string
	if err := d.QueryRowContext(ctx, query).Scan(&version); err != nil {
		return "", fmt.Errorf("query %s version: %w", d.Dialect(), err)
	}
	return strings.TrimSpace(version), nil
}

// Rebind rewrites '?' placeholders for dialects that use numbered ones.
func (d *DB) Rebind(query string) string {
	if d.Dialect() != DialectPostgreSQL {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// DialectOf maps a driver name to its SQL dialect, or "" when unknown.
func DialectOf(driver string) string {
	switch driver {
	case "sqlite":
		return DialectSQLite
	case "pgx", "postgres":
		return DialectPostgreSQL
	default:
		return ""
	}
}

// ParseDSN extracts host, database and user from a driver DSN.
func ParseDSN(driver, dsn string) (DSNInfo, error) {
	switch DialectOf(driver) {
	case DialectSQLite:
		return parseSQLiteDSN(dsn), nil
	case DialectPostgreSQL:
		pc, err := pgconn.ParseConfig(dsn)
		if err != nil {
			return DSNInfo{}, fmt.Errorf("parse postgres dsn: %w", err)
		}
		return DSNInfo{Host: pc.Host, Database: pc.Database, User: pc.User}, nil
	default:
		return DSNInfo{}, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}
}

func parseSQLiteDSN(dsn string) DSNInfo {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}
	if path == "" {
		path = ":memory:"
	}
	return DSNInfo{Host: "localhost", Database: path}
}
