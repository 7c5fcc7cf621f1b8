// Package sqlite opens the application database and keeps its schema in sync with schema.sql.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	_ "embed"
)

//go:embed schema.sql
var schemaDefinition string

// Database holds separate pools for writes and reads. SQLite allows a single writer, so ReadWrite has one
// connection while ReadOnly serves concurrent readers.
type Database struct {
	ReadWrite *sql.DB
	ReadOnly  *sql.DB
	logger    *slog.Logger
}

// NewDatabase connects to a database and migrates it to the schema in schema.sql.
//
// The url parameter is the path to the SQLite database file or ":memory:" for an in-memory database. The
// optimizer goroutine runs until ctx is done.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	db, err := connect(ctx, url, logger)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err = db.migrateTo(ctx, schemaDefinition); err != nil {
		return nil, errors.Join(fmt.Errorf("migrateTo: %w", err), db.Close())
	}

	go db.startDatabaseOptimizer(ctx)

	return db, nil
}

//nolint:gochecknoglobals // the driver can only be registered once per process.
var registerDriver sync.Once

const optimizedDriver = "sqlite3optimized"

// connectionPragmas run on every new connection.
var connectionPragmas = strings.Join([]string{ //nolint:gochecknoglobals // constant list.
	// Temporary tables and indices live in memory.
	"PRAGMA temp_store = memory;",
	// Memory-mapped I/O saves read syscalls.
	"PRAGMA mmap_size = 30000000000;",
}, "")

func registerOptimizedDriver() {
	sql.Register(optimizedDriver, &sqlite3.SQLiteDriver{
		Extensions: nil,
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if _, err := conn.Exec(connectionPragmas, nil); err != nil {
				return fmt.Errorf("exec connection pragmas: %w", err)
			}
			return nil
		},
	})
}

// dataSourceNames builds the read-write and read-only DSNs for url.
//
// Options prefixed with '_' are documented at https://pkg.go.dev/github.com/mattn/go-sqlite3#SQLiteDriver.Open and
// the others at https://www.sqlite.org/uri.html.
func dataSourceNames(url string) (string, string) {
	extra := ""
	// In-memory databases need a shared cache so that both pools see the same data. Every call gets its own
	// name so that parallel tests stay isolated. See https://www.sqlite.org/inmemorydb.html.
	if strings.Contains(url, ":memory:") {
		url = rand.Text()
		extra = "&mode=memory&cache=shared"
	}
	common := strings.Join([]string{
		"_loc=auto",
		"_defer_foreign_keys=1",
		"_journal_mode=wal",
		"_busy_timeout=5000",
		"_synchronous=normal",
		"_foreign_keys=on",
	}, "&")
	readWrite := fmt.Sprintf("file:%s?mode=rwc&_txlock=immediate&%s%s", url, common, extra)
	readOnly := fmt.Sprintf("file:%s?mode=ro&_txlock=deferred&_query_only=true&%s%s", url, common, extra)
	if extra != "" {
		// mode=memory must win over the rwc and ro modes above.
		readWrite = strings.Replace(readWrite, "mode=rwc&", "", 1)
		readOnly = strings.Replace(readOnly, "mode=ro&", "", 1)
	}
	return readWrite, readOnly
}

func openPool(ctx context.Context, dsn string, maxConns int) (*sql.DB, error) {
	pool, err := sql.Open(optimizedDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	pool.SetMaxOpenConns(maxConns)
	pool.SetMaxIdleConns(maxConns)
	pool.SetConnMaxLifetime(time.Hour)
	pool.SetConnMaxIdleTime(time.Hour)
	// sql.DB connects lazily. Ping so that configuration errors surface here.
	if err = pool.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("ping: %w", err), pool.Close())
	}
	return pool, nil
}

func connect(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	registerDriver.Do(registerOptimizedDriver)
	readWriteDSN, readOnlyDSN := dataSourceNames(url)

	readWrite, err := openPool(ctx, readWriteDSN, 1)
	if err != nil {
		return nil, fmt.Errorf("read-write pool: %w", err)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "opened database", slog.String("sqlDsn", readWriteDSN))

	const maxReaders = 10
	readOnly, err := openPool(ctx, readOnlyDSN, maxReaders)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("read-only pool: %w", err), readWrite.Close())
	}

	return &Database{
		ReadWrite: readWrite,
		ReadOnly:  readOnly,
		logger:    logger,
	}, nil
}

// Close closes the database connections.
func (db *Database) Close() error {
	return errors.Join(db.ReadOnly.Close(), db.ReadWrite.Close())
}
