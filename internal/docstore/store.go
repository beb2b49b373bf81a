// Package docstore persists binge and user documents in SQLite or PostgreSQL.
package docstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrUnsupportedDriver = errors.New("unsupported database driver")
	ErrPathRequired      = errors.New("database path not provided")
)

// Config selects and locates the backing database.
type Config struct {
	Driver string
	// Path is the SQLite file. Ignored for postgres.
	Path string
	// DSN is the PostgreSQL connection string.
	DSN string
}

// Store is the document gateway. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

var gooseMu sync.Mutex

// Open connects to the configured database and applies migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverSQLite
	}

	var (
		db      *sql.DB
		err     error
		dialect string
	)
	switch driver {
	case DriverSQLite:
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, ErrPathRequired
		}
		// immediate transactions take the write lock at BEGIN so concurrent
		// read-modify-writes queue instead of failing with SQLITE_BUSY
		dsn := "file:" + cfg.Path + "?_txlock=immediate&_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
		db, err = sql.Open("sqlite3", dsn)
		dialect = "sqlite3"
	case DriverPostgres:
		db, err = sql.Open("postgres", cfg.DSN)
		dialect = "postgres"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("docstore: ping %s: %w", driver, err)
	}

	if err := migrate(ctx, db, dialect); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[docstore] opened %s store", driver)
	return &Store{db: db, driver: driver, now: time.Now}, nil
}

func migrate(ctx context.Context, db *sql.DB, dialect string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("docstore: goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("docstore: migrate: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver reports which backend is in use.
func (s *Store) Driver() string {
	return s.driver
}

// rebind rewrites ? placeholders as $n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
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

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
