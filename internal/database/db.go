package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bookable/internal/config"
	"bookable/internal/domain"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const defaultBusyTimeoutMS = 5000

type DB struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
}

// Open opens the database described by the config section.
func Open(cfg config.DatabaseConfig, logger *zerolog.Logger) (*DB, error) {
	return openDB(cfg.Path, cfg.BusyTimeoutMS, logger)
}

// NewDB opens (and migrates) the sqlite database at path. ":memory:" is accepted for tests.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	return openDB(path, defaultBusyTimeoutMS, logger)
}

func openDB(path string, busyTimeoutMS int, logger *zerolog.Logger) (*DB, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if busyTimeoutMS <= 0 {
		busyTimeoutMS = defaultBusyTimeoutMS
	}

	if !isMemory(path) {
		// Создаем директорию для БД, если её нет
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// immediate transactions take the write lock on BEGIN, so the capacity
	// check and the insert that follows it cannot interleave with another writer
	dsn := fmt.Sprintf("%s?_txlock=immediate&_busy_timeout=%d&_foreign_keys=1", path, busyTimeoutMS)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// one connection: sqlite has a single writer anyway, and :memory: databases are per-connection
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	l := logger.With().Str("component", "database").Logger()
	l.Info().Str("path", path).Msg("database initialized")

	return &DB{DB: sqlDB, path: path, logger: &l}, nil
}

// Path is the file the database lives in.
func (db *DB) Path() string {
	return db.path
}

// Healthy pings the database with a short timeout.
func (db *DB) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return domain.Unavailable("ping database", db.PingContext(ctx))
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS services (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL UNIQUE,
            description TEXT NOT NULL DEFAULT '',
            duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
            max_participants INTEGER NOT NULL CHECK (max_participants >= 1),
            buffer_before_minutes INTEGER NOT NULL DEFAULT 0,
            buffer_after_minutes INTEGER NOT NULL DEFAULT 0,
            advance_booking_days INTEGER NOT NULL DEFAULT 0,
            cancellation_deadline_hours INTEGER NOT NULL DEFAULT 0,
            requires_approval BOOLEAN NOT NULL DEFAULT 0,
            allow_cancellation BOOLEAN NOT NULL DEFAULT 1,
            requires_staff BOOLEAN NOT NULL DEFAULT 0,
            max_bookings_per_day INTEGER NOT NULL DEFAULT 0,
            timezone TEXT NOT NULL DEFAULT '',
            is_active BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS staff_members (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            service_id INTEGER NOT NULL REFERENCES services(id),
            name TEXT NOT NULL,
            is_active BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS availability_windows (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            service_id INTEGER NOT NULL REFERENCES services(id),
            day_of_week INTEGER NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
            start_time TEXT NOT NULL,
            end_time TEXT NOT NULL,
            staff_member_id INTEGER REFERENCES staff_members(id),
            is_active BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            CHECK (start_time < end_time)
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            service_id INTEGER NOT NULL REFERENCES services(id),
            staff_member_id INTEGER REFERENCES staff_members(id),
            date TEXT NOT NULL,
            time TEXT NOT NULL,
            participants_count INTEGER NOT NULL CHECK (participants_count >= 1),
            status TEXT NOT NULL DEFAULT 'pending',
            cancellation_reason TEXT NOT NULL DEFAULT '',
            customer_name TEXT NOT NULL DEFAULT '',
            customer_phone TEXT NOT NULL DEFAULT '',
            comment TEXT NOT NULL DEFAULT '',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            version INTEGER NOT NULL DEFAULT 1
        )`,

		`CREATE INDEX IF NOT EXISTS idx_staff_service ON staff_members(service_id)`,
		`CREATE INDEX IF NOT EXISTS idx_windows_lookup ON availability_windows(service_id, day_of_week, is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_slot ON bookings(service_id, date, time)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", trimSQL(query), err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// storeErr maps driver errors onto domain errors.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return domain.Invalid("name", "already exists")
		}
		if sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return fmt.Errorf("%s: referenced record: %w", op, domain.ErrNotFound)
		}
		return fmt.Errorf("%s: %w: %s", op, domain.ErrValidation, sqliteErr.Error())
	}
	return domain.Unavailable(op, err)
}

func nullableID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

// staffArg binds an optional staff id; nil becomes NULL so that "staff_member_id IS ?" matches service-wide rows.
func staffArg(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func trimSQL(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
