// Package sqlite stores phase events in a local SQLite file, for
// deployments without a PostgreSQL server.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/smartcity/flowsense/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteSink implements domain.EventSink
type SQLiteSink struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and migrates it to the
// latest schema
func Open(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open %s: %w", path, err)
	}
	// A single connection serialises writers and keeps the PRAGMAs in effect
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to apply pragmas: %w", err)
	}

	s := &SQLiteSink{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// migrateUp runs all pending migrations. No pending migrations is not an error.
func (s *SQLiteSink) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("sqlite: failed to load migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("sqlite: failed to create migrate driver: %w", err)
	}

	// Closing m would close the shared *sql.DB, so it is left to the GC
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("sqlite: failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlite: migration up failed: %w", err)
	}
	return nil
}

// migrateLogger implements migrate.Logger
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	log.Printf("[migrate] "+format, v...)
}

func (migrateLogger) Verbose() bool {
	return false
}

// Close closes the database
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// Name identifies the sink
func (s *SQLiteSink) Name() string {
	return "sqlite"
}

// AppendEvent persists a phase event
func (s *SQLiteSink) AppendEvent(ctx context.Context, event domain.TrafficEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO traffic_logs (
			id, timestamp_unix_nanos, lane, vehicle_count, signal_time,
			north_count, south_count, east_count, west_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Timestamp.UnixNano(), event.Lane.String(), event.VehicleCount, event.SignalTime,
		event.AllCounts[domain.North], event.AllCounts[domain.South],
		event.AllCounts[domain.East], event.AllCounts[domain.West],
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save traffic event: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit events, newest first
func (s *SQLiteSink) RecentEvents(ctx context.Context, limit int) ([]domain.TrafficEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp_unix_nanos, lane, vehicle_count, signal_time,
			north_count, south_count, east_count, west_count
		FROM traffic_logs
		ORDER BY timestamp_unix_nanos DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query traffic events: %w", err)
	}
	defer rows.Close()

	events := []domain.TrafficEvent{}
	for rows.Next() {
		var (
			e     domain.TrafficEvent
			nanos int64
			lane  string
		)
		if err := rows.Scan(
			&e.ID, &nanos, &lane, &e.VehicleCount, &e.SignalTime,
			&e.AllCounts[domain.North], &e.AllCounts[domain.South],
			&e.AllCounts[domain.East], &e.AllCounts[domain.West],
		); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan traffic row: %w", err)
		}
		e.Timestamp = time.Unix(0, nanos).UTC()
		if e.Lane, err = domain.ParseLane(lane); err != nil {
			return nil, fmt.Errorf("sqlite: bad traffic row %s: %w", e.ID, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to read traffic rows: %w", err)
	}
	return events, nil
}

// PruneBefore deletes events older than cutoff
func (s *SQLiteSink) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM traffic_logs WHERE timestamp_unix_nanos < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to prune traffic events: %w", err)
	}
	return res.RowsAffected()
}

// Health checks the database is reachable
func (s *SQLiteSink) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: health check failed: %w", err)
	}
	return nil
}
