package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartcity/flowsense/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS traffic_logs (
		id            TEXT PRIMARY KEY,
		timestamp     TIMESTAMPTZ NOT NULL,
		lane          TEXT NOT NULL,
		vehicle_count INTEGER NOT NULL,
		signal_time   INTEGER NOT NULL,
		north_count   INTEGER NOT NULL DEFAULT 0,
		south_count   INTEGER NOT NULL DEFAULT 0,
		east_count    INTEGER NOT NULL DEFAULT 0,
		west_count    INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS traffic_logs_timestamp_idx ON traffic_logs (timestamp DESC);
`

// PostgresSink implements domain.EventSink
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink creates a new PostgreSQL event sink
func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

// EnsureSchema creates the traffic_logs table if it does not exist
func (r *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: failed to create schema: %w", err)
	}
	return nil
}

// Name identifies the sink
func (r *PostgresSink) Name() string {
	return "postgres"
}

// AppendEvent persists a phase event to PostgreSQL
func (r *PostgresSink) AppendEvent(ctx context.Context, event domain.TrafficEvent) error {
	query := `
		INSERT INTO traffic_logs (
			id, timestamp, lane, vehicle_count, signal_time,
			north_count, south_count, east_count, west_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		event.ID, event.Timestamp, event.Lane.String(), event.VehicleCount, event.SignalTime,
		event.AllCounts[domain.North], event.AllCounts[domain.South],
		event.AllCounts[domain.East], event.AllCounts[domain.West],
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save traffic event: %w", err)
	}

	return nil
}

// RecentEvents retrieves the newest events from PostgreSQL
func (r *PostgresSink) RecentEvents(ctx context.Context, limit int) ([]domain.TrafficEvent, error) {
	query := `
		SELECT id, timestamp, lane, vehicle_count, signal_time,
			   north_count, south_count, east_count, west_count
		FROM traffic_logs
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query traffic events: %w", err)
	}
	defer rows.Close()

	results := []domain.TrafficEvent{}
	for rows.Next() {
		var (
			e    domain.TrafficEvent
			lane string
		)
		err := rows.Scan(
			&e.ID, &e.Timestamp, &lane, &e.VehicleCount, &e.SignalTime,
			&e.AllCounts[domain.North], &e.AllCounts[domain.South],
			&e.AllCounts[domain.East], &e.AllCounts[domain.West],
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan traffic row: %w", err)
		}
		if e.Lane, err = domain.ParseLane(lane); err != nil {
			return nil, fmt.Errorf("postgres: bad traffic row %s: %w", e.ID, err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read traffic rows: %w", err)
	}

	return results, nil
}

// PruneBefore deletes events older than cutoff
func (r *PostgresSink) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM traffic_logs WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to prune traffic events: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Health checks database connectivity
func (r *PostgresSink) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
