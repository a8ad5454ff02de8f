// Package storage - postgres.go
// PostgreSQL implementation of SlotStore and EventRepository over a pgx pool.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MRamiBalles/immolife/internal/events"
)

// OpenPostgres creates a pool for dsn and makes sure the tables exist.
func OpenPostgres(ctx context.Context, dsn string, maxConns int) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgxpool ping failed: %w", err)
	}

	schemas := []string{
		`CREATE TABLE IF NOT EXISTS save_slots (
			slot_name TEXT PRIMARY KEY,
			data JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS event_log (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			timestamp TIMESTAMPTZ NOT NULL,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			game_day INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_log_event_type ON event_log(event_type)`,
	}
	for _, q := range schemas {
		if _, err := pool.Exec(ctx, q); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create schemas: %w", err)
		}
	}
	return pool, nil
}

// PostgresSlotStore implements SlotStore using PostgreSQL.
type PostgresSlotStore struct {
	pool *pgxpool.Pool
}

// NewPostgresSlotStore creates a new PostgreSQL slot store.
func NewPostgresSlotStore(pool *pgxpool.Pool) *PostgresSlotStore {
	return &PostgresSlotStore{pool: pool}
}

// Put upserts the envelope stored under key.
func (s *PostgresSlotStore) Put(ctx context.Context, key string, data []byte) error {
	query := `
		INSERT INTO save_slots (slot_name, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (slot_name) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.pool.Exec(ctx, query, key, string(data), time.Now()); err != nil {
		return fmt.Errorf("failed to put slot %s: %w", key, err)
	}
	return nil
}

// Get returns the envelope stored under key.
func (s *PostgresSlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data string
	err := s.pool.QueryRow(ctx, `SELECT data::text FROM save_slots WHERE slot_name = $1`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to get slot %s: %w", key, err)
	}
	return []byte(data), nil
}

// Delete removes key.
func (s *PostgresSlotStore) Delete(ctx context.Context, key string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM save_slots WHERE slot_name = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// List returns every slot name.
func (s *PostgresSlotStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT slot_name FROM save_slots`)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan slots: %w", err)
	}
	return keys, nil
}

// PostgresEventRepository implements EventRepository using PostgreSQL.
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgreSQL event repository.
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

// Append inserts a record into the journal table.
func (r *PostgresEventRepository) Append(ctx context.Context, rec events.Record) error {
	query := `
		INSERT INTO event_log (id, timestamp, event_type, payload, game_day)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query, rec.ID, rec.Timestamp, string(rec.Type), string(rec.Payload), rec.GameDay)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// Recent returns the newest records, oldest first.
func (r *PostgresEventRepository) Recent(ctx context.Context, limit int) ([]events.Record, error) {
	query := `
		SELECT id, timestamp, event_type, payload::text, game_day
		FROM event_log
		ORDER BY seq DESC
		LIMIT $1
	`
	return r.queryEvents(ctx, query, pgLimit(limit))
}

// ByType returns the newest records of one type, oldest first.
func (r *PostgresEventRepository) ByType(ctx context.Context, t events.EventType, limit int) ([]events.Record, error) {
	query := `
		SELECT id, timestamp, event_type, payload::text, game_day
		FROM event_log
		WHERE event_type = $1
		ORDER BY seq DESC
		LIMIT $2
	`
	return r.queryEvents(ctx, query, string(t), pgLimit(limit))
}

// queryEvents is a helper to execute queries and scan results.
func (r *PostgresEventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]events.Record, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var recs []events.Record
	for rows.Next() {
		var rec events.Record
		var eventType, payload string
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &eventType, &payload, &rec.GameDay); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		rec.Type = events.EventType(eventType)
		rec.Payload = []byte(payload)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return chronological(recs), nil
}

// pgLimit maps "no limit" onto a NULL LIMIT, which Postgres treats as unbounded.
func pgLimit(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}

var (
	_ SlotStore       = (*PostgresSlotStore)(nil)
	_ EventRepository = (*PostgresEventRepository)(nil)
)
