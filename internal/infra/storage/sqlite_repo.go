package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MRamiBalles/immolife/internal/events"
)

// SQLiteSlotStore implements SlotStore for SQLite.
type SQLiteSlotStore struct {
	db *sql.DB
}

func NewSQLiteSlotStore(db *sql.DB) *SQLiteSlotStore {
	return &SQLiteSlotStore{db: db}
}

func (s *SQLiteSlotStore) Put(ctx context.Context, key string, data []byte) error {
	query := `
		INSERT INTO save_slots (slot_name, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(slot_name) DO UPDATE SET
			data=excluded.data,
			updated_at=excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, string(data), time.Now()); err != nil {
		return fmt.Errorf("failed to put slot %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteSlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM save_slots WHERE slot_name = ?`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to get slot %s: %w", key, err)
	}
	return []byte(data), nil
}

func (s *SQLiteSlotStore) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM save_slots WHERE slot_name = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (s *SQLiteSlotStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT slot_name FROM save_slots`)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, rec events.Record) error {
	query := `
		INSERT INTO events (id, timestamp, event_type, payload, game_day)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Timestamp, string(rec.Type), string(rec.Payload), rec.GameDay,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]events.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []events.Record
	for rows.Next() {
		var rec events.Record
		var eventType, payload string
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &eventType, &payload, &rec.GameDay); err != nil {
			return nil, err
		}
		rec.Type = events.EventType(eventType)
		rec.Payload = []byte(payload)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *SQLiteEventRepository) Recent(ctx context.Context, limit int) ([]events.Record, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	query := `SELECT id, timestamp, event_type, payload, game_day FROM events ORDER BY seq DESC LIMIT ?`
	recs, err := r.getMany(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return chronological(recs), nil
}

func (r *SQLiteEventRepository) ByType(ctx context.Context, t events.EventType, limit int) ([]events.Record, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT id, timestamp, event_type, payload, game_day FROM events WHERE event_type = ? ORDER BY seq DESC LIMIT ?`
	recs, err := r.getMany(ctx, query, string(t), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return chronological(recs), nil
}

var (
	_ SlotStore        = (*SQLiteSlotStore)(nil)
	_ EventRepository  = (*SQLiteEventRepository)(nil)
	_ events.Persister = (*SQLiteEventRepository)(nil)
)
