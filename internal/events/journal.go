package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/MRamiBalles/immolife/internal/platform/logger"
)

// DefaultJournalLimit bounds the in-memory history.
const DefaultJournalLimit = 1000

// Record is the serialized form of an Event, suitable for storage.
type Record struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	GameDay   int             `json:"gameDay"`
	Payload   json.RawMessage `json:"payload"`
}

// NewRecord serializes an event's payload.
func NewRecord(e Event) (Record, error) {
	raw, err := json.Marshal(e.Payload)
	if err != nil {
		return Record{}, fmt.Errorf("marshal %s payload: %w", e.Type, err)
	}
	return Record{ID: e.ID, Type: e.Type, Timestamp: e.Timestamp, GameDay: e.GameDay, Payload: raw}, nil
}

// Persister defines how a record is durably stored.
type Persister interface {
	Append(ctx context.Context, r Record) error
}

// Journal is the bounded in-memory history of published events.
type Journal struct {
	mu        sync.RWMutex
	records   []Record
	limit     int
	persister Persister
	logger    *logger.Logger
	wg        sync.WaitGroup
}

// NewJournal creates a journal with an optional persister. limit <= 0 uses DefaultJournalLimit.
func NewJournal(limit int, persister Persister, log *logger.Logger) *Journal {
	if limit <= 0 {
		limit = DefaultJournalLimit
	}
	return &Journal{
		records:   make([]Record, 0),
		limit:     limit,
		persister: persister,
		logger:    log,
	}
}

// Attach subscribes the journal to every event on the bus.
func (j *Journal) Attach(bus *Bus) (detach func()) {
	return bus.Subscribe(j.Append)
}

// Append records an event. The oldest entry is evicted once the limit is reached.
func (j *Journal) Append(e Event) {
	rec, err := NewRecord(e)
	if err != nil {
		j.logger.Error("journal: dropping event", "type", e.Type, "error", err)
		return
	}

	j.mu.Lock()
	j.records = append(j.records, rec)
	if over := len(j.records) - j.limit; over > 0 {
		j.records = append(j.records[:0:0], j.records[over:]...)
	}
	j.mu.Unlock()

	if j.persister != nil {
		// Write through off the publisher's goroutine; ticks must not wait on disk.
		j.wg.Add(1)
		go func(r Record) {
			defer j.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := j.persister.Append(ctx, r); err != nil {
				j.logger.Warn("journal: persist failed", "id", r.ID, "error", err)
			}
		}(rec)
	}
}

// Flush waits for pending writes to the persister.
func (j *Journal) Flush() {
	j.wg.Wait()
}

// Recent returns up to n of the newest records, oldest first.
func (j *Journal) Recent(n int) []Record {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if n <= 0 || n > len(j.records) {
		n = len(j.records)
	}
	return append([]Record(nil), j.records[len(j.records)-n:]...)
}

// ByType returns all retained records of one type.
func (j *Journal) ByType(t EventType) []Record {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var result []Record
	for _, r := range j.records {
		if r.Type == t {
			result = append(result, r)
		}
	}
	return result
}

// ByDay returns all retained records fired on the given total-day count.
func (j *Journal) ByDay(day int) []Record {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var result []Record
	for _, r := range j.records {
		if r.GameDay == day {
			result = append(result, r)
		}
	}
	return result
}

// Len reports how many records are retained.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.records)
}
