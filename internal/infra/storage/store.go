// Package storage provides the persistence layer for save slots and the event journal.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"errors"

	"github.com/MRamiBalles/immolife/internal/events"
)

// ErrSlotNotFound is returned by SlotStore.Get and Delete for unknown keys.
var ErrSlotNotFound = errors.New("slot not found")

// SlotStore is a flat key -> blob store holding one save envelope per slot name.
type SlotStore interface {
	// Put creates or replaces the blob stored under key.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the blob stored under key, or ErrSlotNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key, or returns ErrSlotNotFound.
	Delete(ctx context.Context, key string) error

	// List returns every stored key in no particular order.
	List(ctx context.Context) ([]string, error)
}

// EventRepository durably stores the journal.
type EventRepository interface {
	// Append adds a record to the journal table.
	Append(ctx context.Context, r events.Record) error

	// Recent returns the newest records, oldest first. limit <= 0 returns everything.
	Recent(ctx context.Context, limit int) ([]events.Record, error)

	// ByType returns the newest records of one type, oldest first.
	ByType(ctx context.Context, t events.EventType, limit int) ([]events.Record, error)
}

// chronological reverses a newest-first query result in place.
func chronological(recs []events.Record) []events.Record {
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs
}
