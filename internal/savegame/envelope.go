// Package savegame encodes game states into versioned save envelopes and decodes them back,
// bringing older layouts forward through the migration chain.
package savegame

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/MRamiBalles/immolife/internal/domain/game"
)

// Version is the envelope tag. Loading checks it exactly.
const Version = "1.0"

// SlotDateLayout formats slot timestamps the way German locales print them.
const SlotDateLayout = "2.1.2006, 15:04:05"

var (
	ErrSaveNotFound    = errors.New("save slot not found")
	ErrVersionMismatch = errors.New("save version mismatch")
	ErrCorruptSave     = errors.New("corrupt save")
)

// Envelope is the durable save format.
type Envelope struct {
	GameState json.RawMessage `json:"gameState"`
	Timestamp int64           `json:"timestamp"` // epoch ms
	Version   string          `json:"version"`
	SlotName  string          `json:"slotName"`
}

// SlotInfo describes one stored save.
type SlotInfo struct {
	Name          string `json:"name"`
	Timestamp     int64  `json:"timestamp"`
	FormattedDate string `json:"formattedDate"`
}

// Encode wraps state into an envelope for slot, stamped with now.
func Encode(state *game.GameState, slot string, now time.Time) ([]byte, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode game state: %w", err)
	}
	data, err := json.Marshal(Envelope{
		GameState: raw,
		Timestamp: now.UnixMilli(),
		Version:   Version,
		SlotName:  slot,
	})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// Decode validates the envelope, migrates the state to the current revision and returns it.
// rng drives the random back-fill of fields older saves lack.
func Decode(data []byte, rng *rand.Rand) (*game.GameState, Envelope, error) {
	env, err := Peek(data)
	if err != nil {
		return nil, env, err
	}
	if env.Version != Version {
		return nil, env, fmt.Errorf("%w: got %q, want %q", ErrVersionMismatch, env.Version, Version)
	}
	if len(env.GameState) == 0 || string(env.GameState) == "null" {
		return nil, env, fmt.Errorf("%w: missing gameState", ErrCorruptSave)
	}

	var ls legacyState
	if err := json.Unmarshal(env.GameState, &ls); err != nil {
		return nil, env, fmt.Errorf("%w: %v", ErrCorruptSave, err)
	}
	state, err := migrate(&ls, rng)
	if err != nil {
		return nil, env, err
	}
	return state, env, nil
}

// Peek parses only the envelope header, leaving the game state undecoded.
func Peek(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("%w: %v", ErrCorruptSave, err)
	}
	return env, nil
}

// FormatSlotDate renders an epoch-ms timestamp in local time.
func FormatSlotDate(ms int64) string {
	return time.UnixMilli(ms).Format(SlotDateLayout)
}

// Info builds the listing entry for a decoded envelope. Empty slot names fall back to key.
func Info(key string, env Envelope) SlotInfo {
	name := env.SlotName
	if name == "" {
		name = key
	}
	return SlotInfo{Name: name, Timestamp: env.Timestamp, FormattedDate: FormatSlotDate(env.Timestamp)}
}

// SortNewestFirst orders slots by timestamp, newest first, breaking ties by name.
func SortNewestFirst(slots []SlotInfo) {
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Timestamp != slots[j].Timestamp {
			return slots[i].Timestamp > slots[j].Timestamp
		}
		return slots[i].Name < slots[j].Name
	})
}
