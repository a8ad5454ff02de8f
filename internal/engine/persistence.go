package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MRamiBalles/immolife/internal/domain/game"
	"github.com/MRamiBalles/immolife/internal/events"
	"github.com/MRamiBalles/immolife/internal/infra/storage"
	"github.com/MRamiBalles/immolife/internal/savegame"
)

// QuickSavePrefix names slots written by QuickSave.
const QuickSavePrefix = "quicksave_"

var ErrEmptySlotName = errors.New("slot name must not be empty")

// autosaver coalesces save requests made by transactions into one deferred write.
// schedule may be called with the engine lock held; it never takes it.
type autosaver struct {
	e     *Engine
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func newAutosaver(e *Engine, delay time.Duration) *autosaver {
	return &autosaver{e: e, delay: delay}
}

// schedule (re)arms the deferred save.
func (a *autosaver) schedule() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, a.fire)
}

func (a *autosaver) fire() {
	a.mu.Lock()
	a.timer = nil
	a.mu.Unlock()
	a.e.autoSave()
}

// flush writes a pending deferred save immediately.
func (a *autosaver) flush() {
	a.mu.Lock()
	pending := a.timer != nil && a.timer.Stop()
	a.timer = nil
	a.mu.Unlock()
	if pending {
		a.e.autoSave()
	}
}

// pending reports whether a deferred save is armed.
func (a *autosaver) pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer != nil
}

// autoSave writes the autosave slot. Failures are logged and otherwise ignored.
func (e *Engine) autoSave() {
	ctx, cancel := context.WithTimeout(context.Background(), e.opts.IOTimeout)
	defer cancel()
	if err := e.SaveGame(ctx, AutosaveSlot); err != nil {
		e.logger.Warn("Auto-save failed", "error", err)
	}
}

// SaveGame writes a snapshot of the current state to slot.
// The store is written outside the engine lock, so the clock keeps running during I/O.
// Concurrent saves are written in the order their snapshots were taken.
func (e *Engine) SaveGame(ctx context.Context, slot string) error {
	if slot == "" {
		return ErrEmptySlotName
	}
	snapshot, now, err := e.writeSnapshot(ctx, slot)
	e.metrics.RecordSave(err)
	if err != nil {
		return fmt.Errorf("save %q: %w", slot, err)
	}

	if slot != AutosaveSlot {
		e.logger.Event(string(events.EventTypeGameSaved), slot, snapshot.GameTime.Format())
	} else {
		e.logger.Debug("Auto-saved", "date", snapshot.GameTime.Format())
	}
	e.update(func() error {
		e.emit(events.GameSaved{SlotName: slot, Timestamp: now.UnixMilli()})
		return nil
	})
	return nil
}

// writeSnapshot captures the state and stores it. Saves are serialized from snapshot
// to write, so a slot never ends up holding an older snapshot than one written before it.
func (e *Engine) writeSnapshot(ctx context.Context, slot string) (*game.GameState, time.Time, error) {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	e.mu.Lock()
	snapshot := e.state.Clone()
	e.mu.Unlock()

	now := time.Now()
	data, err := savegame.Encode(snapshot, slot, now)
	if err != nil {
		return nil, now, err
	}
	return snapshot, now, e.store.Put(ctx, slot, data)
}

// QuickSave saves to a fresh timestamped slot and returns its name.
func (e *Engine) QuickSave(ctx context.Context) (string, error) {
	slot := QuickSavePrefix + time.Now().Format("20060102T150405")
	return slot, e.SaveGame(ctx, slot)
}

// LoadGame replaces the current state with the one stored in slot.
// On any error the running game is left untouched.
func (e *Engine) LoadGame(ctx context.Context, slot string) error {
	data, err := e.store.Get(ctx, slot)
	if errors.Is(err, storage.ErrSlotNotFound) {
		err = savegame.ErrSaveNotFound
	}
	if err != nil {
		e.metrics.RecordLoad(err)
		return fmt.Errorf("load %q: %w", slot, err)
	}

	err = e.update(func() error {
		loaded, _, err := savegame.Decode(data, e.rng)
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("%w: %v", savegame.ErrCorruptSave, err)
		}

		e.clock.stop()
		e.state = loaded
		e.lastSpeed = loaded.TimeSettings.Speed
		if loaded.TimeSettings.IsPaused || !e.lastSpeed.Valid() || e.lastSpeed == game.SpeedPaused {
			e.lastSpeed = game.SpeedNormal
		}
		e.syncClockLocked()

		e.logger.Event(string(events.EventTypeGameLoaded), slot, loaded.GameTime.Format())
		e.emit(events.GameLoaded{SlotName: slot, GameState: loaded.Clone()})
		return nil
	})
	e.metrics.RecordLoad(err)
	if err != nil {
		return fmt.Errorf("load %q: %w", slot, err)
	}
	return nil
}

// GetSaveSlots lists every readable save, newest first. Unreadable entries are skipped.
func (e *Engine) GetSaveSlots(ctx context.Context) ([]savegame.SlotInfo, error) {
	keys, err := e.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	slots := make([]savegame.SlotInfo, 0, len(keys))
	for _, key := range keys {
		data, err := e.store.Get(ctx, key)
		if err != nil {
			e.logger.Debug("Skipping unreadable save", "slot", key, "error", err)
			continue
		}
		env, err := savegame.Peek(data)
		if err != nil {
			e.logger.Debug("Skipping corrupt save", "slot", key, "error", err)
			continue
		}
		slots = append(slots, savegame.Info(key, env))
	}
	savegame.SortNewestFirst(slots)
	return slots, nil
}

// DeleteSave removes slot from the store.
func (e *Engine) DeleteSave(ctx context.Context, slot string) error {
	err := e.store.Delete(ctx, slot)
	if errors.Is(err, storage.ErrSlotNotFound) {
		err = savegame.ErrSaveNotFound
	}
	if err != nil {
		return fmt.Errorf("delete %q: %w", slot, err)
	}
	e.logger.Event(string(events.EventTypeSaveDeleted), slot, "")
	e.update(func() error {
		e.emit(events.SaveDeleted{SlotName: slot})
		return nil
	})
	return nil
}
