package engine

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/MRamiBalles/immolife/internal/domain/game"
	"github.com/MRamiBalles/immolife/internal/events"
	"github.com/MRamiBalles/immolife/internal/infra/storage"
	"github.com/MRamiBalles/immolife/internal/platform/logger"
	"github.com/MRamiBalles/immolife/internal/platform/metrics"
	"github.com/MRamiBalles/immolife/internal/savegame"
)

const (
	// AutosaveSlot is the reserved slot written by periodic and deferred auto-saves.
	AutosaveSlot = "autosave"

	DefaultAutosaveInterval = 5 * time.Minute
	DefaultAutosaveDelay    = 1 * time.Second
	DefaultIOTimeout        = 10 * time.Second
)

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	Store   storage.SlotStore
	Bus     *events.Bus
	Logger  *logger.Logger
	Metrics *metrics.Collector

	// Rand drives every random draw; tests pass a seeded source.
	Rand *rand.Rand

	// BaseDayDuration is the real-time length of a game day at normal speed.
	BaseDayDuration time.Duration

	AutosaveInterval time.Duration
	AutosaveDelay    time.Duration
	IOTimeout        time.Duration

	// StartMoney overrides the starting cash of new games when positive.
	StartMoney int64

	// SkipAutoload starts a fresh game even if the autosave slot exists.
	SkipAutoload bool
}

// Engine is the single authority over the game state.
// All commands, queries and clock ticks serialize on one mutex.
type Engine struct {
	mu    sync.Mutex
	state *game.GameState
	rng   *rand.Rand
	clock *clock

	// lastSpeed is what TogglePause resumes to.
	lastSpeed game.TimeSpeed
	running   bool
	runCtx    context.Context

	store   storage.SlotStore
	bus     *events.Bus
	logger  *logger.Logger
	metrics *metrics.Collector
	opts    Options

	outMu    sync.Mutex
	outbox   []events.Event
	draining bool

	autosave *autosaver
	// saveMu orders snapshot and store write of concurrent saves. Never taken with mu held.
	saveMu sync.Mutex
}

// New creates an engine. It tries to resume from the autosave slot and otherwise starts a new game.
// The clock does not run until Run is called.
func New(opts Options) *Engine {
	if opts.Store == nil {
		opts.Store = storage.NewMemorySlotStore()
	}
	if opts.Bus == nil {
		opts.Bus = events.NewBus()
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Get()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.BaseDayDuration <= 0 {
		opts.BaseDayDuration = game.BaseDayDurationMs * time.Millisecond
	}
	if opts.AutosaveInterval <= 0 {
		opts.AutosaveInterval = DefaultAutosaveInterval
	}
	if opts.AutosaveDelay <= 0 {
		opts.AutosaveDelay = DefaultAutosaveDelay
	}
	if opts.IOTimeout <= 0 {
		opts.IOTimeout = DefaultIOTimeout
	}

	e := &Engine{
		rng:       opts.Rand,
		lastSpeed: game.SpeedNormal,
		store:     opts.Store,
		bus:       opts.Bus,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		opts:      opts,
		runCtx:    context.Background(),
	}
	e.clock = newClock(e.onTick)
	e.autosave = newAutosaver(e, opts.AutosaveDelay)
	e.state = e.freshState()

	if !opts.SkipAutoload {
		ctx, cancel := context.WithTimeout(context.Background(), opts.IOTimeout)
		defer cancel()
		err := e.LoadGame(ctx, AutosaveSlot)
		switch {
		case err == nil:
		case errors.Is(err, savegame.ErrSaveNotFound):
			e.logger.Info("No autosave found, starting a new game")
		default:
			e.logger.Warn("Autosave could not be loaded, starting a new game", "error", err)
		}
	}
	return e
}

// Bus exposes the event feed.
func (e *Engine) Bus() *events.Bus {
	return e.bus
}

// Run starts the clock and the periodic auto-save and blocks until ctx is done.
// On shutdown the clock stops and pending deferred saves are flushed.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	e.running = true
	e.runCtx = ctx
	e.syncClockLocked()
	e.mu.Unlock()

	e.logger.Info("Engine started", "date", e.FormattedDate())

	periodic := time.NewTicker(e.opts.AutosaveInterval)
	defer periodic.Stop()

	for {
		select {
		case <-ctx.Done():
			e.mu.Lock()
			e.running = false
			e.clock.stop()
			e.mu.Unlock()

			e.autosave.flush()
			e.logger.Info("Engine stopped")
			return nil
		case <-periodic.C:
			e.autoSave()
		}
	}
}

// update runs fn under the engine lock, then delivers the events it queued.
func (e *Engine) update(fn func() error) error {
	e.mu.Lock()
	err := fn()
	e.mu.Unlock()
	e.flush()
	return err
}

// emit queues an event. Must be called with e.mu held so queue order matches mutation order.
func (e *Engine) emit(p events.Payload) {
	evt := events.New(e.state.GameTime.TotalDays, p)
	e.outMu.Lock()
	e.outbox = append(e.outbox, evt)
	e.outMu.Unlock()
}

// flush publishes queued events outside the engine lock. If another goroutine (or a
// handler further up this stack) is already draining, it delivers them instead.
func (e *Engine) flush() {
	e.outMu.Lock()
	if e.draining {
		e.outMu.Unlock()
		return
	}
	e.draining = true
	for len(e.outbox) > 0 {
		batch := e.outbox
		e.outbox = nil
		e.outMu.Unlock()
		e.bus.PublishAll(batch)
		e.outMu.Lock()
	}
	e.draining = false
	e.outMu.Unlock()
}

// freshState builds a new game with a generated market.
func (e *Engine) freshState() *game.GameState {
	s := game.New()
	if e.opts.StartMoney > 0 {
		s.Player.Money = e.opts.StartMoney
	}
	s.AvailableProperties = generateInitialListings(e.rng, s.GameTime.Year)
	return s
}

// StartNewGame discards the current state and starts over.
func (e *Engine) StartNewGame() {
	e.update(func() error {
		e.clock.stop()
		e.state = e.freshState()
		e.lastSpeed = game.SpeedNormal
		e.syncClockLocked()

		e.logger.Info("New game started", "listings", len(e.state.AvailableProperties))
		e.emit(events.NewGameStarted{GameState: e.state.Clone()})
		return nil
	})
}
