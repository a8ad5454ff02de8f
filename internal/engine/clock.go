package engine

import (
	"time"

	"github.com/MRamiBalles/immolife/internal/domain/game"
	"github.com/MRamiBalles/immolife/internal/events"
)

// clock drives AdvanceDay from a time.Ticker goroutine.
// All fields are guarded by the engine mutex. Stopping bumps the generation, so a
// tick already waiting for the lock is recognised as stale and dropped.
type clock struct {
	gen      uint64
	stopChan chan struct{}
	interval time.Duration
	onTick   func(gen uint64)
}

func newClock(onTick func(gen uint64)) *clock {
	return &clock{onTick: onTick}
}

// start cancels any running generation, then begins a new one.
func (c *clock) start(interval time.Duration, done <-chan struct{}) {
	c.stop()
	c.gen++
	c.interval = interval
	c.stopChan = make(chan struct{})
	go c.loop(c.gen, interval, c.stopChan, done)
}

// stop cancels the running generation. It never waits for the goroutine.
func (c *clock) stop() {
	if c.stopChan == nil {
		return
	}
	close(c.stopChan)
	c.stopChan = nil
	c.gen++
}

func (c *clock) running() bool {
	return c.stopChan != nil
}

// current reports whether gen is the live generation.
func (c *clock) current(gen uint64) bool {
	return c.stopChan != nil && c.gen == gen
}

func (c *clock) loop(gen uint64, interval time.Duration, stop <-chan struct{}, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-stop:
			return
		case <-ticker.C:
			c.onTick(gen)
		}
	}
}

// onTick advances one day if gen is still the live clock generation.
func (e *Engine) onTick(gen uint64) {
	start := time.Now()
	e.mu.Lock()
	if !e.clock.current(gen) {
		e.mu.Unlock()
		return
	}
	e.advanceDayLocked()
	e.mu.Unlock()
	e.flush()
	e.metrics.RecordTick(time.Since(start))
}

// syncClockLocked starts or stops the clock to match the time settings. Caller holds e.mu.
func (e *Engine) syncClockLocked() {
	ts := e.state.TimeSettings
	if !e.running || ts.IsPaused || ts.Speed == game.SpeedPaused {
		e.clock.stop()
		return
	}
	e.clock.start(e.dayInterval(), e.runCtx.Done())
}

func (e *Engine) dayInterval() time.Duration {
	d := time.Duration(float64(e.opts.BaseDayDuration) / float64(e.state.TimeSettings.Speed))
	if d <= 0 {
		d = time.Millisecond
	}
	return d
}

// AdvanceDay moves the calendar one day forward, running the monthly settlement on rollover.
func (e *Engine) AdvanceDay() {
	e.update(func() error {
		e.advanceDayLocked()
		return nil
	})
}

// ForceAdvanceToNextMonth jumps to the last day of the month and advances into the next one.
func (e *Engine) ForceAdvanceToNextMonth() {
	e.update(func() error {
		e.state.GameTime.Day = game.DaysPerMonth
		e.advanceDayLocked()
		return nil
	})
}

func (e *Engine) advanceDayLocked() {
	gt := &e.state.GameTime
	monthRolled, yearRolled := gt.Advance()

	if yearRolled {
		e.logger.Event(string(events.EventTypeYearAdvanced), "clock", gt.Format())
		e.emit(events.YearAdvanced{Year: gt.Year})
	}
	if monthRolled {
		e.settleMonthLocked()
	}

	e.emit(events.DayAdvanced{Day: gt.Day, Month: gt.Month, Year: gt.Year, TotalDays: gt.TotalDays})
}

// SetTimeSpeed changes playback speed. SpeedPaused stops the clock; any other speed restarts it.
func (e *Engine) SetTimeSpeed(speed game.TimeSpeed) error {
	if !speed.Valid() {
		return ErrInvalidSpeed
	}
	return e.update(func() error {
		e.setSpeedLocked(speed)
		return nil
	})
}

func (e *Engine) setSpeedLocked(speed game.TimeSpeed) {
	ts := &e.state.TimeSettings
	ts.Speed = speed
	ts.IsPaused = speed == game.SpeedPaused
	if !ts.IsPaused {
		ts.DayDuration = speed.DayDuration(int(e.opts.BaseDayDuration / time.Millisecond))
		e.lastSpeed = speed
	}
	e.syncClockLocked()

	e.logger.Info("Time speed changed", "speed", speed.String(), "paused", ts.IsPaused)
	e.emit(events.TimeSpeedChanged{Speed: speed, IsPaused: ts.IsPaused})
}

// TogglePause pauses a running clock or resumes a paused one at the last running speed.
func (e *Engine) TogglePause() {
	e.update(func() error {
		if e.state.TimeSettings.IsPaused {
			e.setSpeedLocked(e.lastSpeed)
		} else {
			e.setSpeedLocked(game.SpeedPaused)
		}
		return nil
	})
}

// ClockRunning reports whether ticks are currently being scheduled.
func (e *Engine) ClockRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.running()
}
