package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/immolife/internal/platform/logger"
)

func TestNewStampsTypeAndID(t *testing.T) {
	e := New(42, YearAdvanced{Year: 2025})
	assert.Equal(t, EventTypeYearAdvanced, e.Type)
	assert.Equal(t, 42, e.GameDay)
	assert.NotEmpty(t, e.ID)
	assert.NotEqual(t, e.ID, New(42, YearAdvanced{Year: 2025}).ID)
}

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus()
	var got []string

	bus.On(EventTypeMonthAdvanced, func(e Event) { got = append(got, "month") })
	bus.Subscribe(func(e Event) { got = append(got, "all:"+string(e.Type)) })
	bus.On(EventTypeDayAdvanced, func(e Event) { got = append(got, "day") })

	bus.PublishAll([]Event{
		New(1, YearAdvanced{Year: 2025}),
		New(1, MonthAdvanced{Month: 1, Year: 2025}),
		New(1, DayAdvanced{Day: 1}),
	})

	assert.Equal(t, []string{
		"all:yearAdvanced",
		"month", "all:monthAdvanced",
		"day", "all:dayAdvanced",
	}, got)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	var n int
	off := bus.On(EventTypeGameSaved, func(Event) { n++ })
	offAll := bus.Subscribe(func(Event) { n++ })

	bus.Publish(New(1, GameSaved{SlotName: "a"}))
	off()
	offAll()
	bus.Publish(New(1, GameSaved{SlotName: "b"}))
	assert.Equal(t, 2, n)
}

func TestBusHandlerMayPublish(t *testing.T) {
	bus := NewBus()
	var seen []EventType
	bus.On(EventTypeGameLoaded, func(Event) {
		bus.Publish(New(1, TimeSpeedChanged{Speed: 1}))
	})
	bus.Subscribe(func(e Event) { seen = append(seen, e.Type) })

	bus.Publish(New(1, GameLoaded{SlotName: "x"}))
	assert.Equal(t, []EventType{EventTypeTimeSpeedChanged, EventTypeGameLoaded}, seen)
}

func TestPayloadJSON(t *testing.T) {
	rec, err := NewRecord(New(3, MonthAdvanced{Month: 2, Year: 2024, Income: 1500, Expenses: 1740, NetChange: -240}))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Payload, &m))
	assert.Equal(t, float64(-240), m["netChange"])
	assert.Equal(t, float64(1740), m["expenses"])
}

type memPersister struct {
	mu   sync.Mutex
	recs []Record
	err  error
}

func (p *memPersister) Append(_ context.Context, r Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.recs = append(p.recs, r)
	return nil
}

func TestJournalBoundsAndPersists(t *testing.T) {
	p := &memPersister{}
	j := NewJournal(3, p, logger.Discard())
	bus := NewBus()
	j.Attach(bus)

	for day := 1; day <= 5; day++ {
		bus.Publish(New(day, DayAdvanced{Day: day, TotalDays: day}))
	}
	j.Flush()

	assert.Equal(t, 3, j.Len())
	recent := j.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, 4, recent[0].GameDay)
	assert.Equal(t, 5, recent[1].GameDay)
	assert.Len(t, j.ByDay(3), 1)
	assert.Len(t, j.ByType(EventTypeDayAdvanced), 3)
	assert.Len(t, p.recs, 5)
}

func TestJournalSurvivesPersisterFailure(t *testing.T) {
	j := NewJournal(0, &memPersister{err: errors.New("disk full")}, logger.Discard())
	j.Append(New(1, SaveDeleted{SlotName: "x"}))
	j.Flush()
	assert.Equal(t, 1, j.Len())
}
