package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/immolife/internal/domain/finance"
	"github.com/MRamiBalles/immolife/internal/domain/property"
	"github.com/MRamiBalles/immolife/internal/events"
)

func exerciseSlotStore(t *testing.T, s SlotStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSlotNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "missing"), ErrSlotNotFound)

	require.NoError(t, s.Put(ctx, "autosave", []byte(`{"v":1}`)))
	require.NoError(t, s.Put(ctx, "slot1", []byte(`{"v":2}`)))
	require.NoError(t, s.Put(ctx, "autosave", []byte(`{"v":3}`)))

	data, err := s.Get(ctx, "autosave")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":3}`, string(data))

	keys, err := s.List(ctx)
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"autosave", "slot1"}, keys)

	require.NoError(t, s.Delete(ctx, "slot1"))
	keys, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"autosave"}, keys)
}

func TestMemorySlotStore(t *testing.T) {
	exerciseSlotStore(t, NewMemorySlotStore())
}

func TestMemorySlotStoreCopiesData(t *testing.T) {
	s := NewMemorySlotStore()
	buf := []byte("abc")
	require.NoError(t, s.Put(context.Background(), "k", buf))
	buf[0] = 'x'
	got, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestSQLiteSlotStore(t *testing.T) {
	db, err := InitSQLite(filepath.Join(t.TempDir(), "saves", "immolife.db"))
	require.NoError(t, err)
	defer db.Close()

	exerciseSlotStore(t, NewSQLiteSlotStore(db))
}

func TestSQLiteEventRepository(t *testing.T) {
	db, err := InitSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLiteEventRepository(db)
	ctx := context.Background()

	payloads := []events.Payload{
		events.DayAdvanced{Day: 2, Month: 1, Year: 2024, TotalDays: 2},
		events.MonthAdvanced{Month: 2, Year: 2024, Income: 900, Expenses: 0, NetChange: 900},
		events.DayAdvanced{Day: 1, Month: 2, Year: 2024, TotalDays: 31},
	}
	for i, p := range payloads {
		e := events.New(i+1, p)
		e.Timestamp = time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC)
		rec, err := events.NewRecord(e)
		require.NoError(t, err)
		require.NoError(t, repo.Append(ctx, rec))
	}

	all, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 1, all[0].GameDay)
	assert.Equal(t, 3, all[2].GameDay)

	last, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, events.EventTypeMonthAdvanced, last[0].Type)

	days, err := repo.ByType(ctx, events.EventTypeDayAdvanced, 10)
	require.NoError(t, err)
	require.Len(t, days, 2)

	var payload events.DayAdvanced
	require.NoError(t, json.Unmarshal(days[1].Payload, &payload))
	assert.Equal(t, 31, payload.TotalDays)
}

func TestReconstructorRebuild(t *testing.T) {
	db, err := InitSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLiteEventRepository(db)
	ctx := context.Background()

	flat := property.Property{ID: "prop_1", Price: 180000.4}
	payloads := []events.Payload{
		events.PropertyBought{Property: property.Property{ID: "prop_old", Price: 99999}},
		events.NewGameStarted{},
		events.PropertyBought{Property: flat},
		events.LoanApproved{Loan: finance.Loan{ID: "loan_1", Amount: 100000}},
		events.PropertyRented{Property: flat},
		events.PropertyRenovated{Property: flat, Renovation: property.Renovation{ID: "kitchen", Cost: 9000}},
		events.MonthAdvanced{Month: 2, Year: 2024, Income: 900, Expenses: 600, NetChange: 300},
		events.MonthAdvanced{Month: 3, Year: 2024, Income: 900, Expenses: 600, NetChange: 300},
		events.PropertySold{Property: flat, SalePrice: 162000},
	}
	for i, p := range payloads {
		rec, err := events.NewRecord(events.New(i, p))
		require.NoError(t, err)
		require.NoError(t, repo.Append(ctx, rec))
	}

	h, err := NewReconstructor(repo).Rebuild(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, h.Purchases, "history restarts at the new game")
	assert.Equal(t, int64(180000), h.PurchaseSpend)
	assert.Equal(t, 1, h.Loans)
	assert.Equal(t, int64(100000), h.Borrowed)
	assert.Equal(t, 1, h.Rentals)
	assert.Equal(t, int64(9000), h.RenovationSpend)
	assert.Equal(t, 1, h.Sales)
	assert.Equal(t, int64(162000), h.SaleProceeds)
	require.Len(t, h.Months, 2)
	assert.Equal(t, 3, h.Months[1].Month)
	assert.Equal(t, int64(600), h.NetOperating())
}
