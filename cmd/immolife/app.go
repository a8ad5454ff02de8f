package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/immolife/internal/config"
	"github.com/MRamiBalles/immolife/internal/engine"
	"github.com/MRamiBalles/immolife/internal/events"
	"github.com/MRamiBalles/immolife/internal/infra/cache"
	"github.com/MRamiBalles/immolife/internal/infra/storage"
	"github.com/MRamiBalles/immolife/internal/platform/logger"
	"github.com/MRamiBalles/immolife/internal/platform/metrics"
	"github.com/MRamiBalles/immolife/internal/platform/optimization"
)

// app bundles the infrastructure every subcommand needs.
type app struct {
	cfg     *config.Config
	tuning  *optimization.Config
	log     *logger.Logger
	metrics *metrics.Collector

	store  storage.SlotStore
	events storage.EventRepository // nil when the driver has no journal table

	closers []func()
}

// journalPersister writes journal records to the event repository and counts the writes.
type journalPersister struct {
	repo    storage.EventRepository
	metrics *metrics.Collector
}

func (p *journalPersister) Append(ctx context.Context, r events.Record) error {
	err := p.repo.Append(ctx, r)
	p.metrics.RecordEventWrite(err)
	return err
}

func openApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")

	cfg, err := config.Load(path, envFile)
	if err != nil {
		return nil, err
	}
	tuning, err := optimization.ForProfile(cfg.Tuning.Profile)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		tuning:  tuning,
		log:     logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}),
		metrics: metrics.Get(),
	}
	if err := a.openStorage(cmd.Context()); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) openStorage(ctx context.Context) error {
	sc := a.cfg.Storage
	a.log.Info("Opening storage", "driver", sc.Driver)

	switch sc.Driver {
	case config.DriverSQLite:
		db, err := storage.InitSQLite(sc.Path)
		if err != nil {
			return fmt.Errorf("failed to initialize SQLite: %w", err)
		}
		a.closers = append(a.closers, func() { db.Close() })
		a.store = storage.NewSQLiteSlotStore(db)
		a.events = storage.NewSQLiteEventRepository(db)
	case config.DriverMemory:
		a.store = storage.NewMemorySlotStore()
	case config.DriverRedis:
		pool := cache.NewPool(sc.RedisURL, a.tuning.RedisMaxIdle)
		a.closers = append(a.closers, func() { pool.Close() })
		a.store = cache.NewRedisSlotStore(cache.NewRedigoClient(pool))
	case config.DriverPostgres:
		pool, err := storage.OpenPostgres(ctx, sc.PostgresDSN, a.tuning.PostgresMaxConns)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pool.Close)
		a.store = storage.NewPostgresSlotStore(pool)
		a.events = storage.NewPostgresEventRepository(pool)
	default:
		return fmt.Errorf("unknown storage driver %q", sc.Driver)
	}

	if sc.CacheSize > 0 {
		a.store = cache.NewCachedSlotStore(a.store, sc.CacheSize)
	}
	return nil
}

// persister returns the journal's durable sink, or nil without an event table.
func (a *app) persister() events.Persister {
	if a.events == nil {
		return nil
	}
	return &journalPersister{repo: a.events, metrics: a.metrics}
}

func (a *app) engineOptions(bus *events.Bus) engine.Options {
	g := a.cfg.Game
	seed := g.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return engine.Options{
		Store:            a.store,
		Bus:              bus,
		Logger:           a.log,
		Metrics:          a.metrics,
		Rand:             rand.New(rand.NewSource(seed)),
		BaseDayDuration:  g.BaseDayDuration.Duration,
		AutosaveInterval: g.AutosaveInterval.Duration,
		AutosaveDelay:    g.AutosaveDelay.Duration,
		IOTimeout:        g.IOTimeout.Duration,
		StartMoney:       g.StartMoney,
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
