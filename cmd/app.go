package cmd

import (
	"context"
	"fmt"
	"time"

	"fundtracker/config"
	"fundtracker/database"
	"fundtracker/events"
	"fundtracker/goals"
	"fundtracker/jobs"
	"fundtracker/models"
	"fundtracker/repository"
	"fundtracker/repository/sqlite"
	"fundtracker/scraper"
	"fundtracker/service"

	log "github.com/sirupsen/logrus"
)

// rollupStore is what the CLI needs from either storage backend
type rollupStore interface {
	service.SnapshotStore
	GetDailyRollup(ctx context.Context, date time.Time) (*models.DailyRollup, error)
	ListDailyRollups(ctx context.Context, from, to time.Time) ([]*models.DailyRollup, error)
}

// app holds the wired components shared by the subcommands
type app struct {
	cfg      *config.Config
	loc      *time.Location
	eventBus *events.Bus

	db     *database.DB  // set for the postgres store
	sqlite *sqlite.Store // set for the sqlite store
	store  rollupStore

	goals   service.GoalProvider
	ingest  service.IngestService
	metrics service.MetricsService
	runner  *jobs.Runner
	locker  jobs.Locker

	closers []func()
}

// newApp connects the configured store and builds the services on top of it
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		loc:      loc,
		eventBus: events.NewBus(),
	}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	switch cfg.GoalSource {
	case config.GoalSourceDB:
		a.goals = repository.NewGoalRepository(a.db, a.eventBus)
	default:
		a.goals = goals.NewCSVProvider(cfg.GoalsCSVPath, loc)
	}

	source := scraper.NewHTTPSource(cfg.TargetURL, scraper.NewFetcher(cfg.RequestTimeout), scraper.RetryPolicy{
		MaxAttempts:     cfg.FetchAttempts,
		InitialInterval: cfg.FetchBackoff,
	})

	a.ingest = service.NewIngestService(source, a.store, a.eventBus, nil)
	a.metrics = service.NewMetricsService(a.store, a.goals, a.eventBus, service.MetricsConfig{Location: loc})

	if err := a.openLocker(ctx); err != nil {
		a.close()
		return nil, err
	}

	a.runner = jobs.NewRunner(a.ingest, a.metrics, a.eventBus, jobs.RunnerConfig{
		Locker:  a.locker,
		LockTTL: cfg.JobLockTTL,
	})

	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.StoreDriver {
	case config.StoreDriverSQLite:
		log.WithField("path", a.cfg.SQLitePath).Info("Opening sqlite store")
		store, err := sqlite.New(a.cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open sqlite store: %w", err)
		}
		a.sqlite = store
		a.store = store
		a.closers = append(a.closers, func() {
			if err := store.Close(); err != nil {
				log.WithError(err).Error("Error closing sqlite store")
			}
		})
	default:
		log.Info("Connecting to database...")
		db, err := database.NewConnection(ctx, a.cfg.GetDatabaseURL())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info("Database connection established successfully")
		a.db = db
		a.store = repository.NewSnapshotRepository(db)
		a.closers = append(a.closers, db.Close)
	}
	return nil
}

func (a *app) openLocker(ctx context.Context) error {
	if a.cfg.RedisAddress == "" {
		a.locker = jobs.NoopLocker{}
		return nil
	}

	locker, err := jobs.NewRedisLocker(ctx, a.cfg.RedisAddress)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.WithField("addr", a.cfg.RedisAddress).Info("Job locking enabled")
	a.locker = locker
	a.closers = append(a.closers, func() {
		if err := locker.Close(); err != nil {
			log.WithError(err).Error("Error closing redis client")
		}
	})
	return nil
}

// appendSnapshots stores readings in order, atomically on postgres
func (a *app) appendSnapshots(ctx context.Context, snapshots []*models.Snapshot) ([]*models.Snapshot, error) {
	if a.db != nil {
		return repository.AppendAll(ctx, a.db, snapshots)
	}

	stored := make([]*models.Snapshot, 0, len(snapshots))
	for _, s := range snapshots {
		snapshot, err := a.store.Append(ctx, s.TotalAmount, s.TotalQuantity, s.ScrapedAt)
		if err != nil {
			return nil, err
		}
		stored = append(stored, snapshot)
	}
	return stored, nil
}

// close releases resources in reverse order of acquisition
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
