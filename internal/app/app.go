// Package app wires the pipeline components together and runs the
// configured stages.
package app

import (
	"context"
	"fmt"
	"log"

	"github.com/playlog/playlog/internal/archive"
	"github.com/playlog/playlog/internal/config"
	"github.com/playlog/playlog/internal/durablelog"
	apperrors "github.com/playlog/playlog/internal/errors"
	"github.com/playlog/playlog/internal/eventstore"
	"github.com/playlog/playlog/internal/manifest"
	"github.com/playlog/playlog/internal/notify"
	"github.com/playlog/playlog/internal/observability"
	"github.com/playlog/playlog/internal/report"
	"github.com/playlog/playlog/internal/spotify"
	"github.com/playlog/playlog/internal/storage"
)

// RecentPlayFetcher is the upstream API capability the sync stage depends
// on. *spotify.Client satisfies it; tests substitute a fake.
type RecentPlayFetcher interface {
	RecentlyPlayed(ctx context.Context, limit int) ([]eventstore.PlayEvent, error)
}

// App runs the playlog pipeline. Every invocation is one sequential batch:
// there are no background workers, and overlapping invocations against the
// same data directory are not safe. External scheduling must guarantee
// mutual exclusion (one cron tick at a time).
type App struct {
	cfg *config.Config

	// Fetcher may be replaced before Run for testing.
	Fetcher RecentPlayFetcher

	events   *eventstore.Store
	logFile  *durablelog.Log
	notifier *notify.Notifier
	stats    *observability.RunStats
}

// New creates an App with the given configuration. Configuration problems
// abort here, before any I/O beyond directory creation.
func New(cfg *config.Config) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	events, err := eventstore.New(cfg.Spotify.StreamDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open event store: %w", err)
	}

	return &App{
		cfg:      cfg,
		Fetcher:  spotify.NewClient(cfg.Spotify.BaseURL, cfg.Spotify.AccessToken),
		events:   events,
		logFile:  durablelog.New(cfg.Export.LogFile),
		notifier: notify.New(cfg.Notify.Endpoint),
		stats:    observability.NewRunStats(),
	}, nil
}

// Run executes the configured stages sequentially and logs a summary.
// Fatal errors abort the run; per-record archive failures do not.
func (a *App) Run(ctx context.Context) error {
	log.Printf("[run %s] starting in %s mode", a.stats.RunID(), a.cfg.Mode)

	if a.cfg.ShouldRunSync() {
		if err := a.runSync(ctx); err != nil {
			return err
		}
	}
	if a.cfg.ShouldRunReport() {
		if err := a.runReport(); err != nil {
			return err
		}
	}
	if a.cfg.ShouldRunArchive() {
		if err := a.runArchive(ctx); err != nil {
			return err
		}
	}

	log.Printf("%s", a.stats.Summary())
	return nil
}

// runSync fetches the latest page, caches it, merges the full cache into
// the durable log, regenerates the report, and notifies.
func (a *App) runSync(ctx context.Context) error {
	events, err := a.Fetcher.RecentlyPlayed(ctx, a.cfg.Spotify.FetchLimit)
	if err != nil {
		return err
	}
	a.stats.Add(observability.CounterFetched, len(events))
	log.Printf("Fetched %d recently played tracks", len(events))

	for _, event := range events {
		if err := a.events.Put(event); err != nil {
			return apperrors.NewIngestError(apperrors.CodeCacheWriteFailed, "failed to cache event", err)
		}
	}
	a.stats.Add(observability.CounterCached, len(events))

	// Merge the ENTIRE cache, not just this fetch, so a run that crashed
	// after caching is backed up by this one.
	cached, err := a.events.ListAll()
	if err != nil {
		return apperrors.NewMergeError(apperrors.CodeLogReadFailed, "failed to list event cache", err)
	}

	added, err := a.logFile.MergeNew(cached)
	if err != nil {
		return err
	}
	a.stats.Add(observability.CounterMerged, added)
	if added > 0 {
		log.Printf("Added %d new entries to the durable log", added)
	} else {
		log.Printf("No new entries to add")
	}

	if err := a.writeReport(); err != nil {
		return err
	}

	a.notifier.PostBestEffort(ctx, fmt.Sprintf("Spotify: %d new entries", added))
	return nil
}

// runReport regenerates the report from the durable log without fetching.
func (a *App) runReport() error {
	return a.writeReport()
}

func (a *App) writeReport() error {
	rows, err := a.logFile.Load()
	if err != nil {
		return err
	}
	aggregated := report.Aggregate(rows)
	if err := report.WriteFile(a.cfg.Export.ReportFile, aggregated); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	log.Printf("Wrote %d aggregate rows to %s", len(aggregated), a.cfg.Export.ReportFile)
	return nil
}

// runArchive uploads every cached event file to the object store, skipping
// keys that are already archived.
func (a *App) runArchive(ctx context.Context) error {
	store, err := a.newObjectStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}

	catalog, err := manifest.NewCatalog(a.cfg.Archive.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to open upload catalog: %w", err)
	}
	defer catalog.Close()

	normalizer, err := archive.NewNormalizer(a.cfg.Archive.Timezone, a.cfg.Archive.StripField)
	if err != nil {
		return apperrors.NewConfigError(apperrors.CodeInvalidSetting, err.Error())
	}

	files, err := a.events.Files()
	if err != nil {
		return fmt.Errorf("failed to list event cache: %w", err)
	}

	uploader := archive.NewUploader(store, catalog, normalizer, a.cfg.Archive.KeyPrefix)
	results := uploader.ArchiveAll(ctx, files)

	uploaded, skipped, failed := archive.Summarize(results)
	a.stats.Add(observability.CounterUploaded, uploaded)
	a.stats.Add(observability.CounterSkipped, skipped)
	a.stats.Add(observability.CounterFailed, failed)
	log.Printf("Archive batch done: %d uploaded, %d skipped, %d failed", uploaded, skipped, failed)
	return nil
}

func (a *App) newObjectStorage(ctx context.Context) (storage.ObjectStorage, error) {
	switch a.cfg.Storage.Type {
	case "s3":
		return storage.NewS3Storage(ctx, a.cfg.Storage.S3.Bucket, storage.S3Config{
			Region:       a.cfg.Storage.S3.Region,
			Endpoint:     a.cfg.Storage.S3.Endpoint,
			UsePathStyle: a.cfg.Storage.S3.UsePathStyle,
		})
	default:
		return storage.NewLocalStorage(a.cfg.Storage.Path)
	}
}
