// Package worker holds the background archive loop that copies
// leaderboard entries from the document store into Postgres snapshots.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/flashdeck-backend/internal/config"
	"github.com/flashdeck-backend/internal/domain"
	"github.com/flashdeck-backend/internal/postgres"
	"github.com/flashdeck-backend/internal/store"
)

// ArchiveWorker periodically snapshots every deck's leaderboard into the
// reporting database.
type ArchiveWorker struct {
	store   store.Gateway
	repo    *postgres.Repository
	config  *config.ArchiveConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewArchiveWorker creates an archive worker.
func NewArchiveWorker(
	gw store.Gateway,
	repo *postgres.Repository,
	cfg *config.ArchiveConfig,
	logger *slog.Logger,
) *ArchiveWorker {
	return &ArchiveWorker{
		store:  gw,
		repo:   repo,
		config: cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the background archive process
func (w *ArchiveWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("archive worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background archive process
func (w *ArchiveWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("archive worker stopped")
	return nil
}

func (w *ArchiveWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.archiveAll(ctx)
		}
	}
}

// archiveAll snapshots every deck that has leaderboard entries
func (w *ArchiveWorker) archiveAll(ctx context.Context) {
	w.logger.Info("starting archive cycle")
	startTime := time.Now()

	decks, err := w.store.Children(ctx, "leaderboard")
	if err != nil {
		w.logger.Error("failed to list decks for archiving", "error", err)
		return
	}

	archivedCount := 0
	errorCount := 0

	for _, deck := range decks {
		if err := w.ArchiveDeck(ctx, deck.Key); err != nil {
			w.logger.Error("failed to archive deck",
				"deck_id", deck.Key,
				"error", err,
			)
			errorCount++
		} else {
			archivedCount++
		}
	}

	w.logger.Info("archive cycle completed",
		"duration", time.Since(startTime),
		"archived", archivedCount,
		"errors", errorCount,
	)
}

// ArchiveDeck snapshots one deck's leaderboard entries into Postgres,
// in batches so a large deck does not produce one huge statement burst.
func (w *ArchiveWorker) ArchiveDeck(ctx context.Context, deckID string) error {
	children, err := w.store.Children(ctx, store.Join("leaderboard", deckID))
	if err != nil {
		return err
	}
	if len(children) == 0 {
		return nil
	}

	batchSize := w.config.BatchSize
	if batchSize == 0 {
		batchSize = 500
	}

	rows := make([]domain.LeaderboardSnapshot, 0, batchSize)
	for _, c := range children {
		if c.Value == nil {
			continue
		}
		var entry domain.LeaderboardEntry
		if err := json.Unmarshal(c.Value, &entry); err != nil {
			w.logger.Warn("skipping undecodable leaderboard entry",
				"deck_id", deckID,
				"user_id", c.Key,
				"error", err,
			)
			continue
		}
		rows = append(rows, domain.LeaderboardSnapshot{
			DeckID: deckID,
			UserID: c.Key,
			Entry:  entry,
		})

		if len(rows) >= batchSize {
			if err := w.repo.BatchUpsertSnapshots(ctx, rows); err != nil {
				return err
			}
			rows = rows[:0]
		}
	}

	if len(rows) > 0 {
		if err := w.repo.BatchUpsertSnapshots(ctx, rows); err != nil {
			return err
		}
	}

	w.logger.Debug("archived deck leaderboard",
		"deck_id", deckID,
		"entry_count", len(children),
	)
	return nil
}

// IsRunning returns whether the worker is currently running
func (w *ArchiveWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single archive cycle (useful for manual triggers)
func (w *ArchiveWorker) RunOnce(ctx context.Context) {
	w.archiveAll(ctx)
}
