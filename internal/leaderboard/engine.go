// Package leaderboard maintains per-deck, per-user score records and the
// append-only quiz attempt history behind them.
package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/flashdeck-backend/internal/domain"
	"github.com/flashdeck-backend/internal/store"
)

// EventRecorder receives audit events for score updates. Recording is
// best effort: a recorder failure never fails the update itself.
type EventRecorder interface {
	RecordScoreEvent(ctx context.Context, event domain.ScoreEvent) error
}

// Engine provides leaderboard operations over the document store.
type Engine struct {
	store    store.Gateway
	recorder EventRecorder
	logger   *slog.Logger
	clock    func() time.Time
}

// New creates a leaderboard engine.
func New(gw store.Gateway, logger *slog.Logger) *Engine {
	return &Engine{
		store:  gw,
		logger: logger,
		clock:  time.Now,
	}
}

// SetRecorder attaches an optional audit event recorder.
func (e *Engine) SetRecorder(r EventRecorder) {
	e.recorder = r
}

func entryPath(deckID, userID string) string {
	return store.Join("leaderboard", deckID, userID)
}

// UpsertScore replaces the leaderboard entry for (deckID, userID) with the
// supplied cumulative totals and a server-assigned lastAttempt timestamp.
// Callers always supply complete new totals, so an unconditional overwrite
// is the intended semantics.
func (e *Engine) UpsertScore(ctx context.Context, deckID, userID, userEmail string, correct, incorrect int) error {
	if userID == "" {
		return domain.ErrUserIDRequired
	}
	if deckID == "" {
		return domain.ErrDeckIDRequired
	}

	now := e.clock().UTC()
	entry := domain.LeaderboardEntry{
		UserEmail:   userEmail,
		Correct:     correct,
		Incorrect:   incorrect,
		LastAttempt: now.Format(domain.AttemptTimeLayout),
	}
	if err := e.store.Set(ctx, entryPath(deckID, userID), entry); err != nil {
		return fmt.Errorf("writing leaderboard entry: %w", err)
	}

	if e.recorder != nil {
		event := domain.ScoreEvent{
			DeckID:    deckID,
			UserID:    userID,
			UserEmail: userEmail,
			Correct:   correct,
			Incorrect: incorrect,
			Source:    "upsert",
			Timestamp: now,
		}
		if err := e.recorder.RecordScoreEvent(ctx, event); err != nil {
			e.logger.Warn("failed to record score event", "error", err)
		}
	}

	return nil
}

// GetLeaderboard returns every entry for a deck ranked by correct count
// descending, then lastAttempt descending. Entries tied on both keys keep
// store iteration order, which is not guaranteed stable across calls. A
// deck with no entries yields an empty slice, not an error.
func (e *Engine) GetLeaderboard(ctx context.Context, deckID string) ([]domain.LeaderboardEntry, error) {
	children, err := e.store.Children(ctx, store.Join("leaderboard", deckID))
	if err != nil {
		return nil, fmt.Errorf("reading leaderboard: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(children))
	for _, c := range children {
		if c.Value == nil {
			continue
		}
		var entry domain.LeaderboardEntry
		if err := json.Unmarshal(c.Value, &entry); err != nil {
			return nil, fmt.Errorf("decoding leaderboard entry %s: %w", c.Key, err)
		}
		entries = append(entries, entry)
	}

	// lastAttempt timestamps are fixed-width UTC, so string comparison
	// orders them chronologically.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Correct != entries[j].Correct {
			return entries[i].Correct > entries[j].Correct
		}
		return entries[i].LastAttempt > entries[j].LastAttempt
	})

	return entries, nil
}

// GetUserScore returns the user's correct/incorrect totals for a deck.
// A user with no entry gets zeros; absence is a defined result here, not
// an error.
func (e *Engine) GetUserScore(ctx context.Context, deckID, userID string) (domain.UserScore, error) {
	var entry domain.LeaderboardEntry
	found, err := e.store.Get(ctx, entryPath(deckID, userID), &entry)
	if err != nil {
		return domain.UserScore{}, fmt.Errorf("reading user score: %w", err)
	}
	if !found {
		return domain.UserScore{}, nil
	}
	return domain.UserScore{Correct: entry.Correct, Incorrect: entry.Incorrect}, nil
}

// RecordAttempt appends one quiz attempt to the user's history. The
// attempt is keyed by its timestamp with path-illegal characters replaced,
// so two attempts with the same timestamp overwrite each other.
func (e *Engine) RecordAttempt(ctx context.Context, deckID, userID, userEmail string, correct, incorrect int, attemptedAt string) error {
	if userID == "" {
		return domain.ErrUserIDRequired
	}
	if deckID == "" {
		return domain.ErrDeckIDRequired
	}
	if attemptedAt == "" {
		attemptedAt = e.clock().UTC().Format(domain.AttemptTimeLayout)
	}

	attempt := domain.QuizAttempt{
		UserEmail:   userEmail,
		Correct:     correct,
		Incorrect:   incorrect,
		LastAttempt: attemptedAt,
	}
	key := domain.SanitizeTimestampKey(attemptedAt)
	path := store.Join("quizAttempts", deckID, userID, key)
	if err := e.store.Set(ctx, path, attempt); err != nil {
		return fmt.Errorf("writing quiz attempt: %w", err)
	}
	return nil
}
