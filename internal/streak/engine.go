// Package streak tracks consecutive daily practice per user, across all
// decks, at calendar-day granularity.
package streak

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/flashdeck-backend/internal/domain"
	"github.com/flashdeck-backend/internal/store"
)

// PracticeRecorder receives audit events for practice logs. Best effort;
// failures are logged and dropped.
type PracticeRecorder interface {
	RecordPracticeEvent(ctx context.Context, event domain.PracticeEvent) error
}

// Engine is the practice-streak state machine.
type Engine struct {
	store    store.Gateway
	recorder PracticeRecorder
	logger   *slog.Logger
	clock    func() time.Time
}

// New creates a streak engine.
func New(gw store.Gateway, logger *slog.Logger) *Engine {
	return &Engine{
		store:  gw,
		logger: logger,
		clock:  time.Now,
	}
}

// SetRecorder attaches an optional audit event recorder.
func (e *Engine) SetRecorder(r PracticeRecorder) {
	e.recorder = r
}

func streakPath(userID string) string {
	return store.Join("streaks", userID)
}

// LogPractice records a practice event for today and advances the streak:
// first-ever practice starts at 1, practice exactly one day after the
// last continues the streak, a longer gap resets it to 1. A same-day
// repeat (or a clock running backwards) leaves the count unchanged but
// still overwrites lastPracticeDate; that fall-through matches how this
// state machine has always behaved and is deliberately not "fixed" here.
//
// The read-modify-write runs under the store's optimistic swap, so
// concurrent logs for the same user cannot silently drop an increment.
func (e *Engine) LogPractice(ctx context.Context, userID, deckID string) (domain.StreakRecord, error) {
	if userID == "" {
		return domain.StreakRecord{}, domain.ErrUserIDRequired
	}

	now := e.clock().UTC()
	today := now.Format(domain.DateLayout)

	var updated domain.StreakRecord
	err := e.store.Swap(ctx, streakPath(userID), func(current json.RawMessage) (any, error) {
		var rec domain.StreakRecord
		if current != nil {
			if err := json.Unmarshal(current, &rec); err != nil {
				return nil, fmt.Errorf("decoding streak record: %w", err)
			}
		}

		if rec.LastPracticeDate == "" {
			rec.CurrentStreak = 1
		} else {
			last, err := time.Parse(domain.DateLayout, rec.LastPracticeDate)
			if err != nil {
				return nil, fmt.Errorf("parsing last practice date %q: %w", rec.LastPracticeDate, err)
			}
			midnight, _ := time.Parse(domain.DateLayout, today)
			gap := int(midnight.Sub(last).Hours() / 24)
			switch {
			case gap == 1:
				rec.CurrentStreak++
			case gap > 1:
				rec.CurrentStreak = 1
			}
			// gap <= 0: same-day repeat or clock skew, count unchanged.
		}

		rec.LastPracticeDate = today
		updated = rec
		return rec, nil
	})
	if err != nil {
		return domain.StreakRecord{}, fmt.Errorf("updating streak: %w", err)
	}

	if e.recorder != nil {
		event := domain.PracticeEvent{
			UserID:      userID,
			DeckID:      deckID,
			PracticedOn: today,
			Streak:      updated.CurrentStreak,
			Timestamp:   now,
		}
		if err := e.recorder.RecordPracticeEvent(ctx, event); err != nil {
			e.logger.Warn("failed to record practice event", "error", err)
		}
	}

	return updated, nil
}

// GetStreak returns the user's streak record, or the zero record when the
// user has never practiced. Absence is never an error.
func (e *Engine) GetStreak(ctx context.Context, userID string) (domain.StreakRecord, error) {
	var rec domain.StreakRecord
	found, err := e.store.Get(ctx, streakPath(userID), &rec)
	if err != nil {
		return domain.StreakRecord{}, fmt.Errorf("reading streak: %w", err)
	}
	if !found {
		return domain.StreakRecord{}, nil
	}
	return rec, nil
}
