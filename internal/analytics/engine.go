// Package analytics aggregates deck-wide statistics from leaderboard
// entries. It reads the same records the leaderboard engine writes and
// never mutates anything.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/flashdeck-backend/internal/domain"
	"github.com/flashdeck-backend/internal/store"
)

// Engine provides read-only deck analytics.
type Engine struct {
	store  store.Gateway
	logger *slog.Logger
}

// New creates an analytics engine.
func New(gw store.Gateway, logger *slog.Logger) *Engine {
	return &Engine{store: gw, logger: logger}
}

func (e *Engine) deckEntries(ctx context.Context, deckID string) ([]domain.LeaderboardEntry, error) {
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
	return entries, nil
}

// GetDeckAnalysis totals correct/incorrect/attempts across a deck's
// leaderboard entries and averages them over the entry count (per-user
// means, not per-attempt). A deck with zero entries is reported as
// ErrNoLeaderboardEntries, a distinct outcome from all-zero totals.
func (e *Engine) GetDeckAnalysis(ctx context.Context, deckID string) (domain.DeckAnalysis, error) {
	entries, err := e.deckEntries(ctx, deckID)
	if err != nil {
		return domain.DeckAnalysis{}, err
	}
	if len(entries) == 0 {
		return domain.DeckAnalysis{}, domain.ErrNoLeaderboardEntries
	}

	var analysis domain.DeckAnalysis
	for _, entry := range entries {
		analysis.TotalCorrect += entry.Correct
		analysis.TotalIncorrect += entry.Incorrect
		analysis.TotalAttempts += entry.Correct + entry.Incorrect
	}
	count := float64(len(entries))
	analysis.AvgCorrect = float64(analysis.TotalCorrect) / count
	analysis.AvgIncorrect = float64(analysis.TotalIncorrect) / count
	analysis.AvgAttempts = float64(analysis.TotalAttempts) / count

	return analysis, nil
}

// GetPerformanceTrends groups a deck's leaderboard entries by the calendar
// date of their lastAttempt and sums correct/incorrect/attempts per date,
// ascending. Because each entry holds only a user's most recent attempt,
// trends reflect latest-attempt dates rather than full history; that is
// the long-standing shape of this data.
func (e *Engine) GetPerformanceTrends(ctx context.Context, deckID string) ([]domain.TrendPoint, error) {
	entries, err := e.deckEntries(ctx, deckID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, domain.ErrNoLeaderboardEntries
	}

	byDate := make(map[string]*domain.TrendPoint)
	for _, entry := range entries {
		date, ok := domain.AttemptDate(entry.LastAttempt)
		if !ok {
			return nil, fmt.Errorf("parsing last attempt timestamp %q: %w", entry.LastAttempt, domain.ErrInvalidRequest)
		}
		point, exists := byDate[date]
		if !exists {
			point = &domain.TrendPoint{Date: date}
			byDate[date] = point
		}
		point.Correct += entry.Correct
		point.Incorrect += entry.Incorrect
		point.Attempts += entry.Correct + entry.Incorrect
	}

	trends := make([]domain.TrendPoint, 0, len(byDate))
	for _, point := range byDate {
		trends = append(trends, *point)
	}
	sort.Slice(trends, func(i, j int) bool {
		return trends[i].Date < trends[j].Date
	})

	return trends, nil
}
