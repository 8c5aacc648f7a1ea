// Package progress reconstructs a user's chronological quiz timeseries
// from the raw attempt history.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/flashdeck-backend/internal/domain"
	"github.com/flashdeck-backend/internal/store"
)

// Engine provides read-only access to per-user attempt history.
type Engine struct {
	store  store.Gateway
	logger *slog.Logger
}

// New creates a progress engine.
func New(gw store.Gateway, logger *slog.Logger) *Engine {
	return &Engine{store: gw, logger: logger}
}

// GetUserProgress returns one point per stored quiz attempt for the user
// on the deck, in attempt-key order. Attempt keys are sanitized
// timestamps, so key order matches chronological order for same-timezone
// ISO timestamps. A user with no attempts is reported as
// ErrNoProgressData.
//
// The per-point date is derived by stripping the trailing UTC marker and
// parsing the remainder as ISO-8601; a timestamp that does not parse
// leaves the date nil but keeps the attempt.
func (e *Engine) GetUserProgress(ctx context.Context, deckID, userID string) ([]domain.ProgressPoint, error) {
	children, err := e.store.Children(ctx, store.Join("quizAttempts", deckID, userID))
	if err != nil {
		return nil, fmt.Errorf("reading quiz attempts: %w", err)
	}
	if len(children) == 0 {
		return nil, domain.ErrNoProgressData
	}

	points := make([]domain.ProgressPoint, 0, len(children))
	for _, c := range children {
		if c.Value == nil {
			continue
		}
		var attempt domain.QuizAttempt
		if err := json.Unmarshal(c.Value, &attempt); err != nil {
			return nil, fmt.Errorf("decoding quiz attempt %s: %w", c.Key, err)
		}

		point := domain.ProgressPoint{
			UserEmail:     attempt.UserEmail,
			Correct:       attempt.Correct,
			Incorrect:     attempt.Incorrect,
			TotalAttempts: attempt.Correct + attempt.Incorrect,
		}
		if attempt.LastAttempt != "" {
			point.LastAttempt = strings.TrimRight(attempt.LastAttempt, "Z")
			if date, ok := domain.AttemptDate(attempt.LastAttempt); ok {
				point.Date = &date
			}
		}
		points = append(points, point)
	}

	if len(points) == 0 {
		return nil, domain.ErrNoProgressData
	}
	return points, nil
}
