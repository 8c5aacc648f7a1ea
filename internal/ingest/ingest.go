// Package ingest applies quiz results arriving off the HTTP path (for
// now, the Kafka topic) to the score and streak engines.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flashdeck-backend/internal/domain"
	"github.com/flashdeck-backend/internal/leaderboard"
	"github.com/flashdeck-backend/internal/streak"
)

// Ingestor fans one quiz result out to the engines that care about it:
// leaderboard upsert, attempt history, practice streak.
type Ingestor struct {
	leaderboard *leaderboard.Engine
	streaks     *streak.Engine
	logger      *slog.Logger
}

// New creates an ingestor.
func New(lb *leaderboard.Engine, st *streak.Engine, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		leaderboard: lb,
		streaks:     st,
		logger:      logger,
	}
}

// ApplyQuizResult applies one quiz result. The leaderboard upsert is the
// operation that must succeed; attempt history and streak advancement are
// recorded afterwards and logged on failure rather than undoing the
// upsert (there is no cross-path transaction in the store).
func (i *Ingestor) ApplyQuizResult(ctx context.Context, res domain.QuizResult) error {
	if err := i.leaderboard.UpsertScore(ctx, res.DeckID, res.UserID, res.UserEmail, res.Correct, res.Incorrect); err != nil {
		return fmt.Errorf("applying quiz result: %w", err)
	}

	if err := i.leaderboard.RecordAttempt(ctx, res.DeckID, res.UserID, res.UserEmail, res.Correct, res.Incorrect, res.AttemptedAt); err != nil {
		i.logger.Warn("failed to record quiz attempt",
			"deck_id", res.DeckID,
			"user_id", res.UserID,
			"error", err,
		)
	}

	if _, err := i.streaks.LogPractice(ctx, res.UserID, res.DeckID); err != nil {
		i.logger.Warn("failed to advance practice streak",
			"user_id", res.UserID,
			"error", err,
		)
	}

	return nil
}

// ApplyQuizResultBatch applies a batch of results, continuing past
// individual failures.
func (i *Ingestor) ApplyQuizResultBatch(ctx context.Context, batch domain.BatchQuizResults) error {
	for _, res := range batch.Results {
		if err := i.ApplyQuizResult(ctx, res); err != nil {
			i.logger.Error("failed to apply quiz result in batch",
				"deck_id", res.DeckID,
				"user_id", res.UserID,
				"error", err,
			)
			// Continue processing other results
		}
	}
	return nil
}
