package progress

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashdeck-backend/internal/domain"
	"github.com/flashdeck-backend/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedAttempt(t *testing.T, gw *store.MemoryGateway, deckID, userID string, attempt domain.QuizAttempt) {
	t.Helper()
	key := domain.SanitizeTimestampKey(attempt.LastAttempt)
	path := store.Join("quizAttempts", deckID, userID, key)
	require.NoError(t, gw.Set(context.Background(), path, attempt))
}

func TestGetUserProgress(t *testing.T) {
	gw := store.NewMemoryGateway()
	engine := New(gw, testLogger())

	seedAttempt(t, gw, "deck1", "u1", domain.QuizAttempt{
		UserEmail: "u1@x.com", Correct: 3, Incorrect: 7, LastAttempt: "2024-03-01T09:00:00.000Z",
	})
	seedAttempt(t, gw, "deck1", "u1", domain.QuizAttempt{
		UserEmail: "u1@x.com", Correct: 6, Incorrect: 4, LastAttempt: "2024-03-02T09:00:00.000Z",
	})

	points, err := engine.GetUserProgress(context.Background(), "deck1", "u1")
	require.NoError(t, err)
	require.Len(t, points, 2)

	// Chronological via sanitized key order.
	first := points[0]
	assert.Equal(t, 3, first.Correct)
	assert.Equal(t, 10, first.TotalAttempts)
	// Trailing Z stripped from the returned timestamp.
	assert.Equal(t, "2024-03-01T09:00:00.000", first.LastAttempt)
	require.NotNil(t, first.Date)
	assert.Equal(t, "2024-03-01", *first.Date)

	assert.Equal(t, 6, points[1].Correct)
}

func TestGetUserProgressUnparseableDate(t *testing.T) {
	gw := store.NewMemoryGateway()
	engine := New(gw, testLogger())

	seedAttempt(t, gw, "deck1", "u1", domain.QuizAttempt{
		Correct: 2, Incorrect: 1, LastAttempt: "not-a-timestamp",
	})

	points, err := engine.GetUserProgress(context.Background(), "deck1", "u1")
	require.NoError(t, err)
	require.Len(t, points, 1)

	// The attempt survives with a nil date.
	assert.Nil(t, points[0].Date)
	assert.Equal(t, 3, points[0].TotalAttempts)
}

func TestGetUserProgressNoAttempts(t *testing.T) {
	engine := New(store.NewMemoryGateway(), testLogger())

	_, err := engine.GetUserProgress(context.Background(), "deck1", "ghost")
	assert.ErrorIs(t, err, domain.ErrNoProgressData)
}

func TestGetUserProgressDoesNotCrossUsers(t *testing.T) {
	gw := store.NewMemoryGateway()
	engine := New(gw, testLogger())

	seedAttempt(t, gw, "deck1", "other", domain.QuizAttempt{
		Correct: 1, LastAttempt: "2024-03-01T09:00:00.000Z",
	})

	_, err := engine.GetUserProgress(context.Background(), "deck1", "u1")
	assert.ErrorIs(t, err, domain.ErrNoProgressData)
}
