package streak

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashdeck-backend/internal/domain"
	"github.com/flashdeck-backend/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func engineAt(gw *store.MemoryGateway, date string) *Engine {
	e := New(gw, testLogger())
	day, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		panic(err)
	}
	e.clock = func() time.Time { return day.Add(10 * time.Hour) }
	return e
}

func seedStreak(t *testing.T, gw *store.MemoryGateway, userID string, rec domain.StreakRecord) {
	t.Helper()
	require.NoError(t, gw.Set(context.Background(), store.Join("streaks", userID), rec))
}

func TestLogPracticeFirstEver(t *testing.T) {
	gw := store.NewMemoryGateway()
	engine := engineAt(gw, "2024-03-15")

	rec, err := engine.LogPractice(context.Background(), "u1", "deck1")
	require.NoError(t, err)
	assert.Equal(t, domain.StreakRecord{CurrentStreak: 1, LastPracticeDate: "2024-03-15"}, rec)
}

func TestLogPracticeConsecutiveDay(t *testing.T) {
	gw := store.NewMemoryGateway()
	engine := engineAt(gw, "2024-03-15")
	seedStreak(t, gw, "u1", domain.StreakRecord{CurrentStreak: 3, LastPracticeDate: "2024-03-14"})

	rec, err := engine.LogPractice(context.Background(), "u1", "deck1")
	require.NoError(t, err)
	assert.Equal(t, domain.StreakRecord{CurrentStreak: 4, LastPracticeDate: "2024-03-15"}, rec)
}

func TestLogPracticeGapResets(t *testing.T) {
	gw := store.NewMemoryGateway()
	engine := engineAt(gw, "2024-03-15")
	seedStreak(t, gw, "u1", domain.StreakRecord{CurrentStreak: 5, LastPracticeDate: "2024-03-13"})

	rec, err := engine.LogPractice(context.Background(), "u1", "deck1")
	require.NoError(t, err)
	assert.Equal(t, domain.StreakRecord{CurrentStreak: 1, LastPracticeDate: "2024-03-15"}, rec)
}

func TestLogPracticeSameDayKeepsCount(t *testing.T) {
	gw := store.NewMemoryGateway()
	engine := engineAt(gw, "2024-03-15")
	seedStreak(t, gw, "u1", domain.StreakRecord{CurrentStreak: 3, LastPracticeDate: "2024-03-15"})

	rec, err := engine.LogPractice(context.Background(), "u1", "deck1")
	require.NoError(t, err)

	// Count stays, date is still rewritten.
	assert.Equal(t, domain.StreakRecord{CurrentStreak: 3, LastPracticeDate: "2024-03-15"}, rec)
}

func TestLogPracticeFutureLastDateKeepsCount(t *testing.T) {
	gw := store.NewMemoryGateway()
	engine := engineAt(gw, "2024-03-15")
	seedStreak(t, gw, "u1", domain.StreakRecord{CurrentStreak: 2, LastPracticeDate: "2024-03-16"})

	rec, err := engine.LogPractice(context.Background(), "u1", "deck1")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.CurrentStreak)
	assert.Equal(t, "2024-03-15", rec.LastPracticeDate)
}

func TestLogPracticeRequiresUserID(t *testing.T) {
	engine := New(store.NewMemoryGateway(), testLogger())

	_, err := engine.LogPractice(context.Background(), "", "deck1")
	assert.ErrorIs(t, err, domain.ErrUserIDRequired)
}

func TestLogPracticeStoreFailure(t *testing.T) {
	gw := store.NewMemoryGateway()
	boom := errors.New("store down")
	gw.FailWith = boom
	engine := engineAt(gw, "2024-03-15")

	_, err := engine.LogPractice(context.Background(), "u1", "deck1")
	assert.ErrorIs(t, err, boom)
}

func TestGetStreak(t *testing.T) {
	gw := store.NewMemoryGateway()
	engine := New(gw, testLogger())
	seedStreak(t, gw, "u1", domain.StreakRecord{CurrentStreak: 7, LastPracticeDate: "2024-03-15"})

	rec, err := engine.GetStreak(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 7, rec.CurrentStreak)
}

func TestGetStreakAbsentIsZero(t *testing.T) {
	engine := New(store.NewMemoryGateway(), testLogger())

	rec, err := engine.GetStreak(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, domain.StreakRecord{}, rec)
}

type capturePractice struct {
	events []domain.PracticeEvent
}

func (c *capturePractice) RecordPracticeEvent(_ context.Context, event domain.PracticeEvent) error {
	c.events = append(c.events, event)
	return nil
}

func TestLogPracticeRecordsAuditEvent(t *testing.T) {
	gw := store.NewMemoryGateway()
	engine := engineAt(gw, "2024-03-15")
	rec := &capturePractice{}
	engine.SetRecorder(rec)

	_, err := engine.LogPractice(context.Background(), "u1", "deck1")
	require.NoError(t, err)

	require.Len(t, rec.events, 1)
	assert.Equal(t, "2024-03-15", rec.events[0].PracticedOn)
	assert.Equal(t, 1, rec.events[0].Streak)
}
