package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashdeck-backend/internal/analytics"
	"github.com/flashdeck-backend/internal/decks"
	"github.com/flashdeck-backend/internal/domain"
	"github.com/flashdeck-backend/internal/leaderboard"
	"github.com/flashdeck-backend/internal/progress"
	"github.com/flashdeck-backend/internal/sharing"
	"github.com/flashdeck-backend/internal/store"
	"github.com/flashdeck-backend/internal/streak"
	"github.com/flashdeck-backend/internal/websocket"
)

func newTestRouter(t *testing.T) (http.Handler, *store.MemoryGateway) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw := store.NewMemoryGateway()

	catalog := decks.New(gw, logger)
	h := NewHandler(
		leaderboard.New(gw, logger),
		analytics.New(gw, logger),
		progress.New(gw, logger),
		streak.New(gw, logger),
		sharing.New(gw, catalog, logger),
		catalog,
		websocket.NewHub(logger),
		50,
		logger,
	)
	return h.Router(), gw
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestUpdateAndGetLeaderboard(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/decks/deck1/leaderboard",
		`{"userId":"u1","userEmail":"u1@x.com","correct":9,"incorrect":1}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/v1/decks/deck1/leaderboard",
		`{"userId":"u2","userEmail":"u2@x.com","correct":4,"incorrect":6}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/api/v1/decks/deck1/leaderboard", "")
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeResponse(t, rr)
	assert.True(t, resp.Success)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var entries []domain.LeaderboardEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "u1@x.com", entries[0].UserEmail)
}

func TestUpdateLeaderboardValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/decks/deck1/leaderboard",
		`{"userEmail":"u1@x.com","correct":1,"incorrect":0}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/v1/decks/deck1/leaderboard", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetUserScoreDefaultsToZero(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/api/v1/decks/deck1/user-score/ghost", "")
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeResponse(t, rr)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var score domain.UserScore
	require.NoError(t, json.Unmarshal(data, &score))
	assert.Equal(t, domain.UserScore{}, score)
}

func TestGetDeckAnalysisEmptyDeck(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/api/v1/decks/empty/analysis", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	resp := decodeResponse(t, rr)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestGetUserProgressNoAttempts(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/api/v1/decks/deck1/user-progress/ghost", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSharingConflict(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/sharing", `{"userId":"u1","deckId":"d1"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/v1/sharing", `{"userId":"u1","deckId":"d1"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doJSON(t, router, http.MethodDelete, "/api/v1/sharing", `{"userId":"u1","deckId":"other"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStreakLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/api/v1/streaks/u1", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/v1/practice", `{"userId":"u1","deckId":"d1"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeResponse(t, rr)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var rec domain.StreakRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, 1, rec.CurrentStreak)
}

func TestDeckCRUD(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/decks/",
		`{"userId":"u1","title":"Spanish Verbs","visibility":"public"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	resp := decodeResponse(t, rr)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var created map[string]string
	require.NoError(t, json.Unmarshal(data, &created))
	id := created["id"]
	require.NotEmpty(t, id)

	rr = doJSON(t, router, http.MethodGet, "/api/v1/decks/"+id+"/", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodDelete, "/api/v1/decks/"+id+"/", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/api/v1/decks/"+id+"/", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealthEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}
