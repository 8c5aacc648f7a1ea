package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/flashdeck-backend/internal/analytics"
	"github.com/flashdeck-backend/internal/decks"
	"github.com/flashdeck-backend/internal/domain"
	"github.com/flashdeck-backend/internal/leaderboard"
	"github.com/flashdeck-backend/internal/progress"
	"github.com/flashdeck-backend/internal/sharing"
	"github.com/flashdeck-backend/internal/streak"
	"github.com/flashdeck-backend/internal/websocket"
)

// Handler provides HTTP handlers for the engagement API
type Handler struct {
	leaderboard    *leaderboard.Engine
	analytics      *analytics.Engine
	progress       *progress.Engine
	streaks        *streak.Engine
	sharing        *sharing.Manager
	decks          *decks.Catalog
	hub            *websocket.Hub
	broadcastLimit int
	logger         *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	lb *leaderboard.Engine,
	an *analytics.Engine,
	pr *progress.Engine,
	st *streak.Engine,
	sh *sharing.Manager,
	dk *decks.Catalog,
	hub *websocket.Hub,
	broadcastLimit int,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		leaderboard:    lb,
		analytics:      an,
		progress:       pr,
		streaks:        st,
		sharing:        sh,
		decks:          dk,
		hub:            hub,
		broadcastLimit: broadcastLimit,
		logger:         logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/decks", func(r chi.Router) {
			r.Post("/", h.CreateDeck)
			r.Get("/", h.ListDecks)

			r.Route("/{deckID}", func(r chi.Router) {
				r.Get("/", h.GetDeck)
				r.Patch("/", h.UpdateDeck)
				r.Delete("/", h.DeleteDeck)
				r.Patch("/last-opened", h.TouchLastOpened)

				// Scores and analytics
				r.Get("/leaderboard", h.GetLeaderboard)
				r.Post("/leaderboard", h.UpdateLeaderboard)
				r.Get("/user-score/{userID}", h.GetUserScore)
				r.Get("/analysis", h.GetDeckAnalysis)
				r.Get("/performance-trends", h.GetPerformanceTrends)

				// Attempt history
				r.Post("/attempts", h.AddQuizAttempt)
				r.Get("/user-progress/{userID}", h.GetUserProgress)
			})
		})

		// Streaks
		r.Get("/streaks/{userID}", h.GetStreak)
		r.Post("/practice", h.LogPractice)

		// Sharing
		r.Post("/sharing", h.ShareDeck)
		r.Delete("/sharing", h.UnshareDeck)
		r.Get("/sharing/{userID}", h.ListSharedDecks)

		// WebSocket info endpoint
		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// writeEngineError maps an engine error to its HTTP status
func (h *Handler) writeEngineError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case domain.IsInvalidArgument(err):
		h.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrDeckAlreadyShared):
		h.writeError(w, http.StatusConflict, err)
	case domain.IsNotFoundError(err):
		h.writeError(w, http.StatusNotFound, err)
	default:
		h.logger.Error(logMsg, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
	}
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// scoreUpdateRequest is the body for leaderboard updates. Callers supply
// complete new totals, not deltas.
type scoreUpdateRequest struct {
	UserID    string `json:"userId"`
	UserEmail string `json:"userEmail"`
	Correct   int    `json:"correct"`
	Incorrect int    `json:"incorrect"`
}

// UpdateLeaderboard replaces a user's leaderboard entry for a deck and
// broadcasts the re-ranked board to websocket subscribers
func (h *Handler) UpdateLeaderboard(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")

	var req scoreUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.leaderboard.UpsertScore(r.Context(), deckID, req.UserID, req.UserEmail, req.Correct, req.Incorrect); err != nil {
		h.writeEngineError(w, err, "failed to update leaderboard")
		return
	}

	h.broadcastLeaderboard(r, deckID)
	h.writeSuccess(w, map[string]string{"status": "updated"})
}

// broadcastLeaderboard re-reads the deck's ranking and pushes it to the
// hub. Broadcast failures never affect the request that triggered them.
func (h *Handler) broadcastLeaderboard(r *http.Request, deckID string) {
	if h.hub == nil {
		return
	}
	entries, err := h.leaderboard.GetLeaderboard(r.Context(), deckID)
	if err != nil {
		h.logger.Warn("failed to read leaderboard for broadcast", "deck_id", deckID, "error", err)
		return
	}
	if h.broadcastLimit > 0 && len(entries) > h.broadcastLimit {
		entries = entries[:h.broadcastLimit]
	}
	h.hub.BroadcastLeaderboardUpdate(deckID, entries)
}

// GetLeaderboard returns the ranked entries for a deck
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")

	entries, err := h.leaderboard.GetLeaderboard(r.Context(), deckID)
	if err != nil {
		h.writeEngineError(w, err, "failed to get leaderboard")
		return
	}

	h.writeSuccess(w, entries)
}

// GetUserScore returns a user's score for a deck, zeros when absent
func (h *Handler) GetUserScore(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")
	userID := chi.URLParam(r, "userID")

	score, err := h.leaderboard.GetUserScore(r.Context(), deckID, userID)
	if err != nil {
		h.writeEngineError(w, err, "failed to get user score")
		return
	}

	h.writeSuccess(w, score)
}

// GetDeckAnalysis returns aggregate statistics for a deck
func (h *Handler) GetDeckAnalysis(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")

	analysis, err := h.analytics.GetDeckAnalysis(r.Context(), deckID)
	if err != nil {
		h.writeEngineError(w, err, "failed to get deck analysis")
		return
	}

	h.writeSuccess(w, analysis)
}

// GetPerformanceTrends returns per-date aggregates for a deck
func (h *Handler) GetPerformanceTrends(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")

	trends, err := h.analytics.GetPerformanceTrends(r.Context(), deckID)
	if err != nil {
		h.writeEngineError(w, err, "failed to get performance trends")
		return
	}

	h.writeSuccess(w, trends)
}

// attemptRequest is the body for recording a quiz attempt
type attemptRequest struct {
	UserID      string `json:"userId"`
	UserEmail   string `json:"userEmail"`
	Correct     int    `json:"correct"`
	Incorrect   int    `json:"incorrect"`
	LastAttempt string `json:"lastAttempt"`
}

// AddQuizAttempt appends one attempt to a user's history for a deck
func (h *Handler) AddQuizAttempt(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")

	var req attemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.leaderboard.RecordAttempt(r.Context(), deckID, req.UserID, req.UserEmail, req.Correct, req.Incorrect, req.LastAttempt); err != nil {
		h.writeEngineError(w, err, "failed to record quiz attempt")
		return
	}

	h.writeSuccess(w, map[string]string{"status": "recorded"})
}

// GetUserProgress returns a user's full attempt timeseries for a deck
func (h *Handler) GetUserProgress(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")
	userID := chi.URLParam(r, "userID")

	points, err := h.progress.GetUserProgress(r.Context(), deckID, userID)
	if err != nil {
		h.writeEngineError(w, err, "failed to get user progress")
		return
	}

	h.writeSuccess(w, points)
}

// GetStreak returns a user's practice streak, zero record when absent
func (h *Handler) GetStreak(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	rec, err := h.streaks.GetStreak(r.Context(), userID)
	if err != nil {
		h.writeEngineError(w, err, "failed to get streak")
		return
	}

	h.writeSuccess(w, rec)
}

// practiceRequest is the body for logging a practice session
type practiceRequest struct {
	UserID string `json:"userId"`
	DeckID string `json:"deckId"`
}

// LogPractice records a practice session and advances the streak
func (h *Handler) LogPractice(w http.ResponseWriter, r *http.Request) {
	var req practiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	rec, err := h.streaks.LogPractice(r.Context(), req.UserID, req.DeckID)
	if err != nil {
		h.writeEngineError(w, err, "failed to log practice")
		return
	}

	h.writeSuccess(w, rec)
}

// sharingRequest is the body for share/unshare operations
type sharingRequest struct {
	UserID string `json:"userId"`
	DeckID string `json:"deckId"`
}

// ShareDeck adds a deck to a user's sharing set
func (h *Handler) ShareDeck(w http.ResponseWriter, r *http.Request) {
	var req sharingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.sharing.ShareDeck(r.Context(), req.UserID, req.DeckID); err != nil {
		h.writeEngineError(w, err, "failed to share deck")
		return
	}

	h.writeSuccess(w, map[string]string{"status": "shared"})
}

// UnshareDeck removes a deck from a user's sharing set
func (h *Handler) UnshareDeck(w http.ResponseWriter, r *http.Request) {
	var req sharingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.sharing.UnshareDeck(r.Context(), req.UserID, req.DeckID); err != nil {
		h.writeEngineError(w, err, "failed to unshare deck")
		return
	}

	h.writeSuccess(w, map[string]string{"status": "unshared"})
}

// ListSharedDecks returns the decks shared with a user, titles attached
func (h *Handler) ListSharedDecks(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	shared, err := h.sharing.ListSharedDecks(r.Context(), userID)
	if err != nil {
		h.writeEngineError(w, err, "failed to list shared decks")
		return
	}

	h.writeSuccess(w, shared)
}

// CreateDeck creates a new deck record
func (h *Handler) CreateDeck(w http.ResponseWriter, r *http.Request) {
	var deck domain.Deck
	if err := json.NewDecoder(r.Body).Decode(&deck); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	id, err := h.decks.Create(r.Context(), deck)
	if err != nil {
		h.writeEngineError(w, err, "failed to create deck")
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    map[string]string{"id": id},
	})
}

// ListDecks returns a user's decks when userId is supplied, public decks
// otherwise
func (h *Handler) ListDecks(w http.ResponseWriter, r *http.Request) {
	var (
		list []domain.Deck
		err  error
	)
	if userID := r.URL.Query().Get("userId"); userID != "" {
		list, err = h.decks.ListByOwner(r.Context(), userID)
	} else {
		list, err = h.decks.ListPublic(r.Context())
	}
	if err != nil {
		h.writeEngineError(w, err, "failed to list decks")
		return
	}

	h.writeSuccess(w, list)
}

// GetDeck returns one deck by id
func (h *Handler) GetDeck(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")

	deck, err := h.decks.Get(r.Context(), deckID)
	if err != nil {
		h.writeEngineError(w, err, "failed to get deck")
		return
	}

	h.writeSuccess(w, deck)
}

// UpdateDeck updates a deck's editable fields
func (h *Handler) UpdateDeck(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")

	var deck domain.Deck
	if err := json.NewDecoder(r.Body).Decode(&deck); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.decks.Update(r.Context(), deckID, deck); err != nil {
		h.writeEngineError(w, err, "failed to update deck")
		return
	}

	h.writeSuccess(w, map[string]string{"status": "updated"})
}

// DeleteDeck removes a deck
func (h *Handler) DeleteDeck(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")

	if err := h.decks.Delete(r.Context(), deckID); err != nil {
		h.writeEngineError(w, err, "failed to delete deck")
		return
	}

	h.writeSuccess(w, map[string]string{"status": "deleted"})
}

// TouchLastOpened stamps a deck with the time it was opened
func (h *Handler) TouchLastOpened(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")

	if err := h.decks.TouchLastOpened(r.Context(), deckID); err != nil {
		h.writeEngineError(w, err, "failed to update deck lastOpened")
		return
	}

	h.writeSuccess(w, map[string]string{"status": "updated"})
}
