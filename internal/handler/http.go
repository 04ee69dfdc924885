package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tetris-scores/internal/domain"
	"github.com/tetris-scores/internal/service"
	"github.com/tetris-scores/internal/websocket"
)

// Handler provides HTTP handlers for the score API
type Handler struct {
	service *service.ScoreService
	hub     *websocket.Hub
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(service *service.ScoreService, hub *websocket.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		logger:  logger,
	}
}

// APIResponse represents a standard API response for read endpoints
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// submitAccepted is the created-response body for stored scores.
type submitAccepted struct {
	OK            bool    `json:"ok"`
	ID            int64   `json:"id"`
	Message       string  `json:"message"`
	ExpectedScore float64 `json:"expectedScore"`
}

// submitRejected is the client-error body for validation failures.
type submitRejected struct {
	Error         string   `json:"error"`
	Reason        string   `json:"reason,omitempty"`
	ExpectedScore *float64 `json:"expectedScore,omitempty"`
}

// patternRejected is the client-error body for suspicious-pattern rejections.
type patternRejected struct {
	Error   string   `json:"error"`
	Reasons []string `json:"reasons"`
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
		// Game session seeds
		r.Get("/seed", h.IssueSeed)

		// Score operations
		r.Route("/scores", func(r chi.Router) {
			r.Post("/", h.SubmitScore)
			r.Post("/validate", h.ValidateScore)
			r.Get("/top", h.GetTopScores)
			r.Get("/player/{name}", h.GetPlayerScores)
			r.Get("/player/{name}/rank", h.GetPlayerRank)
			r.Get("/{scoreID}", h.GetScore)
			r.Delete("/{scoreID}", h.DeleteScore)
		})

		// Service statistics
		r.Get("/stats", h.GetStats)

		// WebSocket info endpoint
		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
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

// clientIP extracts the caller address, dropping the port when present.
// middleware.RealIP has already resolved forwarded headers by this point.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
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

// IssueSeed hands out a fresh game session seed
func (h *Handler) IssueSeed(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.IssueSeed())
}

// ValidateScore runs the validator without persisting anything and returns
// the validation result verbatim.
func (h *Handler) ValidateScore(w http.ResponseWriter, r *http.Request) {
	var sub domain.ScoreSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, h.service.ValidateOnly(sub))
}

// SubmitScore handles score submission
func (h *Handler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	var sub domain.ScoreSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		h.writeJSON(w, http.StatusBadRequest, submitRejected{
			Error:  "Score validation failed",
			Reason: "Invalid request body",
		})
		return
	}

	meta := domain.RequestMeta{
		ClientIP:  clientIP(r),
		UserAgent: r.UserAgent(),
	}

	rec, expected, err := h.service.Submit(r.Context(), sub, meta)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			h.writeJSON(w, http.StatusBadRequest, submitRejected{
				Error:         "Score validation failed",
				Reason:        verr.Result.Reason,
				ExpectedScore: verr.Result.ExpectedScore,
			})
			return
		}

		var perr *domain.SuspiciousPatternError
		if errors.As(err, &perr) {
			h.writeJSON(w, http.StatusForbidden, patternRejected{
				Error:   "Suspicious score pattern detected",
				Reasons: perr.Reasons,
			})
			return
		}

		h.logger.Error("failed to submit score", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeJSON(w, http.StatusCreated, submitAccepted{
		OK:            true,
		ID:            rec.ID,
		Message:       "Score submitted successfully",
		ExpectedScore: expected,
	})
}

// GetTopScores returns the high-score board
func (h *Handler) GetTopScores(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	entries, err := h.service.TopScores(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to get top scores", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, entries)
}

// GetPlayerScores returns a player's submission history, newest first
func (h *Handler) GetPlayerScores(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	records, err := h.service.PlayerScores(r.Context(), name, limit)
	if err != nil {
		h.logger.Error("failed to get player scores", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, records)
}

// GetPlayerRank returns a player's best score and current board rank
func (h *Handler) GetPlayerRank(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	entry, err := h.service.PlayerRank(r.Context(), name)
	if err != nil {
		if domain.IsNotFoundError(err) {
			h.writeError(w, http.StatusNotFound, err)
			return
		}
		h.logger.Error("failed to get player rank", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, entry)
}

// GetScore returns a single persisted score record
func (h *Handler) GetScore(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "scoreID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	rec, err := h.service.ScoreByID(r.Context(), id)
	if err != nil {
		if domain.IsNotFoundError(err) {
			h.writeError(w, http.StatusNotFound, err)
			return
		}
		h.logger.Error("failed to get score", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, rec)
}

// GetStats returns service-level counters
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to get stats", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, stats)
}

// DeleteScore removes a persisted score record
func (h *Handler) DeleteScore(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "scoreID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.service.DeleteScore(r.Context(), id); err != nil {
		if domain.IsNotFoundError(err) {
			h.writeError(w, http.StatusNotFound, err)
			return
		}
		h.logger.Error("failed to delete score", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, map[string]string{"status": "deleted"})
}
