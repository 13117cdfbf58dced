package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/protexis/ogx-gateway/internal/domain/queue"
	"github.com/protexis/ogx-gateway/internal/service"
)

// maxRequestBodySize is the maximum allowed request body size (1 MB).
const maxRequestBodySize = 1 << 20

// Handler serves the /api/v1 routes.
type Handler struct {
	submissions *service.SubmissionService
	stats       *service.StatsService
	metrics     *Metrics
}

// NewHandler creates the API handler.
func NewHandler(submissions *service.SubmissionService, stats *service.StatsService, metrics *Metrics) *Handler {
	return &Handler{
		submissions: submissions,
		stats:       stats,
		metrics:     metrics,
	}
}

// Routes registers the API routes on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/messages", h.handleSubmit)
	mux.HandleFunc("GET /api/v1/messages/{id}", h.handleStatus)
	mux.HandleFunc("GET /api/v1/dead-letters", h.handleDeadLetters)
	mux.HandleFunc("GET /api/v1/stats", h.handleStats)
}

// submitResponse is the body returned for an accepted submission.
type submitResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// errorResponse is the body returned for every API error.
type errorResponse struct {
	Error   string   `json:"error"`
	Stage   string   `json:"stage,omitempty"`
	Details []string `json:"details,omitempty"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	// Parameters like charset are fine; only the media type matters.
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer func() { _ = r.Body.Close() }()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large (max 1MB)")
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "Empty request body")
		return
	}

	res, err := h.submissions.Submit(r.Context(), service.SubmitRequest{
		Raw:         body,
		SubmittedBy: SubmitterFromContext(r.Context()),
	})
	if err != nil {
		var rej *service.RejectionError
		if errors.As(err, &rej) {
			h.metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
			h.metrics.RejectionsTotal.WithLabelValues(rej.Stage).Inc()
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
				Error:   "Message validation failed",
				Stage:   rej.Stage,
				Details: rej.Errors,
			})
			return
		}
		LoggerFromContext(r.Context()).Error("submission failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	if res.Duplicate {
		h.metrics.SubmissionsTotal.WithLabelValues("duplicate").Inc()
		writeJSON(w, http.StatusOK, submitResponse{
			ID:        res.ID,
			Status:    string(queue.StatusPending),
			Duplicate: true,
		})
		return
	}

	h.metrics.SubmissionsTotal.WithLabelValues("accepted").Inc()
	writeJSON(w, http.StatusAccepted, submitResponse{
		ID:     res.ID,
		Status: string(queue.StatusPending),
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.submissions.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Submission not found")
			return
		}
		LoggerFromContext(r.Context()).Error("status lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleDeadLetters(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	dead, err := h.submissions.DeadLetters(r.Context(), limit)
	if err != nil {
		LoggerFromContext(r.Context()).Error("dead-letter listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dead_letters": dead})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.Snapshot())
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response with the given status.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
