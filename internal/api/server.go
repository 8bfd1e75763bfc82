package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"docflow/internal/logging"
	"docflow/internal/services"
)

const maxBodyBytes = 1 << 20

// HealthFunc reports whether the backing store is usable.
type HealthFunc func(ctx context.Context) error

// HandlerOption customizes NewHandler.
type HandlerOption func(*handler)

// WithToken requires "Authorization: Bearer <token>" on every /api route.
// An empty token disables authentication.
func WithToken(token string) HandlerOption {
	return func(h *handler) { h.token = strings.TrimSpace(token) }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *handler) {
		if logger != nil {
			h.logger = logging.NewComponentLogger(logger, "api")
		}
	}
}

// WithHealthCheck sets the probe used by GET /health.
func WithHealthCheck(fn HealthFunc) HandlerOption {
	return func(h *handler) { h.health = fn }
}

type handler struct {
	svc    *Service
	token  string
	logger *slog.Logger
	health HealthFunc
}

// NewHandler returns the HTTP API.
func NewHandler(svc *Service, opts ...HandlerOption) http.Handler {
	h := &handler{svc: svc, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)

	mux.HandleFunc("GET /api/projects", h.auth(h.handleListProjects))
	mux.HandleFunc("POST /api/projects", h.auth(h.handleCreateProject))
	mux.HandleFunc("GET /api/projects/{id}", h.auth(h.handleGetProject))
	mux.HandleFunc("PUT /api/projects/{id}", h.auth(h.handleUpdateProject))
	mux.HandleFunc("DELETE /api/projects/{id}", h.auth(h.handleDeleteProject))
	mux.HandleFunc("GET /api/projects/{id}/episodes", h.auth(h.handleListEpisodes))

	mux.HandleFunc("POST /api/episodes", h.auth(h.handleCreateEpisode))
	mux.HandleFunc("GET /api/episodes/{id}", h.auth(h.handleGetEpisode))
	mux.HandleFunc("PUT /api/episodes/{id}", h.auth(h.handleUpdateEpisode))
	mux.HandleFunc("DELETE /api/episodes/{id}", h.auth(h.handleDeleteEpisode))
	mux.HandleFunc("GET /api/episodes/{id}/workflow", h.auth(h.handleWorkflow))
	mux.HandleFunc("PUT /api/episodes/{id}/workflow/phase", h.auth(h.handleAdvance))
	mux.HandleFunc("GET /api/episodes/{id}/history", h.auth(h.handleHistory))

	mux.HandleFunc("GET /api/report", h.auth(h.handleReport))

	return h.withRequestID(mux)
}

// withRequestID tags each request with an id, honouring X-Request-ID when
// the client supplies one.
func (h *handler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := services.WithRequestID(r.Context(), id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		logging.WithContext(ctx, h.logger).Debug("request served",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", rec.status),
			logging.Duration("duration", time.Since(start)),
		)
	})
}

// auth validates bearer tokens. If no token is configured all requests pass
// through.
func (h *handler) auth(next http.HandlerFunc) http.HandlerFunc {
	if h.token == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		presented, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(h.token)) != 1 {
			h.writeJSON(w, r, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Kind: "unauthorized"})
			return
		}
		next(w, r)
	}
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Database: "ok"}
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Database = err.Error()
			h.writeJSON(w, r, http.StatusServiceUnavailable, resp)
			return
		}
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

func (h *handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.ListProjects(r.Context())
	h.respond(w, r, http.StatusOK, projects, err)
}

func (h *handler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	project, err := h.svc.CreateProject(r.Context(), req)
	h.respond(w, r, http.StatusCreated, project, err)
}

func (h *handler) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.svc.GetProject(r.Context(), r.PathValue("id"))
	h.respond(w, r, http.StatusOK, project, err)
}

func (h *handler) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var req UpdateProjectRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	project, err := h.svc.UpdateProject(r.Context(), r.PathValue("id"), req)
	h.respond(w, r, http.StatusOK, project, err)
}

func (h *handler) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteProject(r.Context(), r.PathValue("id"))
	h.respond(w, r, http.StatusNoContent, nil, err)
}

func (h *handler) handleListEpisodes(w http.ResponseWriter, r *http.Request) {
	episodes, err := h.svc.ListEpisodes(r.Context(), r.PathValue("id"))
	h.respond(w, r, http.StatusOK, episodes, err)
}

func (h *handler) handleCreateEpisode(w http.ResponseWriter, r *http.Request) {
	var req CreateEpisodeRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	detail, err := h.svc.CreateEpisode(r.Context(), req)
	h.respond(w, r, http.StatusCreated, detail, err)
}

func (h *handler) handleGetEpisode(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetEpisode(r.Context(), r.PathValue("id"))
	h.respond(w, r, http.StatusOK, detail, err)
}

func (h *handler) handleUpdateEpisode(w http.ResponseWriter, r *http.Request) {
	var req UpdateEpisodeRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	episode, err := h.svc.UpdateEpisode(r.Context(), r.PathValue("id"), req)
	h.respond(w, r, http.StatusOK, episode, err)
}

func (h *handler) handleDeleteEpisode(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteEpisode(r.Context(), r.PathValue("id"))
	h.respond(w, r, http.StatusNoContent, nil, err)
}

func (h *handler) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := h.svc.Workflow(r.Context(), r.PathValue("id"))
	h.respond(w, r, http.StatusOK, wf, err)
}

func (h *handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var req AdvanceRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	wf, err := h.svc.Advance(r.Context(), r.PathValue("id"), req)
	h.respond(w, r, http.StatusOK, wf, err)
}

func (h *handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.svc.History(r.Context(), r.PathValue("id"))
	h.respond(w, r, http.StatusOK, history, err)
}

func (h *handler) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Report(r.Context())
	h.respond(w, r, http.StatusOK, rep, err)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &RequestError{Message: "request body is required"}
		}
		return &RequestError{Message: fmt.Sprintf("invalid request body: %v", err)}
	}
	if dec.More() {
		return &RequestError{Message: "request body must contain a single JSON object"}
	}
	return nil
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch services.Classify(err) {
	case kindBadRequest:
		return http.StatusBadRequest
	case services.KindValidation, services.KindConflict:
		return http.StatusConflict
	case services.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) respond(w http.ResponseWriter, r *http.Request, status int, payload any, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	h.writeJSON(w, r, status, payload)
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	kind := services.Classify(err)
	message := err.Error()
	logger := logging.WithContext(r.Context(), h.logger)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
		message = "internal error"
	} else {
		logger.Debug("request rejected",
			logging.String("path", r.URL.Path),
			logging.String("kind", kind),
			logging.Error(err),
		)
	}
	requestID, _ := services.RequestIDFromContext(r.Context())
	h.writeJSON(w, r, status, ErrorResponse{Error: message, Kind: kind, RequestID: requestID})
}

func (h *handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.WithContext(r.Context(), h.logger).Error("failed to encode response", logging.Error(err))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
