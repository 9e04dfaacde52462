package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"docflow/internal/api"
	"docflow/internal/config"
	"docflow/internal/conflict"
	"docflow/internal/importqueue"
	"docflow/internal/logging"
	"docflow/internal/services"
)

const maxRequestBody = 64 << 10

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	handler http.Handler

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", srv.handleStatus)
	mux.HandleFunc("GET /api/health/db", srv.handleDatabaseHealth)
	mux.HandleFunc("GET /api/queue", srv.handleQueue)
	mux.HandleFunc("POST /api/queue/pause", srv.handleQueuePause)
	mux.HandleFunc("POST /api/queue/resume", srv.handleQueueResume)
	mux.HandleFunc("POST /api/queue/clear", srv.handleQueueClear)
	mux.HandleFunc("POST /api/queue/add", srv.handleQueueAdd)
	mux.HandleFunc("GET /api/imports", srv.handleImports)
	mux.HandleFunc("GET /api/conflicts", srv.handleConflicts)
	mux.HandleFunc("GET /api/conflicts/count", srv.handleConflictCount)
	mux.HandleFunc("GET /api/conflicts/{id}", srv.handleConflict)
	mux.HandleFunc("POST /api/conflicts/{id}/resolve", srv.handleConflictResolve)

	srv.handler = requestIDMiddleware(authMiddleware(cfg.Paths.APIToken, mux))
	srv.server = &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	server := s.server

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
		// A shut-down server cannot Serve again; prepare a fresh one for restart.
		s.server = &http.Server{
			Handler:           s.handler,
			ReadHeaderTimeout: s.server.ReadHeaderTimeout,
			ReadTimeout:       s.server.ReadTimeout,
			WriteTimeout:      s.server.WriteTimeout,
			IdleTimeout:       s.server.IdleTimeout,
		}
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound address, or "" when the API is disabled or stopped.
func (s *apiServer) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.daemon.DaemonStatus(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *apiServer) handleDatabaseHealth(w http.ResponseWriter, r *http.Request) {
	health, err := s.daemon.DatabaseHealth(r.Context())
	if err != nil && health.Error == "" {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, health)
}

type queueResponse struct {
	Stats    api.QueueStats    `json:"stats"`
	Snapshot api.QueueSnapshot `json:"snapshot"`
}

func (s *apiServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	stats, err := s.daemon.QueueStats()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	snap, err := s.daemon.QueueSnapshot()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, queueResponse{Stats: stats, Snapshot: snap})
}

func (s *apiServer) handleQueuePause(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.PauseQueue(); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

func (s *apiServer) handleQueueResume(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.ResumeQueue(); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

func (s *apiServer) handleQueueClear(w http.ResponseWriter, r *http.Request) {
	removed, err := s.daemon.ClearQueue()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

type addFileRequest struct {
	Path string `json:"path"`
}

func (s *apiServer) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
	var req addFileRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	result, err := s.daemon.AddFile(r.Context(), req.Path)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	status := http.StatusAccepted
	if !result.Queued {
		status = http.StatusOK
	}
	s.writeJSON(w, status, result)
}

func (s *apiServer) handleImports(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := optionalInt(query.Get("limit"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	items, err := s.daemon.Review().ListImports(r.Context(), api.ImportQuery{
		Status:   query.Get("status"),
		FileType: query.Get("type"),
		Filepath: query.Get("path"),
		Limit:    limit,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ImportListResponse{Items: items})
}

func (s *apiServer) handleConflicts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	userID, err := optionalUserID(query.Get("user"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	limit, err := optionalInt(query.Get("limit"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	items, err := s.daemon.Review().ListConflicts(r.Context(), api.ConflictQuery{
		UserID: userID,
		Filter: query.Get("filter"),
		Limit:  limit,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ConflictListResponse{Items: items})
}

func (s *apiServer) handleConflictCount(w http.ResponseWriter, r *http.Request) {
	userID, err := optionalUserID(r.URL.Query().Get("user"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	count, err := s.daemon.Review().CountConflicts(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, count)
}

func (s *apiServer) handleConflict(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid conflict id")
		return
	}
	item, err := s.daemon.Review().DescribeConflict(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ConflictResponse{Item: *item})
}

type resolveBody struct {
	Status     string `json:"status"`
	Resolution string `json:"resolution"`
	UserID     int64  `json:"userId"`
}

func (s *apiServer) handleConflictResolve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid conflict id")
		return
	}
	var body resolveBody
	if !s.decodeBody(w, r, &body) {
		return
	}
	result, err := s.daemon.Review().ResolveConflicts(r.Context(), api.ResolveConflictRequest{
		IDs:        []int64{id},
		Status:     body.Status,
		Resolution: body.Resolution,
		UserID:     body.UserID,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	switch result.Items[0].Outcome {
	case api.ResolveNotFound:
		s.writeError(w, http.StatusNotFound, "conflict not found")
	case api.ResolveAlreadyResolved:
		s.writeError(w, http.StatusConflict, "conflict already resolved")
	default:
		item, err := s.daemon.Review().DescribeConflict(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.ConflictResponse{Item: *item})
	}
}

func (s *apiServer) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func optionalInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, errors.New("invalid integer")
	}
	return value, nil
}

func optionalUserID(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return nil, errors.New("invalid user id")
	}
	return &value, nil
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, conflict.ErrNotFound), errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, conflict.ErrAlreadyResolved), errors.Is(err, services.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, importqueue.ErrNotRunning):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_request_failed",
			logging.String("method", r.Method),
			logging.String("route", r.URL.Path),
			logging.Error(err),
		)
	}
	s.writeError(w, status, err.Error())
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
