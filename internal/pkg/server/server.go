// Package server exposes the bridge's host-facing surface over HTTP:
// switch reads and commands, a manual reconcile trigger, health endpoints
// and a websocket event feed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/anicoll/switchbridge/internal/pkg/bridge"
)

// bridgeService is what the HTTP layer needs from the bridge core.
type bridgeService interface {
	Ready() bool
	Snapshot() []bridge.SwitchStatus
	GetSwitch(index int) (bool, error)
	SetSwitch(ctx context.Context, index int, on bool) (bool, error)
	Reconcile(ctx context.Context) error
}

type Server struct {
	http   *http.Server
	logger *zap.Logger
}

func New(addr string, svc bridgeService, hub *Hub) *Server {
	h := &handlers{svc: svc, logger: zap.L()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware)

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Get("/switches", h.listSwitches)
	r.Get("/switches/{index}", h.getSwitch)
	r.Put("/switches/{index}", h.setSwitch)
	r.Post("/reconcile", h.reconcile)
	r.Get("/events", hub.ServeWS)

	return &Server{
		http: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		logger: zap.L(),
	}
}

func (s *Server) Start() error {
	s.logger.Info("admin server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type handlers struct {
	svc    bridgeService
	logger *zap.Logger
}

type switchStatePayload struct {
	On bool `json:"on"`
}

func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) readyz(w http.ResponseWriter, _ *http.Request) {
	if !h.svc.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *handlers) listSwitches(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Snapshot())
}

func (h *handlers) getSwitch(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	on, err := h.svc.GetSwitch(index)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, switchStatePayload{On: on})
}

func (h *handlers) setSwitch(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	var payload switchStatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed payload"})
		return
	}
	actual, err := h.svc.SetSwitch(r.Context(), index, payload.On)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("switch command accepted", zap.Int("index", index), zap.Bool("requested", payload.On), zap.Bool("actual", actual))
	writeJSON(w, http.StatusOK, switchStatePayload{On: actual})
}

func (h *handlers) reconcile(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reconcile(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reconciled"})
}

func (h *handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, bridge.ErrInvalidIndex):
		status = http.StatusNotFound
	case errors.Is(err, bridge.ErrNotReady):
		status = http.StatusServiceUnavailable
	case errors.Is(err, bridge.ErrCommunication):
		status = http.StatusBadGateway
	case errors.Is(err, bridge.ErrConfigUnavailable):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "index must be an integer"})
		return 0, false
	}
	return index, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
