package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/theirongolddev/ynabd/internal/history"
	"github.com/theirongolddev/ynabd/internal/state"
)

// SensorResponse is served at /v1/sensors/{key}.
type SensorResponse struct {
	Key     string          `json:"key"`
	Value   state.Value     `json:"value"`
	History []history.Point `json:"history,omitempty"`
}

// Handler returns the daemon's HTTP routes.
func (s *Service) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.metrics.middleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/v1/sensors", s.handleSensors).Methods(http.MethodGet)
	r.HandleFunc("/v1/sensors/{key}", s.handleSensor).Methods(http.MethodGet)
	r.HandleFunc("/v1/entities", s.handleEntities).Methods(http.MethodGet)
	r.HandleFunc("/v1/events", s.handleEvents).Methods(http.MethodGet)
	r.HandleFunc("/v1/stream", s.handleStream).Methods(http.MethodGet)
	r.HandleFunc("/v1/refresh", s.handleRefresh).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleSensors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Service) handleSensor(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	v, ok := s.store.Get(key)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no sensor %q", key))
		return
	}

	resp := SensorResponse{Key: key, Value: v}
	if raw := r.URL.Query().Get("history"); raw != "" && s.history != nil {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "history must be a non-negative integer")
			return
		}
		points, err := s.history.History(key, limit)
		if err != nil {
			log.Error().Err(err).Str("key", key).Msg("reading history")
			writeError(w, http.StatusInternalServerError, "reading history failed")
			return
		}
		resp.History = points
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleEntities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.platform.Entities())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.bus.Recent())
}

func (s *Service) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := s.refresher.ForceUpdate(ctx); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id, ch := s.bus.Subscribe(16)
	defer s.bus.Unsubscribe(id)

	// Send current sensors immediately.
	writeSSE(w, "snapshot", s.store.Snapshot())
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, ev.Topic, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", event)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}
