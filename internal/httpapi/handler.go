// Package httpapi exposes the resolved session record and the manual wallet
// connect escape hatch over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/R3E-Network/session_layer/internal/metrics"
	"github.com/R3E-Network/session_layer/internal/session"
	"github.com/R3E-Network/session_layer/pkg/logger"
)

// handler bundles the HTTP endpoints.
type handler struct {
	manager *session.Manager
	log     *logger.Logger
}

// NewHandler returns the router exposing the session API.
func NewHandler(manager *session.Manager, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.New(logger.LoggingConfig{})
	}
	h := &handler{manager: manager, log: log}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Get("/healthz", h.health)
	r.Get("/session", h.session)
	r.Post("/session/wallet/connect", h.connectWallet)
	r.Handle("/metrics", metrics.Handler())
	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// session returns the current record plus the state machine position and the
// manual-connect sub-state.
func (h *handler) session(w http.ResponseWriter, r *http.Request) {
	rec := h.manager.Snapshot()
	connecting, connectErr := h.manager.ConnectState()

	resp := struct {
		session.Record
		State      session.State `json:"state"`
		Connecting bool          `json:"connecting"`
		ConnectErr string        `json:"connect_error,omitempty"`
	}{
		Record:     rec,
		State:      h.manager.CurrentState(),
		Connecting: connecting,
	}
	if connectErr != nil {
		resp.ConnectErr = connectErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) connectWallet(w http.ResponseWriter, r *http.Request) {
	addr, err := h.manager.ConnectWallet(r.Context())
	switch {
	case errors.Is(err, session.ErrConnectRateLimited):
		writeError(w, http.StatusTooManyRequests, err)
	case errors.Is(err, session.ErrConnectInProgress):
		writeError(w, http.StatusConflict, err)
	case err != nil:
		h.log.WithError(err).Warn("manual wallet connect failed")
		writeError(w, http.StatusBadGateway, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"address":   addr,
			"connected": addr != "",
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
