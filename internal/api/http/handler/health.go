package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dtroode/coursemarket-auth/internal/model"
)

// Health reports readiness based on the backing store.
type Health struct {
	pinger  model.Pinger
	timeout time.Duration
}

func NewHealth(pinger model.Pinger, timeout time.Duration) *Health {
	return &Health{pinger: pinger, timeout: timeout}
}

func (h *Health) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.pinger.Ping(ctx); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
