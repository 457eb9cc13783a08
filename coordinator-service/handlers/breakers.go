package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/draftea/saga-coordinator/shared/resilience"
	"github.com/go-chi/chi/v5"
)

// BreakerHandlers exposes circuit breaker state for operators
type BreakerHandlers struct {
	registry *resilience.Registry
}

// NewBreakerHandlers creates new breaker handlers
func NewBreakerHandlers(registry *resilience.Registry) *BreakerHandlers {
	return &BreakerHandlers{registry: registry}
}

// breakerStateResponse is the per-breaker view returned to operators
type breakerStateResponse struct {
	State        string `json:"state"`
	FailureCount int    `json:"failure_count"`
	SuccessCount int    `json:"success_count"`
	RequestCount int    `json:"request_count"`
	ErrorCount   int    `json:"error_count"`
}

// ListBreakers returns the current state of every known circuit breaker
func (h *BreakerHandlers) ListBreakers(w http.ResponseWriter, r *http.Request) {
	states := h.registry.States()

	response := make(map[string]breakerStateResponse, len(states))
	for name, stats := range states {
		response[name] = breakerStateResponse{
			State:        stats.State.String(),
			FailureCount: stats.FailureCount,
			SuccessCount: stats.SuccessCount,
			RequestCount: stats.RequestCount,
			ErrorCount:   stats.ErrorCount,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// RegisterRoutes registers breaker routes
func (h *BreakerHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/circuit-breakers", h.ListBreakers)
}
