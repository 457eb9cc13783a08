package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/draftea/saga-coordinator/coordinator-service/application"
	"github.com/draftea/saga-coordinator/shared/saga"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

// SagaHandlers contains saga HTTP handlers
type SagaHandlers struct {
	startSaga  *application.StartSaga
	getSaga    *application.GetSaga
	cancelSaga *application.CancelSaga
}

// NewSagaHandlers creates new saga handlers
func NewSagaHandlers(
	startSaga *application.StartSaga,
	getSaga *application.GetSaga,
	cancelSaga *application.CancelSaga,
) *SagaHandlers {
	return &SagaHandlers{
		startSaga:  startSaga,
		getSaga:    getSaga,
		cancelSaga: cancelSaga,
	}
}

// StartSaga handles saga start requests. The saga runs asynchronously, so the
// handler replies 202 with the new saga ID.
func (h *SagaHandlers) StartSaga(w http.ResponseWriter, r *http.Request) {
	definition := chi.URLParam(r, "definition")
	if definition == "" {
		http.Error(w, "Definition name is required", http.StatusBadRequest)
		return
	}

	var data saga.Data
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	cmd := &application.StartSagaCommand{
		DefinitionName: definition,
		Data:           data,
	}

	response, err := h.startSaga.Execute(r.Context(), cmd)
	if err != nil {
		if errors.Is(err, saga.ErrUnknownDefinition) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(response)
}

// GetSaga handles saga status retrieval requests
func (h *SagaHandlers) GetSaga(w http.ResponseWriter, r *http.Request) {
	sagaID := chi.URLParam(r, "id")
	if sagaID == "" {
		http.Error(w, "Saga ID is required", http.StatusBadRequest)
		return
	}

	query := &application.GetSagaQuery{
		SagaID: sagaID,
	}

	response, err := h.getSaga.Execute(r.Context(), query)
	if err != nil {
		if errors.Is(err, saga.ErrInstanceNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// CancelSaga handles saga cancellation requests
func (h *SagaHandlers) CancelSaga(w http.ResponseWriter, r *http.Request) {
	sagaID := chi.URLParam(r, "id")
	if sagaID == "" {
		http.Error(w, "Saga ID is required", http.StatusBadRequest)
		return
	}

	cmd := &application.CancelSagaCommand{
		SagaID: sagaID,
	}

	if err := h.cancelSaga.Execute(r.Context(), cmd); err != nil {
		if errors.Is(err, saga.ErrInstanceNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// RegisterRoutes registers saga routes
func (h *SagaHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/sagas", func(r chi.Router) {
		r.Post("/{definition}", h.StartSaga)
		r.Get("/{id}", h.GetSaga)
		r.Delete("/{id}", h.CancelSaga)
	})
}
