package application

import (
	"context"

	"github.com/draftea/saga-coordinator/shared/models"
	"github.com/draftea/saga-coordinator/shared/saga"
	"github.com/pkg/errors"
)

// GetSagaQuery represents the query to get a saga instance
type GetSagaQuery struct {
	SagaID string `json:"saga_id"`
}

// GetSagaResponse represents the response for getting a saga instance
type GetSagaResponse struct {
	SagaID         string    `json:"saga_id"`
	Definition     string    `json:"definition"`
	Status         string    `json:"status"`
	Data           saga.Data `json:"data"`
	CompletedSteps []string  `json:"completed_steps"`
	FailedStep     string    `json:"failed_step,omitempty"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      string    `json:"created_at"`
	UpdatedAt      string    `json:"updated_at"`
}

// GetSaga use case
type GetSaga struct {
	coordinator Coordinator
}

// NewGetSaga creates a new GetSaga use case
func NewGetSaga(coordinator Coordinator) *GetSaga {
	return &GetSaga{
		coordinator: coordinator,
	}
}

// Execute returns the current state of a saga instance
func (uc *GetSaga) Execute(_ context.Context, query *GetSagaQuery) (*GetSagaResponse, error) {
	if query.SagaID == "" {
		return nil, errors.New("saga ID is required")
	}

	sagaID, err := models.NewID(query.SagaID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid saga ID")
	}

	snapshot, err := uc.coordinator.GetSaga(sagaID)
	if err != nil {
		return nil, err
	}

	response := &GetSagaResponse{
		SagaID:         snapshot.ID.String(),
		Definition:     snapshot.DefinitionName,
		Status:         string(snapshot.Status),
		Data:           snapshot.Data,
		CompletedSteps: snapshot.CompletedSteps,
		FailedStep:     snapshot.FailedStep,
		Error:          snapshot.Error,
		CreatedAt:      snapshot.Timestamps.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:      snapshot.Timestamps.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}

	return response, nil
}
