package application

import (
	"context"

	"github.com/draftea/saga-coordinator/shared/models"
	"github.com/draftea/saga-coordinator/shared/saga"
	"github.com/pkg/errors"
)

// Coordinator is the orchestration surface the use cases depend on
type Coordinator interface {
	StartSaga(ctx context.Context, definitionName string, input saga.Data) (models.ID, error)
	GetSaga(id models.ID) (*saga.Snapshot, error)
	CancelSaga(id models.ID) error
}

// StartSagaCommand represents the command to start a saga
type StartSagaCommand struct {
	DefinitionName string    `json:"definition"`
	Data           saga.Data `json:"data"`
}

// StartSagaResponse represents the response for starting a saga
type StartSagaResponse struct {
	SagaID string `json:"saga_id"`
	Status string `json:"status"`
}

// StartSaga use case
type StartSaga struct {
	coordinator Coordinator
}

// NewStartSaga creates a new StartSaga use case
func NewStartSaga(coordinator Coordinator) *StartSaga {
	return &StartSaga{
		coordinator: coordinator,
	}
}

// Execute starts a saga instance and returns its identifier. The saga itself
// runs asynchronously after this returns.
func (uc *StartSaga) Execute(ctx context.Context, cmd *StartSagaCommand) (*StartSagaResponse, error) {
	if cmd.DefinitionName == "" {
		return nil, errors.New("definition name is required")
	}

	sagaID, err := uc.coordinator.StartSaga(ctx, cmd.DefinitionName, cmd.Data)
	if err != nil {
		if errors.Is(err, saga.ErrUnknownDefinition) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to start saga")
	}

	return &StartSagaResponse{
		SagaID: sagaID.String(),
		Status: string(saga.StatusRunning),
	}, nil
}
