package application

import (
	"context"

	"github.com/draftea/saga-coordinator/shared/models"
	"github.com/pkg/errors"
)

// CancelSagaCommand represents the command to cancel a running saga
type CancelSagaCommand struct {
	SagaID string `json:"saga_id"`
}

// CancelSaga use case
type CancelSaga struct {
	coordinator Coordinator
}

// NewCancelSaga creates a new CancelSaga use case
func NewCancelSaga(coordinator Coordinator) *CancelSaga {
	return &CancelSaga{
		coordinator: coordinator,
	}
}

// Execute requests cancellation of a running saga. The saga compensates its
// completed steps asynchronously.
func (uc *CancelSaga) Execute(_ context.Context, cmd *CancelSagaCommand) error {
	if cmd.SagaID == "" {
		return errors.New("saga ID is required")
	}

	sagaID, err := models.NewID(cmd.SagaID)
	if err != nil {
		return errors.Wrap(err, "invalid saga ID")
	}

	return uc.coordinator.CancelSaga(sagaID)
}
