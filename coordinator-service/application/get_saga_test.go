package application

import (
	"context"
	"testing"
	"time"

	"github.com/draftea/saga-coordinator/coordinator-service/mocks"
	"github.com/draftea/saga-coordinator/shared/models"
	"github.com/draftea/saga-coordinator/shared/saga"
	"github.com/stretchr/testify/assert"
)

func TestGetSaga_Execute(t *testing.T) {
	validSagaID := "550e8400-e29b-41d4-a716-446655440001"
	testTime := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	completedSnapshot := &saga.Snapshot{
		ID:             models.ID(validSagaID),
		DefinitionName: "order",
		Status:         saga.StatusCompleted,
		Data:           saga.Data{"order_id": "order-123", "payment_id": "pay-456"},
		CompletedSteps: []string{"reserve_inventory", "process_payment", "create_order"},
		Timestamps: models.Timestamps{
			CreatedAt: testTime,
			UpdatedAt: testTime.Add(2 * time.Second),
		},
	}

	tests := []struct {
		name           string
		query          *GetSagaQuery
		setupMocks     func(*mocks.MockCoordinator)
		expectedError  string
		expectedResult *GetSagaResponse
	}{
		{
			name: "successful saga retrieval",
			query: &GetSagaQuery{
				SagaID: validSagaID,
			},
			setupMocks: func(coordinator *mocks.MockCoordinator) {
				coordinator.EXPECT().GetSaga(models.ID(validSagaID)).
					Return(completedSnapshot, nil).Once()
			},
			expectedError: "",
			expectedResult: &GetSagaResponse{
				SagaID:         validSagaID,
				Definition:     "order",
				Status:         "completed",
				Data:           saga.Data{"order_id": "order-123", "payment_id": "pay-456"},
				CompletedSteps: []string{"reserve_inventory", "process_payment", "create_order"},
				CreatedAt:      testTime.Format("2006-01-02T15:04:05Z07:00"),
				UpdatedAt:      testTime.Add(2 * time.Second).Format("2006-01-02T15:04:05Z07:00"),
			},
		},
		{
			name: "failed saga exposes failed step and error",
			query: &GetSagaQuery{
				SagaID: validSagaID,
			},
			setupMocks: func(coordinator *mocks.MockCoordinator) {
				failedSnapshot := &saga.Snapshot{
					ID:             models.ID(validSagaID),
					DefinitionName: "order",
					Status:         saga.StatusFailed,
					Data:           saga.Data{"order_id": "order-123"},
					CompletedSteps: []string{"reserve_inventory"},
					FailedStep:     "process_payment",
					Error:          "step process_payment failed: card declined",
					Timestamps: models.Timestamps{
						CreatedAt: testTime,
						UpdatedAt: testTime.Add(time.Second),
					},
				}
				coordinator.EXPECT().GetSaga(models.ID(validSagaID)).
					Return(failedSnapshot, nil).Once()
			},
			expectedError: "",
			expectedResult: &GetSagaResponse{
				SagaID:         validSagaID,
				Definition:     "order",
				Status:         "failed",
				Data:           saga.Data{"order_id": "order-123"},
				CompletedSteps: []string{"reserve_inventory"},
				FailedStep:     "process_payment",
				Error:          "step process_payment failed: card declined",
				CreatedAt:      testTime.Format("2006-01-02T15:04:05Z07:00"),
				UpdatedAt:      testTime.Add(time.Second).Format("2006-01-02T15:04:05Z07:00"),
			},
		},
		{
			name: "empty saga ID",
			query: &GetSagaQuery{
				SagaID: "",
			},
			setupMocks: func(coordinator *mocks.MockCoordinator) {
				// No expectations - should fail validation
			},
			expectedError:  "saga ID is required",
			expectedResult: nil,
		},
		{
			name: "invalid saga ID format",
			query: &GetSagaQuery{
				SagaID: "not-a-uuid",
			},
			setupMocks: func(coordinator *mocks.MockCoordinator) {
				// No expectations - should fail validation
			},
			expectedError:  "invalid saga ID",
			expectedResult: nil,
		},
		{
			name: "saga not found",
			query: &GetSagaQuery{
				SagaID: validSagaID,
			},
			setupMocks: func(coordinator *mocks.MockCoordinator) {
				coordinator.EXPECT().GetSaga(models.ID(validSagaID)).
					Return(nil, saga.ErrInstanceNotFound).Once()
			},
			expectedError:  saga.ErrInstanceNotFound.Error(),
			expectedResult: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCoordinator := mocks.NewMockCoordinator(t)
			tt.setupMocks(mockCoordinator)

			useCase := NewGetSaga(mockCoordinator)

			result, err := useCase.Execute(context.Background(), tt.query)

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.Nil(t, result)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedResult, result)
			}
		})
	}
}

func TestCancelSaga_Execute(t *testing.T) {
	validSagaID := "550e8400-e29b-41d4-a716-446655440001"

	t.Run("successful cancellation", func(t *testing.T) {
		mockCoordinator := mocks.NewMockCoordinator(t)
		mockCoordinator.EXPECT().CancelSaga(models.ID(validSagaID)).Return(nil).Once()

		useCase := NewCancelSaga(mockCoordinator)

		err := useCase.Execute(context.Background(), &CancelSagaCommand{SagaID: validSagaID})
		assert.NoError(t, err)
	})

	t.Run("empty saga ID", func(t *testing.T) {
		mockCoordinator := mocks.NewMockCoordinator(t)

		useCase := NewCancelSaga(mockCoordinator)

		err := useCase.Execute(context.Background(), &CancelSagaCommand{SagaID: ""})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "saga ID is required")
	})

	t.Run("saga not found", func(t *testing.T) {
		mockCoordinator := mocks.NewMockCoordinator(t)
		mockCoordinator.EXPECT().CancelSaga(models.ID(validSagaID)).
			Return(saga.ErrInstanceNotFound).Once()

		useCase := NewCancelSaga(mockCoordinator)

		err := useCase.Execute(context.Background(), &CancelSagaCommand{SagaID: validSagaID})
		assert.ErrorIs(t, err, saga.ErrInstanceNotFound)
	})
}
