package saga

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopStep(name string) Step {
	return NewStep(name,
		func(ctx context.Context, data Data) (Data, error) { return nil, nil },
		nil,
	)
}

func TestNewDefinition(t *testing.T) {
	tests := []struct {
		name          string
		defName       string
		steps         []Step
		expectedError string
	}{
		{
			name:    "valid definition",
			defName: "order",
			steps:   []Step{noopStep("reserve"), noopStep("charge")},
		},
		{
			name:          "empty name",
			defName:       "",
			steps:         []Step{noopStep("reserve")},
			expectedError: "definition name is required",
		},
		{
			name:          "no steps",
			defName:       "order",
			steps:         nil,
			expectedError: "at least one step",
		},
		{
			name:          "duplicate step names",
			defName:       "order",
			steps:         []Step{noopStep("reserve"), noopStep("reserve")},
			expectedError: "duplicate step name",
		},
		{
			name:          "empty step name",
			defName:       "order",
			steps:         []Step{noopStep("")},
			expectedError: "step name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := NewDefinition(tt.defName, tt.steps...)

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.Nil(t, def)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.defName, def.Name())
				assert.Len(t, def.Steps(), len(tt.steps))
			}
		})
	}
}

func TestDefinition_StepsReturnsCopy(t *testing.T) {
	def, err := NewDefinition("order", noopStep("reserve"), noopStep("charge"))
	require.NoError(t, err)

	steps := def.Steps()
	steps[0] = noopStep("tampered")

	assert.Equal(t, "reserve", def.Steps()[0].Name())
}

func TestData_Clone(t *testing.T) {
	original := Data{"order_id": "order-123", "amount": 5000}

	clone := original.Clone()
	clone["order_id"] = "mutated"

	assert.Equal(t, "order-123", original["order_id"])

	var nilData Data
	assert.NotNil(t, nilData.Clone())
}

func TestData_Merge(t *testing.T) {
	base := Data{"order_id": "order-123"}

	merged := base.Merge(Data{"payment_id": "pay-456", "order_id": "overridden"})

	assert.Equal(t, "overridden", merged["order_id"])
	assert.Equal(t, "pay-456", merged["payment_id"])

	assert.Equal(t, base, base.Merge(nil))
}

func TestData_GetString(t *testing.T) {
	data := Data{"order_id": "order-123", "amount": 5000}

	value, ok := data.GetString("order_id")
	assert.True(t, ok)
	assert.Equal(t, "order-123", value)

	_, ok = data.GetString("amount")
	assert.False(t, ok)

	_, ok = data.GetString("missing")
	assert.False(t, ok)
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusRunning.Terminal())
	assert.False(t, StatusCompensating.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCompensated.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestNewStep_NilCompensateIsNoop(t *testing.T) {
	step := NewStep("reserve",
		func(ctx context.Context, data Data) (Data, error) { return nil, nil },
		nil,
	)

	assert.NoError(t, step.Compensate(context.Background(), Data{}))
}
