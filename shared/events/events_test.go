package events

import (
	"testing"

	"github.com/draftea/saga-coordinator/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopic_Matches(t *testing.T) {
	tests := []struct {
		name    string
		topic   Topic
		pattern Topic
		matches bool
	}{
		{name: "exact match", topic: "saga.started", pattern: "saga.started", matches: true},
		{name: "exact mismatch", topic: "saga.started", pattern: "saga.completed", matches: false},
		{name: "single wildcard segment", topic: "saga.step.completed", pattern: "saga.*.completed", matches: true},
		{name: "wildcard segment mismatch", topic: "saga.step.failed", pattern: "saga.*.completed", matches: false},
		{name: "segment count mismatch", topic: "saga.started", pattern: "saga.step.completed", matches: false},
		{name: "match all", topic: "circuit.opened", pattern: "#", matches: true},
		{name: "prefix pattern", topic: "saga.step.compensated", pattern: "saga.#", matches: true},
		{name: "prefix pattern mismatch", topic: "circuit.opened", pattern: "saga.#", matches: false},
		{name: "suffix pattern", topic: "saga.step.completed", pattern: "#.completed", matches: true},
		{name: "contains pattern", topic: "saga.step.completed", pattern: "#step#", matches: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.matches, tt.topic.Matches(tt.pattern))
		})
	}
}

func TestNewTopic(t *testing.T) {
	topic, err := NewTopic("saga.started")
	require.NoError(t, err)
	assert.Equal(t, "saga.started", topic.String())

	_, err = NewTopic("")
	assert.ErrorIs(t, err, ErrInvalidTopic)
}

func TestNewEvent(t *testing.T) {
	aggregateID := models.GenerateUUID()

	event := NewEvent(aggregateID, SagaStartedEvent, map[string]string{"definition": "order"})

	assert.False(t, event.ID.IsZero())
	assert.Equal(t, aggregateID, event.AggregateID)
	assert.Equal(t, SagaStartedEvent, event.EventType)
	assert.Equal(t, Topic(SagaStartedEvent), event.Topic)
	assert.Equal(t, "1.0", event.Version)
	assert.NotNil(t, event.Metadata)
	assert.False(t, event.Timestamp.IsZero())
}

func TestEvent_JSONRoundTrip(t *testing.T) {
	event := NewEvent(models.GenerateUUID(), SagaCompletedEvent, map[string]interface{}{"saga_id": "abc"}).
		WithCorrelationID(models.GenerateUUID()).
		WithMetadata("source", "coordinator-service")

	data, err := event.ToJSON()
	require.NoError(t, err)

	decoded, err := FromJSON(data)
	require.NoError(t, err)

	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, event.EventType, decoded.EventType)
	assert.Equal(t, event.CorrelationID, decoded.CorrelationID)

	source, ok := decoded.Metadata.Get("source")
	assert.True(t, ok)
	assert.Equal(t, "coordinator-service", source)
}

func TestEvent_UnmarshalPayload(t *testing.T) {
	type payload struct {
		Definition string `json:"definition"`
	}

	event := NewEvent(models.GenerateUUID(), SagaStartedEvent, payload{Definition: "order"})

	// Simulate transport: the payload arrives as raw JSON
	raw, err := event.MarshalPayload()
	require.NoError(t, err)
	event.Data = raw

	var decoded payload
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, "order", decoded.Definition)
}

func TestEvent_MatchesTopicAndMetadata(t *testing.T) {
	event := NewEvent(models.GenerateUUID(), SagaStepCompletedEvent, nil).
		WithMetadata("definition", "order")

	assert.True(t, event.Matches("saga.#", Metadata{"definition": "order"}))
	assert.False(t, event.Matches("saga.#", Metadata{"definition": "refund"}))
	assert.False(t, event.Matches("circuit.#", Metadata{}))
}
