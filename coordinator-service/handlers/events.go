package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/draftea/saga-coordinator/coordinator-service/application"
	"github.com/draftea/saga-coordinator/shared/events"
	"github.com/draftea/saga-coordinator/shared/saga"
	"github.com/pkg/errors"
)

// SagaEventHandlers handles saga-related events arriving over the queue
type SagaEventHandlers struct {
	startSaga  *application.StartSaga
	cancelSaga *application.CancelSaga
}

// NewSagaEventHandlers creates new saga event handlers
func NewSagaEventHandlers(
	startSaga *application.StartSaga,
	cancelSaga *application.CancelSaga,
) *SagaEventHandlers {
	return &SagaEventHandlers{
		startSaga:  startSaga,
		cancelSaga: cancelSaga,
	}
}

// Handle implements the events.EventHandler interface
func (h *SagaEventHandlers) Handle(ctx context.Context, event *events.Event) error {
	switch event.EventType {
	case events.SagaStartRequestedEvent:
		return h.HandleSagaStartRequested(ctx, event)
	case events.SagaCancelRequestedEvent:
		return h.HandleSagaCancelRequested(ctx, event)
	default:
		// Unknown event type, ignore
		return nil
	}
}

// HandlerID returns the unique identifier for this event handler
func (h *SagaEventHandlers) HandlerID() string {
	return "saga-coordinator-event-handler"
}

// SagaStartRequestedData is the payload of a saga start request event
type SagaStartRequestedData struct {
	Definition string    `json:"definition"`
	Data       saga.Data `json:"data"`
}

// SagaCancelRequestedData is the payload of a saga cancel request event
type SagaCancelRequestedData struct {
	SagaID string `json:"saga_id"`
}

// HandleSagaStartRequested starts a saga in response to a start request event
func (h *SagaEventHandlers) HandleSagaStartRequested(ctx context.Context, event *events.Event) error {
	var data SagaStartRequestedData
	if err := h.parseEventData(event, &data); err != nil {
		return errors.Wrap(err, "failed to parse saga start request data")
	}

	cmd := &application.StartSagaCommand{
		DefinitionName: data.Definition,
		Data:           data.Data,
	}

	response, err := h.startSaga.Execute(ctx, cmd)
	if err != nil {
		if errors.Is(err, saga.ErrUnknownDefinition) {
			fmt.Printf("Ignoring start request for unknown definition %s\n", data.Definition)
			return nil
		}
		return errors.Wrap(err, "failed to start saga from event")
	}

	fmt.Printf("Started saga %s for definition %s\n", response.SagaID, data.Definition)
	return nil
}

// HandleSagaCancelRequested cancels a running saga in response to a cancel request event
func (h *SagaEventHandlers) HandleSagaCancelRequested(ctx context.Context, event *events.Event) error {
	var data SagaCancelRequestedData
	if err := h.parseEventData(event, &data); err != nil {
		return errors.Wrap(err, "failed to parse saga cancel request data")
	}

	cmd := &application.CancelSagaCommand{
		SagaID: data.SagaID,
	}

	if err := h.cancelSaga.Execute(ctx, cmd); err != nil {
		if errors.Is(err, saga.ErrInstanceNotFound) {
			fmt.Printf("Ignoring cancel request for unknown saga %s\n", data.SagaID)
			return nil
		}
		return errors.Wrap(err, "failed to cancel saga from event")
	}

	return nil
}

// parseEventData parses event data into the specified struct
func (h *SagaEventHandlers) parseEventData(event *events.Event, target interface{}) error {
	jsonData, err := json.Marshal(event.Data)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event data")
	}

	if err := json.Unmarshal(jsonData, target); err != nil {
		return errors.Wrap(err, "failed to unmarshal event data")
	}

	return nil
}
