package application

import (
	"context"
	"encoding/json"

	"github.com/draftea/saga-coordinator/shared/saga"
	"github.com/pkg/errors"
)

// OrderSagaDefinitionName identifies the order placement saga
const OrderSagaDefinitionName = "order"

// Participant service names resolved through service discovery
const (
	InventoryServiceName = "inventory-service"
	PaymentsServiceName  = "payments-service"
	OrdersServiceName    = "orders-service"
)

// RemoteCaller invokes an operation on a remote participant service
type RemoteCaller interface {
	Call(ctx context.Context, serviceName, operation string, payload []byte) ([]byte, error)
}

// NewOrderSagaDefinition builds the order placement saga. Forward steps
// reserve inventory, charge the payment and create the order record. Each
// compensation undoes its step using identifiers the step wrote into the
// saga data, so re-running a compensation is safe on the participant side.
func NewOrderSagaDefinition(caller RemoteCaller) (*saga.Definition, error) {
	return saga.NewDefinition(
		OrderSagaDefinitionName,
		newReserveInventoryStep(caller),
		newProcessPaymentStep(caller),
		newCreateOrderStep(caller),
	)
}

type reserveInventoryRequest struct {
	OrderID string      `json:"order_id"`
	Items   interface{} `json:"items,omitempty"`
}

type reserveInventoryResponse struct {
	ReservationID string `json:"reservation_id"`
}

func newReserveInventoryStep(caller RemoteCaller) saga.Step {
	return saga.NewStep(
		"reserve_inventory",
		func(ctx context.Context, data saga.Data) (saga.Data, error) {
			orderID, ok := data.GetString("order_id")
			if !ok {
				return nil, errors.New("order_id is missing from saga data")
			}

			req := reserveInventoryRequest{OrderID: orderID, Items: data["items"]}

			payload, err := json.Marshal(req)
			if err != nil {
				return nil, errors.Wrap(err, "failed to marshal reserve inventory request")
			}

			body, err := caller.Call(ctx, InventoryServiceName, "inventory/reserve", payload)
			if err != nil {
				return nil, errors.Wrap(err, "failed to reserve inventory")
			}

			var resp reserveInventoryResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, errors.Wrap(err, "failed to unmarshal reserve inventory response")
			}

			return saga.Data{"reservation_id": resp.ReservationID}, nil
		},
		func(ctx context.Context, data saga.Data) error {
			reservationID, ok := data.GetString("reservation_id")
			if !ok {
				return errors.New("reservation_id is missing from saga data")
			}

			payload, err := json.Marshal(map[string]string{"reservation_id": reservationID})
			if err != nil {
				return errors.Wrap(err, "failed to marshal release inventory request")
			}

			if _, err := caller.Call(ctx, InventoryServiceName, "inventory/release", payload); err != nil {
				return errors.Wrap(err, "failed to release inventory")
			}
			return nil
		},
	)
}

type processPaymentRequest struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
	Amount  int64  `json:"amount"`
}

type processPaymentResponse struct {
	PaymentID string `json:"payment_id"`
}

func newProcessPaymentStep(caller RemoteCaller) saga.Step {
	return saga.NewStep(
		"process_payment",
		func(ctx context.Context, data saga.Data) (saga.Data, error) {
			orderID, ok := data.GetString("order_id")
			if !ok {
				return nil, errors.New("order_id is missing from saga data")
			}
			userID, _ := data.GetString("user_id")

			req := processPaymentRequest{OrderID: orderID, UserID: userID}
			if amount, ok := data["amount"].(float64); ok {
				req.Amount = int64(amount)
			}

			payload, err := json.Marshal(req)
			if err != nil {
				return nil, errors.Wrap(err, "failed to marshal process payment request")
			}

			body, err := caller.Call(ctx, PaymentsServiceName, "payments/charge", payload)
			if err != nil {
				return nil, errors.Wrap(err, "failed to process payment")
			}

			var resp processPaymentResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, errors.Wrap(err, "failed to unmarshal process payment response")
			}

			return saga.Data{"payment_id": resp.PaymentID}, nil
		},
		func(ctx context.Context, data saga.Data) error {
			paymentID, ok := data.GetString("payment_id")
			if !ok {
				return errors.New("payment_id is missing from saga data")
			}

			payload, err := json.Marshal(map[string]string{"payment_id": paymentID})
			if err != nil {
				return errors.Wrap(err, "failed to marshal refund payment request")
			}

			if _, err := caller.Call(ctx, PaymentsServiceName, "payments/refund", payload); err != nil {
				return errors.Wrap(err, "failed to refund payment")
			}
			return nil
		},
	)
}

type createOrderRequest struct {
	OrderID       string `json:"order_id"`
	UserID        string `json:"user_id"`
	ReservationID string `json:"reservation_id"`
	PaymentID     string `json:"payment_id"`
}

func newCreateOrderStep(caller RemoteCaller) saga.Step {
	return saga.NewStep(
		"create_order",
		func(ctx context.Context, data saga.Data) (saga.Data, error) {
			orderID, ok := data.GetString("order_id")
			if !ok {
				return nil, errors.New("order_id is missing from saga data")
			}
			userID, _ := data.GetString("user_id")
			reservationID, _ := data.GetString("reservation_id")
			paymentID, _ := data.GetString("payment_id")

			req := createOrderRequest{
				OrderID:       orderID,
				UserID:        userID,
				ReservationID: reservationID,
				PaymentID:     paymentID,
			}

			payload, err := json.Marshal(req)
			if err != nil {
				return nil, errors.Wrap(err, "failed to marshal create order request")
			}

			if _, err := caller.Call(ctx, OrdersServiceName, "orders/create", payload); err != nil {
				return nil, errors.Wrap(err, "failed to create order")
			}

			return nil, nil
		},
		func(ctx context.Context, data saga.Data) error {
			orderID, ok := data.GetString("order_id")
			if !ok {
				return errors.New("order_id is missing from saga data")
			}

			payload, err := json.Marshal(map[string]string{"order_id": orderID})
			if err != nil {
				return errors.Wrap(err, "failed to marshal cancel order request")
			}

			if _, err := caller.Call(ctx, OrdersServiceName, "orders/cancel", payload); err != nil {
				return errors.Wrap(err, "failed to cancel order")
			}
			return nil
		},
	)
}
