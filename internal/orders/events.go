package orders

import (
	"encoding/json"
	"time"

	"github.com/ariefcatur/icebay-pos/internal/catalog"
	"github.com/google/uuid"
)

const (
	EventOrderCommitted = "OrderCommitted"
	EventOrderPaid      = "OrderPaid"
	EventStockAdjusted  = "StockAdjusted"
	EventStockLow       = "StockLow"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps payload in a v1 envelope correlated to id.
func NewEnvelope(eventType, producer, id, trace string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       trace,
		CorrelationID: id,
		Payload:       b,
	}, nil
}

type ItemQty struct {
	VarietyID string `json:"variety_id"`
	Qty       int    `json:"qty"`
}

// OrderPayload is carried by both OrderCommitted and OrderPaid.
type OrderPayload struct {
	OrderID       string        `json:"order_id"`
	Number        int64         `json:"number"`
	Status        Status        `json:"status"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
	Items         []ItemQty     `json:"items"`
	TotalCents    int64         `json:"total_cents"`
}

func NewOrderPayload(o Order) OrderPayload {
	items := make([]ItemQty, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemQty{VarietyID: it.VarietyID, Qty: it.Quantity})
	}
	return OrderPayload{
		OrderID:       o.ID,
		Number:        o.Number,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		Items:         items,
		TotalCents:    o.TotalCents,
	}
}

type StockAdjustedPayload struct {
	VarietyID string `json:"variety_id"`
	Expr      string `json:"expr"`
	Stock     int    `json:"stock"`
}

type StockLowPayload struct {
	VarietyID string           `json:"variety_id"`
	Name      string           `json:"name"`
	Category  catalog.Category `json:"category"`
	Stock     int              `json:"stock"`
	Threshold int              `json:"threshold"`
}
