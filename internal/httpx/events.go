package httpx

import (
	"context"
	"log/slog"

	kafkax "github.com/ariefcatur/icebay-pos/internal/kafka"
	"github.com/ariefcatur/icebay-pos/internal/orders"
	"github.com/go-chi/chi/v5/middleware"
	kafkago "github.com/segmentio/kafka-go"
)

type Publisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

// events publishes envelopes after a write has committed. A nil Pub
// disables publishing.
type events struct {
	Pub     Publisher
	Service string
	Log     *slog.Logger
}

func (e events) emit(ctx context.Context, topic, eventType, id string, payload any) {
	if e.Pub == nil {
		return
	}
	env, err := orders.NewEnvelope(eventType, e.Service, id, middleware.GetReqID(ctx), payload)
	if err != nil {
		if e.Log != nil {
			e.Log.Error("build envelope", "event_type", eventType, "id", id, "err", err)
		}
		return
	}
	e.Pub.Publish(topic, orders.PartitionKey(id), kafkax.MustMarshal(env), kafkax.EventHeaders(eventType)...)
}

// orderCommitted announces a checkout; paid orders are announced twice so
// consumers of order.paid need not filter.
func (e events) orderCommitted(ctx context.Context, o orders.Order) {
	p := orders.NewOrderPayload(o)
	e.emit(ctx, orders.TopicOrderCommitted, orders.EventOrderCommitted, o.ID, p)
	if o.Status == orders.StatusPaid {
		e.emit(ctx, orders.TopicOrderPaid, orders.EventOrderPaid, o.ID, p)
	}
}
