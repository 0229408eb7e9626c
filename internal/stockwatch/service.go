// Package stockwatch raises low-stock alerts from paid orders and manual
// stock adjustments.
package stockwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ariefcatur/icebay-pos/internal/catalog"
	kafkax "github.com/ariefcatur/icebay-pos/internal/kafka"
	"github.com/ariefcatur/icebay-pos/internal/orders"
	"github.com/ariefcatur/icebay-pos/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// Topics the service subscribes to.
var Topics = []string{orders.TopicOrderPaid, orders.TopicStockAdjusted}

type VarietyReader interface {
	Get(ctx context.Context, id string) (catalog.Variety, error)
}

type Publisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Varieties   VarietyReader
	Redis       *redis.Client
	Pub         Publisher
	ServiceName string
	Threshold   int
	Loc         *time.Location
	Now         func() time.Time
	Log         *slog.Logger
}

// touched lists the varieties whose stock an event may have lowered.
// ok is false for events this service does not handle.
func touched(env orders.Envelope) (ids []string, ok bool, err error) {
	switch env.EventType {
	case orders.EventOrderPaid:
		p, err := kafkax.UnwrapPayload[orders.OrderPayload](env.Payload)
		if err != nil {
			return nil, true, err
		}
		for _, it := range p.Items {
			ids = append(ids, it.VarietyID)
		}
		return ids, true, nil
	case orders.EventStockAdjusted:
		p, err := kafkax.UnwrapPayload[orders.StockAdjustedPayload](env.Payload)
		if err != nil {
			return nil, true, err
		}
		return []string{p.VarietyID}, true, nil
	}
	return nil, false, nil
}

// HandleMessage is installed as the consumer handler. A returned error
// leaves the offset uncommitted.
func (s *Service) HandleMessage(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// poison message; committing it is the only way past it
		s.Log.Warn("stockwatch: undecodable envelope", "topic", m.Topic, "offset", m.Offset, "err", err)
		return nil
	}
	ids, ok, err := touched(env)
	if !ok {
		return nil
	}
	if err != nil {
		s.Log.Warn("stockwatch: undecodable payload", "event_id", env.EventID, "event_type", env.EventType, "err", err)
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "stockwatch", env.EventID)
	seen, err := redisx.Exists(ctx, s.Redis, dkey)
	if err != nil {
		return fmt.Errorf("dedup lookup %s: %w", env.EventID, err)
	}
	if seen {
		return nil
	}

	for _, id := range ids {
		if err := s.check(ctx, id, env.TraceID); err != nil {
			return err
		}
	}
	return s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
}

func (s *Service) today() string {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	if s.Loc != nil {
		now = now.In(s.Loc)
	}
	return now.Format("2006-01-02")
}

// check alerts at most once per variety per day while its stock is below
// the threshold.
func (s *Service) check(ctx context.Context, varietyID, trace string) error {
	v, err := s.Varieties.Get(ctx, varietyID)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load variety %s: %w", varietyID, err)
	}
	if v.Stock >= s.Threshold {
		return nil
	}

	first, err := redisx.Once(ctx, s.Redis, fmt.Sprintf(redisx.KeyLowStockAlert, s.today(), v.ID), redisx.TTLLowStockAlert)
	if err != nil {
		return fmt.Errorf("alert marker %s: %w", v.ID, err)
	}
	if !first {
		return nil
	}

	env, err := orders.NewEnvelope(orders.EventStockLow, s.ServiceName, v.ID, trace, orders.StockLowPayload{
		VarietyID: v.ID,
		Name:      v.Name,
		Category:  v.Category,
		Stock:     v.Stock,
		Threshold: s.Threshold,
	})
	if err != nil {
		return err
	}
	s.Pub.Publish(orders.TopicStockLow, orders.PartitionKey(v.ID), kafkax.MustMarshal(env), kafkax.EventHeaders(orders.EventStockLow)...)
	s.Log.Info("low stock", "variety_id", v.ID, "name", v.Name, "stock", v.Stock, "threshold", s.Threshold)
	return nil
}
