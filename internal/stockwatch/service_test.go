package stockwatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/icebay-pos/internal/catalog"
	kafkax "github.com/ariefcatur/icebay-pos/internal/kafka"
	"github.com/ariefcatur/icebay-pos/internal/orders"
	"github.com/ariefcatur/icebay-pos/internal/redisx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

type varieties map[string]catalog.Variety

func (vs varieties) Get(_ context.Context, id string) (catalog.Variety, error) {
	v, ok := vs[id]
	if !ok {
		return catalog.Variety{}, catalog.ErrNotFound
	}
	return v, nil
}

type capture struct {
	mu   sync.Mutex
	msgs []kafkago.Message
}

func (c *capture) Publish(topic string, key, value []byte, headers ...kafkago.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, kafkago.Message{Topic: topic, Key: key, Value: value, Headers: headers})
}

func (c *capture) lowStock(t *testing.T) []orders.StockLowPayload {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []orders.StockLowPayload
	for _, m := range c.msgs {
		require.Equal(t, orders.TopicStockLow, m.Topic)
		var env orders.Envelope
		require.NoError(t, json.Unmarshal(m.Value, &env))
		p, err := kafkax.UnwrapPayload[orders.StockLowPayload](env.Payload)
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func newService(rdb *redis.Client, vs varieties, pub *capture) *Service {
	day := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	return &Service{
		Varieties:   vs,
		Redis:       rdb,
		Pub:         pub,
		ServiceName: "stockwatch-test",
		Threshold:   5,
		Loc:         time.UTC,
		Now:         func() time.Time { return day },
		Log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func message(t *testing.T, eventType, id string, payload any) kafkago.Message {
	t.Helper()
	env, err := orders.NewEnvelope(eventType, "api", id, "", payload)
	require.NoError(t, err)
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func paidOrder(t *testing.T, ids ...string) kafkago.Message {
	p := orders.OrderPayload{OrderID: uuid.NewString(), Status: orders.StatusPaid}
	for _, id := range ids {
		p.Items = append(p.Items, orders.ItemQty{VarietyID: id, Qty: 1})
	}
	return message(t, orders.EventOrderPaid, p.OrderID, p)
}

func TestHandle_IgnoresOtherEvents(t *testing.T) {
	pub := &capture{}
	s := newService(nil, varieties{}, pub)

	err := s.HandleMessage(context.Background(), message(t, orders.EventOrderCommitted, "o-1", orders.OrderPayload{}))
	assert.NoError(t, err)

	err = s.HandleMessage(context.Background(), kafkago.Message{Value: []byte("not json")})
	assert.NoError(t, err, "poison messages are skipped")
	assert.Empty(t, pub.msgs)
}

func TestHandle_AlertsOncePerVarietyPerDay(t *testing.T) {
	rdb := getRedisClient(t)
	a := "low-" + uuid.NewString()
	b := "ok-" + uuid.NewString()
	vs := varieties{
		a: {ID: a, Name: "Litchi", Category: catalog.CategoryWaterBase, Stock: 2},
		b: {ID: b, Name: "Mango", Category: catalog.CategoryMilkBase, Stock: 40},
	}
	pub := &capture{}
	s := newService(rdb, vs, pub)
	ctx := context.Background()

	require.NoError(t, s.HandleMessage(ctx, paidOrder(t, a, b)))
	require.NoError(t, s.HandleMessage(ctx, paidOrder(t, a)))
	require.NoError(t, s.HandleMessage(ctx, message(t, orders.EventStockAdjusted, a,
		orders.StockAdjustedPayload{VarietyID: a, Expr: "-1", Stock: 1})))

	alerts := pub.lowStock(t)
	require.Len(t, alerts, 1)
	assert.Equal(t, a, alerts[0].VarietyID)
	assert.Equal(t, 2, alerts[0].Stock)
	assert.Equal(t, 5, alerts[0].Threshold)

	s.Now = func() time.Time { return time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC) }
	require.NoError(t, s.HandleMessage(ctx, paidOrder(t, a)))
	assert.Len(t, pub.lowStock(t), 2, "a new day alerts again")
}

func TestHandle_DedupsRedeliveredEvents(t *testing.T) {
	rdb := getRedisClient(t)
	a := "low-" + uuid.NewString()
	vs := varieties{a: {ID: a, Name: "Litchi", Category: catalog.CategoryWaterBase, Stock: 0}}
	pub := &capture{}
	s := newService(rdb, vs, pub)
	ctx := context.Background()

	m := paidOrder(t, a)
	require.NoError(t, s.HandleMessage(ctx, m))

	// clear the alert marker so only event dedup can suppress the second run
	require.NoError(t, rdb.Del(ctx, fmt.Sprintf(redisx.KeyLowStockAlert, s.today(), a)).Err())
	n, err := rdb.Exists(ctx, fmt.Sprintf(redisx.KeyDedup, "stockwatch", envelopeID(t, m))).Result()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	require.NoError(t, s.HandleMessage(ctx, m))
	assert.Len(t, pub.lowStock(t), 1)
}

func TestHandle_DeletedVarietyIsSkipped(t *testing.T) {
	rdb := getRedisClient(t)
	pub := &capture{}
	s := newService(rdb, varieties{}, pub)

	assert.NoError(t, s.HandleMessage(context.Background(), paidOrder(t, "gone-"+uuid.NewString())))
	assert.Empty(t, pub.lowStock(t))
}

func TestHandle_RedisFailureKeepsOffset(t *testing.T) {
	// nothing listens on this port, so every Redis call fails
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { rdb.Close() })
	a := "low-" + uuid.NewString()
	pub := &capture{}
	s := newService(rdb, varieties{a: {ID: a, Name: "Litchi", Category: catalog.CategoryWaterBase, Stock: 0}}, pub)

	err := s.HandleMessage(context.Background(), paidOrder(t, a))
	assert.Error(t, err, "the message must be retried")
	assert.Empty(t, pub.lowStock(t))
}

func envelopeID(t *testing.T, m kafkago.Message) string {
	t.Helper()
	var env orders.Envelope
	require.NoError(t, json.Unmarshal(m.Value, &env))
	return env.EventID
}
