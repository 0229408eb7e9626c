package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/icebay-pos/internal/orders"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// maxCartRetries bounds optimistic retries when two requests touch the
// same cart at once.
const maxCartRetries = 5

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrCartBusy     = errors.New("cart is being modified concurrently")
)

// CartStore keeps one composition session per cart id. Every write
// refreshes the TTL.
type CartStore struct {
	RDB *redis.Client
	TTL time.Duration
}

func (s *CartStore) key(id string) string { return fmt.Sprintf(KeyCart, id) }

func (s *CartStore) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	b, err := json.Marshal(&orders.Cart{Lines: []orders.Line{}})
	if err != nil {
		return "", err
	}
	if err := s.RDB.Set(ctx, s.key(id), b, s.TTL).Err(); err != nil {
		return "", err
	}
	return id, nil
}

func (s *CartStore) Load(ctx context.Context, id string) (*orders.Cart, error) {
	return s.get(ctx, s.RDB, id)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *CartStore) get(ctx context.Context, g getter, id string) (*orders.Cart, error) {
	b, err := g.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrCartNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var c orders.Cart
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", id, err)
	}
	return &c, nil
}

// Update loads the cart, applies fn and writes it back only if nobody else
// wrote it in between. fn's error aborts the update and is returned as-is.
func (s *CartStore) Update(ctx context.Context, id string, fn func(*orders.Cart) error) (*orders.Cart, error) {
	key := s.key(id)
	var out *orders.Cart

	txf := func(tx *redis.Tx) error {
		c, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		b, err := json.Marshal(c)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, b, s.TTL)
			return nil
		})
		if err == nil {
			out = c
		}
		return err
	}

	for range maxCartRetries {
		err := s.RDB.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return out, err
	}
	return nil, ErrCartBusy
}

// unlockScript deletes a lock only while it still holds the caller's token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockCheckout marks the cart as being checked out. A second caller gets
// ErrCartBusy until unlock runs or the lock expires.
func (s *CartStore) LockCheckout(ctx context.Context, id string) (unlock func(), err error) {
	key := fmt.Sprintf(KeyCartCheckout, id)
	token := uuid.NewString()
	ok, err := s.RDB.SetNX(ctx, key, token, TTLCartCheckout).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: checkout in progress for %s", ErrCartBusy, id)
	}
	return func() {
		_ = unlockScript.Run(context.WithoutCancel(ctx), s.RDB, []string{key}, token).Err()
	}, nil
}

func (s *CartStore) Delete(ctx context.Context, id string) error {
	return s.RDB.Del(ctx, s.key(id)).Err()
}
