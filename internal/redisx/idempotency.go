package redisx

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const idemPending = "pending"

var ErrIdempotencyInFlight = errors.New("a request with this idempotency key is still in progress")

// Idempotency remembers which order a client-supplied key produced.
type Idempotency struct{ RDB *redis.Client }

// Claim reserves key for the caller. If the key already completed, the
// order id it produced is returned with claimed=false.
func (i *Idempotency) Claim(ctx context.Context, key string) (claimed bool, orderID string, err error) {
	k := fmt.Sprintf(KeyIdemCheckout, key)
	ok, err := i.RDB.SetNX(ctx, k, idemPending, TTLIdempotency).Result()
	if err != nil || ok {
		return ok, "", err
	}
	v, err := i.RDB.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; let the caller retry
		return false, "", ErrIdempotencyInFlight
	}
	if err != nil {
		return false, "", err
	}
	if v == idemPending {
		return false, "", ErrIdempotencyInFlight
	}
	return false, v, nil
}

func (i *Idempotency) Complete(ctx context.Context, key, orderID string) error {
	return i.RDB.Set(ctx, fmt.Sprintf(KeyIdemCheckout, key), orderID, TTLIdempotency).Err()
}

// Release forgets a claim whose request failed so the client may retry.
func (i *Idempotency) Release(ctx context.Context, key string) error {
	return i.RDB.Del(ctx, fmt.Sprintf(KeyIdemCheckout, key)).Err()
}
