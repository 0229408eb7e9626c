package redisx

import "time"

const (
	// Cart session: cart:{cart_id} -> orders.Cart JSON
	KeyCart = "cart:%s"

	// Checkout in progress for a cart: cart:{cart_id}:checkout -> lock token
	KeyCartCheckout = "cart:%s:checkout"

	// Checkout idempotency: idem:checkout:{idempotency_key} -> order_id | "pending"
	KeyIdemCheckout = "idem:checkout:%s"

	// Analytics snapshot cache: analytics:{kind}:{params}
	KeyAnalytics = "analytics:%s:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// One low-stock alert per variety per day: alert:lowstock:{yyyy-mm-dd}:{variety_id}
	KeyLowStockAlert = "alert:lowstock:%s:%s"
)

var (
	TTLIdempotency   = 24 * time.Hour
	TTLCartCheckout  = 30 * time.Second
	TTLAnalytics     = time.Minute
	TTLDedup         = 48 * time.Hour
	TTLLowStockAlert = 24 * time.Hour
)
