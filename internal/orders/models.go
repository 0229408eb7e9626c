package orders

import (
	"time"

	"github.com/ariefcatur/icebay-pos/internal/catalog"
)

type Order struct {
	ID            string        `json:"id"`
	Number        int64         `json:"number"`
	Items         []OrderItem   `json:"items"`
	TotalCents    int64         `json:"total_cents"`
	Status        Status        `json:"status"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
}

// OrderItem is a line frozen at commit time. It is never repriced.
type OrderItem struct {
	VarietyID      string           `json:"variety_id"`
	Name           string           `json:"name"`
	Category       catalog.Category `json:"category"`
	Quantity       int              `json:"qty"`
	UnitPriceCents int64            `json:"unit_price_cents"`
	LineTotalCents int64            `json:"line_total_cents"`
}

func sumItems(items []OrderItem) int64 {
	var total int64
	for _, it := range items {
		total += it.LineTotalCents
	}
	return total
}

// ListFilter narrows ListOrders. Zero values match everything; the time
// range applies to PaidAt when Status is PAID and to CreatedAt otherwise.
type ListFilter struct {
	Status Status
	From   time.Time
	To     time.Time
}
