package orders

import (
	"errors"
	"fmt"

	"github.com/ariefcatur/icebay-pos/internal/catalog"
)

var (
	ErrEmptyCart             = errors.New("cart is empty")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrOrderLocked           = errors.New("order is paid and can no longer be changed")
	ErrOrderNotFound         = errors.New("order not found")
	ErrLineNotFound          = errors.New("variety is not in the cart")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
	ErrInvalidStatus         = errors.New("invalid order status")
	ErrInvalidPaymentMethod  = errors.New("invalid payment method")
	ErrPaymentMethodRequired = errors.New("payment method is required for paid orders")
	ErrStoreUnavailable      = errors.New("store unavailable")
)

type InsufficientStockError struct {
	VarietyID string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.Name, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

var domainErrors = []error{
	ErrEmptyCart, ErrInsufficientStock, ErrOrderLocked, ErrOrderNotFound,
	ErrLineNotFound, ErrInvalidQuantity, ErrInvalidStatus, ErrInvalidPaymentMethod, ErrPaymentMethodRequired,
	catalog.ErrNotFound,
}

// storeErr passes domain errors through and marks everything else as a
// storage failure.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return err
		}
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
