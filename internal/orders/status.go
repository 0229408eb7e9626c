package orders

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusUnpaid Status = "UNPAID"
	StatusPaid   Status = "PAID"
)

// PAID is terminal; an UNPAID order may be edited in place or paid.
var validNext = map[Status]map[Status]bool{
	StatusUnpaid: {StatusUnpaid: true, StatusPaid: true},
	StatusPaid:   {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := validNext[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

type PaymentMethod string

const (
	PaymentNone   PaymentMethod = ""
	PaymentCash   PaymentMethod = "CASH"
	PaymentOnline PaymentMethod = "ONLINE"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch pm := PaymentMethod(strings.ToUpper(strings.TrimSpace(s))); pm {
	case PaymentNone, PaymentCash, PaymentOnline:
		return pm, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s)
	}
}

// checkPayment enforces that a payment method is present iff the order is PAID.
func checkPayment(st Status, pm PaymentMethod) error {
	switch {
	case st != StatusPaid && st != StatusUnpaid:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, st)
	case pm != PaymentNone && pm != PaymentCash && pm != PaymentOnline:
		return fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, pm)
	case st == StatusPaid && pm == PaymentNone:
		return ErrPaymentMethodRequired
	case st == StatusUnpaid && pm != PaymentNone:
		return fmt.Errorf("%w: unpaid orders carry no payment method", ErrInvalidPaymentMethod)
	}
	return nil
}
