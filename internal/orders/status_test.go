package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusUnpaid, StatusUnpaid))
	assert.True(t, CanTransition(StatusUnpaid, StatusPaid))
	assert.False(t, CanTransition(StatusPaid, StatusPaid))
	assert.False(t, CanTransition(StatusPaid, StatusUnpaid))
	assert.False(t, CanTransition("", StatusPaid))
}

func TestParseStatusAndPaymentMethod(t *testing.T) {
	st, err := ParseStatus(" paid")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, st)

	_, err = ParseStatus("REFUNDED")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	pm, err := ParsePaymentMethod("online")
	require.NoError(t, err)
	assert.Equal(t, PaymentOnline, pm)

	pm, err = ParsePaymentMethod("")
	require.NoError(t, err)
	assert.Equal(t, PaymentNone, pm)

	_, err = ParsePaymentMethod("CARD")
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)
}

func TestCheckPayment(t *testing.T) {
	assert.NoError(t, checkPayment(StatusPaid, PaymentCash))
	assert.NoError(t, checkPayment(StatusUnpaid, PaymentNone))
	assert.ErrorIs(t, checkPayment(StatusPaid, PaymentNone), ErrPaymentMethodRequired)
	assert.ErrorIs(t, checkPayment(StatusUnpaid, PaymentOnline), ErrInvalidPaymentMethod)
	assert.ErrorIs(t, checkPayment("VOID", PaymentNone), ErrInvalidStatus)
}
