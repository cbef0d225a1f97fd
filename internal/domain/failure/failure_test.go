package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckoutErrorKeepsCause(t *testing.T) {
	stock := fmt.Errorf("inventory: %w", ErrInsufficientStock)
	err := Checkout(stock)

	assert.ErrorIs(t, err, ErrCheckoutFailed)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, "checkout failed: inventory: insufficient stock", err.Error())
	assert.Same(t, err, Checkout(err))
	assert.NoError(t, Checkout(nil))
}

func TestKind(t *testing.T) {
	assert.Equal(t, ErrNotFound, Kind(fmt.Errorf("cart: %w", ErrNotFound)))
	assert.Equal(t, ErrCheckoutFailed, Kind(Checkout(ErrEmptyCart)))
	assert.Equal(t, ErrConflict, Kind(fmt.Errorf("cart: modified: %w", ErrConflict)))
	assert.Nil(t, Kind(errors.New("boom")))
}
