// Package failure defines the error kinds shared by every checkout component.
// Domain packages wrap these kinds in their own sentinels, so callers can
// branch on the kind with errors.Is without knowing which component failed.
package failure

import "errors"

var (
	ErrNotFound                      = errors.New("not found")
	ErrInvalidArgument               = errors.New("invalid argument")
	ErrInsufficientStock             = errors.New("insufficient stock")
	ErrEmptyCart                     = errors.New("empty cart")
	ErrInactiveCart                  = errors.New("inactive cart")
	ErrInvalidTransition             = errors.New("invalid transition")
	ErrCurrencyConversionUnavailable = errors.New("currency conversion unavailable")
	ErrCheckoutFailed                = errors.New("checkout failed")
	// ErrConflict means the entity changed between read and write.
	ErrConflict = errors.New("conflict")
)

// CheckoutError is returned when the checkout transaction could not be committed.
// Nothing written inside the transaction survives it.
type CheckoutError struct {
	Cause error
}

func (e *CheckoutError) Error() string {
	if e.Cause == nil {
		return ErrCheckoutFailed.Error()
	}
	return ErrCheckoutFailed.Error() + ": " + e.Cause.Error()
}

func (e *CheckoutError) Unwrap() error { return e.Cause }

func (e *CheckoutError) Is(target error) bool { return target == ErrCheckoutFailed }

// Checkout wraps err as a CheckoutError; a nil err stays nil.
func Checkout(err error) error {
	if err == nil {
		return nil
	}
	var ce *CheckoutError
	if errors.As(err, &ce) {
		return err
	}
	return &CheckoutError{Cause: err}
}

// Kind reports which taxonomy kind err belongs to, or nil when it is none of them.
func Kind(err error) error {
	for _, k := range []error{
		ErrCheckoutFailed,
		ErrNotFound,
		ErrInvalidArgument,
		ErrInsufficientStock,
		ErrEmptyCart,
		ErrInactiveCart,
		ErrInvalidTransition,
		ErrCurrencyConversionUnavailable,
		ErrConflict,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
