package booking

import "errors"

var (
	ErrNotFound                = errors.New("booking not found")
	ErrInvalidState            = errors.New("booking is not in a valid state for this operation")
	ErrNotYetPaid              = errors.New("booking has not been paid yet")
	ErrAlreadyRefunded         = errors.New("booking is already refunded")
	ErrMissingPaymentReference = errors.New("booking has no payment intent reference")
	ErrInvalidData             = errors.New("booking has invalid data")
)
