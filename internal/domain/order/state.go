package order

// Status is the fulfilment axis of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// PaymentStatus is the payment axis of an order.
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentPaid              PaymentStatus = "paid"
	PaymentFailed            PaymentStatus = "failed"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

// pending -> confirmed -> shipped -> delivered; cancelled from any non-terminal state.
var statusTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered, StatusCancelled},
	StatusDelivered: nil,
	StatusCancelled: nil,
}

// pending -> paid -> refunded | partially_refunded; failed from pending.
// A failed payment may be retried into paid; a partial refund may become full.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:           {PaymentPaid, PaymentFailed},
	PaymentFailed:            {PaymentPaid},
	PaymentPaid:              {PaymentRefunded, PaymentPartiallyRefunded},
	PaymentPartiallyRefunded: {PaymentRefunded},
	PaymentRefunded:          nil,
}

func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

func (s Status) Terminal() bool {
	return s.Valid() && len(statusTransitions[s]) == 0
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (p PaymentStatus) Valid() bool {
	_, ok := paymentTransitions[p]
	return ok
}

func (p PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}
