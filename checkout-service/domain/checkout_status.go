package domain

type CheckoutStatus string

const (
	CheckoutStatusInitiated      CheckoutStatus = "INITIATED"
	CheckoutStatusPaymentPending CheckoutStatus = "PAYMENT_PENDING"
	CheckoutStatusCompleted      CheckoutStatus = "COMPLETED"
	CheckoutStatusFailed         CheckoutStatus = "FAILED"
)

var transitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusInitiated:      {CheckoutStatusPaymentPending, CheckoutStatusFailed},
	CheckoutStatusPaymentPending: {CheckoutStatusCompleted, CheckoutStatusFailed},
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusCompleted || s == CheckoutStatusFailed
}

func (s CheckoutStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether a session in status from may move to to.
func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
