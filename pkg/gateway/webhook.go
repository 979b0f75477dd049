package gateway

// Webhook event names the checkout pipeline reacts to.
const (
	EventPaymentConfirmed = "PAYMENT_CONFIRMED"
	EventPaymentReceived  = "PAYMENT_RECEIVED"
	EventCheckoutPaid     = "CHECKOUT_PAID"
	EventCheckoutCanceled = "CHECKOUT_CANCELED"
	EventCheckoutExpired  = "CHECKOUT_EXPIRED"
)

// WebhookHeader carries the shared token the gateway sends with every webhook.
const WebhookHeader = "asaas-access-token"

type WebhookPayment struct {
	ID                string  `json:"id"`
	CheckoutSession   string  `json:"checkoutSession,omitempty"`
	ExternalReference string  `json:"externalReference,omitempty"`
	Status            string  `json:"status"`
	Value             float64 `json:"value"`
	BillingType       string  `json:"billingType,omitempty"`
}

type WebhookCheckout struct {
	ID                string `json:"id"`
	ExternalReference string `json:"externalReference,omitempty"`
	Status            string `json:"status,omitempty"`
}

type WebhookEvent struct {
	ID       string           `json:"id"`
	Event    string           `json:"event"`
	Payment  *WebhookPayment  `json:"payment,omitempty"`
	Checkout *WebhookCheckout `json:"checkout,omitempty"`
}

// CheckoutID returns the checkout session the event refers to, if any.
func (e WebhookEvent) CheckoutID() string {
	if e.Checkout != nil && e.Checkout.ID != "" {
		return e.Checkout.ID
	}
	if e.Payment != nil {
		return e.Payment.CheckoutSession
	}
	return ""
}

// ExternalReference returns the caller-supplied reference, our session id.
func (e WebhookEvent) ExternalReference() string {
	if e.Checkout != nil && e.Checkout.ExternalReference != "" {
		return e.Checkout.ExternalReference
	}
	if e.Payment != nil {
		return e.Payment.ExternalReference
	}
	return ""
}

func (e WebhookEvent) IsPaid() bool {
	switch e.Event {
	case EventPaymentConfirmed, EventPaymentReceived, EventCheckoutPaid:
		return true
	}
	return false
}

func (e WebhookEvent) IsAbandoned() bool {
	return e.Event == EventCheckoutCanceled || e.Event == EventCheckoutExpired
}
