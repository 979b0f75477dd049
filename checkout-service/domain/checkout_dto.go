package domain

type CartItem struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice float64
}

type Customer struct {
	Name    string
	Email   string
	CpfCnpj string
	Phone   string
}

type CheckoutRequest struct {
	UserID         string
	IdempotencyKey string
	CompanyID      string
	Items          []CartItem
	CouponCode     string
	AffiliateCode  string
	Customer       *Customer
}

type CheckoutResponse struct {
	SessionID   string
	CheckoutID  string
	CheckoutURL string
	Status      CheckoutStatus
}

// SignRequest is the signing-only input: the signed projection as the client
// assembled it.
type SignRequest struct {
	MerchantID  string
	TotalAmount float64
	Items       []CartItem
	CouponCode  string
}
