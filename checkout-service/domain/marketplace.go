package domain

// Merchant is a company document from the store. WalletID is its payout
// wallet; only OwnerID may set it.
type Merchant struct {
	ID       string `bson:"_id" json:"id"`
	Name     string `bson:"name" json:"name"`
	OwnerID  string `bson:"owner_id" json:"owner_id"`
	WalletID string `bson:"wallet_id" json:"wallet_id"`
	Active   bool   `bson:"active" json:"active"`
}

type Affiliate struct {
	ID                   string  `bson:"_id" json:"id"`
	UserID               string  `bson:"user_id" json:"user_id"`
	CompanyID            string  `bson:"company_id" json:"company_id"`
	WalletID             string  `bson:"wallet_id" json:"wallet_id"`
	InviteCode           string  `bson:"invite_code" json:"invite_code"`
	CommissionPercentage float64 `bson:"commission_percentage" json:"commission_percentage"`
	Active               bool    `bson:"active" json:"active"`
}

// Coupon may point at the affiliate who distributes it.
type Coupon struct {
	ID          string `bson:"_id" json:"id"`
	Code        string `bson:"code" json:"code"`
	CompanyID   string `bson:"company_id" json:"company_id"`
	AffiliateID string `bson:"affiliate_id,omitempty" json:"affiliate_id,omitempty"`
	Active      bool   `bson:"active" json:"active"`
}
