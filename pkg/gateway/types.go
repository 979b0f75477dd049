package gateway

type Callback struct {
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
	ExpiredURL string `json:"expiredUrl"`
}

type Item struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Quantity    int     `json:"quantity"`
	Value       float64 `json:"value"`
}

type CustomerData struct {
	Name          string `json:"name,omitempty"`
	CpfCnpj       string `json:"cpfCnpj,omitempty"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	PostalCode    string `json:"postalCode,omitempty"`
	Address       string `json:"address,omitempty"`
	AddressNumber string `json:"addressNumber,omitempty"`
	Province      string `json:"province,omitempty"`
	City          string `json:"city,omitempty"`
	Complement    string `json:"complement,omitempty"`
}

// Split routes a share of the charge to another wallet. The account owner
// receives whatever is not split away.
type Split struct {
	WalletID        string  `json:"walletId"`
	PercentualValue float64 `json:"percentualValue"`
}

type Installment struct {
	MaxInstallmentCount int `json:"maxInstallmentCount"`
}

type CheckoutRequest struct {
	BillingTypes      []string      `json:"billingTypes"`
	ChargeTypes       []string      `json:"chargeTypes"`
	MinutesToExpire   int           `json:"minutesToExpire"`
	ExternalReference string        `json:"externalReference,omitempty"`
	Callback          Callback      `json:"callback"`
	Items             []Item        `json:"items"`
	CustomerData      *CustomerData `json:"customerData,omitempty"`
	Splits            []Split       `json:"splits,omitempty"`
	Installment       *Installment  `json:"installment,omitempty"`
}

type CheckoutSession struct {
	ID   string `json:"id"`
	Link string `json:"link"`
}

type AccountRequest struct {
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	CpfCnpj       string  `json:"cpfCnpj"`
	BirthDate     string  `json:"birthDate,omitempty"`
	CompanyType   string  `json:"companyType,omitempty"`
	MobilePhone   string  `json:"mobilePhone"`
	IncomeValue   float64 `json:"incomeValue"`
	Address       string  `json:"address"`
	AddressNumber string  `json:"addressNumber"`
	Province      string  `json:"province"`
	PostalCode    string  `json:"postalCode"`
}

type Account struct {
	ID       string `json:"id"`
	WalletID string `json:"walletId"`
	APIKey   string `json:"apiKey,omitempty"`
}
