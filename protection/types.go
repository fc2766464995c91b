package protection

import "time"

// Tier is the strength of the route available to the buyer
type Tier string

const (
	TierStrong     Tier = "strong"
	TierChargeback Tier = "chargeback"
	TierLimited    Tier = "limited"
)

// Payment methods understood by the calculator
const (
	MethodCreditCard   = "credit-card"
	MethodDebitCard    = "debit-card"
	MethodPayPal       = "paypal"
	MethodBankTransfer = "bank-transfer"
	MethodBNPL         = "bnpl"
)

// Issue types with dedicated handling
const (
	IssueNotReceived       = "not-received"
	IssueFaulty            = "faulty"
	IssueUnauthorised      = "unauthorised"
	IssueCompanyInsolvency = "company-insolvency"
)

const (
	// ChargebackWindowDays is the card scheme dispute window counted from purchase
	ChargebackWindowDays = 120

	// ClosingSoonDays triggers a warning when the chargeback window is nearly over
	ClosingSoonDays = 14

	Section75Min = 100.01
	Section75Max = 30000.0

	// FCBAWindowDays is the Fair Credit Billing Act billing-error window
	FCBAWindowDays = 60
)

// Input describes a purchase the buyer wants to dispute
type Input struct {
	Country       string    `json:"country"`
	PaymentMethod string    `json:"paymentMethod"`
	Amount        float64   `json:"amount"`
	PurchaseDate  time.Time `json:"purchaseDate"`
	IssueType     string    `json:"issueType"`
}

// Result is the protection assessment for a purchase
type Result struct {
	PrimaryProtection  string   `json:"primaryProtection,omitempty"`
	ChargebackEligible bool     `json:"chargebackEligible"`
	Protection         Tier     `json:"protection"`
	Amount             float64  `json:"amount"`
	CurrencySymbol     string   `json:"currencySymbol"`
	TimeLimitDays      *int     `json:"timeLimitDays,omitempty"`
	DaysSincePurchase  int      `json:"daysSincePurchase"`
	Explanation        string   `json:"explanation"`
	Steps              []string `json:"steps"`
	Warnings           []string `json:"warnings"`
	LegalBasis         string   `json:"legalBasis,omitempty"`
}
