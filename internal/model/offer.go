package model

// Status is the approval verdict of an offer.
type Status string

const (
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Rejection and exclusion reasons.
const (
	ReasonDebtCapacityExhausted = "debt capacity exhausted"
	ReasonDSRExceeded           = "debt service ratio above cap"
	ReasonLTVExceeded           = "loan-to-value above cap"
	ReasonLivingExpenseFloor    = "residual income below living-expense floor"
	ReasonNoCapacity            = "no loan amount fits the limits"

	ReasonRateUnresolvable = "rate unresolvable"
	ReasonTenureExhausted  = "tenure exhausted"
	ReasonNoRule           = "no underwriting rule"
)

// Phase is one constant-rate segment of a stepped-rate disclosure.
type Phase struct {
	FromMonth int     `json:"fromMonth"`
	ToMonth   int     `json:"toMonth"`
	Rate      float64 `json:"rate"`
	Payment   float64 `json:"payment"`
}

// Offer is the derived outcome for one bank/promotion pairing. Offers are
// never mutated after computation, only re-ordered.
type Offer struct {
	BankID        string `json:"bankId"`
	BankName      string `json:"bankName"`
	PromotionID   string `json:"promotionId,omitempty"`
	PromotionName string `json:"promotionName,omitempty"`
	RuleID        string `json:"ruleId"`

	// Rates holds the effective rate for years 1..4+; nil entries were not
	// resolvable.
	Rates          []*float64 `json:"rates"`
	EffectiveRate  float64    `json:"effectiveRate"`
	TenureYears    int        `json:"tenureYears"`
	MonthlyPayment float64    `json:"monthlyPayment"`
	Phases         []Phase    `json:"phases,omitempty"`

	Amount         float64 `json:"amount"`
	MaxPayment     float64 `json:"maxPayment,omitempty"`
	AssessedIncome float64 `json:"assessedIncome"`
	DSR            float64 `json:"dsr"`
	LTV            float64 `json:"ltv,omitempty"`

	Status  Status   `json:"status"`
	Reasons []string `json:"reasons,omitempty"`
}

// Approved reports whether the offer was approved.
func (o Offer) Approved() bool {
	return o.Status == StatusApproved
}

// Exclusion records a pairing that could not be computed at all.
type Exclusion struct {
	BankID      string `json:"bankId"`
	PromotionID string `json:"promotionId,omitempty"`
	Reason      string `json:"reason"`
}

// Result is the ranked outcome of one comparison.
type Result struct {
	Mode     Mode        `json:"mode"`
	Offers   []Offer     `json:"offers"`
	Excluded []Exclusion `json:"excluded,omitempty"`
}

// Approved returns the approved offers in rank order.
func (r Result) Approved() []Offer {
	var approved []Offer
	for _, o := range r.Offers {
		if o.Approved() {
			approved = append(approved, o)
		}
	}
	return approved
}
