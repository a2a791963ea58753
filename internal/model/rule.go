package model

// Rule holds a bank's underwriting limits for a product, optionally narrowed
// to a property type and to the applicant's home number (first home, second
// home, ...).
type Rule struct {
	ID      string      `json:"id" yaml:"id"`
	BankID  string      `json:"bankId" yaml:"bankId"`
	Product ProductType `json:"product" yaml:"product"`
	// PropertyType is empty for rules that apply to any property.
	PropertyType string `json:"propertyType,omitempty" yaml:"propertyType,omitempty"`
	// HomeNumber is zero for rules that apply regardless of ownership count.
	HomeNumber int `json:"homeNumber,omitempty" yaml:"homeNumber,omitempty"`

	DSRCap              float64 `json:"dsrCap" yaml:"dsrCap"`
	LTVCap              float64 `json:"ltvCap,omitempty" yaml:"ltvCap,omitempty"`
	MaxTenureYears      int     `json:"maxTenureYears,omitempty" yaml:"maxTenureYears,omitempty"`
	MaxAgeAtMaturity    int     `json:"maxAgeAtMaturity,omitempty" yaml:"maxAgeAtMaturity,omitempty"`
	MinIncomePerMillion float64 `json:"minIncomePerMillion,omitempty" yaml:"minIncomePerMillion,omitempty"`
	MinLivingExpense    float64 `json:"minLivingExpense,omitempty" yaml:"minLivingExpense,omitempty"`

	BonusIncomeFactor *float64 `json:"bonusIncomeFactor,omitempty" yaml:"bonusIncomeFactor,omitempty"`
	ExtraIncomeFactor *float64 `json:"extraIncomeFactor,omitempty" yaml:"extraIncomeFactor,omitempty"`
}

// Matches reports whether the rule applies to the given request attributes
// and, if so, how specific it is. Higher specificity wins.
func (r Rule) Matches(bankID string, product ProductType, propertyType string, homeNumber int) (int, bool) {
	if r.BankID != bankID || r.Product != product {
		return 0, false
	}
	specificity := 0
	if r.PropertyType != "" {
		if r.PropertyType != propertyType {
			return 0, false
		}
		specificity++
	}
	if r.HomeNumber != 0 {
		if r.HomeNumber != homeNumber {
			return 0, false
		}
		specificity++
	}
	return specificity, true
}
