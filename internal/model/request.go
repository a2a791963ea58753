package model

// Request is one comparison input. It is not persisted unless the caller
// explicitly saves the calculation.
type Request struct {
	Mode            Mode        `json:"mode" yaml:"mode" validate:"required"`
	Product         ProductType `json:"product" yaml:"product" validate:"required"`
	Income          float64     `json:"income" yaml:"income" validate:"gt=0"`
	BonusIncome     float64     `json:"bonusIncome,omitempty" yaml:"bonusIncome,omitempty" validate:"gte=0"`
	ExtraIncome     float64     `json:"extraIncome,omitempty" yaml:"extraIncome,omitempty" validate:"gte=0"`
	Debt            float64     `json:"debt" yaml:"debt" validate:"gte=0"`
	Age             int         `json:"age" yaml:"age" validate:"gte=18,lte=80"`
	TenureYears     int         `json:"tenureYears" yaml:"tenureYears" validate:"gte=1,lte=35"`
	PropertyValue   float64     `json:"propertyValue,omitempty" yaml:"propertyValue,omitempty" validate:"gte=0"`
	PropertyType    string      `json:"propertyType,omitempty" yaml:"propertyType,omitempty"`
	HomeNumber      int         `json:"homeNumber,omitempty" yaml:"homeNumber,omitempty" validate:"gte=0"`
	RequestedAmount float64     `json:"requestedAmount,omitempty" yaml:"requestedAmount,omitempty" validate:"gte=0"`
}
