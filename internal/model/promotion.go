package model

import (
	"cloud.google.com/go/civil"
	"github.com/iwvelando/loan-compare/pkg/datetime"
)

// RateBasis says how a promotion's rate table is read.
type RateBasis string

const (
	// BasisFixed means the table holds flat annual percentages.
	BasisFixed RateBasis = "fixed"
	// BasisBaseRelative means the table holds spreads over the bank base rate.
	BasisBaseRelative RateBasis = "base-relative"
)

// Valid reports whether b is a supported basis.
func (b RateBasis) Valid() bool {
	return b == BasisFixed || b == BasisBaseRelative
}

// RateTable holds the declared rate (or spread) per contract year. Year4Plus
// applies to year four and every later year.
type RateTable struct {
	Year1     *float64 `json:"year1,omitempty" yaml:"year1,omitempty"`
	Year2     *float64 `json:"year2,omitempty" yaml:"year2,omitempty"`
	Year3     *float64 `json:"year3,omitempty" yaml:"year3,omitempty"`
	Year4Plus *float64 `json:"year4Plus,omitempty" yaml:"year4Plus,omitempty"`
}

// Slots returns the table in year order.
func (t RateTable) Slots() [4]*float64 {
	return [4]*float64{t.Year1, t.Year2, t.Year3, t.Year4Plus}
}

// Promotion is a bank's marketed rate offer for one product.
type Promotion struct {
	ID       string      `json:"id"`
	BankID   string      `json:"bankId"`
	Name     string      `json:"name"`
	Product  ProductType `json:"product"`
	Basis    RateBasis   `json:"basis"`
	Rates    RateTable   `json:"rates"`
	Active   bool        `json:"active"`
	StartsOn *civil.Date `json:"startsOn,omitempty"`
	EndsOn   *civil.Date `json:"endsOn,omitempty"`
	// FixedPeriodYears, when positive, limits the promotional years; later
	// years use Year4Plus or the bank base rate.
	FixedPeriodYears int `json:"fixedPeriodYears,omitempty"`
}

// EligibleOn reports whether the promotion can be matched for product on date.
func (p Promotion) EligibleOn(product ProductType, date civil.Date) bool {
	return p.Active && p.Product == product && datetime.WithinWindow(date, p.StartsOn, p.EndsOn)
}
