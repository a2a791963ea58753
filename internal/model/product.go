package model

import "fmt"

// ProductType is the closed set of loan products offered by banks.
type ProductType string

const (
	ProductMortgage  ProductType = "mortgage"
	ProductRefinance ProductType = "refinance"
	ProductPersonal  ProductType = "personal"
	ProductSME       ProductType = "sme"
)

// ProductTypes lists every supported product.
var ProductTypes = []ProductType{ProductMortgage, ProductRefinance, ProductPersonal, ProductSME}

// Valid reports whether p is one of the supported products.
func (p ProductType) Valid() bool {
	for _, known := range ProductTypes {
		if p == known {
			return true
		}
	}
	return false
}

// Secured reports whether the product is backed by a property and therefore
// subject to a loan-to-value cap.
func (p ProductType) Secured() bool {
	return p == ProductMortgage || p == ProductRefinance
}

// ParseProductType converts s into a ProductType.
func ParseProductType(s string) (ProductType, error) {
	p := ProductType(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown product type %q", s)
	}
	return p, nil
}

// Mode selects what the engine computes for each pairing.
type Mode string

const (
	// ModeMaximize computes the largest affordable loan.
	ModeMaximize Mode = "maximize"
	// ModeCheck tests whether a requested amount is approvable.
	ModeCheck Mode = "check"
)

// Valid reports whether m is a supported mode.
func (m Mode) Valid() bool {
	return m == ModeMaximize || m == ModeCheck
}
