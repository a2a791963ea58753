// Package loans provides the amortizing-loan payment formulas: the monthly
// payment for a principal, its inverse, and stepped-rate phase disclosures.
package loans

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/loan-compare/pkg/constants"
)

// ErrInvalidTerm is returned when a term of zero or fewer months is supplied.
var ErrInvalidTerm = errors.New("loan term must be at least one month")

// Phase is one constant-rate segment of a stepped-rate loan together with the
// indicative payment for that segment.
type Phase struct {
	FromMonth int
	ToMonth   int
	Rate      float64
	Payment   float64
}

// MonthlyRate converts an annual percentage into a monthly fractional rate.
func MonthlyRate(annualRatePct float64) float64 {
	return annualRatePct / (constants.PercentageMultiplier * constants.MonthsPerYear)
}

// MonthlyPayment calculates the monthly payment for a loan using the standard
// amortization formula P·r·(1+r)^n / ((1+r)^n − 1).
func MonthlyPayment(principal, annualRatePct float64, termMonths int) (float64, error) {
	if termMonths <= 0 {
		return 0, ErrInvalidTerm
	}

	r := MonthlyRate(annualRatePct)
	n := float64(termMonths)
	if r == 0 {
		// For zero interest, simply divide the principal by term
		return principal / n, nil
	}

	power := math.Pow(1+r, n)
	return principal * r * power / (power - 1), nil
}

// MaxPrincipal is the exact inverse of MonthlyPayment: the principal that a
// given monthly payment services over termMonths at annualRatePct.
func MaxPrincipal(payment, annualRatePct float64, termMonths int) (float64, error) {
	if termMonths <= 0 {
		return 0, ErrInvalidTerm
	}

	r := MonthlyRate(annualRatePct)
	n := float64(termMonths)
	if r == 0 {
		return payment * n, nil
	}

	power := math.Pow(1+r, n)
	return payment * (power - 1) / (r * power), nil
}

// SteppedPayments splits termMonths into contiguous segments of constant rate
// and computes an indicative payment per segment. yearlyRates[i] is the rate
// for contract year i+1; the last entry applies to every later year.
//
// Each segment's payment is computed against the original principal over the
// full remaining term from the segment start. Segments therefore do not
// re-amortize in sequence: this is the figure banks print in stepped-rate
// disclosures, not a cash-flow simulation.
func SteppedPayments(principal float64, yearlyRates []float64, termMonths int) ([]Phase, error) {
	if termMonths <= 0 {
		return nil, ErrInvalidTerm
	}
	if len(yearlyRates) == 0 {
		return nil, fmt.Errorf("stepped payments need at least one rate")
	}

	rateForMonth := func(month int) float64 {
		year := month / constants.MonthsPerYear
		if year >= len(yearlyRates) {
			year = len(yearlyRates) - 1
		}
		return yearlyRates[year]
	}

	var phases []Phase
	start := 0
	for start < termMonths {
		rate := rateForMonth(start)
		end := start + 1
		for end < termMonths && rateForMonth(end) == rate {
			end++
		}

		payment, err := MonthlyPayment(principal, rate, termMonths-start)
		if err != nil {
			return nil, err
		}
		phases = append(phases, Phase{
			FromMonth: start + 1,
			ToMonth:   end,
			Rate:      rate,
			Payment:   payment,
		})
		start = end
	}

	return phases, nil
}
