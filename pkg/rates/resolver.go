// Package rates turns a promotion's declared rate table and a bank's base
// rate into concrete annual percentages per contract year.
package rates

import (
	"github.com/iwvelando/loan-compare/internal/model"
	"github.com/iwvelando/loan-compare/pkg/constants"
	"github.com/shopspring/decimal"
)

// TableYears is the number of slots in a promotion rate table; the last slot
// covers every later year.
const TableYears = 4

// Resolve returns the annual percentage that applies in the given contract
// year (1-based). The second return value is false when no rate can be
// determined; callers must treat that as "not computable", never as zero.
func Resolve(promo *model.Promotion, bank model.Bank, year int) (float64, bool) {
	if year < 1 {
		return 0, false
	}
	if promo == nil {
		return baseRate(bank)
	}

	if promo.FixedPeriodYears > 0 && year > promo.FixedPeriodYears {
		if promo.Rates.Year4Plus != nil {
			return apply(promo.Basis, bank, *promo.Rates.Year4Plus)
		}
		return baseRate(bank)
	}

	declared, ok := declaredFor(promo.Rates, year)
	if !ok {
		return 0, false
	}
	return apply(promo.Basis, bank, declared)
}

// Schedule returns the rate for each of the first years contract years, with
// nil entries for years that cannot be resolved.
func Schedule(promo *model.Promotion, bank model.Bank, years int) []*float64 {
	out := make([]*float64, years)
	for i := range out {
		if rate, ok := Resolve(promo, bank, i+1); ok {
			out[i] = &rate
		}
	}
	return out
}

// Effective picks the headline rate of a pairing: year 1, then year 2, then
// year 3, then the bank base rate. The first resolvable value wins.
func Effective(promo *model.Promotion, bank model.Bank) (float64, bool) {
	for year := 1; year <= 3; year++ {
		if rate, ok := Resolve(promo, bank, year); ok {
			return rate, true
		}
	}
	return baseRate(bank)
}

// declaredFor returns the table entry for year, clamped to the last declared
// entry at or before it.
func declaredFor(table model.RateTable, year int) (float64, bool) {
	slots := table.Slots()
	idx := year
	if idx > TableYears {
		idx = TableYears
	}
	for i := idx - 1; i >= 0; i-- {
		if slots[i] != nil {
			return *slots[i], true
		}
	}
	return 0, false
}

func apply(basis model.RateBasis, bank model.Bank, declared float64) (float64, bool) {
	switch basis {
	case model.BasisFixed:
		return round(decimal.NewFromFloat(declared)), true
	case model.BasisBaseRelative:
		if !bank.HasBaseRate() {
			return 0, false
		}
		sum := decimal.NewFromFloat(*bank.BaseRate).Add(decimal.NewFromFloat(declared))
		return round(sum), true
	default:
		return 0, false
	}
}

func baseRate(bank model.Bank) (float64, bool) {
	if !bank.HasBaseRate() {
		return 0, false
	}
	return round(decimal.NewFromFloat(*bank.BaseRate)), true
}

func round(d decimal.Decimal) float64 {
	return d.Round(constants.RatePrecision).InexactFloat64()
}
