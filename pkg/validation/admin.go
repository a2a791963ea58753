package validation

import (
	"fmt"
	"strings"

	"github.com/iwvelando/loan-compare/internal/model"
	"github.com/iwvelando/loan-compare/pkg/constants"
	"github.com/shopspring/decimal"
)

// ValidateBank checks a bank submitted through the admin API.
func ValidateBank(bank model.Bank) Errors {
	var errs Errors
	if strings.TrimSpace(bank.ID) == "" {
		errs = append(errs, FieldError{Field: "id", Message: "is required"})
	}
	if strings.TrimSpace(bank.Name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: "is required"})
	}
	if strings.TrimSpace(bank.ShortName) == "" {
		errs = append(errs, FieldError{Field: "shortName", Message: "is required"})
	}
	if bank.BaseRate != nil {
		errs = append(errs, checkBaseRate("baseRate", *bank.BaseRate)...)
	}
	return nilIfEmpty(errs)
}

// ValidateBaseRate checks a published base rate.
func ValidateBaseRate(rate float64) Errors {
	return nilIfEmpty(checkBaseRate("rate", rate))
}

func checkBaseRate(field string, rate float64) Errors {
	if rate < 0 {
		return Errors{{Field: field, Message: "must be at least 0"}}
	}
	if decimal.NewFromFloat(rate).Exponent() < -constants.RatePrecision {
		return Errors{{Field: field, Message: "must have at most 3 fractional digits"}}
	}
	return nil
}

// ValidatePromotion checks a promotion submitted through the admin API.
func ValidatePromotion(promo model.Promotion) Errors {
	var errs Errors
	if strings.TrimSpace(promo.ID) == "" {
		errs = append(errs, FieldError{Field: "id", Message: "is required"})
	}
	if strings.TrimSpace(promo.BankID) == "" {
		errs = append(errs, FieldError{Field: "bankId", Message: "is required"})
	}
	if strings.TrimSpace(promo.Name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: "is required"})
	}
	if !promo.Product.Valid() {
		errs = append(errs, FieldError{Field: "product", Message: fmt.Sprintf("must be one of %s", joinProducts())})
	}
	if !promo.Basis.Valid() {
		errs = append(errs, FieldError{Field: "basis",
			Message: fmt.Sprintf("must be %s or %s", model.BasisFixed, model.BasisBaseRelative)})
	}
	if promo.Basis == model.BasisFixed {
		for i, v := range promo.Rates.Slots() {
			if v != nil && *v < 0 {
				errs = append(errs, FieldError{Field: slotField(i), Message: "must be at least 0 for a fixed rate"})
			}
		}
	}
	if promo.FixedPeriodYears < 0 {
		errs = append(errs, FieldError{Field: "fixedPeriodYears", Message: "must be at least 0"})
	}
	if promo.StartsOn != nil && promo.EndsOn != nil && promo.EndsOn.Before(*promo.StartsOn) {
		errs = append(errs, FieldError{Field: "endsOn", Message: "must not be before startsOn"})
	}
	return nilIfEmpty(errs)
}

func slotField(i int) string {
	return [...]string{"rates.year1", "rates.year2", "rates.year3", "rates.year4Plus"}[i]
}

// ValidateRule checks an underwriting rule submitted through the admin API.
func ValidateRule(rule model.Rule) Errors {
	var errs Errors
	if strings.TrimSpace(rule.ID) == "" {
		errs = append(errs, FieldError{Field: "id", Message: "is required"})
	}
	if strings.TrimSpace(rule.BankID) == "" {
		errs = append(errs, FieldError{Field: "bankId", Message: "is required"})
	}
	if !rule.Product.Valid() {
		errs = append(errs, FieldError{Field: "product", Message: fmt.Sprintf("must be one of %s", joinProducts())})
	}
	if rule.DSRCap <= 0 {
		errs = append(errs, FieldError{Field: "dsrCap", Message: "must be greater than 0"})
	}
	if rule.LTVCap < 0 {
		errs = append(errs, FieldError{Field: "ltvCap", Message: "must be at least 0"})
	}
	if rule.HomeNumber < 0 {
		errs = append(errs, FieldError{Field: "homeNumber", Message: "must be at least 0"})
	}
	for field, v := range map[string]int{"maxTenureYears": rule.MaxTenureYears, "maxAgeAtMaturity": rule.MaxAgeAtMaturity} {
		if v < 0 {
			errs = append(errs, FieldError{Field: field, Message: "must be at least 0"})
		}
	}
	for field, v := range map[string]float64{"minIncomePerMillion": rule.MinIncomePerMillion, "minLivingExpense": rule.MinLivingExpense} {
		if v < 0 {
			errs = append(errs, FieldError{Field: field, Message: "must be at least 0"})
		}
	}
	for field, v := range map[string]*float64{"bonusIncomeFactor": rule.BonusIncomeFactor, "extraIncomeFactor": rule.ExtraIncomeFactor} {
		if v != nil && *v < 0 {
			errs = append(errs, FieldError{Field: field, Message: "must be at least 0"})
		}
	}
	return nilIfEmpty(errs)
}

func nilIfEmpty(errs Errors) Errors {
	if len(errs) == 0 {
		return nil
	}
	return errs
}
