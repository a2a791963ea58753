package validation

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/iwvelando/loan-compare/internal/model"
)

func fp(v float64) *float64 { return &v }

func TestValidateBank(t *testing.T) {
	tests := []struct {
		name       string
		bank       model.Bank
		wantFields []string
	}{
		{"valid", model.Bank{ID: "b1", Name: "Alpha", ShortName: "ALPHA", BaseRate: fp(7.3)}, nil},
		{"no base rate", model.Bank{ID: "b1", Name: "Alpha", ShortName: "ALPHA"}, nil},
		{"missing names", model.Bank{ID: "b1"}, []string{"name", "shortName"}},
		{"negative rate", model.Bank{ID: "b1", Name: "A", ShortName: "A", BaseRate: fp(-1)}, []string{"baseRate"}},
		{"too precise", model.Bank{ID: "b1", Name: "A", ShortName: "A", BaseRate: fp(7.1234)}, []string{"baseRate"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertFields(t, ValidateBank(tt.bank), tt.wantFields)
		})
	}
}

func TestValidateBaseRate(t *testing.T) {
	if errs := ValidateBaseRate(6.875); errs != nil {
		t.Errorf("ValidateBaseRate(6.875) = %v", errs)
	}
	if errs := ValidateBaseRate(0); errs != nil {
		t.Errorf("ValidateBaseRate(0) = %v", errs)
	}
	assertFields(t, ValidateBaseRate(-0.5), []string{"rate"})
}

func TestValidatePromotion(t *testing.T) {
	start := civil.Date{Year: 2026, Month: 6, Day: 1}
	end := civil.Date{Year: 2026, Month: 1, Day: 1}
	valid := model.Promotion{
		ID: "p1", BankID: "b1", Name: "Home", Product: model.ProductMortgage,
		Basis: model.BasisBaseRelative, Rates: model.RateTable{Year1: fp(-2.5)},
	}

	tests := []struct {
		name       string
		mutate     func(p *model.Promotion)
		wantFields []string
	}{
		{"valid spread may be negative", func(p *model.Promotion) {}, nil},
		{"unknown product", func(p *model.Promotion) { p.Product = "car" }, []string{"product"}},
		{"unknown basis", func(p *model.Promotion) { p.Basis = "floating" }, []string{"basis"}},
		{"negative fixed rate", func(p *model.Promotion) { p.Basis = model.BasisFixed }, []string{"rates.year1"}},
		{"window reversed", func(p *model.Promotion) { p.StartsOn, p.EndsOn = &start, &end }, []string{"endsOn"}},
		{"negative fixed period", func(p *model.Promotion) { p.FixedPeriodYears = -1 }, []string{"fixedPeriodYears"}},
		{"missing identity", func(p *model.Promotion) { p.ID, p.BankID, p.Name = "", "", "" }, []string{"id", "bankId", "name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			assertFields(t, ValidatePromotion(p), tt.wantFields)
		})
	}
}

func TestValidateRule(t *testing.T) {
	valid := model.Rule{ID: "r1", BankID: "b1", Product: model.ProductSME, DSRCap: 0.6}

	tests := []struct {
		name       string
		mutate     func(r *model.Rule)
		wantFields []string
	}{
		{"valid", func(r *model.Rule) {}, nil},
		{"zero dsr cap", func(r *model.Rule) { r.DSRCap = 0 }, []string{"dsrCap"}},
		{"negative limits", func(r *model.Rule) { r.MaxTenureYears = -1; r.MinLivingExpense = -5 }, []string{"maxTenureYears", "minLivingExpense"}},
		{"negative factor", func(r *model.Rule) { r.BonusIncomeFactor = fp(-0.1) }, []string{"bonusIncomeFactor"}},
		{"unknown product", func(r *model.Rule) { r.Product = "" }, []string{"product"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			assertFields(t, ValidateRule(r), tt.wantFields)
		})
	}
}

func assertFields(t *testing.T, errs Errors, want []string) {
	t.Helper()
	if len(want) == 0 {
		if errs != nil {
			t.Fatalf("expected no errors, got %v", errs)
		}
		return
	}
	got := fields(errs)
	if len(got) != len(want) {
		t.Fatalf("expected errors for %v, got %v", want, errs)
	}
	for _, f := range want {
		if _, ok := got[f]; !ok {
			t.Errorf("expected an error for %s, got %v", f, errs)
		}
	}
}
