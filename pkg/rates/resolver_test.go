package rates

import (
	"testing"

	"github.com/iwvelando/loan-compare/internal/model"
)

func ptr(v float64) *float64 { return &v }

func TestResolveFixedClampsToLastDeclared(t *testing.T) {
	promo := &model.Promotion{Basis: model.BasisFixed, Rates: model.RateTable{Year1: ptr(3.25)}}
	bank := model.Bank{ID: "b", BaseRate: ptr(7.3)}

	for year := 1; year <= 30; year++ {
		rate, ok := Resolve(promo, bank, year)
		if !ok {
			t.Fatalf("Resolve(year %d) not resolvable", year)
		}
		if rate != 3.25 {
			t.Errorf("Resolve(year %d) = %v, expected 3.25", year, rate)
		}
	}
}

func TestResolveBaseRelative(t *testing.T) {
	promo := &model.Promotion{Basis: model.BasisBaseRelative, Rates: model.RateTable{Year1: ptr(-1.00)}}
	bank := model.Bank{ID: "b", BaseRate: ptr(7.30)}

	rate, ok := Resolve(promo, bank, 1)
	if !ok {
		t.Fatal("expected base-relative rate to resolve")
	}
	if rate != 6.30 {
		t.Errorf("Resolve() = %v, expected 6.30", rate)
	}
}

func TestResolve(t *testing.T) {
	stepped := model.RateTable{Year1: ptr(2.5), Year2: ptr(3.0), Year3: ptr(3.5), Year4Plus: ptr(-0.75)}
	bank := model.Bank{ID: "b", BaseRate: ptr(7.125)}
	noBase := model.Bank{ID: "nb"}

	tests := []struct {
		name   string
		promo  *model.Promotion
		bank   model.Bank
		year   int
		rate   float64
		wantOK bool
	}{
		{"Nil promotion falls back to base", nil, bank, 5, 7.125, true},
		{"Nil promotion without base", nil, noBase, 1, 0, false},
		{"Year zero is invalid", &model.Promotion{Basis: model.BasisFixed, Rates: stepped}, bank, 0, 0, false},
		{"Fixed year 2", &model.Promotion{Basis: model.BasisFixed, Rates: stepped}, bank, 2, 3.0, true},
		{"Fixed year 4+ slot applies to year 9", &model.Promotion{Basis: model.BasisFixed,
			Rates: model.RateTable{Year1: ptr(2.5), Year4Plus: ptr(5.9)}}, bank, 9, 5.9, true},
		{"Fixed gap clamps to earlier year", &model.Promotion{Basis: model.BasisFixed,
			Rates: model.RateTable{Year1: ptr(2.5), Year4Plus: ptr(5.9)}}, bank, 3, 2.5, true},
		{"Nothing declared for year 1", &model.Promotion{Basis: model.BasisFixed,
			Rates: model.RateTable{Year2: ptr(3.1)}}, bank, 1, 0, false},
		{"Relative year 4+", &model.Promotion{Basis: model.BasisBaseRelative, Rates: stepped}, bank, 6, 6.375, true},
		{"Relative without base rate", &model.Promotion{Basis: model.BasisBaseRelative, Rates: stepped}, noBase, 1, 0, false},
		{"Fixed without base rate still resolves", &model.Promotion{Basis: model.BasisFixed, Rates: stepped}, noBase, 1, 2.5, true},
		{"Fixed period override uses year 4+", &model.Promotion{Basis: model.BasisFixed, FixedPeriodYears: 2,
			Rates: model.RateTable{Year1: ptr(1.99), Year4Plus: ptr(6.1)}}, bank, 3, 6.1, true},
		{"Fixed period override falls back to base", &model.Promotion{Basis: model.BasisFixed, FixedPeriodYears: 2,
			Rates: model.RateTable{Year1: ptr(1.99)}}, bank, 3, 7.125, true},
		{"Fixed period inside window", &model.Promotion{Basis: model.BasisFixed, FixedPeriodYears: 2,
			Rates: model.RateTable{Year1: ptr(1.99)}}, bank, 2, 1.99, true},
		{"Unknown basis", &model.Promotion{Basis: "floating", Rates: stepped}, bank, 1, 0, false},
		{"Rounded to three digits", &model.Promotion{Basis: model.BasisBaseRelative,
			Rates: model.RateTable{Year1: ptr(-0.1)}}, model.Bank{BaseRate: ptr(0.3)}, 1, 0.2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, ok := Resolve(tt.promo, tt.bank, tt.year)
			if ok != tt.wantOK {
				t.Fatalf("Resolve() ok = %v, expected %v", ok, tt.wantOK)
			}
			if ok && rate != tt.rate {
				t.Errorf("Resolve() = %v, expected %v", rate, tt.rate)
			}
		})
	}
}

func TestEffective(t *testing.T) {
	bank := model.Bank{ID: "b", BaseRate: ptr(7.3)}

	tests := []struct {
		name   string
		promo  *model.Promotion
		bank   model.Bank
		rate   float64
		wantOK bool
	}{
		{"Year 1 preferred", &model.Promotion{Basis: model.BasisFixed,
			Rates: model.RateTable{Year1: ptr(2.9), Year2: ptr(3.9)}}, bank, 2.9, true},
		{"Falls back to year 2", &model.Promotion{Basis: model.BasisFixed,
			Rates: model.RateTable{Year2: ptr(3.9)}}, bank, 3.9, true},
		{"Falls back to year 3", &model.Promotion{Basis: model.BasisFixed,
			Rates: model.RateTable{Year3: ptr(4.4)}}, bank, 4.4, true},
		{"Falls back to base rate", &model.Promotion{Basis: model.BasisFixed,
			Rates: model.RateTable{}}, bank, 7.3, true},
		{"Nothing resolvable", &model.Promotion{Basis: model.BasisBaseRelative,
			Rates: model.RateTable{Year1: ptr(-1)}}, model.Bank{ID: "nb"}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, ok := Effective(tt.promo, tt.bank)
			if ok != tt.wantOK {
				t.Fatalf("Effective() ok = %v, expected %v", ok, tt.wantOK)
			}
			if ok && rate != tt.rate {
				t.Errorf("Effective() = %v, expected %v", rate, tt.rate)
			}
		})
	}
}

func TestSchedule(t *testing.T) {
	promo := &model.Promotion{Basis: model.BasisFixed, Rates: model.RateTable{Year2: ptr(3), Year4Plus: ptr(6)}}
	schedule := Schedule(promo, model.Bank{}, 5)

	if len(schedule) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(schedule))
	}
	if schedule[0] != nil {
		t.Errorf("year 1 = %v, expected unresolvable", *schedule[0])
	}
	expected := []float64{3, 3, 6, 6}
	for i, want := range expected {
		if schedule[i+1] == nil || *schedule[i+1] != want {
			t.Errorf("year %d = %v, expected %v", i+2, schedule[i+1], want)
		}
	}
}
