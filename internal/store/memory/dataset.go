package memory

import (
	"fmt"
	"os"

	"cloud.google.com/go/civil"
	"github.com/iwvelando/loan-compare/internal/model"
	"github.com/iwvelando/loan-compare/pkg/datetime"
	"github.com/iwvelando/loan-compare/pkg/validation"
	"gopkg.in/yaml.v3"
)

// Dataset is the YAML layout of a seed file. Dates are written as
// YYYY-MM-DD strings.
type Dataset struct {
	Banks      []BankRecord      `yaml:"banks"`
	Promotions []PromotionRecord `yaml:"promotions"`
	Rules      []model.Rule      `yaml:"rules"`
}

// BankRecord is a bank as written in a seed file.
type BankRecord struct {
	ID                string   `yaml:"id"`
	Name              string   `yaml:"name"`
	ShortName         string   `yaml:"shortName"`
	BaseRate          *float64 `yaml:"baseRate"`
	BaseRateUpdatedOn string   `yaml:"baseRateUpdatedOn"`
}

// PromotionRecord is a promotion as written in a seed file.
type PromotionRecord struct {
	ID               string          `yaml:"id"`
	BankID           string          `yaml:"bankId"`
	Name             string          `yaml:"name"`
	Product          string          `yaml:"product"`
	Basis            string          `yaml:"basis"`
	Rates            model.RateTable `yaml:"rates"`
	Active           bool            `yaml:"active"`
	StartsOn         string          `yaml:"startsOn"`
	EndsOn           string          `yaml:"endsOn"`
	FixedPeriodYears int             `yaml:"fixedPeriodYears"`
}

// LoadDataset reads a seed file from path.
func LoadDataset(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("failed to read dataset: %w", err)
	}
	return ParseDataset(data)
}

// ParseDataset decodes a YAML seed document.
func ParseDataset(data []byte) (Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("failed to parse dataset: %w", err)
	}
	return ds, nil
}

// Model converts the seed records into domain values. Every record passes the
// same checks the admin API applies.
func (ds Dataset) Model() ([]model.Bank, []model.Promotion, []model.Rule, error) {
	banks := make([]model.Bank, 0, len(ds.Banks))
	for _, b := range ds.Banks {
		var updated civil.Date
		if b.BaseRateUpdatedOn != "" {
			d, err := civil.ParseDate(b.BaseRateUpdatedOn)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("bank %s: invalid baseRateUpdatedOn: %w", b.ID, err)
			}
			updated = d
		}
		bank := model.Bank{
			ID:                b.ID,
			Name:              b.Name,
			ShortName:         b.ShortName,
			BaseRate:          b.BaseRate,
			BaseRateUpdatedOn: updated,
		}
		if errs := validation.ValidateBank(bank); len(errs) > 0 {
			return nil, nil, nil, fmt.Errorf("bank %s: %w", b.ID, errs)
		}
		banks = append(banks, bank)
	}

	promotions := make([]model.Promotion, 0, len(ds.Promotions))
	for _, p := range ds.Promotions {
		product, err := model.ParseProductType(p.Product)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("promotion %s: %w", p.ID, err)
		}
		basis := model.RateBasis(p.Basis)
		if !basis.Valid() {
			return nil, nil, nil, fmt.Errorf("promotion %s: unknown rate basis %q", p.ID, p.Basis)
		}
		startsOn, err := datetime.ParseOptionalDate(p.StartsOn)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("promotion %s: startsOn: %w", p.ID, err)
		}
		endsOn, err := datetime.ParseOptionalDate(p.EndsOn)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("promotion %s: endsOn: %w", p.ID, err)
		}
		promo := model.Promotion{
			ID:               p.ID,
			BankID:           p.BankID,
			Name:             p.Name,
			Product:          product,
			Basis:            basis,
			Rates:            p.Rates,
			Active:           p.Active,
			StartsOn:         startsOn,
			EndsOn:           endsOn,
			FixedPeriodYears: p.FixedPeriodYears,
		}
		if errs := validation.ValidatePromotion(promo); len(errs) > 0 {
			return nil, nil, nil, fmt.Errorf("promotion %s: %w", p.ID, errs)
		}
		promotions = append(promotions, promo)
	}

	for _, r := range ds.Rules {
		if errs := validation.ValidateRule(r); len(errs) > 0 {
			return nil, nil, nil, fmt.Errorf("rule %s: %w", r.ID, errs)
		}
	}
	return banks, promotions, ds.Rules, nil
}
