package postgres

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iwvelando/loan-compare/internal/model"
	"github.com/iwvelando/loan-compare/pkg/datetime"
)

// scannable is satisfied by pgx.Row and pgx.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func nullDecimal(v *float64) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(*v), Valid: true}
}

func floatPtr(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}

func dateArg(d *civil.Date) any {
	if d == nil {
		return nil
	}
	return datetime.ToTime(*d)
}

func datePtr(d pgtype.Date) *civil.Date {
	if !d.Valid {
		return nil
	}
	c := datetime.FromTime(d.Time)
	return &c
}

// rateRow is the column form of a promotion rate table.
type rateRow struct {
	year1, year2, year3, year4Plus decimal.NullDecimal
}

func rateRowOf(t model.RateTable) rateRow {
	return rateRow{
		year1:     nullDecimal(t.Year1),
		year2:     nullDecimal(t.Year2),
		year3:     nullDecimal(t.Year3),
		year4Plus: nullDecimal(t.Year4Plus),
	}
}

func (r rateRow) table() model.RateTable {
	return model.RateTable{
		Year1:     floatPtr(r.year1),
		Year2:     floatPtr(r.year2),
		Year3:     floatPtr(r.year3),
		Year4Plus: floatPtr(r.year4Plus),
	}
}

func scanBank(s scannable) (model.Bank, error) {
	var (
		b        model.Bank
		baseRate decimal.NullDecimal
		updated  time.Time
	)
	if err := s.Scan(&b.ID, &b.Name, &b.ShortName, &baseRate, &updated); err != nil {
		return model.Bank{}, err
	}
	b.BaseRate = floatPtr(baseRate)
	b.BaseRateUpdatedOn = datetime.FromTime(updated)
	return b, nil
}

func scanPromotion(s scannable) (model.Promotion, error) {
	var (
		p                model.Promotion
		product, basis   string
		rates            rateRow
		startsOn, endsOn pgtype.Date
	)
	err := s.Scan(
		&p.ID, &p.BankID, &p.Name, &product, &basis,
		&rates.year1, &rates.year2, &rates.year3, &rates.year4Plus,
		&p.Active, &startsOn, &endsOn, &p.FixedPeriodYears,
	)
	if err != nil {
		return model.Promotion{}, err
	}
	p.Product = model.ProductType(product)
	p.Basis = model.RateBasis(basis)
	p.Rates = rates.table()
	p.StartsOn = datePtr(startsOn)
	p.EndsOn = datePtr(endsOn)
	return p, nil
}

func scanRule(s scannable) (model.Rule, error) {
	var (
		r                                    model.Rule
		product                              string
		dsrCap, ltvCap, minIncome, minLiving decimal.Decimal
		bonusFactor, extraFactor             decimal.NullDecimal
	)
	err := s.Scan(
		&r.ID, &r.BankID, &product, &r.PropertyType, &r.HomeNumber,
		&dsrCap, &ltvCap, &r.MaxTenureYears, &r.MaxAgeAtMaturity,
		&minIncome, &minLiving, &bonusFactor, &extraFactor,
	)
	if err != nil {
		return model.Rule{}, err
	}
	r.Product = model.ProductType(product)
	r.DSRCap = dsrCap.InexactFloat64()
	r.LTVCap = ltvCap.InexactFloat64()
	r.MinIncomePerMillion = minIncome.InexactFloat64()
	r.MinLivingExpense = minLiving.InexactFloat64()
	r.BonusIncomeFactor = floatPtr(bonusFactor)
	r.ExtraIncomeFactor = floatPtr(extraFactor)
	return r, nil
}
