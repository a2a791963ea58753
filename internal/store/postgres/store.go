package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iwvelando/loan-compare/internal/model"
	"github.com/iwvelando/loan-compare/internal/store"
	"github.com/iwvelando/loan-compare/pkg/datetime"
)

var _ store.Store = (*Store)(nil)

const foreignKeyViolation = "23503"

const (
	bankColumns      = `id, name, short_name, base_rate, base_rate_updated_on`
	promotionColumns = `id, bank_id, name, product, basis,
		rate_year1, rate_year2, rate_year3, rate_year4_plus,
		active, starts_on, ends_on, fixed_period_years`
	ruleColumns = `id, bank_id, product, property_type, home_number,
		dsr_cap, ltv_cap, max_tenure_years, max_age_at_maturity,
		min_income_per_million, min_living_expense,
		bonus_income_factor, extra_income_factor`
)

// Store implements store.Store backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an open pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open creates a pool from cfg and wraps it.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(pool), nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check: %w", err)
	}
	return nil
}

func (s *Store) ListBanks(ctx context.Context) ([]model.Bank, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+bankColumns+` FROM banks ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query banks: %w", err)
	}
	defer rows.Close()

	var result []model.Bank
	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bank: %w", err)
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

func (s *Store) ListActivePromotions(ctx context.Context, product model.ProductType, asOf civil.Date) ([]model.Promotion, error) {
	query := `
		SELECT ` + promotionColumns + `
		FROM promotions
		WHERE product = $1
		  AND active
		  AND (starts_on IS NULL OR starts_on <= $2)
		  AND (ends_on IS NULL OR ends_on >= $2)
		ORDER BY id
	`
	return s.queryPromotions(ctx, query, string(product), datetime.ToTime(asOf))
}

func (s *Store) ListPromotions(ctx context.Context) ([]model.Promotion, error) {
	return s.queryPromotions(ctx, `SELECT `+promotionColumns+` FROM promotions ORDER BY id`)
}

func (s *Store) queryPromotions(ctx context.Context, query string, args ...any) ([]model.Promotion, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query promotions: %w", err)
	}
	defer rows.Close()

	var result []model.Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) ListRules(ctx context.Context, filter store.RuleFilter) ([]model.Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM rules
		WHERE ($1 = '' OR bank_id = $1)
		  AND ($2 = '' OR product = $2)
		ORDER BY id
	`
	rows, err := s.pool.Query(ctx, query, filter.BankID, string(filter.Product))
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var result []model.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// SaveCalculation stores the request columns alongside the full result as JSONB.
func (s *Store) SaveCalculation(ctx context.Context, record model.CalculationRecord) error {
	result, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("encode calculation result: %w", err)
	}
	req := record.Request
	query := `
		INSERT INTO calculations (
			id, session_id, product, mode, income, bonus_income, extra_income,
			debt, age, tenure_years, property_value, property_type, home_number,
			requested_amount, result, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`
	_, err = s.pool.Exec(ctx, query,
		record.ID, record.SessionID, string(req.Product), string(req.Mode),
		decimal.NewFromFloat(req.Income), decimal.NewFromFloat(req.BonusIncome),
		decimal.NewFromFloat(req.ExtraIncome), decimal.NewFromFloat(req.Debt),
		req.Age, req.TenureYears, decimal.NewFromFloat(req.PropertyValue),
		req.PropertyType, req.HomeNumber, decimal.NewFromFloat(req.RequestedAmount),
		result, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save calculation: %w", err)
	}
	return nil
}

func (s *Store) ListRecentCalculations(ctx context.Context, sessionID string, limit int) ([]model.CalculationRecord, error) {
	query := `
		SELECT id::text, session_id, product, mode, income, bonus_income,
		       extra_income, debt, age, tenure_years, property_value,
		       property_type, home_number, requested_amount, result, created_at
		FROM calculations
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query calculations: %w", err)
	}
	defer rows.Close()

	var result []model.CalculationRecord
	for rows.Next() {
		rec, err := scanCalculation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func scanCalculation(s scannable) (model.CalculationRecord, error) {
	var (
		rec                            model.CalculationRecord
		product, mode                  string
		income, bonus, extra, debt     decimal.Decimal
		propertyValue, requestedAmount decimal.Decimal
		result                         []byte
	)
	req := &rec.Request
	err := s.Scan(
		&rec.ID, &rec.SessionID, &product, &mode, &income, &bonus,
		&extra, &debt, &req.Age, &req.TenureYears, &propertyValue,
		&req.PropertyType, &req.HomeNumber, &requestedAmount, &result, &rec.CreatedAt,
	)
	if err != nil {
		return model.CalculationRecord{}, fmt.Errorf("scan calculation: %w", err)
	}
	req.Product = model.ProductType(product)
	req.Mode = model.Mode(mode)
	req.Income = income.InexactFloat64()
	req.BonusIncome = bonus.InexactFloat64()
	req.ExtraIncome = extra.InexactFloat64()
	req.Debt = debt.InexactFloat64()
	req.PropertyValue = propertyValue.InexactFloat64()
	req.RequestedAmount = requestedAmount.InexactFloat64()
	if err := json.Unmarshal(result, &rec.Result); err != nil {
		return model.CalculationRecord{}, fmt.Errorf("decode calculation %s: %w", rec.ID, err)
	}
	return rec, nil
}

func (s *Store) UpsertBank(ctx context.Context, bank model.Bank) error {
	query := `
		INSERT INTO banks (` + bankColumns + `)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name                 = EXCLUDED.name,
			short_name           = EXCLUDED.short_name,
			base_rate            = EXCLUDED.base_rate,
			base_rate_updated_on = EXCLUDED.base_rate_updated_on
	`
	_, err := s.pool.Exec(ctx, query,
		bank.ID, bank.Name, bank.ShortName, nullDecimal(bank.BaseRate),
		datetime.ToTime(bank.BaseRateUpdatedOn),
	)
	if err != nil {
		return fmt.Errorf("upsert bank %s: %w", bank.ID, err)
	}
	return nil
}

// DeleteBank removes a bank; promotions and rules cascade.
func (s *Store) DeleteBank(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "banks", id)
}

func (s *Store) UpdateBaseRate(ctx context.Context, shortName string, rate float64, on civil.Date) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE banks SET base_rate = $2, base_rate_updated_on = $3 WHERE short_name = $1`,
		shortName, decimal.NewFromFloat(rate), datetime.ToTime(on),
	)
	if err != nil {
		return fmt.Errorf("update base rate for %s: %w", shortName, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UpsertPromotion(ctx context.Context, promo model.Promotion) error {
	rates := rateRowOf(promo.Rates)
	query := `
		INSERT INTO promotions (` + promotionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			bank_id            = EXCLUDED.bank_id,
			name               = EXCLUDED.name,
			product            = EXCLUDED.product,
			basis              = EXCLUDED.basis,
			rate_year1         = EXCLUDED.rate_year1,
			rate_year2         = EXCLUDED.rate_year2,
			rate_year3         = EXCLUDED.rate_year3,
			rate_year4_plus    = EXCLUDED.rate_year4_plus,
			active             = EXCLUDED.active,
			starts_on          = EXCLUDED.starts_on,
			ends_on            = EXCLUDED.ends_on,
			fixed_period_years = EXCLUDED.fixed_period_years
	`
	_, err := s.pool.Exec(ctx, query,
		promo.ID, promo.BankID, promo.Name, string(promo.Product), string(promo.Basis),
		rates.year1, rates.year2, rates.year3, rates.year4Plus,
		promo.Active, dateArg(promo.StartsOn), dateArg(promo.EndsOn), promo.FixedPeriodYears,
	)
	if err != nil {
		return fmt.Errorf("upsert promotion %s: %w", promo.ID, translate(err))
	}
	return nil
}

func (s *Store) DeletePromotion(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "promotions", id)
}

func (s *Store) UpsertRule(ctx context.Context, rule model.Rule) error {
	query := `
		INSERT INTO rules (` + ruleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			bank_id                = EXCLUDED.bank_id,
			product                = EXCLUDED.product,
			property_type          = EXCLUDED.property_type,
			home_number            = EXCLUDED.home_number,
			dsr_cap                = EXCLUDED.dsr_cap,
			ltv_cap                = EXCLUDED.ltv_cap,
			max_tenure_years       = EXCLUDED.max_tenure_years,
			max_age_at_maturity    = EXCLUDED.max_age_at_maturity,
			min_income_per_million = EXCLUDED.min_income_per_million,
			min_living_expense     = EXCLUDED.min_living_expense,
			bonus_income_factor    = EXCLUDED.bonus_income_factor,
			extra_income_factor    = EXCLUDED.extra_income_factor
	`
	_, err := s.pool.Exec(ctx, query,
		rule.ID, rule.BankID, string(rule.Product), rule.PropertyType, rule.HomeNumber,
		decimal.NewFromFloat(rule.DSRCap), decimal.NewFromFloat(rule.LTVCap),
		rule.MaxTenureYears, rule.MaxAgeAtMaturity,
		decimal.NewFromFloat(rule.MinIncomePerMillion), decimal.NewFromFloat(rule.MinLivingExpense),
		nullDecimal(rule.BonusIncomeFactor), nullDecimal(rule.ExtraIncomeFactor),
	)
	if err != nil {
		return fmt.Errorf("upsert rule %s: %w", rule.ID, translate(err))
	}
	return nil
}

func (s *Store) DeleteRule(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "rules", id)
}

// deleteByID is only called with the fixed table names above.
func (s *Store) deleteByID(ctx context.Context, table, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// translate maps a foreign key violation onto store.ErrNotFound so callers
// see the same error as from the memory store.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return fmt.Errorf("%s: %w", pgErr.Detail, store.ErrNotFound)
	}
	return err
}
