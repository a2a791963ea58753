// Package eligibility computes and ranks loan offers for every bank and
// promotion pairing in a data snapshot.
package eligibility

import (
	"math"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/iwvelando/loan-compare/internal/model"
	"github.com/iwvelando/loan-compare/pkg/constants"
	"github.com/iwvelando/loan-compare/pkg/loans"
	"github.com/iwvelando/loan-compare/pkg/mathutil"
	"github.com/iwvelando/loan-compare/pkg/rates"
	"go.uber.org/zap"
)

// Policy holds product-policy parameters that come from configuration rather
// than from a bank's rule table.
type Policy struct {
	// BonusIncomeFactor is the share of bonus income recognised when a rule
	// does not declare its own factor.
	BonusIncomeFactor float64
	// ExtraIncomeFactor is the share of supplementary income recognised when
	// a rule does not declare its own factor.
	ExtraIncomeFactor float64
}

// Snapshot is the request-scoped copy of store data a computation runs on.
type Snapshot struct {
	Banks      []model.Bank
	Promotions []model.Promotion
	Rules      []model.Rule
	AsOf       civil.Date
}

// Engine computes offers. It holds no mutable state; Compute may be called
// concurrently.
type Engine struct {
	policy Policy
	logger *zap.Logger
}

// NewEngine creates an engine using the given policy.
func NewEngine(policy Policy, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{policy: policy, logger: logger}
}

type pairing struct {
	bank  model.Bank
	promo *model.Promotion
}

// Compute evaluates every bank/promotion pairing of snap for req and returns
// the ranked result. The request must already be validated.
func (e *Engine) Compute(req model.Request, snap Snapshot) model.Result {
	result := model.Result{Mode: req.Mode, Offers: []model.Offer{}}

	for _, p := range pairings(req.Product, snap) {
		offer, reason, ok := e.evaluate(req, snap.Rules, p)
		if !ok {
			exclusion := model.Exclusion{BankID: p.bank.ID, Reason: reason}
			if p.promo != nil {
				exclusion.PromotionID = p.promo.ID
			}
			e.logger.Debug("pairing excluded",
				zap.String("op", "eligibility.Compute"),
				zap.String("bank", exclusion.BankID),
				zap.String("promotion", exclusion.PromotionID),
				zap.String("reason", reason),
			)
			result.Excluded = append(result.Excluded, exclusion)
			continue
		}
		result.Offers = append(result.Offers, offer)
	}

	Rank(req.Mode, result.Offers)
	return result
}

// pairings lists every bank with each of its eligible promotions, in a
// deterministic bank-then-promotion order. Banks without an eligible
// promotion are paired with their base rate.
func pairings(product model.ProductType, snap Snapshot) []pairing {
	banks := append([]model.Bank(nil), snap.Banks...)
	sort.SliceStable(banks, func(i, j int) bool { return banks[i].ID < banks[j].ID })

	byBank := make(map[string][]model.Promotion)
	for _, promo := range snap.Promotions {
		if promo.EligibleOn(product, snap.AsOf) {
			byBank[promo.BankID] = append(byBank[promo.BankID], promo)
		}
	}

	var out []pairing
	for _, bank := range banks {
		promos := byBank[bank.ID]
		if len(promos) == 0 {
			out = append(out, pairing{bank: bank})
			continue
		}
		sort.SliceStable(promos, func(i, j int) bool { return promos[i].ID < promos[j].ID })
		for i := range promos {
			out = append(out, pairing{bank: bank, promo: &promos[i]})
		}
	}
	return out
}

// SelectRule returns the most specific rule matching the request for a bank.
// Ties go to the lowest rule ID.
func SelectRule(rules []model.Rule, bankID string, req model.Request) (model.Rule, bool) {
	var (
		best      model.Rule
		bestScore = -1
	)
	for _, rule := range rules {
		score, ok := rule.Matches(bankID, req.Product, req.PropertyType, req.HomeNumber)
		if !ok {
			continue
		}
		if score > bestScore || (score == bestScore && rule.ID < best.ID) {
			best, bestScore = rule, score
		}
	}
	return best, bestScore >= 0
}

// AllowedTenure is the requested tenure limited by the rule's maximum tenure
// and by the years left before the maximum age at maturity. Zero limits in
// the rule mean "no limit".
func AllowedTenure(req model.Request, rule model.Rule) int {
	tenure := req.TenureYears
	if rule.MaxTenureYears > 0 && rule.MaxTenureYears < tenure {
		tenure = rule.MaxTenureYears
	}
	if rule.MaxAgeAtMaturity > 0 {
		if left := rule.MaxAgeAtMaturity - req.Age; left < tenure {
			tenure = left
		}
	}
	return tenure
}

// AssessedIncome is the monthly income the bank recognises: base income plus
// discounted bonus and supplementary income.
func (e *Engine) AssessedIncome(req model.Request, rule model.Rule) float64 {
	bonusFactor := e.policy.BonusIncomeFactor
	if rule.BonusIncomeFactor != nil {
		bonusFactor = *rule.BonusIncomeFactor
	}
	extraFactor := e.policy.ExtraIncomeFactor
	if rule.ExtraIncomeFactor != nil {
		extraFactor = *rule.ExtraIncomeFactor
	}
	return req.Income + req.BonusIncome*bonusFactor + req.ExtraIncome*extraFactor
}

func (e *Engine) evaluate(req model.Request, rules []model.Rule, p pairing) (model.Offer, string, bool) {
	rule, ok := SelectRule(rules, p.bank.ID, req)
	if !ok {
		return model.Offer{}, model.ReasonNoRule, false
	}

	tenure := AllowedTenure(req, rule)
	if tenure <= 0 {
		return model.Offer{}, model.ReasonTenureExhausted, false
	}

	rate, ok := rates.Effective(p.promo, p.bank)
	if !ok {
		return model.Offer{}, model.ReasonRateUnresolvable, false
	}

	offer := model.Offer{
		BankID:         p.bank.ID,
		BankName:       p.bank.Name,
		RuleID:         rule.ID,
		Rates:          rates.Schedule(p.promo, p.bank, rates.TableYears),
		EffectiveRate:  rate,
		TenureYears:    tenure,
		AssessedIncome: mathutil.Round(e.AssessedIncome(req, rule)),
	}
	if p.promo != nil {
		offer.PromotionID = p.promo.ID
		offer.PromotionName = p.promo.Name
	}

	months := tenure * constants.MonthsPerYear
	switch req.Mode {
	case model.ModeCheck:
		e.check(req, rule, rate, months, &offer)
	default:
		e.maximize(req, rule, rate, months, &offer)
	}

	if offer.Amount > 0 {
		offer.Phases = phases(offer.Amount, offer.Rates, rate, months)
	}
	return offer, "", true
}

func (e *Engine) maximize(req model.Request, rule model.Rule, rate float64, months int, offer *model.Offer) {
	income := e.AssessedIncome(req, rule)

	maxPayment := mathutil.Max(0, rule.DSRCap*income-req.Debt)
	if rule.MinLivingExpense > 0 {
		maxPayment = mathutil.Min(maxPayment, mathutil.Max(0, income-req.Debt-rule.MinLivingExpense))
	}
	offer.MaxPayment = mathutil.Round(maxPayment)
	if maxPayment <= 0 {
		reject(offer, model.ReasonDebtCapacityExhausted)
		return
	}

	byPayment, err := loans.MaxPrincipal(maxPayment, rate, months)
	if err != nil {
		reject(offer, model.ReasonNoCapacity)
		return
	}
	byIncome := math.Inf(1)
	if rule.MinIncomePerMillion > 0 {
		byIncome = income / rule.MinIncomePerMillion * constants.LoanUnit
	}
	byCollateral := math.Inf(1)
	if req.Product.Secured() {
		byCollateral = req.PropertyValue * rule.LTVCap
	}

	amount := mathutil.Max(0, mathutil.Min(byPayment, mathutil.Min(byIncome, byCollateral)))
	offer.Amount = mathutil.Round(amount)
	if offer.Amount <= 0 {
		reject(offer, model.ReasonNoCapacity)
		return
	}

	payment, err := loans.MonthlyPayment(amount, rate, months)
	if err != nil {
		reject(offer, model.ReasonNoCapacity)
		return
	}
	offer.MonthlyPayment = mathutil.Round(payment)
	offer.DSR = mathutil.Ratio(req.Debt+payment, income)
	if req.Product.Secured() {
		offer.LTV = mathutil.Ratio(amount, req.PropertyValue)
	}
	offer.Status = model.StatusApproved
}

func (e *Engine) check(req model.Request, rule model.Rule, rate float64, months int, offer *model.Offer) {
	income := e.AssessedIncome(req, rule)
	amount := req.RequestedAmount

	offer.Amount = mathutil.Round(amount)
	payment, err := loans.MonthlyPayment(amount, rate, months)
	if err != nil {
		reject(offer, model.ReasonNoCapacity)
		return
	}
	offer.MonthlyPayment = mathutil.Round(payment)
	offer.DSR = mathutil.Ratio(req.Debt+payment, income)

	var reasons []string
	if offer.DSR > rule.DSRCap {
		reasons = append(reasons, model.ReasonDSRExceeded)
	}
	if req.Product.Secured() {
		offer.LTV = mathutil.Ratio(amount, req.PropertyValue)
		if offer.LTV > rule.LTVCap {
			reasons = append(reasons, model.ReasonLTVExceeded)
		}
	}
	if rule.MinLivingExpense > 0 && income-req.Debt-payment < rule.MinLivingExpense {
		reasons = append(reasons, model.ReasonLivingExpenseFloor)
	}

	if len(reasons) > 0 {
		reject(offer, reasons...)
		return
	}
	offer.Status = model.StatusApproved
}

func reject(offer *model.Offer, reasons ...string) {
	offer.Status = model.StatusRejected
	offer.Reasons = append(offer.Reasons, reasons...)
}

// phases builds the stepped-rate disclosure for an offer. Unresolvable years
// inherit the headline rate.
func phases(principal float64, schedule []*float64, headline float64, months int) []model.Phase {
	yearly := make([]float64, len(schedule))
	for i, r := range schedule {
		if r != nil {
			yearly[i] = *r
		} else {
			yearly[i] = headline
		}
	}

	stepped, err := loans.SteppedPayments(principal, yearly, months)
	if err != nil {
		return nil
	}
	out := make([]model.Phase, 0, len(stepped))
	for _, s := range stepped {
		out = append(out, model.Phase{
			FromMonth: s.FromMonth,
			ToMonth:   s.ToMonth,
			Rate:      s.Rate,
			Payment:   mathutil.Round(s.Payment),
		})
	}
	return out
}
