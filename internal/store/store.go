// Package store defines the data-access boundary between the comparison
// service and whatever holds banks, promotions, rules and saved calculations.
package store

import (
	"context"
	"errors"

	"cloud.google.com/go/civil"
	"github.com/iwvelando/loan-compare/internal/model"
)

// ErrNotFound is returned when an admin operation targets a missing row.
var ErrNotFound = errors.New("not found")

// RuleFilter narrows ListRules. Empty fields match everything.
type RuleFilter struct {
	BankID  string
	Product model.ProductType
}

// Reader is what a comparison needs from the store.
type Reader interface {
	ListBanks(ctx context.Context) ([]model.Bank, error)
	// ListActivePromotions returns active promotions for product whose
	// validity window, when present, contains asOf.
	ListActivePromotions(ctx context.Context, product model.ProductType, asOf civil.Date) ([]model.Promotion, error)
	ListRules(ctx context.Context, filter RuleFilter) ([]model.Rule, error)
}

// History persists and lists saved calculations.
type History interface {
	SaveCalculation(ctx context.Context, record model.CalculationRecord) error
	ListRecentCalculations(ctx context.Context, sessionID string, limit int) ([]model.CalculationRecord, error)
}

// Admin manages reference data.
type Admin interface {
	UpsertBank(ctx context.Context, bank model.Bank) error
	DeleteBank(ctx context.Context, id string) error
	// UpdateBaseRate sets the base rate of the bank with the given short name.
	UpdateBaseRate(ctx context.Context, shortName string, rate float64, on civil.Date) error
	ListPromotions(ctx context.Context) ([]model.Promotion, error)
	UpsertPromotion(ctx context.Context, promo model.Promotion) error
	DeletePromotion(ctx context.Context, id string) error
	UpsertRule(ctx context.Context, rule model.Rule) error
	DeleteRule(ctx context.Context, id string) error
}

// Store is the full facade implemented by the memory and postgres backends.
type Store interface {
	Reader
	History
	Admin
	Close()
}

// MatchesRule reports whether rule passes filter.
func (f RuleFilter) MatchesRule(rule model.Rule) bool {
	if f.BankID != "" && rule.BankID != f.BankID {
		return false
	}
	if f.Product != "" && rule.Product != f.Product {
		return false
	}
	return true
}
