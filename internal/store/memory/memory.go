// Package memory is an in-process store used for tests and for running the
// service from a YAML dataset without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/iwvelando/loan-compare/internal/model"
	"github.com/iwvelando/loan-compare/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps every table in maps guarded by a single lock.
type Store struct {
	mu           sync.RWMutex
	banks        map[string]model.Bank
	promotions   map[string]model.Promotion
	rules        map[string]model.Rule
	calculations []model.CalculationRecord
}

// New returns an empty store.
func New() *Store {
	return &Store{
		banks:      make(map[string]model.Bank),
		promotions: make(map[string]model.Promotion),
		rules:      make(map[string]model.Rule),
	}
}

// NewFromDataset returns a store pre-populated with ds.
func NewFromDataset(ds Dataset) (*Store, error) {
	s := New()
	banks, promotions, rules, err := ds.Model()
	if err != nil {
		return nil, err
	}
	for _, b := range banks {
		s.banks[b.ID] = b
	}
	for _, p := range promotions {
		if _, ok := s.banks[p.BankID]; !ok {
			return nil, fmt.Errorf("promotion %s references unknown bank %s", p.ID, p.BankID)
		}
		s.promotions[p.ID] = p
	}
	for _, r := range rules {
		if _, ok := s.banks[r.BankID]; !ok {
			return nil, fmt.Errorf("rule %s references unknown bank %s", r.ID, r.BankID)
		}
		s.rules[r.ID] = r
	}
	return s, nil
}

// Close is a no-op.
func (s *Store) Close() {}

func (s *Store) ListBanks(_ context.Context) ([]model.Bank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Bank, 0, len(s.banks))
	for _, b := range s.banks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ListActivePromotions(_ context.Context, product model.ProductType, asOf civil.Date) ([]model.Promotion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Promotion
	for _, p := range s.promotions {
		if p.EligibleOn(product, asOf) {
			out = append(out, p)
		}
	}
	sortPromotions(out)
	return out, nil
}

func (s *Store) ListPromotions(_ context.Context) ([]model.Promotion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Promotion, 0, len(s.promotions))
	for _, p := range s.promotions {
		out = append(out, p)
	}
	sortPromotions(out)
	return out, nil
}

func (s *Store) ListRules(_ context.Context, filter store.RuleFilter) ([]model.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Rule
	for _, r := range s.rules {
		if filter.MatchesRule(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveCalculation(_ context.Context, record model.CalculationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calculations = append(s.calculations, record)
	return nil
}

// ListRecentCalculations returns the newest calculations of a session first.
func (s *Store) ListRecentCalculations(_ context.Context, sessionID string, limit int) ([]model.CalculationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.CalculationRecord
	for i := len(s.calculations) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if s.calculations[i].SessionID == sessionID {
			out = append(out, s.calculations[i])
		}
	}
	return out, nil
}

func (s *Store) UpsertBank(_ context.Context, bank model.Bank) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.banks {
		if id != bank.ID && existing.ShortName == bank.ShortName {
			return fmt.Errorf("short name %s already used by bank %s", bank.ShortName, id)
		}
	}
	s.banks[bank.ID] = bank
	return nil
}

// DeleteBank removes a bank together with its promotions and rules.
func (s *Store) DeleteBank(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.banks[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.banks, id)
	for pid, p := range s.promotions {
		if p.BankID == id {
			delete(s.promotions, pid)
		}
	}
	for rid, r := range s.rules {
		if r.BankID == id {
			delete(s.rules, rid)
		}
	}
	return nil
}

func (s *Store) UpdateBaseRate(_ context.Context, shortName string, rate float64, on civil.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, b := range s.banks {
		if b.ShortName == shortName {
			r := rate
			b.BaseRate = &r
			b.BaseRateUpdatedOn = on
			s.banks[id] = b
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) UpsertPromotion(_ context.Context, promo model.Promotion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.banks[promo.BankID]; !ok {
		return fmt.Errorf("promotion %s: bank %s: %w", promo.ID, promo.BankID, store.ErrNotFound)
	}
	s.promotions[promo.ID] = promo
	return nil
}

func (s *Store) DeletePromotion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.promotions[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.promotions, id)
	return nil
}

func (s *Store) UpsertRule(_ context.Context, rule model.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.banks[rule.BankID]; !ok {
		return fmt.Errorf("rule %s: bank %s: %w", rule.ID, rule.BankID, store.ErrNotFound)
	}
	s.rules[rule.ID] = rule
	return nil
}

func (s *Store) DeleteRule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.rules, id)
	return nil
}

func sortPromotions(promos []model.Promotion) {
	sort.Slice(promos, func(i, j int) bool { return promos[i].ID < promos[j].ID })
}
