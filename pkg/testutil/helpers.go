// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/loan-compare/internal/model"
)

// FindOffer finds the offer for a bank and promotion in a result. An empty
// promotionID matches the bank's base-rate offer.
// Returns a pointer to the offer if found, nil otherwise.
func FindOffer(result model.Result, bankID, promotionID string) *model.Offer {
	for i := range result.Offers {
		if result.Offers[i].BankID == bankID && result.Offers[i].PromotionID == promotionID {
			return &result.Offers[i]
		}
	}
	return nil
}

// FindExclusion finds why a bank and promotion pairing was excluded.
// Returns a pointer to the exclusion if found, nil otherwise.
func FindExclusion(result model.Result, bankID, promotionID string) *model.Exclusion {
	for i := range result.Excluded {
		if result.Excluded[i].BankID == bankID && result.Excluded[i].PromotionID == promotionID {
			return &result.Excluded[i]
		}
	}
	return nil
}

// Float returns a pointer to v, for optional rate and factor fields.
func Float(v float64) *float64 {
	return &v
}
