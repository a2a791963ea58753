package eligibility

import (
	"sort"

	"github.com/iwvelando/loan-compare/internal/model"
)

// Rank orders offers in place: by amount descending in maximize mode, by
// debt service ratio ascending in check mode. The sort is stable, so offers
// that tie keep their incoming order. Rejected offers are kept.
func Rank(mode model.Mode, offers []model.Offer) {
	switch mode {
	case model.ModeCheck:
		sort.SliceStable(offers, func(i, j int) bool {
			return offers[i].DSR < offers[j].DSR
		})
	default:
		sort.SliceStable(offers, func(i, j int) bool {
			return offers[i].Amount > offers[j].Amount
		})
	}
}
