// Package model defines the domain types shared by the rate resolver, the
// eligibility engine, the store and the HTTP API.
package model

import (
	"cloud.google.com/go/civil"
)

// Bank is a lender together with its published reference (base) rate.
type Bank struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	// BaseRate is the reference minimum retail rate in percent. Nil when the
	// bank has not published one.
	BaseRate          *float64   `json:"baseRate,omitempty"`
	BaseRateUpdatedOn civil.Date `json:"baseRateUpdatedOn"`
}

// HasBaseRate reports whether the bank can serve as a rate fallback.
func (b Bank) HasBaseRate() bool {
	return b.BaseRate != nil
}
