package model

import "time"

// CalculationRecord is a saved comparison: the request that produced it, the
// full result set and when it was stored.
type CalculationRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Request   Request   `json:"request"`
	Result    Result    `json:"result"`
	CreatedAt time.Time `json:"createdAt"`
}
