package models

import "math"

// MaxBookLevels is the number of ask levels carried per snapshot (MBP-10).
const MaxBookLevels = 10

// Level is a single resting price tier on one side of the book.
type Level struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// Snapshot is one row of historical book state for a single instrument.
// Missing prices are NaN. Asks are ordered best first and hold at most
// MaxBookLevels entries.
type Snapshot struct {
	BidPrice float64 `json:"bid_price"`
	AskPrice float64 `json:"ask_price"`
	Asks     []Level `json:"asks"`
}

// HasTopOfBook reports whether both best bid and best ask are present.
func (s Snapshot) HasTopOfBook() bool {
	return isFinite(s.BidPrice) && isFinite(s.AskPrice)
}

// MidPrice returns (bid + ask) / 2.
func (s Snapshot) MidPrice() float64 {
	return (s.BidPrice + s.AskPrice) / 2.0
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
