package metrics

import (
	"fmt"
	"math"

	"slippage/internal/models"
)

// BookSummary describes the ask side of one snapshot.
type BookSummary struct {
	MidPrice     float64        `json:"mid_price"`
	SpreadBps    float64        `json:"spread_bps"`
	Asks         []models.Level `json:"asks"`
	TotalAskSize float64        `json:"total_ask_size"`
}

// SummarizeBook computes mid price, spread and usable ask depth.
//
// - mid_price: (bid + ask) / 2
// - spread_bps: (ask - bid) / bid * 10000
// - asks: levels with both price and size present, best first, capped at MaxBookLevels
func SummarizeBook(s models.Snapshot) (*BookSummary, error) {
	if !s.HasTopOfBook() {
		return nil, fmt.Errorf("missing top of book: bid=%f ask=%f", s.BidPrice, s.AskPrice)
	}

	asks := AskLevels(s)
	if len(asks) == 0 {
		return nil, fmt.Errorf("no usable ask levels")
	}

	spread := 0.0
	if s.BidPrice > 0 {
		spread = (s.AskPrice - s.BidPrice) / s.BidPrice * 10000.0
	}

	return &BookSummary{
		MidPrice:     s.MidPrice(),
		SpreadBps:    spread,
		Asks:         asks,
		TotalAskSize: TotalSize(asks),
	}, nil
}

// AskLevels returns the ask levels of s that carry both a price and a size.
// A level with a negative size is treated as missing.
func AskLevels(s models.Snapshot) []models.Level {
	n := len(s.Asks)
	if n > models.MaxBookLevels {
		n = models.MaxBookLevels
	}

	levels := make([]models.Level, 0, n)
	for _, lvl := range s.Asks[:n] {
		if !finite(lvl.Price) || !finite(lvl.Size) || lvl.Size < 0 {
			continue
		}
		levels = append(levels, lvl)
	}
	return levels
}

// TotalSize sums the sizes of levels.
func TotalSize(levels []models.Level) float64 {
	total := 0.0
	for _, lvl := range levels {
		total += lvl.Size
	}
	return total
}

// AskSortingInvariant checks that asks are sorted ascending by price.
func AskSortingInvariant(asks []models.Level) error {
	for i := 1; i < len(asks); i++ {
		if asks[i].Price < asks[i-1].Price {
			return fmt.Errorf("asks not sorted ascending: ask[%d].price=%f < ask[%d].price=%f",
				i, asks[i].Price, i-1, asks[i-1].Price)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
