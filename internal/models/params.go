package models

// Params are the caller-supplied analysis parameters.
type Params struct {
	SampleSize       int     `json:"sample_size" validate:"gte=1"`
	OrderSizePoints  int     `json:"order_size_points" validate:"gte=2,lte=10000"`
	BookDepthPct     float64 `json:"book_depth_pct" validate:"gt=0,lte=100"`
	TotalShares      int     `json:"total_shares" validate:"gt=0"`
	TradingIntervals int     `json:"trading_intervals" validate:"gt=0,lte=1000"`
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		SampleSize:       1000,
		OrderSizePoints:  20,
		BookDepthPct:     50,
		TotalShares:      50000,
		TradingIntervals: 10,
	}
}

// BookDepthFraction converts the percentage into a fraction of total ask depth.
func (p Params) BookDepthFraction() float64 {
	return p.BookDepthPct / 100.0
}
