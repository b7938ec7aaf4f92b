package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"slippage/internal/models"
)

// WalkBook returns the slippage of a market buy of orderSize shares against
// asks: the volume-weighted execution price minus mid.
//
// Levels are consumed best first until the order is filled or the book is
// exhausted. An unfilled remainder adds no cost, so orders deeper than the
// book understate the true slippage.
func WalkBook(asks []models.Level, orderSize, mid float64) float64 {
	if orderSize <= 0 {
		return 0
	}

	remaining := orderSize
	avgPrice := 0.0
	for _, lvl := range asks {
		if remaining <= 0 {
			break
		}
		take := math.Min(remaining, lvl.Size)
		avgPrice += take / orderSize * lvl.Price
		remaining -= take
	}

	return avgPrice - mid
}

// Linspace returns n evenly spaced values over [start, stop], both ends
// included. n == 1 yields start.
func Linspace(start, stop float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{start}
	}
	return floats.Span(make([]float64, n), start, stop)
}

// SampleSlippage walks every snapshot at numPoints order sizes spread over
// [1, total ask size * depthFraction] and keeps the strictly positive
// slippage samples. Rows without top of book or usable asks are skipped.
func SampleSlippage(snapshots []models.Snapshot, depthFraction float64, numPoints int) []models.SlippagePoint {
	var points []models.SlippagePoint

	for _, snap := range snapshots {
		book, err := SummarizeBook(snap)
		if err != nil {
			continue
		}

		maxOrderSize := book.TotalAskSize * depthFraction
		for _, size := range Linspace(1, maxOrderSize, numPoints) {
			s := WalkBook(book.Asks, size, book.MidPrice)
			if s > 0 {
				points = append(points, models.SlippagePoint{OrderSize: size, Slippage: s})
			}
		}
	}

	return points
}
