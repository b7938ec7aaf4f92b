package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"slippage/internal/models"
)

const (
	summarySheet    = "Results"
	allocationSheet = "Allocations"
)

// XLSX renders a workbook with a summary sheet (the CSV layout) and an
// allocations sheet holding each record's per-interval schedule.
func XLSX(records []*models.AnalysisResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(allocationSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}

	header := make([]interface{}, len(CSVHeader))
	for i, h := range CSVHeader {
		header[i] = h
	}
	if err := setRow(f, summarySheet, 1, header); err != nil {
		return nil, err
	}

	maxIntervals := 0
	row := 2
	for _, r := range records {
		if r == nil || r.Ticker == "" {
			continue
		}
		values := []interface{}{
			r.Ticker,
			r.ModelParams.PowerLaw.A,
			r.ModelParams.PowerLaw.B,
			r.RiskMetrics.TotalSlippageCost,
			r.RiskMetrics.MaxAllocation,
			r.RiskMetrics.MinAllocation,
			r.RiskMetrics.AllocationVariance,
		}
		if err := setRow(f, summarySheet, row, values); err != nil {
			return nil, err
		}

		alloc := []interface{}{r.Ticker, r.Allocation.TotalShares, string(r.Allocation.Status)}
		for _, v := range r.Allocation.Allocations {
			alloc = append(alloc, v)
		}
		if err := setRow(f, allocationSheet, row, alloc); err != nil {
			return nil, err
		}
		maxIntervals = max(maxIntervals, len(r.Allocation.Allocations))
		row++
	}

	allocHeader := []interface{}{"Ticker", "Total_Shares", "Status"}
	for i := 1; i <= maxIntervals; i++ {
		allocHeader = append(allocHeader, fmt.Sprintf("Interval_%d", i))
	}
	if err := setRow(f, allocationSheet, 1, allocHeader); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
