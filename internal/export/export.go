// Package export formats analysis results for download as JSON, CSV or XLSX.
package export

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"slippage/internal/models"
)

// ErrUnsupportedFormat is returned for a format other than json, csv or xlsx.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// CSVHeader is the summary row layout shared by CSV and the XLSX summary sheet.
var CSVHeader = []string{
	"Ticker", "Model_A", "Model_B", "Total_Slippage_Cost",
	"Max_Allocation", "Min_Allocation", "Allocation_Variance",
}

// ParseFormat maps a request value to a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV, FormatXLSX:
		return Format(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// File is an encoded export. Binary formats are base64 encoded in Data.
type File struct {
	Data     string `json:"data"`
	Filename string `json:"filename"`
}

// Filename returns analysis_results_YYYYMMDD_HHMMSS.<ext> for at.
func Filename(format Format, at time.Time) string {
	return fmt.Sprintf("analysis_results_%s.%s", at.Format("20060102_150405"), format)
}

// Results is an export payload: either one analysis record or a list.
// It marshals back in the shape it was read.
type Results struct {
	Records []*models.AnalysisResult
	single  bool
}

// Single wraps one record.
func Single(r *models.AnalysisResult) Results {
	return Results{Records: []*models.AnalysisResult{r}, single: true}
}

// List wraps several records.
func List(rs []*models.AnalysisResult) Results {
	return Results{Records: rs}
}

func (r *Results) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*r = Results{}
		return nil
	}
	if b[0] == '[' {
		var list []*models.AnalysisResult
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*r = List(list)
		return nil
	}
	var one models.AnalysisResult
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*r = Single(&one)
	return nil
}

func (r Results) MarshalJSON() ([]byte, error) {
	if r.single && len(r.Records) == 1 {
		return json.Marshal(r.Records[0])
	}
	if r.Records == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.Records)
}

// Export encodes results in format, naming the file after at.
func Export(format Format, results Results, at time.Time) (*File, error) {
	var data string
	switch format {
	case FormatJSON:
		b, err := JSON(results)
		if err != nil {
			return nil, err
		}
		data = string(b)
	case FormatCSV:
		s, err := CSV(results.Records)
		if err != nil {
			return nil, err
		}
		data = s
	case FormatXLSX:
		b, err := XLSX(results.Records)
		if err != nil {
			return nil, err
		}
		data = base64.StdEncoding.EncodeToString(b)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return &File{Data: data, Filename: Filename(format, at)}, nil
}

// JSON renders v with two-space indentation.
func JSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json marshal failed: %w", err)
	}
	return b, nil
}

// CSV renders one summary row per record. Records without a ticker are skipped.
func CSV(records []*models.AnalysisResult) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader); err != nil {
		return "", err
	}
	for _, r := range records {
		if r == nil || r.Ticker == "" {
			continue
		}
		if err := w.Write(summaryRow(r)); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("csv write failed: %w", err)
	}
	return buf.String(), nil
}

func summaryRow(r *models.AnalysisResult) []string {
	return []string{
		r.Ticker,
		formatFloat(r.ModelParams.PowerLaw.A),
		formatFloat(r.ModelParams.PowerLaw.B),
		formatFloat(r.RiskMetrics.TotalSlippageCost),
		formatFloat(r.RiskMetrics.MaxAllocation),
		formatFloat(r.RiskMetrics.MinAllocation),
		formatFloat(r.RiskMetrics.AllocationVariance),
	}
}

// formatFloat prints the shortest decimal that round-trips, never in
// exponent notation.
func formatFloat(v float64) string {
	return decimal.NewFromFloat(v).String()
}
