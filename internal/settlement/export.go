package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Summary"
	paymentsSheet = "Payments"
)

// ExportXLSX writes the report as a workbook with a Summary sheet (one row
// per participant and currency) and a Payments sheet.
func (s *Service) ExportXLSX(ctx context.Context, tripID *string) ([]byte, error) {
	start := time.Now()

	report, err := s.Report(ctx, tripID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	// NewFile starts with "Sheet1".
	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(paymentsSheet); err != nil {
		return nil, err
	}

	writeRow := func(sheet string, row int, values ...any) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheet, cell, &values)
	}

	if err := writeRow(summarySheet, 1, "Currency", "Participant", "Paid", "Owes", "Net"); err != nil {
		return nil, err
	}
	if err := writeRow(paymentsSheet, 1, "Currency", "From", "To", "Amount"); err != nil {
		return nil, err
	}

	summaryRow, paymentRow := 2, 2
	for _, plan := range report.Plans {
		for _, sum := range plan.Summaries {
			if err := writeRow(summarySheet, summaryRow, plan.Currency, sum.Name,
				sum.Paid.InexactFloat64(), sum.Owes.InexactFloat64(), sum.NetAmount.InexactFloat64()); err != nil {
				return nil, err
			}
			summaryRow++
		}
		for _, p := range plan.Payments {
			if err := writeRow(paymentsSheet, paymentRow, plan.Currency, p.FromName, p.ToName, p.Amount.InexactFloat64()); err != nil {
				return nil, err
			}
			paymentRow++
		}
	}

	_ = f.SetColWidth(summarySheet, "B", "B", 24)
	_ = f.SetColWidth(summarySheet, "C", "E", 14)
	_ = f.SetColWidth(paymentsSheet, "B", "C", 24)
	_ = f.SetColWidth(paymentsSheet, "D", "D", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("settlement export written",
		"plans", len(report.Plans),
		"rows", summaryRow-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
