package report

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dgallion1/doclayout/internal/docmodel"
)

const summarySheet = "Summary"

// SummaryFileName names the batch workbook for a run started at t.
func SummaryFileName(t time.Time) string {
	return fmt.Sprintf("batch_summary_%s.xlsx", t.UTC().Format("20060102_150405"))
}

// BatchXLSX renders one row per document plus a totals row.
func BatchXLSX(outcomes []docmodel.DocumentOutcome) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	headers := []string{"File", "Status", "Document Type", "Pages", "Chunks", "Entities", "Duration (s)", "Error"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(summarySheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(summarySheet, "A1", "H1", style)
	}

	row := 2
	success := 0
	for _, o := range outcomes {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(summarySheet, cell, v)
		}
		write(1, filepath.Base(o.Path))
		write(2, o.Status)
		write(3, string(o.DocType))
		write(4, o.Pages)
		write(5, o.Chunks)
		write(6, o.Entities)
		write(7, o.Duration.Seconds())
		write(8, o.Error)
		if o.Status == docmodel.OutcomeSuccess {
			success++
		}
		row++
	}

	row++
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Succeeded")
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), fmt.Sprintf("%d/%d", success, len(outcomes)))

	_ = f.SetColWidth(summarySheet, "A", "A", 36)
	_ = f.SetColWidth(summarySheet, "B", "C", 14)
	_ = f.SetColWidth(summarySheet, "D", "G", 12)
	_ = f.SetColWidth(summarySheet, "H", "H", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
