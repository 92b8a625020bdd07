package archive

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/wmcube/settlesplit/internal/email"
	"github.com/wmcube/settlesplit/internal/models"
)

const (
	pagesSheet  = "Pages"
	totalsSheet = "Totals"
)

// WriteReport writes an XLSX run report: one row per emitted file plus a
// per-currency totals sheet.
func WriteReport(path string, files []models.OutputFile) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", pagesSheet); err != nil {
		return fmt.Errorf("failed to name report sheet: %w", err)
	}

	headers := []string{"Sequence", "Filename", "Currency", "Payment Total"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(pagesSheet, cell, h)
	}
	for i, file := range files {
		row := i + 2
		f.SetCellValue(pagesSheet, fmt.Sprintf("A%d", row), file.Sequence)
		f.SetCellValue(pagesSheet, fmt.Sprintf("B%d", row), file.Filename)
		f.SetCellValue(pagesSheet, fmt.Sprintf("C%d", row), file.Currency)
		if file.PaymentTotal != nil {
			f.SetCellValue(pagesSheet, fmt.Sprintf("D%d", row), *file.PaymentTotal)
		} else {
			f.SetCellValue(pagesSheet, fmt.Sprintf("D%d", row), "unparsed")
		}
	}

	if _, err := f.NewSheet(totalsSheet); err != nil {
		return fmt.Errorf("failed to create totals sheet: %w", err)
	}
	f.SetCellValue(totalsSheet, "A1", "Currency")
	f.SetCellValue(totalsSheet, "B1", "Total")

	totals := TotalsByCurrency(files)
	currencies := make([]string, 0, len(totals))
	for c := range totals {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)
	for i, c := range currencies {
		row := i + 2
		f.SetCellValue(totalsSheet, fmt.Sprintf("A%d", row), c)
		f.SetCellValue(totalsSheet, fmt.Sprintf("B%d", row), email.FormatAmount(totals[c]))
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}
