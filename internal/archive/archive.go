// Package archive packages a run's output files for download: one ZIP bundle
// of everything, per-currency groupings, and an XLSX run report.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"

	"github.com/wmcube/settlesplit/internal/models"
)

// Zip bundles all output files of a run into a single deflated archive.
func Zip(files []models.OutputFile) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.Filename)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s to archive: %w", f.Filename, err)
		}
		if _, err := w.Write(f.Content); err != nil {
			return nil, fmt.Errorf("failed to write %s to archive: %w", f.Filename, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// GroupByCurrency splits output files into per-currency download sets,
// preserving emission order within each group.
func GroupByCurrency(files []models.OutputFile) map[string][]models.OutputFile {
	groups := make(map[string][]models.OutputFile)
	for _, f := range files {
		groups[f.Currency] = append(groups[f.Currency], f)
	}
	return groups
}

// TotalsByCurrency aggregates settled amounts per currency. Files whose
// amount failed to parse contribute nothing.
func TotalsByCurrency(files []models.OutputFile) map[string]float64 {
	totals := make(map[string]float64)
	for _, f := range files {
		if f.PaymentTotal != nil {
			totals[f.Currency] += *f.PaymentTotal
		}
	}
	return totals
}
