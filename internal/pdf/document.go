// Package pdf gives the pipeline its three page-level views of a statement:
// plain text, a rendered PNG, and standalone single-page PDF bytes.
package pdf

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// DefaultDPI renders pages at 4x the PDF's native 72 DPI, matching the
// upscale the extraction model was tuned against.
const DefaultDPI = 288

// Document is one opened statement. The source is optimized and split into
// per-page files in a temp directory up front; page text comes from a
// separate reader over the original file. Not safe for concurrent use.
type Document struct {
	tempDir   string
	splitBase string
	pageCount int
	dpi       int
	file      *os.File
	reader    *lpdf.Reader
}

// Open prepares a statement for page-by-page processing. Any failure here is
// fatal to the run; partially acquired resources are released before return.
func Open(path string) (*Document, error) {
	tempDir, err := os.MkdirTemp("", "settlesplit-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	d := &Document{tempDir: tempDir, dpi: DefaultDPI}
	if err := d.prepare(path); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Document) prepare(path string) error {
	optimized := filepath.Join(d.tempDir, "optimized.pdf")
	if err := optimizePDF(path, optimized); err != nil {
		return fmt.Errorf("failed to validate/optimize PDF: %w", err)
	}

	pageCount, err := api.PageCountFile(optimized)
	if err != nil {
		return fmt.Errorf("failed to get page count: %w", err)
	}
	d.pageCount = pageCount

	if err := api.SplitFile(optimized, d.tempDir, 1, nil); err != nil {
		return fmt.Errorf("failed to split PDF: %w", err)
	}
	d.splitBase = strings.TrimSuffix(optimized, filepath.Ext(optimized))

	f, reader, err := lpdf.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open PDF for text extraction: %w", err)
	}
	d.file = f
	d.reader = reader
	return nil
}

func optimizePDF(inPath, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}

// SetDPI overrides the render resolution for subsequent RenderPNG calls.
// Values below 72 are ignored.
func (d *Document) SetDPI(dpi int) {
	if dpi >= 72 {
		d.dpi = dpi
	}
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	return d.pageCount
}

// PageText returns the page's plain text with one line per text row.
// Pages are 1-based.
func (d *Document) PageText(page int) (string, error) {
	if page < 1 || page > d.pageCount {
		return "", fmt.Errorf("page %d out of range 1..%d", page, d.pageCount)
	}
	p := d.reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	rows, err := p.GetTextByRow()
	if err != nil {
		return "", fmt.Errorf("failed to extract text from page %d: %w", page, err)
	}
	var b strings.Builder
	for _, row := range rows {
		words := make([]string, 0, len(row.Content))
		for _, word := range row.Content {
			words = append(words, word.S)
		}
		b.WriteString(strings.TrimSpace(strings.Join(words, " ")))
		b.WriteString("\n")
	}
	return b.String(), nil
}

// PageFile returns the standalone single-page PDF for the given page.
func (d *Document) PageFile(page int) ([]byte, error) {
	data, err := os.ReadFile(fmt.Sprintf("%s_%d.pdf", d.splitBase, page))
	if err != nil {
		return nil, fmt.Errorf("failed to read split page %d: %w", page, err)
	}
	return data, nil
}

// RenderPNG rasterizes one page via pdftoppm (poppler must be installed).
func (d *Document) RenderPNG(ctx context.Context, page int) ([]byte, error) {
	prefix := filepath.Join(d.tempDir, fmt.Sprintf("render-%d", page))
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-r", fmt.Sprintf("%d", d.dpi),
		"-f", fmt.Sprintf("%d", page),
		"-l", fmt.Sprintf("%d", page),
		"-png",
		d.splitBase+".pdf", prefix,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed for page %d: %w (output: %s)", page, err, out)
	}

	// pdftoppm zero-pads the page suffix depending on the page count, so
	// glob instead of guessing the exact name.
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no image for page %d", page)
	}
	return os.ReadFile(matches[0])
}

// Close releases the text reader and deletes the temp directory with the
// optimized copy and all split pages. Safe to call more than once.
func (d *Document) Close() error {
	var err error
	if d.file != nil {
		err = d.file.Close()
		d.file = nil
	}
	if d.tempDir != "" {
		if rmErr := os.RemoveAll(d.tempDir); rmErr != nil && err == nil {
			err = rmErr
		}
		d.tempDir = ""
	}
	return err
}
