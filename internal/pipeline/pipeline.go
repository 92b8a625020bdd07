// Package pipeline walks a statement's pages in order, skips summary pages,
// extracts settlement fields per page, and emits sequenced single-page
// output files.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/wmcube/settlesplit/internal/classify"
	"github.com/wmcube/settlesplit/internal/fallback"
	"github.com/wmcube/settlesplit/internal/models"
	"github.com/wmcube/settlesplit/internal/names"
)

// Source is the page-level view of one opened statement.
type Source interface {
	PageCount() int
	PageText(page int) (string, error)
	RenderPNG(ctx context.Context, page int) ([]byte, error)
	PageFile(page int) ([]byte, error)
}

// Extractor mirrors oracle.Extractor; declared here so the pipeline and its
// tests stay independent of which concrete model backs it.
type Extractor interface {
	Extract(ctx context.Context, pageImage []byte) (*models.Record, error)
}

// ProgressReporter receives advisory per-page progress. Implementations must
// not block; failures are the reporter's own problem, never the pipeline's.
type ProgressReporter interface {
	Report(done, total int)
}

// Options configures one run.
type Options struct {
	// StartSequence is the caller-supplied first sequence number. Sequence
	// state is never persisted or recalled by the pipeline itself.
	StartSequence int

	// Date is the run date used in output filenames. Zero means now.
	Date time.Time

	Progress ProgressReporter
	Logger   *slog.Logger
}

// Run traverses the document in page order, strictly sequentially: the oracle
// call for page N completes or definitively misses before page N+1 begins,
// because later pages may inherit fields carried forward from earlier ones.
//
// Page-level failures (render, oracle, incomplete fallback, page write) are
// absorbed with a warning and the page is skipped; only the caller's failure
// to open the source at all aborts a run. Skipped pages never consume a
// sequence number.
func Run(ctx context.Context, src Source, ext Extractor, n *names.Normalizer, opts Options) ([]models.OutputFile, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	date := opts.Date
	if date.IsZero() {
		date = time.Now()
	}
	seq := opts.StartSequence
	if seq < 1 {
		seq = 1
	}

	total := src.PageCount()
	carry := &fallback.Context{}
	var outputs []models.OutputFile

	for page := 1; page <= total; page++ {
		logCtx := logger.With("page", page, "totalPages", total)

		pageText, err := src.PageText(page)
		if err != nil {
			logCtx.Warn("Skipping page: text extraction failed.", "error", err)
			report(opts.Progress, page, total)
			continue
		}

		if classify.IsSummaryPage(pageText) {
			logCtx.Info("Skipping summary page.")
			report(opts.Progress, page, total)
			continue
		}

		rec := extractPage(ctx, src, ext, page, logCtx)

		// An incomplete oracle record is discarded wholesale; the fallback
		// re-derives from raw text plus context, never merges partials.
		if !rec.Complete() {
			rec = fallback.Extract(pageText, n, carry)
		}
		if rec == nil || !rec.Complete() {
			logCtx.Warn("Skipping page: could not extract required fields.")
			report(opts.Progress, page, total)
			continue
		}

		carry.Update(rec)

		label := rec.SimplifiedName
		if label == "" {
			label = n.Simplify(rec.FullName)
		}

		content, err := src.PageFile(page)
		if err != nil {
			logCtx.Error("Skipping page: failed to materialize single-page output.", "error", err)
			report(opts.Progress, page, total)
			continue
		}

		out := models.OutputFile{
			Filename:     BuildFilename(date, seq, label, rec.Currency),
			Content:      content,
			Currency:     rec.Currency,
			PaymentTotal: parseAmount(rec.PaymentTotal),
			Sequence:     seq,
		}
		outputs = append(outputs, out)
		logCtx.Info("Emitted output file.",
			"filename", out.Filename,
			"sequence", seq,
			"confidence", rec.Confidence,
		)
		seq++
		report(opts.Progress, page, total)
	}

	return outputs, nil
}

// extractPage renders the page and consults the oracle. Render and oracle
// failures of any kind are a miss, never fatal.
func extractPage(ctx context.Context, src Source, ext Extractor, page int, logCtx *slog.Logger) *models.Record {
	if ext == nil {
		return nil
	}
	img, err := src.RenderPNG(ctx, page)
	if err != nil {
		logCtx.Warn("Page render failed; falling back to text extraction.", "error", err)
		return nil
	}
	rec, err := ext.Extract(ctx, img)
	if err != nil {
		logCtx.Warn("Oracle extraction failed; falling back to text extraction.", "error", err)
		return nil
	}
	return rec
}

func report(p ProgressReporter, done, total int) {
	if p != nil {
		p.Report(done, total)
	}
}

// BuildFilename renders the deterministic output name, e.g.
// "S240531-03_Mirae_USD-order details.pdf".
func BuildFilename(date time.Time, seq int, label, currency string) string {
	return fmt.Sprintf("S%s-%02d_%s_%s-order details.pdf",
		date.Format("060102"), seq, SanitizeFilename(label), currency)
}

// SanitizeFilename replaces characters that are invalid in filenames with
// underscores. An empty result becomes "untitled".
func SanitizeFilename(name string) string {
	replaced := strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return '_'
		}
		return r
	}, name)
	replaced = strings.TrimSpace(replaced)
	if replaced == "" {
		return "untitled"
	}
	return replaced
}

func parseAmount(total string) *float64 {
	f, err := strconv.ParseFloat(strings.ReplaceAll(total, ",", ""), 64)
	if err != nil {
		return nil
	}
	return &f
}
