package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/wmcube/settlesplit/internal/archive"
	"github.com/wmcube/settlesplit/internal/config"
	"github.com/wmcube/settlesplit/internal/email"
	"github.com/wmcube/settlesplit/internal/ledger"
	"github.com/wmcube/settlesplit/internal/names"
	"github.com/wmcube/settlesplit/internal/oracle"
	"github.com/wmcube/settlesplit/internal/pdf"
	"github.com/wmcube/settlesplit/internal/pipeline"
)

func newProcessCmd() *cobra.Command {
	var (
		outDir   string
		startSeq int
		noZip    bool
		report   bool
		drafts   bool
	)

	cmd := &cobra.Command{
		Use:   "process <statement.pdf>",
		Short: "Split a statement and extract settlement fields per page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runProcess(cmd.Context(), cfg, args[0], outDir, startSeq, !noZip, report, drafts)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "output", "directory for split PDFs")
	cmd.Flags().IntVar(&startSeq, "start-seq", 0, "first sequence number (0 derives it from the run ledger, or 1 without one)")
	cmd.Flags().BoolVar(&noZip, "no-zip", false, "skip writing the bundled ZIP archive")
	cmd.Flags().BoolVar(&report, "report", false, "write an XLSX run report next to the outputs")
	cmd.Flags().BoolVar(&drafts, "drafts", false, "create a Gmail draft per output file")
	return cmd
}

func runProcess(ctx context.Context, cfg *config.Config, input, outDir string, startSeq int, zipBundle, report, drafts bool) error {
	normalizer := cfg.Normalizer()

	var runLedger *ledger.Ledger
	if cfg.Cloud.ProjectID != "" && cfg.Cloud.LedgerCollection != "" {
		l, err := ledger.New(ctx, cfg.Cloud.ProjectID, cfg.Cloud.LedgerCollection)
		if err != nil {
			return err
		}
		defer l.Close()
		runLedger = l
	}

	if startSeq < 1 {
		startSeq = 1
		if runLedger != nil {
			last, err := runLedger.LastSequence(ctx)
			if err != nil {
				return err
			}
			startSeq = last + 1
		}
	}

	ext, closeExt, err := buildExtractor(ctx, cfg, normalizer)
	if err != nil {
		return err
	}
	if closeExt != nil {
		defer closeExt()
	}

	doc, err := pdf.Open(input)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", input, err)
	}
	defer doc.Close()
	if cfg.RenderDPI > 0 {
		doc.SetDPI(cfg.RenderDPI)
	}

	bar := &barReporter{}
	outputs, err := pipeline.Run(ctx, doc, ext, normalizer, pipeline.Options{
		StartSequence: startSeq,
		Progress:      bar,
	})
	bar.finish()
	if err != nil {
		return err
	}
	if len(outputs) == 0 {
		fmt.Println("No output files were generated.")
		return nil
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}
	for _, out := range outputs {
		if err := os.WriteFile(filepath.Join(outDir, out.Filename), out.Content, 0o644); err != nil {
			return fmt.Errorf("cannot write %s: %w", out.Filename, err)
		}
	}
	fmt.Printf("Generated %d file(s) in %s\n", len(outputs), outDir)

	for currency, total := range archive.TotalsByCurrency(outputs) {
		fmt.Printf("  %s: %s\n", currency, email.FormatAmount(total))
	}

	if zipBundle {
		zipped, err := archive.Zip(outputs)
		if err != nil {
			return err
		}
		zipPath := filepath.Join(outDir, "all_processed_files.zip")
		if err := os.WriteFile(zipPath, zipped, 0o644); err != nil {
			return fmt.Errorf("cannot write archive: %w", err)
		}
		fmt.Println("Archive:", zipPath)

		for currency, group := range archive.GroupByCurrency(outputs) {
			zipped, err := archive.Zip(group)
			if err != nil {
				return err
			}
			ccyPath := filepath.Join(outDir, currency+"_files.zip")
			if err := os.WriteFile(ccyPath, zipped, 0o644); err != nil {
				return fmt.Errorf("cannot write archive: %w", err)
			}
		}
	}

	if report {
		reportPath := filepath.Join(outDir, "run_report.xlsx")
		if err := archive.WriteReport(reportPath, outputs); err != nil {
			return err
		}
		fmt.Println("Report:", reportPath)
	}

	if runLedger != nil {
		err := runLedger.RecordRun(ctx, ledger.RunRecord{
			SourceFile:   filepath.Base(input),
			FileCount:    len(outputs),
			LastSequence: outputs[len(outputs)-1].Sequence,
		})
		if err != nil {
			slog.Warn("Failed to record run in ledger.", "error", err)
		}
	}

	if drafts {
		svc, err := email.NewDraftService(ctx, cfg.Email.Token, cfg.Email.CC, email.DefaultRetryPolicy, nil)
		if err != nil {
			return err
		}
		if err := svc.CreateDrafts(ctx, outputs); err != nil {
			return err
		}
		fmt.Printf("Created %d email draft(s).\n", len(outputs))
	}
	return nil
}

// buildExtractor picks the oracle backend from config. The "none" backend
// returns a nil extractor: every page goes straight to the regex fallback.
func buildExtractor(ctx context.Context, cfg *config.Config, n *names.Normalizer) (pipeline.Extractor, func() error, error) {
	switch cfg.Oracle.Backend {
	case "gemini":
		ext, err := oracle.NewGeminiExtractor(ctx, cfg.Oracle.ProjectID, cfg.Oracle.Region, cfg.Oracle.Model, n)
		if err != nil {
			return nil, nil, err
		}
		return ext, ext.Close, nil
	case "openai":
		ext, err := oracle.NewOpenAIExtractor(cfg.OpenAIKey(), cfg.Oracle.Model, n)
		if err != nil {
			return nil, nil, err
		}
		return ext, nil, nil
	default:
		return nil, nil, nil
	}
}

// barReporter adapts a terminal progress bar to the pipeline's reporter
// contract. The bar is sized on the first report, when the total is known.
type barReporter struct {
	bar *progressbar.ProgressBar
}

func (r *barReporter) Report(done, total int) {
	if r.bar == nil {
		r.bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Processing pages"),
			progressbar.OptionShowCount(),
		)
	}
	_ = r.bar.Set(done)
}

func (r *barReporter) finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
		fmt.Println()
	}
}
