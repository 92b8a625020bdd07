// Package services wires the page pipeline to its deployment surfaces.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"

	"github.com/wmcube/settlesplit/internal/archive"
	"github.com/wmcube/settlesplit/internal/gcp"
	"github.com/wmcube/settlesplit/internal/ledger"
	"github.com/wmcube/settlesplit/internal/models"
	"github.com/wmcube/settlesplit/internal/names"
	"github.com/wmcube/settlesplit/internal/oracle"
	"github.com/wmcube/settlesplit/internal/pdf"
	"github.com/wmcube/settlesplit/internal/pipeline"
)

// StatementConfig configures the GCS-triggered splitter function.
type StatementConfig struct {
	ProjectID        string
	Region           string
	GeminiModel      string
	OutputBucket     string
	LedgerCollection string
}

// StatementFunction processes settlement statements dropped into a GCS
// bucket: split, extract, upload the per-page PDFs and the run archive, and
// record the run in the ledger.
type StatementFunction struct {
	storageClient *storage.Client
	runLedger     *ledger.Ledger
	extractor     oracle.Extractor
	normalizer    *names.Normalizer
	config        StatementConfig
}

// GCSEvent is the finalize-event payload the function receives.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// NewStatementFunction builds the function from environment configuration.
func NewStatementFunction(ctx context.Context) (*StatementFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	config := StatementConfig{
		ProjectID:        projectID,
		Region:           gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		GeminiModel:      gcp.GetEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		OutputBucket:     gcp.GetEnv("OUTPUT_BUCKET", ""),
		LedgerCollection: gcp.GetEnv("LEDGER_COLLECTION", "settlement-runs"),
	}
	if config.OutputBucket == "" {
		return nil, fmt.Errorf("OUTPUT_BUCKET environment variable must be set")
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	runLedger, err := ledger.New(ctx, config.ProjectID, config.LedgerCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to create run ledger: %w", err)
	}

	normalizer := names.NewNormalizer()
	extractor, err := oracle.NewGeminiExtractor(ctx, config.ProjectID, config.Region, config.GeminiModel, normalizer)
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	f := &StatementFunction{
		storageClient: storageClient,
		runLedger:     runLedger,
		extractor:     extractor,
		normalizer:    normalizer,
		config:        config,
	}
	slog.Info("Statement splitter initialized.", "outputBucket", config.OutputBucket)
	return f, nil
}

// Process handles one uploaded statement end to end.
func (f *StatementFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new statement.")

	tempDir, err := os.MkdirTemp("", "settlesplit-fn-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	sourcePath := filepath.Join(tempDir, "source.pdf")
	if err := gcp.StreamToFile(ctx, f.storageClient, e.Bucket, e.Name, sourcePath); err != nil {
		logCtx.Error("Failed to download source statement", "error", err)
		return err
	}

	fileHash, err := calculateFileHash(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to calculate file hash: %w", err)
	}
	logCtx = logCtx.With("fileHash", fileHash)

	isDuplicate, runID, err := f.runLedger.IsDuplicate(ctx, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if isDuplicate {
		logCtx.Info("Duplicate statement detected. Skipping.", "existingRunId", runID)
		return nil
	}

	lastSeq, err := f.runLedger.LastSequence(ctx)
	if err != nil {
		logCtx.Error("Failed to read last sequence number", "error", err)
		return err
	}

	doc, err := pdf.Open(sourcePath)
	if err != nil {
		logCtx.Error("Failed to open statement", "error", err)
		return fmt.Errorf("run failed: %w", err)
	}
	defer doc.Close()

	outputs, err := pipeline.Run(ctx, doc, f.extractor, f.normalizer, pipeline.Options{
		StartSequence: lastSeq + 1,
		Logger:        logCtx,
		Progress:      progressLogger{logCtx},
	})
	if err != nil {
		logCtx.Error("Pipeline run failed", "error", err)
		return err
	}
	if len(outputs) == 0 {
		logCtx.Warn("No pages qualified; nothing to upload.")
		return nil
	}

	if err := f.uploadOutputs(ctx, logCtx, e.Name, outputs); err != nil {
		return err
	}

	rec := ledger.RunRecord{
		SourceFile:   e.Name,
		FileHash:     fileHash,
		FileCount:    len(outputs),
		LastSequence: outputs[len(outputs)-1].Sequence,
	}
	if err := f.runLedger.RecordRun(ctx, rec); err != nil {
		logCtx.Error("Failed to record run", "error", err)
		return err
	}

	logCtx.Info("Statement processed.", "fileCount", len(outputs))
	return nil
}

// uploadOutputs writes each split page plus the bundled archive, a few
// uploads in flight at a time.
func (f *StatementFunction) uploadOutputs(ctx context.Context, logCtx *slog.Logger, sourceName string, outputs []models.OutputFile) error {
	prefix := time.Now().Format("2006-01-02") + "/" + pipeline.SanitizeFilename(filepath.Base(sourceName))
	bucket := f.storageClient.Bucket(f.config.OutputBucket)

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(10)
	for _, out := range outputs {
		o := out
		eg.Go(func() error {
			object := prefix + "/" + o.Filename
			if err := gcp.SaveToGCSAtomically(gctx, bucket, object, o.Content); err != nil {
				return fmt.Errorf("%s: %w", o.Filename, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		logCtx.Error("One or more pages failed to upload", "error", err)
		return err
	}

	zipped, err := archive.Zip(outputs)
	if err != nil {
		return fmt.Errorf("failed to build run archive: %w", err)
	}
	if err := gcp.SaveToGCSAtomically(ctx, bucket, prefix+"/all_processed_files.zip", zipped); err != nil {
		logCtx.Error("Failed to upload run archive", "error", err)
		return err
	}
	logCtx.Info("All outputs uploaded.", "prefix", prefix)
	return nil
}

type progressLogger struct {
	logger *slog.Logger
}

func (p progressLogger) Report(done, total int) {
	p.logger.Debug("Page processed.", "done", done, "total", total)
}

func calculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
