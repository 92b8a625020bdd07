package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wmcube/settlesplit/internal/config"
	"github.com/wmcube/settlesplit/internal/email"
	"github.com/wmcube/settlesplit/internal/models"
)

func newDraftsCmd() *cobra.Command {
	var (
		currency string
		amount   float64
	)

	cmd := &cobra.Command{
		Use:   "drafts <file.pdf | dir>...",
		Short: "Create Gmail drafts for already-split settlement PDFs",
		Long: `Create one Gmail draft per PDF, with the file attached and the standard
settlement body filled in. A directory argument expands to the PDFs it
contains. The currency is read from each filename unless --currency overrides
it; the amount is zero unless --amount is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runDrafts(cmd.Context(), cfg, args, currency, amount)
		},
	}

	cmd.Flags().StringVar(&currency, "currency", "", "settlement currency for every draft (default: parsed from each filename)")
	cmd.Flags().Float64Var(&amount, "amount", 0, "settlement amount quoted in every draft body")
	return cmd
}

func runDrafts(ctx context.Context, cfg *config.Config, args []string, currency string, amount float64) error {
	paths, err := expandPaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no PDF files found")
	}

	files := make([]models.OutputFile, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}

		name := filepath.Base(path)
		ccy := currency
		if ccy == "" {
			ccy = currencyFromFilename(name)
		}
		if !models.IsCurrency(ccy) {
			return fmt.Errorf("cannot determine currency for %s; pass --currency", name)
		}

		file := models.OutputFile{Filename: name, Content: content, Currency: ccy}
		if amount > 0 {
			a := amount
			file.PaymentTotal = &a
		}
		files = append(files, file)
	}

	svc, err := email.NewDraftService(ctx, cfg.Email.Token, cfg.Email.CC, email.DefaultRetryPolicy, nil)
	if err != nil {
		return err
	}
	if err := svc.CreateDrafts(ctx, files); err != nil {
		return err
	}
	fmt.Printf("Created %d email draft(s).\n", len(files))
	return nil
}

// expandPaths flattens the argument list: files pass through, directories
// expand to the PDFs directly inside them, sorted by name.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.pdf"))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}

// currencyFromFilename pulls the currency code out of a generated filename,
// e.g. "S240531-05_Mirae_USD-order details.pdf" yields "USD". Returns "" when
// the name does not carry one.
func currencyFromFilename(name string) string {
	trimmed := strings.TrimSuffix(name, filepath.Ext(name))
	for _, part := range strings.FieldsFunc(trimmed, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	}) {
		if models.IsCurrency(part) {
			return part
		}
	}
	return ""
}
