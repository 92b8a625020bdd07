package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	root := &cobra.Command{
		Use:          "settlesplit",
		Short:        "Split settlement statements into per-transaction PDFs and draft the notification emails",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "path to the YAML config file")

	root.AddCommand(newProcessCmd())
	root.AddCommand(newDraftsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
