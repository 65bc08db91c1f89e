package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ingestReset bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.json>",
	Short: "Add documents from a JSON file to the index",
	Long: `Convert raw product documents into indexed documents.

The file holds either a JSON array of documents or an object with a
"documents" array. Each document has a title, content or content_html,
and optional type, importance, keywords, product_id and category.
HTML content is converted to text. Duplicate documents are skipped.

Examples:
  shopqa ingest data/products.json
  shopqa ingest --reset data/products.json`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().BoolVar(&ingestReset, "reset", false, "clear the index before ingesting")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() { _ = logger.Sync() }()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if ingestReset {
		if err := a.index.Clear(); err != nil {
			return fmt.Errorf("clear index: %w", err)
		}
		logger.Info("Index cleared", zap.String("path", a.index.Path()))
	}

	report, err := a.ingest.IngestFile(ctx, args[0])
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	if a.cache != nil && (report.Added > 0 || ingestReset) {
		a.cache.Invalidate(ctx)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Ingestion complete:\n")
	fmt.Fprintf(out, "  Read:     %d\n", report.Read)
	fmt.Fprintf(out, "  Added:    %d\n", report.Added)
	fmt.Fprintf(out, "  Skipped:  %d\n", report.Skipped)
	fmt.Fprintf(out, "  Embedded: %d\n", report.Embedded)
	fmt.Fprintf(out, "  Indexed:  %d\n", a.index.Len())
	if len(report.Warnings) > 0 {
		fmt.Fprintf(out, "  Warnings: %d\n", len(report.Warnings))
		for _, w := range report.Warnings {
			fmt.Fprintf(out, "    - %s\n", w)
		}
	}
	return nil
}
