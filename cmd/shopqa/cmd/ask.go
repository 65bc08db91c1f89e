package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	askProductID string
	askJSON      bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question",
	Long: `Answer one question against the local index and print the result.

Examples:
  shopqa ask "Hoeveel liter is de prullenbak?"
  shopqa ask --product bin-10 --json "Hoe lang is de garantie?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVar(&askProductID, "product", "", "restrict retrieval to one product id")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full response as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() { _ = logger.Sync() }()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	resp := a.ask(ctx, strings.Join(args, " "), askProductID)

	out := cmd.OutOrStdout()
	if askJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if !resp.Success {
		fmt.Fprintln(os.Stderr, resp.Error)
		return fmt.Errorf("no answer")
	}
	fmt.Fprintln(out, resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Fprintln(out, "\nBronnen:")
		for _, s := range resp.Sources {
			fmt.Fprintf(out, "  - %s (%s)\n", s.Title, s.ID)
		}
	}
	if len(resp.PipelineMetadata.FallbacksUsed) > 0 {
		fmt.Fprintf(out, "\nFallbacks: %s\n", strings.Join(resp.PipelineMetadata.FallbacksUsed, ", "))
	}
	return nil
}
