package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// maxListedMissing caps the missing-sprite ids printed by status
const maxListedMissing = 10

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what is cached and which items failed to fetch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return printStatus(a, os.Stdout)
		})
	},
}

func printStatus(a *app, out io.Writer) error {
	size, err := a.images.Size()
	if err != nil {
		return fmt.Errorf("failed to measure image cache: %w", err)
	}

	fmt.Fprintf(out, "Data directory: %s\n", a.cfg.Data.Dir)
	fmt.Fprintf(out, "Records:        %d of %d\n", a.queries.Count(), a.cfg.Fetch.Limit)
	fmt.Fprintf(out, "Sprites:        %d (%s)\n", a.images.Count(), humanize.Bytes(uint64(size)))

	if missing := a.queries.MissingImages(); len(missing) > 0 {
		shown := missing[:min(len(missing), maxListedMissing)]
		fmt.Fprintf(out, "Missing sprites: %d %v", len(missing), shown)
		if len(missing) > len(shown) {
			fmt.Fprint(out, " ...")
		}
		fmt.Fprintln(out)
	}

	failures, err := a.ledger.Failures()
	if err != nil {
		return fmt.Errorf("failed to read fetch ledger: %w", err)
	}
	if len(failures) == 0 {
		fmt.Fprintln(out, "Failures:       none")
		return nil
	}
	fmt.Fprintf(out, "Failures:       %d (retried by the next refresh)\n", len(failures))
	for _, e := range failures {
		fmt.Fprintf(out, "  #%-4d %-6s %-16s %s\n", e.ID, e.Stage, humanize.Time(e.FailedAt), e.LastError)
	}
	return nil
}
