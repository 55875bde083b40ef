package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mmcdole/pokedex/internal/domain"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Populate the local cache and exit",
	Long: `Fetch records and sprites for pokedex numbers 1..limit that are not cached yet.
Items already on disk cost no network calls, so running it again is cheap.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, runFetch)
	},
}

// runFetch seeds the cache, printing progress to stderr
func runFetch(ctx context.Context, a *app) error {
	return seed(ctx, a, os.Stderr)
}

func seed(ctx context.Context, a *app, out io.Writer) error {
	limit := a.cfg.Fetch.Limit
	start := time.Now()
	fmt.Fprintf(out, "Fetching %d Pokémon into %s\n", limit, a.cfg.Data.Dir)

	result, err := a.service.Seed(ctx, limit, func(p domain.SyncProgress) {
		if p.Done || p.ID == 0 {
			return
		}
		name := "?"
		if rec, ok := a.records.Get(p.ID); ok {
			name = rec.DisplayName()
		}
		if p.Err != nil {
			fmt.Fprintf(out, "[%d/%d] #%d %s: %v\n", p.Loaded, p.Total, p.ID, name, p.Err)
			return
		}
		fmt.Fprintf(out, "[%d/%d] #%d %s\n", p.Loaded, p.Total, p.ID, name)
	})

	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(out, "Interrupted; cached items are kept.")
	} else if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	fmt.Fprintf(out, "Done in %s: %d records and %d sprites fetched, %d already cached, %d failed.\n",
		time.Since(start).Round(time.Millisecond),
		result.RecordsFetched, result.ImagesFetched, result.Cached, len(result.Failures))
	for _, f := range result.Failures {
		fmt.Fprintf(out, "  #%d %s: %v\n", f.ID, f.Stage, f.Err)
	}
	if size, err := a.images.Size(); err == nil {
		fmt.Fprintf(out, "Cache holds %d records and %d sprites (%s).\n", a.records.Len(), a.images.Count(), humanize.Bytes(uint64(size)))
	}
	return nil
}
