package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/pokedex/internal/browse"
	"github.com/mmcdole/pokedex/internal/config"
	"github.com/mmcdole/pokedex/internal/log"
	"github.com/mmcdole/pokedex/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Version is set at build time via -ldflags
var Version = "dev"

// Smallest terminal the two-pane layout fits in
const (
	minTermWidth  = 60
	minTermHeight = 16
)

// Flags shared by every command
var (
	cfgPath   string
	limit     int
	dataDir   string
	fetchOnly bool
)

var rootCmd = &cobra.Command{
	Use:           "pokedex",
	Short:         "Browse a locally cached Pokémon catalog in the terminal",
	Version:       Version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if fetchOnly {
			return withApp(cmd, runFetch)
		}
		return withApp(cmd, runInteractive)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.config/pokedex/config.yaml)")
	rootCmd.PersistentFlags().IntVar(&limit, "limit", 0, "highest pokedex number to fetch (overrides fetch.limit)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "cache directory (overrides data.dir)")
	rootCmd.Flags().BoolVar(&fetchOnly, "fetch-only", false, "populate the cache and exit without starting the browser")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies command-line overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("limit") {
		cfg.Fetch.Limit = limit
	}
	if flags.Changed("data-dir") {
		cfg.Data.Dir = config.ExpandHome(dataDir)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// withApp loads config, sets up logging and wires the stores before running fn
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Setup logger
	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	}
	logger = logger.With("command", cmd.Name())
	slog.SetDefault(logger)
	logger.Info("starting pokedex", "version", Version, "data_dir", cfg.Data.Dir)

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to close fetch ledger", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, a)
}

// runInteractive starts the terminal browser
func runInteractive(ctx context.Context, a *app) error {
	stdin, stdout := int(os.Stdin.Fd()), int(os.Stdout.Fd())
	if !term.IsTerminal(stdin) || !term.IsTerminal(stdout) {
		return errors.New("interactive mode needs a terminal; use 'pokedex fetch' to populate the cache")
	}
	if w, h, err := term.GetSize(stdout); err == nil && (w < minTermWidth || h < minTermHeight) {
		return fmt.Errorf("terminal is %dx%d; need at least %dx%d", w, h, minTermWidth, minTermHeight)
	}

	cfg := a.cfg
	session := browse.NewSession(a.records, browse.Options{
		Matcher:       browse.MatcherFor(string(cfg.Search.Mode)),
		RefreshWindow: cfg.Browse.RefreshWindow,
	})
	model := tui.NewModel(ctx, session, a.queries, a.service, a.thumbs, tui.Options{
		Limit:              cfg.Fetch.Limit,
		AutoFetch:          cfg.Fetch.Auto,
		Preload:            cfg.Thumbnail.Preload,
		PreloadConcurrency: cfg.Fetch.RefreshConcurrency,
		PreloadMax:         cfg.Thumbnail.MaxEntries,
	}, a.logger)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	a.logger.Info("starting TUI", "records", a.records.Len())
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		a.logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	a.logger.Info("shutting down")
	return nil
}
