package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mmcdole/pokedex/internal/browse"
	"github.com/mmcdole/pokedex/internal/config"
	"github.com/mmcdole/pokedex/internal/domain"
	pokelog "github.com/mmcdole/pokedex/internal/log"
	"github.com/spf13/cobra"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Data.Dir = t.TempDir()
	cfg.Fetch.Limit = 3

	a, err := newApp(cfg, pokelog.NullLogger())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNewApp_CorruptRecordsStartEmpty(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Data.Dir = t.TempDir()
	if err := os.WriteFile(cfg.RecordsPath(), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	a, err := newApp(cfg, pokelog.NullLogger())
	if err != nil {
		t.Fatalf("newApp should tolerate a corrupt record file: %v", err)
	}
	defer a.Close()

	if got := a.queries.Count(); got != 0 {
		t.Errorf("records = %d, want 0", got)
	}
}

func TestPrintStatus(t *testing.T) {
	a := newTestApp(t)
	if err := a.records.Put(domain.Pokemon{ID: 1, Name: "bulbasaur"}); err != nil {
		t.Fatal(err)
	}
	if err := a.records.Put(domain.Pokemon{ID: 2, Name: "ivysaur"}); err != nil {
		t.Fatal(err)
	}
	if err := a.images.Write(1, []byte("png")); err != nil {
		t.Fatal(err)
	}
	if err := a.ledger.RecordFailure(2, domain.StageImage, errors.New("status 500")); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := printStatus(a, &out); err != nil {
		t.Fatalf("printStatus: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"Records:        2 of 3",
		"Sprites:        1 (3 B)",
		"Missing sprites: 1 [2]",
		"Failures:       1",
		"status 500",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("status output missing %q:\n%s", want, text)
		}
	}
}

func TestPrintStatus_NoFailures(t *testing.T) {
	a := newTestApp(t)

	var out bytes.Buffer
	if err := printStatus(a, &out); err != nil {
		t.Fatalf("printStatus: %v", err)
	}
	if !strings.Contains(out.String(), "Failures:       none") {
		t.Errorf("expected no failures:\n%s", out.String())
	}
}

func TestSeed_CancelledIsNotAnError(t *testing.T) {
	a := newTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	if err := seed(ctx, a, &out); err != nil {
		t.Fatalf("seed on a cancelled context should not fail: %v", err)
	}
	if !strings.Contains(out.String(), "Done in") {
		t.Errorf("expected a summary line:\n%s", out.String())
	}
}

func TestLoadConfig_DataDirFlagExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("fetch:\n  limit: 10\n"), 0644); err != nil {
		t.Fatal(err)
	}
	oldPath, oldDir, oldLimit := cfgPath, dataDir, limit
	t.Cleanup(func() { cfgPath, dataDir, limit = oldPath, oldDir, oldLimit })
	cfgPath = path

	cmd := &cobra.Command{}
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "")
	cmd.Flags().IntVar(&limit, "limit", 0, "")
	if err := cmd.Flags().Set("data-dir", "~/dex"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("limit", "25"); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if want := filepath.Join(home, "dex"); cfg.Data.Dir != want {
		t.Errorf("Data.Dir = %q, want %q", cfg.Data.Dir, want)
	}
	if cfg.Fetch.Limit != 25 {
		t.Errorf("Fetch.Limit = %d, want 25", cfg.Fetch.Limit)
	}
}

func TestMatcherFor_ConfiguredModes(t *testing.T) {
	cases := []struct {
		mode config.SearchMode
		want browse.Matcher
	}{
		{config.SearchName, browse.NameMatcher{}},
		{config.SearchNameTypes, browse.NameTypeMatcher{}},
		{config.SearchFuzzy, browse.FuzzyMatcher{}},
	}
	for _, c := range cases {
		if got := browse.MatcherFor(string(c.mode)); got != c.want {
			t.Errorf("MatcherFor(%q) = %T, want %T", c.mode, got, c.want)
		}
	}
}
