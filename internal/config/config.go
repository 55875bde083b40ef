package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// SearchMode selects how the browse filter matches records
type SearchMode string

const (
	SearchName      SearchMode = "name"       // Display name only
	SearchNameTypes SearchMode = "name_types" // Display name or any type tag
	SearchFuzzy     SearchMode = "fuzzy"      // Fuzzy match on display name
)

const (
	defaultBaseURL        = "https://pokeapi.co/api/v2"
	defaultSpriteTemplate = "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/%d.png"
	envPrefix             = "POKEDEX"
)

// Config holds all application configuration
type Config struct {
	Data      DataConfig      `mapstructure:"data"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Thumbnail ThumbnailConfig `mapstructure:"thumbnail"`
	Browse    BrowseConfig    `mapstructure:"browse"`
	Search    SearchConfig    `mapstructure:"search"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// DataConfig holds local cache locations
type DataConfig struct {
	Dir string `mapstructure:"dir"` // Holds pokemon.json, sprites/ and fetch.db
}

// FetchConfig controls the remote fetcher
type FetchConfig struct {
	Limit              int           `mapstructure:"limit"`               // Highest dex number to seed
	BaseURL            string        `mapstructure:"base_url"`            // API root, no trailing slash
	SpriteURLTemplate  string        `mapstructure:"sprite_url_template"` // Fallback image URL, %d = id
	Timeout            time.Duration `mapstructure:"timeout"`             // Per-request timeout
	Rate               float64       `mapstructure:"rate"`                // Requests per second
	RefreshConcurrency int           `mapstructure:"refresh_concurrency"`
	Auto               bool          `mapstructure:"auto"` // Seed in the background on interactive start
}

// ThumbnailConfig controls the in-memory thumbnail cache
type ThumbnailConfig struct {
	Width      int  `mapstructure:"width"`
	Height     int  `mapstructure:"height"`
	MaxEntries int  `mapstructure:"max_entries"` // 0 = unbounded
	Preload    bool `mapstructure:"preload"`
}

// BrowseConfig controls the interactive session
type BrowseConfig struct {
	RefreshWindow int `mapstructure:"refresh_window"` // Records either side of the cursor refreshed by 'r'
}

// SearchConfig controls filtering
type SearchConfig struct {
	Mode SearchMode `mapstructure:"mode"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Dir: defaultDataPath(),
		},
		Fetch: FetchConfig{
			Limit:              151,
			BaseURL:            defaultBaseURL,
			SpriteURLTemplate:  defaultSpriteTemplate,
			Timeout:            10 * time.Second,
			Rate:               10,
			RefreshConcurrency: 4,
			Auto:               true,
		},
		Thumbnail: ThumbnailConfig{
			Width:      48,
			Height:     48,
			MaxEntries: 0,
			Preload:    true,
		},
		Browse: BrowseConfig{
			RefreshWindow: 5,
		},
		Search: SearchConfig{
			Mode: SearchName,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultDataPath returns the default cache directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "pokedex")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "pokedex")
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	return filepath.Join(defaultDataPath(), "pokedex.log")
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "pokedex")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "pokedex")
	}
}

// LoadConfig loads configuration from an optional .env file, a config file
// and the environment. An empty path searches the default locations.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	cfg := DefaultConfig()
	v := viper.New()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	// Environment variable overrides: POKEDEX_FETCH_LIMIT, POKEDEX_DATA_DIR, ...
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("fetch.limit", envPrefix+"_FETCH_LIMIT", "POKEMON_LIMIT"); err != nil {
		return nil, fmt.Errorf("error binding env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.Data.Dir = ExpandHome(cfg.Data.Dir)
	cfg.Logging.File = ExpandHome(cfg.Logging.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that are
// absent from the config file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("data.dir", cfg.Data.Dir)
	v.SetDefault("fetch.limit", cfg.Fetch.Limit)
	v.SetDefault("fetch.base_url", cfg.Fetch.BaseURL)
	v.SetDefault("fetch.sprite_url_template", cfg.Fetch.SpriteURLTemplate)
	v.SetDefault("fetch.timeout", cfg.Fetch.Timeout)
	v.SetDefault("fetch.rate", cfg.Fetch.Rate)
	v.SetDefault("fetch.refresh_concurrency", cfg.Fetch.RefreshConcurrency)
	v.SetDefault("fetch.auto", cfg.Fetch.Auto)
	v.SetDefault("thumbnail.width", cfg.Thumbnail.Width)
	v.SetDefault("thumbnail.height", cfg.Thumbnail.Height)
	v.SetDefault("thumbnail.max_entries", cfg.Thumbnail.MaxEntries)
	v.SetDefault("thumbnail.preload", cfg.Thumbnail.Preload)
	v.SetDefault("browse.refresh_window", cfg.Browse.RefreshWindow)
	v.SetDefault("search.mode", string(cfg.Search.Mode))
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Data.Dir == "" {
		return errors.New("data.dir is required")
	}
	if c.Fetch.Limit < 0 {
		return fmt.Errorf("fetch.limit must not be negative: %d", c.Fetch.Limit)
	}
	if c.Fetch.BaseURL == "" {
		return errors.New("fetch.base_url is required")
	}
	if strings.HasSuffix(c.Fetch.BaseURL, "/") {
		return fmt.Errorf("fetch.base_url must not end with '/': %s", c.Fetch.BaseURL)
	}
	if !strings.Contains(c.Fetch.SpriteURLTemplate, "%d") {
		return fmt.Errorf("fetch.sprite_url_template must contain %%d: %s", c.Fetch.SpriteURLTemplate)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive: %s", c.Fetch.Timeout)
	}
	if c.Fetch.Rate <= 0 {
		return fmt.Errorf("fetch.rate must be positive: %v", c.Fetch.Rate)
	}
	if c.Fetch.RefreshConcurrency < 1 {
		return fmt.Errorf("fetch.refresh_concurrency must be at least 1: %d", c.Fetch.RefreshConcurrency)
	}
	if c.Thumbnail.Width < 1 || c.Thumbnail.Height < 1 {
		return fmt.Errorf("thumbnail size must be positive: %dx%d", c.Thumbnail.Width, c.Thumbnail.Height)
	}
	if c.Thumbnail.MaxEntries < 0 {
		return fmt.Errorf("thumbnail.max_entries must not be negative: %d", c.Thumbnail.MaxEntries)
	}
	switch c.Search.Mode {
	case SearchName, SearchNameTypes, SearchFuzzy:
	default:
		return fmt.Errorf("search.mode must be name, name_types or fuzzy: %s", c.Search.Mode)
	}
	return nil
}

// RecordsPath returns the path of the JSON record blob
func (c *Config) RecordsPath() string {
	return filepath.Join(c.Data.Dir, "pokemon.json")
}

// ImagesDir returns the directory holding one image per record
func (c *Config) ImagesDir() string {
	return filepath.Join(c.Data.Dir, "sprites")
}

// LedgerPath returns the path of the fetch ledger database
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Data.Dir, "fetch.db")
}

// SpriteURL returns the fallback image URL for a dex number
func (c *Config) SpriteURL(id int) string {
	return fmt.Sprintf(c.Fetch.SpriteURLTemplate, id)
}

// ExpandHome expands a leading ~ to the user's home directory
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
