package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for alice.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Catalog    CatalogConfig    `toml:"catalog"`
	History    HistoryConfig    `toml:"history"`
	Weather    WeatherConfig    `toml:"weather"`
	Output     OutputConfig     `toml:"output"`
	Selection  SelectionConfig  `toml:"selection"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// CatalogConfig locates the image catalog export and its CDN URL map.
// A catalog path ending in ".age" is decrypted with the encryption identity.
type CatalogConfig struct {
	Path       string `toml:"path"`
	URLMapPath string `toml:"url_map_path,omitempty"`
}

// HistoryConfig represents configuration for the selection history.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type HistoryConfig struct {
	Type    string `toml:"type"`               // "file", "sqlite" or "memory"
	Path    string `toml:"path,omitempty"`     // only used for type=file
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// WeatherConfig locates the pre-resolved weather document and the labels
// used when it is missing.
type WeatherConfig struct {
	Path             string `toml:"path"`
	DefaultCondition string `toml:"default_condition"`
	DefaultTimeOfDay string `toml:"default_time_of_day"`
}

// OutputConfig holds the files written after a selection. An empty
// ControlPath disables the display-control document.
type OutputConfig struct {
	SelectedPath string `toml:"selected_path"`
	ControlPath  string `toml:"control_path,omitempty"`
}

// SelectionConfig tunes the selection engine.
type SelectionConfig struct {
	MatchMode    string `toml:"match_mode"` // "exact" or "substring"
	Fallbacks    string `toml:"fallbacks"`  // "gallery" or "legacy"
	RecencyHours int    `toml:"recency_hours"`
	AvoidRecent  bool   `toml:"avoid_recent"`
	Timezone     string `toml:"timezone,omitempty"` // IANA name; empty means the local zone

	// PreferVerified narrows every cascade stage to verified records when any match.
	PreferVerified bool `toml:"prefer_verified,omitempty"`

	// QuietHours replaces the built-in quiet window when set. A quiet_hours
	// table with no activities disables quiet hours.
	QuietHours *QuietHoursConfig `toml:"quiet_hours,omitempty"`

	// ActivityPreferences replaces the built-in hour-to-activity table when non-empty.
	ActivityPreferences []ActivityPreferenceConfig `toml:"activity_preferences,omitempty"`

	// WeatherFallbacks and TimeFallbacks override individual fallback chains.
	WeatherFallbacks map[string][]string `toml:"weather_fallbacks,omitempty"`
	TimeFallbacks    map[string][]string `toml:"time_fallbacks,omitempty"`
}

// QuietHoursConfig is an hour window [start, end) that may wrap past midnight.
type QuietHoursConfig struct {
	Start      int      `toml:"start"`
	End        int      `toml:"end"`
	Activities []string `toml:"activities"`
}

// ActivityPreferenceConfig lists the activities preferred in [start, end).
type ActivityPreferenceConfig struct {
	Start      int      `toml:"start"`
	End        int      `toml:"end"`
	Activities []string `toml:"activities"`
}

// EncryptionConfig holds paths to the age key pair used for sealed catalogs.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "none"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// NewConfig creates a new Config rooted at baseDir with default paths and settings.
func NewConfig(baseDir string) *Config {
	dataDir := filepath.Join(baseDir, "data")
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Catalog: CatalogConfig{
			Path:       filepath.Join(dataDir, "image-database.json"),
			URLMapPath: filepath.Join(dataDir, "cloudinary-urls.json"),
		},
		History: HistoryConfig{
			Type:    "file",
			Path:    filepath.Join(dataDir, "selection-history.json"),
			DataDir: filepath.Join(baseDir, "db"),
		},
		Weather: WeatherConfig{
			Path:             filepath.Join(dataDir, "current-weather.json"),
			DefaultCondition: "Sunny",
			DefaultTimeOfDay: "Afternoon",
		},
		Output: OutputConfig{
			SelectedPath: filepath.Join(dataDir, "selected-image.json"),
			ControlPath:  filepath.Join(dataDir, "display-control.json"),
		},
		Selection: SelectionConfig{
			MatchMode:    "exact",
			Fallbacks:    "gallery",
			RecencyHours: 24,
			AvoidRecent:  true,
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "alice.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "alice.key"),
		},
	}
}

// Validate checks the parts of the config that cannot be caught by decoding.
func (c *Config) Validate() error {
	switch c.History.Type {
	case "", "file", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown history type: %q", c.History.Type)
	}

	switch strings.ToLower(c.Selection.MatchMode) {
	case "", "exact", "substring", "legacy":
	default:
		return fmt.Errorf("unknown match mode: %q", c.Selection.MatchMode)
	}

	switch strings.ToLower(c.Selection.Fallbacks) {
	case "", "gallery", "legacy":
	default:
		return fmt.Errorf("unknown fallback chains: %q", c.Selection.Fallbacks)
	}

	if c.Selection.RecencyHours < 0 {
		return fmt.Errorf("recency_hours must not be negative, got %d", c.Selection.RecencyHours)
	}

	if _, err := c.Selection.Location(); err != nil {
		return err
	}

	if q := c.Selection.QuietHours; q != nil {
		if err := validateHours(q.Start, q.End); err != nil {
			return fmt.Errorf("quiet_hours: %w", err)
		}
	}
	for i, p := range c.Selection.ActivityPreferences {
		if err := validateHours(p.Start, p.End); err != nil {
			return fmt.Errorf("activity_preferences[%d]: %w", i, err)
		}
	}
	return nil
}

// Location resolves the configured timezone. An empty name is the local zone.
func (s SelectionConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

func validateHours(start, end int) error {
	if start < 0 || start > 23 || end < 0 || end > 23 {
		return fmt.Errorf("hours must be in 0-23, got %d-%d", start, end)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path and validates it.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
