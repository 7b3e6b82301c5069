// Package config handles bibpage's global configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents configuration stored in ~/.config/bibpage/config.yml.
type Config struct {
	Template  string  `yaml:"template,omitempty"`   // Path to a custom page template
	JSFile    string  `yaml:"js_file,omitempty"`    // Path to a custom script
	EmbedJS   bool    `yaml:"embed_js,omitempty"`   // Inline the script into rendered pages
	Title     string  `yaml:"title,omitempty"`      // Page title
	PDFRoot   string  `yaml:"pdf_root,omitempty"`   // Base folder for relative file fields
	PDFReader string  `yaml:"pdf_reader,omitempty"` // Reader preference: system, skim, zathura, etc.
	DBPath    string  `yaml:"db_path,omitempty"`    // SQLite search cache
	Workers   int     `yaml:"workers,omitempty"`    // Normalization workers; 0 means sequential
	LinkRate  float64 `yaml:"link_rate,omitempty"`  // Link checks per second
	LogLevel  string  `yaml:"log_level,omitempty"`  // debug, info, warn or error
}

const (
	// ConfigDir is the directory name under XDG_CONFIG_HOME and XDG_CACHE_HOME.
	ConfigDir = "bibpage"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"
	// DBFile is the default search cache file name.
	DBFile = "entries.db"
)

// Environment variables that override the config file.
const (
	EnvTemplate = "BIBPAGE_TEMPLATE"
	EnvJSFile   = "BIBPAGE_JS_FILE"
	EnvPDFRoot  = "BIBPAGE_PDF_ROOT"
	EnvLogLevel = "BIBPAGE_LOG_LEVEL"
)

// Keys lists the settable config keys.
var Keys = []string{"db_path", "embed_js", "js_file", "link_rate", "log_level", "pdf_reader", "pdf_root", "template", "title", "workers"}

// ValidReaders lists the supported PDF reader values.
var ValidReaders = []string{"system", "skim", "preview", "zathura", "evince", "okular"}

// ValidLogLevels lists the accepted log_level values.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// ErrUnknownKey is returned for keys not in Keys.
var ErrUnknownKey = errors.New("unknown config key")

// configCache caches the loaded config.
var configCache *Config

// Path returns the path to the config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/bibpage/config.yml.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDir, ConfigFile)
}

// DefaultDBPath returns the default search cache location.
// Respects XDG_CACHE_HOME, defaults to ~/.cache/bibpage/entries.db.
func DefaultDBPath() string {
	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DBFile
		}
		cacheHome = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheHome, ConfigDir, DBFile)
}

// LoadDotEnv loads a .env file from the working directory if present.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// Load reads the config file and applies environment overrides.
// Returns an empty config (not an error) if the file doesn't exist.
func Load() (*Config, error) {
	if configCache != nil {
		return configCache, nil
	}

	cfg, err := ReadFile(Path())
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.expand()

	configCache = cfg
	return cfg, nil
}

// ResetGlobalConfigCache clears the cached config.
// Useful for testing.
func ResetGlobalConfigCache() {
	configCache = nil
}

// ReadFile reads a config file without environment overrides.
func ReadFile(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to path, creating its directory.
func (c *Config) Save(path string) error {
	if path == "" {
		return fmt.Errorf("no config path available")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Get returns the string form of a config value.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "template":
		return c.Template, nil
	case "js_file":
		return c.JSFile, nil
	case "embed_js":
		return strconv.FormatBool(c.EmbedJS), nil
	case "title":
		return c.Title, nil
	case "pdf_root":
		return c.PDFRoot, nil
	case "pdf_reader":
		return c.PDFReader, nil
	case "db_path":
		return c.DBPath, nil
	case "workers":
		return strconv.Itoa(c.Workers), nil
	case "link_rate":
		return strconv.FormatFloat(c.LinkRate, 'g', -1, 64), nil
	case "log_level":
		return c.LogLevel, nil
	default:
		return "", fmt.Errorf("%w: %s (valid: %s)", ErrUnknownKey, key, strings.Join(Keys, ", "))
	}
}

// Set validates and stores a config value given as a string.
func (c *Config) Set(key, value string) error {
	switch key {
	case "template":
		c.Template = value
	case "js_file":
		c.JSFile = value
	case "title":
		c.Title = value
	case "db_path":
		c.DBPath = value
	case "embed_js":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid embed_js: %s", value)
		}
		c.EmbedJS = b
	case "pdf_root":
		if err := ValidatePDFRoot(value); err != nil {
			return err
		}
		c.PDFRoot = value
	case "pdf_reader":
		if err := validateChoice("pdf_reader", value, ValidReaders); err != nil {
			return err
		}
		c.PDFReader = value
	case "workers":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid workers: %s (must be a non-negative integer)", value)
		}
		c.Workers = n
	case "link_rate":
		r, err := strconv.ParseFloat(value, 64)
		if err != nil || r < 0 {
			return fmt.Errorf("invalid link_rate: %s (must be a non-negative number)", value)
		}
		c.LinkRate = r
	case "log_level":
		if err := validateChoice("log_level", strings.ToLower(value), ValidLogLevels); err != nil {
			return err
		}
		c.LogLevel = strings.ToLower(value)
	default:
		return fmt.Errorf("%w: %s (valid: %s)", ErrUnknownKey, key, strings.Join(Keys, ", "))
	}
	return nil
}

// Map returns every key with its string value, for display.
func (c *Config) Map() map[string]string {
	m := make(map[string]string, len(Keys))
	for _, k := range Keys {
		m[k], _ = c.Get(k)
	}
	return m
}

// ResolvedDBPath returns the configured cache path or the default one.
func (c *Config) ResolvedDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return DefaultDBPath()
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvTemplate); v != "" {
		c.Template = v
	}
	if v := os.Getenv(EnvJSFile); v != "" {
		c.JSFile = v
	}
	if v := os.Getenv(EnvPDFRoot); v != "" {
		c.PDFRoot = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
}

func (c *Config) expand() {
	c.Template = ExpandTilde(c.Template)
	c.JSFile = ExpandTilde(c.JSFile)
	c.PDFRoot = ExpandTilde(c.PDFRoot)
	c.DBPath = ExpandTilde(c.DBPath)
}

// ValidatePDFRoot checks that the PDF root path exists and is a directory.
func ValidatePDFRoot(path string) error {
	if path == "" {
		return nil // Empty is allowed (not yet configured)
	}

	expandedPath := ExpandTilde(path)

	info, err := os.Stat(expandedPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %s", expandedPath)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", expandedPath)
	}
	return nil
}

func validateChoice(name, value string, valid []string) error {
	if value == "" {
		return nil
	}
	if slices.Contains(valid, value) {
		return nil
	}
	return fmt.Errorf("invalid %s: %s (valid: %v)", name, value, valid)
}

// ExpandTilde expands a leading ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}
	return filepath.Join(home, path[1:])
}
