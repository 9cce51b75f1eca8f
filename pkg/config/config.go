// Package config loads, validates and saves the grabvid YAML configuration.
// Missing files and missing keys fall back to defaults, and a few GRABVID_*
// environment variables override the file.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
	"gopkg.in/yaml.v3"

	"github.com/cperrin88/grabvid/pkg/cache"
	"github.com/cperrin88/grabvid/pkg/errors"
	"github.com/cperrin88/grabvid/pkg/fsutil"
	"github.com/cperrin88/grabvid/pkg/variant"
)

// Config represents the application configuration.
type Config struct {
	Settings  Settings        `yaml:"settings"`
	Server    ServerConfig    `yaml:"server"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Cache     CacheConfig     `yaml:"cache"`
	Filter    FilterConfig    `yaml:"filter"`
	Staging   StagingConfig   `yaml:"staging"`
}

// Settings represents general application settings.
type Settings struct {
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text, json
}

// ServerConfig configures the web front end.
type ServerConfig struct {
	Listen string `yaml:"listen"`
	// RateLimit is the sustained requests per second per server. Zero disables limiting.
	RateLimit         float64       `yaml:"rate_limit"`
	RateBurst         int           `yaml:"rate_burst"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	SweepInterval     time.Duration `yaml:"sweep_interval"`
}

// ExtractorConfig configures yt-dlp and the download backend.
type ExtractorConfig struct {
	Binary            string        `yaml:"binary"`
	CookieFile        string        `yaml:"cookie_file,omitempty"`
	MinVersion        string        `yaml:"min_version,omitempty"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout"`
	DownloadBackend   string        `yaml:"download_backend"` // ytdlp, http
	HTTPTimeout       time.Duration `yaml:"http_timeout"`
	UserAgent         string        `yaml:"user_agent"`
	RestrictFilenames bool          `yaml:"restrict_filenames"`
	ExtraArgs         []string      `yaml:"extra_args,omitempty"`
}

// CacheConfig bounds the metadata cache. Zero values mean unbounded.
type CacheConfig struct {
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
	Coalesce   bool          `yaml:"coalesce"`
}

// FilterConfig selects which variants are offered.
type FilterConfig struct {
	Container    string `yaml:"container"`
	RequireAudio bool   `yaml:"require_audio"`
	RequireVideo bool   `yaml:"require_video"`
	MaxResults   int    `yaml:"max_results"`
	Script       string `yaml:"script,omitempty"`
}

// StagingConfig places the per-job staging directories.
type StagingConfig struct {
	Root       string        `yaml:"root,omitempty"`
	// StaleAfter is the age past which the server sweeper removes job
	// directories. Zero disables the sweeper.
	StaleAfter time.Duration `yaml:"stale_after"`
}

// Download backends.
const (
	BackendYtDlp = "ytdlp"
	BackendHTTP  = "http"
)

// Default configuration values.
const (
	DefaultListen            = ":8080"
	DefaultRateLimit         = 5
	DefaultRateBurst         = 10
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultSweepInterval     = 15 * time.Minute
	DefaultFetchTimeout      = 60 * time.Second
	DefaultCacheEntries      = 256
	DefaultCacheTTL          = time.Hour
	DefaultStaleAfter        = 6 * time.Hour

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// Environment overrides.
const (
	EnvListen     = "GRABVID_LISTEN"
	EnvYtDlp      = "GRABVID_YTDLP"
	EnvCookieFile = "GRABVID_COOKIE_FILE"
	EnvLogLevel   = "GRABVID_LOG_LEVEL"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			LogLevel:  "info",
			LogFormat: "text",
		},
		Server: ServerConfig{
			Listen:            DefaultListen,
			RateLimit:         DefaultRateLimit,
			RateBurst:         DefaultRateBurst,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			SweepInterval:     DefaultSweepInterval,
		},
		Extractor: ExtractorConfig{
			Binary:          "yt-dlp",
			FetchTimeout:    DefaultFetchTimeout,
			DownloadBackend: BackendYtDlp,
			UserAgent:       "grabvid/1.0",
		},
		Cache: CacheConfig{
			MaxEntries: DefaultCacheEntries,
			TTL:        DefaultCacheTTL,
			Coalesce:   true,
		},
		Filter: FilterConfig{
			Container:    "mp4",
			RequireAudio: true,
			RequireVideo: true,
			MaxResults:   variant.DefaultMaxResults,
		},
		Staging: StagingConfig{
			StaleAfter: DefaultStaleAfter,
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader. Keys absent
// from the document keep their default values.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrConfigValidation, err)
	}

	return config, nil
}

// SaveConfig saves configuration to a file.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := os.MkdirAll(filepath.Dir(absPath), fsutil.DirModeDefault); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeSecure)
	if err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}

	_ = encoder.Close()
	_ = file.Close()

	// Atomically replace the config file
	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigFileRename, err.Error())
	}

	if err := os.Chmod(absPath, fsutil.FileModeSecure); err != nil {
		return errors.Wrap(errors.ErrConfigFileChmod, err.Error())
	}

	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfigMarshal, err.Error())
	}
	return data, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	if err := validateSettings(c.Settings); err != nil {
		return err
	}
	if err := validateServer(c.Server); err != nil {
		return err
	}
	if err := validateExtractor(c.Extractor); err != nil {
		return err
	}
	if c.Cache.MaxEntries < 0 {
		return errors.ErrCacheSizeNegative
	}
	if c.Cache.TTL < 0 {
		return errors.ErrCacheTTLNegative
	}
	if c.Filter.MaxResults < 0 {
		return errors.ErrMaxResultsNegative
	}
	if c.Staging.StaleAfter < 0 {
		return fmt.Errorf("staging.stale_after: %w", errors.ErrTimeoutNegative)
	}
	if _, err := c.FilterPolicy(); err != nil {
		return err
	}
	return nil
}

func validateSettings(s Settings) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return errors.ErrInvalidLogLevelWithDetails(s.LogLevel)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(s.LogFormat)] {
		return errors.ErrInvalidLogFormatWithDetails(s.LogFormat)
	}
	return nil
}

func validateServer(s ServerConfig) error {
	if strings.TrimSpace(s.Listen) == "" {
		return errors.ErrEmptyListenAddress
	}
	if s.RateLimit < 0 || s.RateBurst < 0 {
		return errors.ErrRateLimitNegative
	}
	if s.ReadHeaderTimeout < 0 {
		return fmt.Errorf("server.read_header_timeout: %w", errors.ErrTimeoutNegative)
	}
	if s.SweepInterval < 0 {
		return fmt.Errorf("server.sweep_interval: %w", errors.ErrTimeoutNegative)
	}
	return nil
}

func validateExtractor(e ExtractorConfig) error {
	if strings.TrimSpace(e.Binary) == "" {
		return errors.ErrEmptyExtractorBinary
	}
	if e.FetchTimeout < 0 {
		return fmt.Errorf("extractor.fetch_timeout: %w", errors.ErrTimeoutNegative)
	}
	if e.HTTPTimeout < 0 {
		return fmt.Errorf("extractor.http_timeout: %w", errors.ErrTimeoutNegative)
	}
	switch e.DownloadBackend {
	case BackendYtDlp, BackendHTTP:
	default:
		return errors.ErrInvalidBackendWithDetails(e.DownloadBackend)
	}
	if e.MinVersion != "" {
		if _, err := version.NewVersion(e.MinVersion); err != nil {
			return fmt.Errorf("%w: %q: %w", errors.ErrInvalidMinVersion, e.MinVersion, err)
		}
	}
	return nil
}

// FilterPolicy builds the variant policy, compiling the optional script predicate.
func (c *Config) FilterPolicy() (variant.Policy, error) {
	p := variant.Policy{
		Container:    c.Filter.Container,
		RequireAudio: c.Filter.RequireAudio,
		RequireVideo: c.Filter.RequireVideo,
		MaxResults:   c.Filter.MaxResults,
	}
	if strings.TrimSpace(c.Filter.Script) != "" {
		pred, err := variant.CompileScript(c.Filter.Script)
		if err != nil {
			return variant.Policy{}, err
		}
		p.Predicate = pred
	}
	return p, nil
}

// CacheOptions returns the bounds for cache.New.
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{MaxEntries: c.Cache.MaxEntries, TTL: c.Cache.TTL}
}

// StagingRoot returns the configured staging root or the default location.
func (c *Config) StagingRoot() string {
	if c.Staging.Root != "" {
		return c.Staging.Root
	}
	return fsutil.GetStagingRoot()
}

// ApplyEnv overrides file values with GRABVID_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvListen); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv(EnvYtDlp); v != "" {
		c.Extractor.Binary = v
	}
	if v := os.Getenv(EnvCookieFile); v != "" {
		c.Extractor.CookieFile = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Settings.LogLevel = v
	}
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := fsutil.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// applyDefaults fills in empty strings the YAML document set explicitly.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
	if c.Settings.LogFormat == "" {
		c.Settings.LogFormat = defaults.Settings.LogFormat
	}
	if c.Server.Listen == "" {
		c.Server.Listen = defaults.Server.Listen
	}
	if c.Extractor.Binary == "" {
		c.Extractor.Binary = defaults.Extractor.Binary
	}
	if c.Extractor.FetchTimeout == 0 {
		c.Extractor.FetchTimeout = defaults.Extractor.FetchTimeout
	}
	if c.Extractor.DownloadBackend == "" {
		c.Extractor.DownloadBackend = defaults.Extractor.DownloadBackend
	}
	if c.Extractor.UserAgent == "" {
		c.Extractor.UserAgent = defaults.Extractor.UserAgent
	}
	c.Extractor.DownloadBackend = strings.ToLower(c.Extractor.DownloadBackend)
}
