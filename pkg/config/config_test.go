package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cperrin88/grabvid/pkg/errors"
	"github.com/cperrin88/grabvid/pkg/fsutil"
	"github.com/cperrin88/grabvid/pkg/model"
)

func intPtr(v int) *int { return &v }

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Settings.LogLevel)
	assert.Equal(t, "text", cfg.Settings.LogFormat)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, 60*time.Second, cfg.Extractor.FetchTimeout)
	assert.Equal(t, BackendYtDlp, cfg.Extractor.DownloadBackend)
	assert.Equal(t, "mp4", cfg.Filter.Container)
	assert.True(t, cfg.Filter.RequireAudio)
	assert.True(t, cfg.Filter.RequireVideo)
	assert.Equal(t, 12, cfg.Filter.MaxResults)
	assert.True(t, cfg.Cache.Coalesce)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	configContent := `settings:
  log_level: debug
server:
  listen: 127.0.0.1:9000
extractor:
  binary: /opt/yt-dlp
  download_backend: HTTP
  fetch_timeout: 30s
cache:
  ttl: 10m
filter:
  require_audio: false
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), fsutil.FileModeDefault))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "debug", cfg.Settings.LogLevel)
	assert.Equal(t, "text", cfg.Settings.LogFormat)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Listen)
	assert.Equal(t, "/opt/yt-dlp", cfg.Extractor.Binary)
	assert.Equal(t, BackendHTTP, cfg.Extractor.DownloadBackend)
	assert.Equal(t, 30*time.Second, cfg.Extractor.FetchTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, DefaultCacheEntries, cfg.Cache.MaxEntries)
	assert.False(t, cfg.Filter.RequireAudio)
	// Keys absent from the document keep their defaults.
	assert.True(t, cfg.Filter.RequireVideo)
	assert.True(t, cfg.Cache.Coalesce)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		_, err := LoadConfig("")
		assert.ErrorIs(t, err, errors.ErrEmptyConfigPath)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadConfigFromReader(strings.NewReader("server: [unclosed"))
		assert.ErrorIs(t, err, errors.ErrConfigParse)
	})

	t.Run("invalid value", func(t *testing.T) {
		_, err := LoadConfigFromReader(strings.NewReader("settings:\n  log_level: loud\n"))
		assert.ErrorIs(t, err, errors.ErrConfigValidation)
		assert.ErrorIs(t, err, errors.ErrInvalidLogLevel)
	})

	t.Run("explicit empty strings fall back", func(t *testing.T) {
		cfg, err := LoadConfigFromReader(strings.NewReader("extractor:\n  binary: \"\"\n"))
		require.NoError(t, err)
		assert.Equal(t, "yt-dlp", cfg.Extractor.Binary)
	})
}

func TestSaveConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.LogLevel = "debug"
	cfg.Extractor.ExtraArgs = []string{"--geo-bypass"}
	cfg.Filter.Script = "height >= 720"

	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.SaveConfig(configPath))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(configPath)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(fsutil.FileModeSecure), info.Mode().Perm())
	}

	_, err := os.Stat(configPath + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveConfigEmptyPath(t *testing.T) {
	assert.ErrorIs(t, DefaultConfig().SaveConfig(""), errors.ErrEmptyConfigPath)
}

func TestToYAML(t *testing.T) {
	data, err := DefaultConfig().ToYAML()
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "listen:")
	assert.Contains(t, out, "8080")
	assert.Contains(t, out, "fetch_timeout: 1m0s")
	assert.NotContains(t, out, "cookie_file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"defaults", func(*Config) {}, nil},
		{"log level", func(c *Config) { c.Settings.LogLevel = "trace" }, errors.ErrInvalidLogLevel},
		{"log format", func(c *Config) { c.Settings.LogFormat = "xml" }, errors.ErrInvalidLogFormat},
		{"empty listen", func(c *Config) { c.Server.Listen = " " }, errors.ErrEmptyListenAddress},
		{"negative rate", func(c *Config) { c.Server.RateLimit = -1 }, errors.ErrRateLimitNegative},
		{"negative burst", func(c *Config) { c.Server.RateBurst = -1 }, errors.ErrRateLimitNegative},
		{"negative sweep", func(c *Config) { c.Server.SweepInterval = -time.Second }, errors.ErrTimeoutNegative},
		{"empty binary", func(c *Config) { c.Extractor.Binary = "" }, errors.ErrEmptyExtractorBinary},
		{"negative fetch timeout", func(c *Config) { c.Extractor.FetchTimeout = -time.Second }, errors.ErrTimeoutNegative},
		{"backend", func(c *Config) { c.Extractor.DownloadBackend = "ftp" }, errors.ErrInvalidBackend},
		{"min version", func(c *Config) { c.Extractor.MinVersion = "not a version" }, errors.ErrInvalidMinVersion},
		{"valid min version", func(c *Config) { c.Extractor.MinVersion = "2023.07.06" }, nil},
		{"cache size", func(c *Config) { c.Cache.MaxEntries = -1 }, errors.ErrCacheSizeNegative},
		{"cache ttl", func(c *Config) { c.Cache.TTL = -time.Minute }, errors.ErrCacheTTLNegative},
		{"max results", func(c *Config) { c.Filter.MaxResults = -3 }, errors.ErrMaxResultsNegative},
		{"stale after", func(c *Config) { c.Staging.StaleAfter = -time.Hour }, errors.ErrTimeoutNegative},
		{"filter script", func(c *Config) { c.Filter.Script = "height >=" }, errors.ErrInvalidFilterScript},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFilterPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Filter.MaxResults = 3
	cfg.Filter.Script = "height >= 720"

	policy, err := cfg.FilterPolicy()
	require.NoError(t, err)
	assert.Equal(t, "mp4", policy.Container)
	assert.Equal(t, 3, policy.MaxResults)
	require.NotNil(t, policy.Predicate)
	assert.True(t, policy.Predicate(model.VariantDescriptor{ID: "22", HeightPx: intPtr(720)}))
	assert.False(t, policy.Predicate(model.VariantDescriptor{ID: "18", HeightPx: intPtr(360)}))

	cfg.Filter.Script = ""
	policy, err = cfg.FilterPolicy()
	require.NoError(t, err)
	assert.Nil(t, policy.Predicate)
}

func TestCacheOptionsAndStagingRoot(t *testing.T) {
	cfg := DefaultConfig()
	opts := cfg.CacheOptions()
	assert.Equal(t, DefaultCacheEntries, opts.MaxEntries)
	assert.Equal(t, DefaultCacheTTL, opts.TTL)

	assert.Equal(t, fsutil.GetStagingRoot(), cfg.StagingRoot())
	cfg.Staging.Root = "/srv/grabvid"
	assert.Equal(t, "/srv/grabvid", cfg.StagingRoot())
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvListen, ":9999")
	t.Setenv(EnvYtDlp, "/usr/local/bin/yt-dlp")
	t.Setenv(EnvCookieFile, "/etc/grabvid/cookies.txt")
	t.Setenv(EnvLogLevel, "")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	assert.Equal(t, ":9999", cfg.Server.Listen)
	assert.Equal(t, "/usr/local/bin/yt-dlp", cfg.Extractor.Binary)
	assert.Equal(t, "/etc/grabvid/cookies.txt", cfg.Extractor.CookieFile)
	assert.Equal(t, "info", cfg.Settings.LogLevel)
}

func TestGetDefaultConfigPath(t *testing.T) {
	path, err := GetDefaultConfigPath()
	if err != nil {
		t.Skipf("no user config dir: %v", err)
	}
	assert.Equal(t, "config.yaml", filepath.Base(path))
	assert.Equal(t, fsutil.AppName, filepath.Base(filepath.Dir(path)))
}
