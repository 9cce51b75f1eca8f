package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cperrin88/grabvid/pkg/errors"
)

func TestSetValue(t *testing.T) {
	tests := []struct {
		key   string
		value string
		check func(t *testing.T, c *Config)
	}{
		{"server.listen", ":9000", func(t *testing.T, c *Config) { assert.Equal(t, ":9000", c.Server.Listen) }},
		{"server.rate_limit", "2.5", func(t *testing.T, c *Config) { assert.InDelta(t, 2.5, c.Server.RateLimit, 1e-9) }},
		{"cache.ttl", "30m", func(t *testing.T, c *Config) { assert.Equal(t, 30*time.Minute, c.Cache.TTL) }},
		{"cache.max_entries", "5", func(t *testing.T, c *Config) { assert.Equal(t, 5, c.Cache.MaxEntries) }},
		{"filter.require_audio", "false", func(t *testing.T, c *Config) { assert.False(t, c.Filter.RequireAudio) }},
		{"extractor.extra_args", "--geo-bypass, --force-ipv4", func(t *testing.T, c *Config) {
			assert.Equal(t, []string{"--geo-bypass", "--force-ipv4"}, c.Extractor.ExtraArgs)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			cfg := DefaultConfig()
			require.NoError(t, cfg.SetValue(tt.key, tt.value))
			tt.check(t, cfg)

			got, err := cfg.GetValue(tt.key)
			require.NoError(t, err)
			assert.NotEmpty(t, got)
		})
	}
}

func TestSetValueErrors(t *testing.T) {
	cfg := DefaultConfig()

	assert.ErrorIs(t, cfg.SetValue("listen", ":1"), errors.ErrUnknownConfigKey)
	assert.ErrorIs(t, cfg.SetValue("server.nope", ":1"), errors.ErrUnknownConfigKey)
	assert.ErrorIs(t, cfg.SetValue("nope.listen", ":1"), errors.ErrUnknownConfigKey)
	assert.Error(t, cfg.SetValue("filter.require_audio", "maybe"))
	assert.Error(t, cfg.SetValue("cache.ttl", "soon"))
	assert.Error(t, cfg.SetValue("cache.max_entries", "many"))

	_, err := cfg.GetValue("server")
	assert.ErrorIs(t, err, errors.ErrUnknownConfigKey)
}

func TestGetValue(t *testing.T) {
	cfg := DefaultConfig()

	v, err := cfg.GetValue("extractor.fetch_timeout")
	require.NoError(t, err)
	assert.Equal(t, "1m0s", v)

	v, err = cfg.GetValue("cache.coalesce")
	require.NoError(t, err)
	assert.Equal(t, "true", v)
}

func TestToMapAndKeys(t *testing.T) {
	cfg := DefaultConfig()
	m := cfg.ToMap()

	assert.Equal(t, ":8080", m["server.listen"])
	assert.Equal(t, "mp4", m["filter.container"])
	assert.Equal(t, "", m["extractor.cookie_file"])

	keys := cfg.Keys()
	assert.Len(t, keys, len(m))
	assert.IsNonDecreasing(t, keys)
	for _, k := range keys {
		_, err := cfg.GetValue(k)
		assert.NoError(t, err, k)
	}
}
