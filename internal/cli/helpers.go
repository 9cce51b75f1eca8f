package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cperrin88/grabvid/internal/logger"
	"github.com/cperrin88/grabvid/pkg/cache"
	"github.com/cperrin88/grabvid/pkg/config"
	"github.com/cperrin88/grabvid/pkg/download"
	"github.com/cperrin88/grabvid/pkg/errors"
	"github.com/cperrin88/grabvid/pkg/fetch"
	"github.com/cperrin88/grabvid/pkg/pipeline"
	"github.com/cperrin88/grabvid/pkg/staging"
	"github.com/cperrin88/grabvid/pkg/ytdlp"
)

// These variables will be set by the main package
var (
	ConfigPath   *string
	Verbose      *bool
	OutputFormat *string
)

// loadConfig loads the configuration file, applies GRABVID_* overrides and
// sets up logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrConfigValidation, err)
	}

	setupLogging(cfg)
	return cfg, nil
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		// An empty path makes LoadConfig/SaveConfig report a descriptive error.
		logger.Warn("Failed to get default config path, using empty path", logger.Fields{"error": err.Error()})
		return ""
	}
	return defaultPath
}

func jsonOutput() bool {
	return OutputFormat != nil && strings.EqualFold(*OutputFormat, OutputJSON)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// app is the wired pipeline for one command invocation.
type app struct {
	cfg     *config.Config
	client  *ytdlp.Client
	staging *staging.Manager
	service *pipeline.Service
}

// newApp builds the yt-dlp client, fetch executor, cache, staging manager and
// download backend described by cfg.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	policy, err := cfg.FilterPolicy()
	if err != nil {
		return nil, err
	}

	client := ytdlp.New(ytdlp.Options{
		Binary:            cfg.Extractor.Binary,
		CookieFile:        cfg.Extractor.CookieFile,
		ExtraArgs:         cfg.Extractor.ExtraArgs,
		RestrictFilenames: cfg.Extractor.RestrictFilenames,
	})
	if cfg.Extractor.MinVersion != "" {
		if err := client.CheckVersion(ctx, cfg.Extractor.MinVersion); err != nil {
			return nil, err
		}
	}

	var executor pipeline.Executor = client
	if cfg.Extractor.DownloadBackend == config.BackendHTTP {
		executor = download.NewExecutor(cfg.Extractor.HTTPTimeout, cfg.Extractor.UserAgent)
	}

	mgr := staging.NewManager(cfg.StagingRoot())
	svc := pipeline.New(
		cache.New(cfg.CacheOptions()),
		fetch.NewExecutor(client, cfg.Extractor.FetchTimeout, policy),
		executor,
		mgr,
	)
	svc.Coalesce = cfg.Cache.Coalesce
	svc.Hooks = pipeline.Hooks{OnEvent: func(e pipeline.Event) {
		fields := logger.Fields{"job_id": e.ID, "state": e.Phase}
		if e.Msg != "" {
			fields["msg"] = e.Msg
		}
		logger.Debug("job event", fields)
	}}

	logger.Debug("pipeline ready", logger.Fields{
		"binary":  client.Binary(),
		"backend": cfg.Extractor.DownloadBackend,
		"staging": mgr.Root(),
	})

	return &app{cfg: cfg, client: client, staging: mgr, service: svc}, nil
}
