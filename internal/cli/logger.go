package cli

import (
	"github.com/cperrin88/grabvid/internal/logger"
	"github.com/cperrin88/grabvid/pkg/config"
)

// setupLogging configures the global logger from the settings section.
// --verbose forces debug level and --output json switches log lines to JSON.
func setupLogging(cfg *config.Config) {
	logger.InitLogger(cfg.Settings.LogLevel, logger.ParseFormat(cfg.Settings.LogFormat))
	if Verbose != nil && *Verbose {
		logger.SetLevel("debug")
	}
	if jsonOutput() {
		logger.SetOutputFormat(logger.FormatJSON)
	}
}
