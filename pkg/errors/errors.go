package errors

import "fmt"

// Common error types.
var (
	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")
	ErrConfigFileRename  = fmt.Errorf("failed to rename temporary config file")
	ErrConfigFileExists  = fmt.Errorf("configuration file already exists (use --force to overwrite)")
	ErrConfigMarshal     = fmt.Errorf("failed to marshal config to YAML")
	ErrConfigFileChmod   = fmt.Errorf("failed to set config file permissions")
	ErrUnknownConfigKey  = fmt.Errorf("unknown configuration key")

	// Config value errors.
	ErrTimeoutNegative      = fmt.Errorf("timeout cannot be negative")
	ErrCacheTTLNegative     = fmt.Errorf("cache ttl cannot be negative")
	ErrCacheSizeNegative    = fmt.Errorf("cache max_entries cannot be negative")
	ErrMaxResultsNegative   = fmt.Errorf("filter max_results cannot be negative")
	ErrRateLimitNegative    = fmt.Errorf("rate_limit cannot be negative")
	ErrInvalidLogLevel      = fmt.Errorf("invalid log level")
	ErrInvalidLogFormat     = fmt.Errorf("invalid log format")
	ErrInvalidBackend       = fmt.Errorf("invalid download backend")
	ErrInvalidFilterScript  = fmt.Errorf("invalid filter script")
	ErrInvalidMinVersion    = fmt.Errorf("invalid extractor min_version")
	ErrEmptyListenAddress   = fmt.Errorf("listen address cannot be empty")
	ErrEmptyExtractorBinary = fmt.Errorf("extractor binary cannot be empty")

	// Pipeline errors.
	ErrInvalidInput   = fmt.Errorf("invalid input")
	ErrTimeout        = fmt.Errorf("timed out")
	ErrUpstream       = fmt.Errorf("upstream error")
	ErrCanceled       = fmt.Errorf("canceled")
	ErrInternal       = fmt.Errorf("internal error")
	ErrFetchFailed    = fmt.Errorf("fetch failed")
	ErrDownloadFailed = fmt.Errorf("download failed")

	// Staging errors.
	ErrStagingCreate = fmt.Errorf("failed to create staging area")
	ErrStagingClean  = fmt.Errorf("failed to clean staging root")
	ErrStagingInfo   = fmt.Errorf("failed to get staging info")
	ErrOutsideDir    = fmt.Errorf("path escapes staging directory")

	// Extractor errors.
	ErrExtractorTooOld = fmt.Errorf("extractor version is too old")
	ErrNoDirectURL     = fmt.Errorf("variant has no direct URL")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ErrInvalidLogLevelWithDetails is a helper to create a wrapped error with the invalid level and valid options.
func ErrInvalidLogLevelWithDetails(level string) error {
	return fmt.Errorf("%w: '%s', must be one of: debug, info, warn, error", ErrInvalidLogLevel, level)
}

// ErrInvalidLogFormatWithDetails is a helper to create a wrapped error with the invalid format and valid options.
func ErrInvalidLogFormatWithDetails(format string) error {
	return fmt.Errorf("%w: '%s', must be one of: text, json", ErrInvalidLogFormat, format)
}

// ErrInvalidBackendWithDetails is a helper to create a wrapped error with the invalid backend and valid options.
func ErrInvalidBackendWithDetails(backend string) error {
	return fmt.Errorf("%w: '%s', must be one of: ytdlp, http", ErrInvalidBackend, backend)
}

// ErrExtractorTooOldWithDetails reports the installed and required extractor versions.
func ErrExtractorTooOldWithDetails(have, want string) error {
	return fmt.Errorf("%w: have %s, need at least %s", ErrExtractorTooOld, have, want)
}
