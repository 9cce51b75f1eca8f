// Package ytdlp drives the yt-dlp command line tool for metadata extraction
// and downloads.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-version"

	"github.com/cperrin88/grabvid/internal/logger"
	"github.com/cperrin88/grabvid/pkg/errors"
	"github.com/cperrin88/grabvid/pkg/model"
)

// DefaultBinary is looked up in PATH when no binary is configured.
const DefaultBinary = "yt-dlp"

// outputTemplate names downloads after the video title, as the web form always did.
const outputTemplate = "%(title)s.%(ext)s"

// waitDelay bounds how long Wait blocks on pipes held open by grandchildren after a kill.
const waitDelay = 2 * time.Second

// Options configure a Client.
type Options struct {
	Binary     string
	CookieFile string
	// ExtraArgs are passed to every invocation before the URL.
	ExtraArgs         []string
	RestrictFilenames bool
}

// Client runs yt-dlp as a subprocess. Canceling the context kills the process.
type Client struct {
	binary            string
	cookieFile        string
	extraArgs         []string
	restrictFilenames bool
}

// New creates a Client.
func New(opts Options) *Client {
	bin := opts.Binary
	if bin == "" {
		bin = DefaultBinary
	}
	return &Client{
		binary:            bin,
		cookieFile:        opts.CookieFile,
		extraArgs:         opts.ExtraArgs,
		restrictFilenames: opts.RestrictFilenames,
	}
}

// Binary returns the configured executable.
func (c *Client) Binary() string {
	return c.binary
}

// Extract dumps the metadata of a single video without downloading it.
func (c *Client) Extract(ctx context.Context, url string) (*model.MediaInfo, error) {
	args := []string{"--dump-single-json", "--skip-download", "--no-playlist", "--no-warnings"}
	args = append(args, c.commonArgs()...)
	args = append(args, "--", url)

	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	var raw rawInfo
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode yt-dlp metadata: %w", err)
	}
	return raw.toModel(), nil
}

// Download fetches one format into req.Dir and returns the path yt-dlp reports
// for the finished file.
func (c *Client) Download(ctx context.Context, req model.DownloadRequest) (string, error) {
	args := []string{
		"-f", req.VariantID,
		"-o", filepath.Join(req.Dir, outputTemplate),
		"--no-playlist",
		"--no-progress",
		"--no-warnings",
		"--no-simulate",
		"--print", "after_move:filepath",
	}
	if c.restrictFilenames {
		args = append(args, "--restrict-filenames")
	}
	args = append(args, c.commonArgs()...)
	args = append(args, "--", req.URL)

	out, err := c.run(ctx, args...)
	if err != nil {
		return "", err
	}

	path := lastLine(string(out))
	if path == "" {
		return "", fmt.Errorf("yt-dlp did not report an output file")
	}
	return path, nil
}

// Version returns the installed yt-dlp version.
func (c *Client) Version(ctx context.Context) (*version.Version, error) {
	out, err := c.run(ctx, "--version")
	if err != nil {
		return nil, err
	}
	v, err := version.NewVersion(lastLine(string(out)))
	if err != nil {
		return nil, fmt.Errorf("unexpected yt-dlp version output %q: %w", strings.TrimSpace(string(out)), err)
	}
	return v, nil
}

// CheckVersion fails when the installed yt-dlp is older than minVersion. An empty minimum always passes.
func (c *Client) CheckVersion(ctx context.Context, minVersion string) error {
	if minVersion == "" {
		return nil
	}
	want, err := version.NewVersion(minVersion)
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidMinVersion, err)
	}
	have, err := c.Version(ctx)
	if err != nil {
		return err
	}
	if have.LessThan(want) {
		return errors.ErrExtractorTooOldWithDetails(have.Original(), want.Original())
	}
	return nil
}

func (c *Client) commonArgs() []string {
	var args []string
	if c.cookieFile != "" {
		args = append(args, "--cookies", c.cookieFile)
	}
	return append(args, c.extraArgs...)
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	logger.Debug("yt-dlp finished", logger.Fields{
		"args":     strings.Join(args, " "),
		"duration": time.Since(start).String(),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("yt-dlp interrupted: %w", ctxErr)
		}
		return nil, newRunError(err, stderr.String())
	}
	return stdout.Bytes(), nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
