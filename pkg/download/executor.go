// Package download fetches a variant's direct media URL over HTTP. It is the
// alternative to handing the download to yt-dlp.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	pkgerrors "github.com/cperrin88/grabvid/pkg/errors"
	"github.com/cperrin88/grabvid/pkg/fsutil"
	"github.com/cperrin88/grabvid/pkg/model"
)

// DefaultUserAgent is sent when none is configured.
const DefaultUserAgent = "grabvid/1.0"

// Executor streams a single variant to disk.
type Executor struct {
	client    *http.Client
	userAgent string
}

// NewExecutor creates an executor. A zero timeout leaves the transfer bounded
// only by the request context.
func NewExecutor(timeout time.Duration, userAgent string) *Executor {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Executor{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Download writes req.Variant's media into req.Dir as "<title>.<container>".
func (e *Executor) Download(ctx context.Context, req model.DownloadRequest) (string, error) {
	if req.Variant == nil || req.Variant.URL == "" {
		return "", fmt.Errorf("format %s: %w", req.VariantID, pkgerrors.ErrNoDirectURL)
	}
	if req.Dir == "" || !filepath.IsAbs(req.Dir) {
		return "", fmt.Errorf("download dir must be absolute: %s: %w", req.Dir, pkgerrors.ErrDownloadFailed)
	}

	absPath := filepath.Join(req.Dir, targetName(req))

	resp, err := e.doRequest(ctx, req.Variant.URL)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	tmpPath, err := writeBodyToTemp(resp, req.Dir)
	if err != nil {
		return "", err
	}
	if err := finalizeFile(tmpPath, absPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	return absPath, nil
}

func targetName(req model.DownloadRequest) string {
	ext := strings.TrimPrefix(strings.ToLower(req.Variant.Container), ".")
	if ext == "" {
		ext = "bin"
	}
	title := req.Title
	if title == "" {
		title = req.VariantID
	}
	return fsutil.SanitizeFilename(title) + "." + fsutil.SanitizeFilename(ext)
}

func (e *Executor) doRequest(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", e.userAgent)
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pkgerrors.ErrDownloadFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d: %w", resp.StatusCode, pkgerrors.ErrDownloadFailed)
	}
	return resp, nil
}

func writeBodyToTemp(resp *http.Response, dir string) (string, error) {
	tmp, err := os.CreateTemp(dir, "dl-*.tmp")
	if err != nil {
		return "", pkgerrors.Wrap(err, "could not create temp file")
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("could not write file: %w: %w", pkgerrors.ErrDownloadFailed, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", pkgerrors.Wrap(err, "could not close file")
	}
	return tmpPath, nil
}

func finalizeFile(tmpPath, absPath string) error {
	if err := fsutil.Move(tmpPath, absPath); err != nil {
		return pkgerrors.Wrap(err, "could not finalize file")
	}
	if err := os.Chmod(absPath, fsutil.FileModeSecure); err != nil {
		return pkgerrors.Wrap(err, "could not set permissions")
	}
	return nil
}
