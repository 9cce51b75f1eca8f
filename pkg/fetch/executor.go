//go:generate mockgen -destination=./mocks/extractor.go . Extractor

// Package fetch runs the metadata extractor under a deadline and turns its
// output into a filtered variant catalog.
package fetch

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/cperrin88/grabvid/internal/logger"
	"github.com/cperrin88/grabvid/pkg/cache"
	"github.com/cperrin88/grabvid/pkg/model"
	"github.com/cperrin88/grabvid/pkg/variant"
)

// DefaultTimeout is the fetch deadline used when Executor.Timeout is unset.
const DefaultTimeout = 60 * time.Second

// Extractor is the external metadata extraction service.
type Extractor interface {
	Extract(ctx context.Context, url string) (*model.MediaInfo, error)
}

// Executor bounds an Extractor call with a deadline and filters the result.
type Executor struct {
	Extractor Extractor
	Timeout   time.Duration
	Policy    variant.Policy
	Now       func() time.Time
}

// NewExecutor creates an Executor with the given deadline and filter policy.
func NewExecutor(ext Extractor, timeout time.Duration, policy variant.Policy) *Executor {
	return &Executor{Extractor: ext, Timeout: timeout, Policy: policy, Now: time.Now}
}

type extractResult struct {
	info *model.MediaInfo
	err  error
}

// Fetch extracts metadata for url. The deadline is measured from the call and
// the extractor context is canceled as soon as Fetch returns, so no extraction
// work outlives a reported timeout. Every failure is a *Error.
func (e *Executor) Fetch(ctx context.Context, url string) (*model.VariantCatalog, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	key := cache.NormalizeKey(url)

	start := time.Now()
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make(chan extractResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				results <- extractResult{err: fmt.Errorf("extractor panicked: %v", r)}
			}
		}()
		info, err := e.Extractor.Extract(fctx, key)
		results <- extractResult{info: info, err: err}
	}()

	select {
	case r := <-results:
		if r.err != nil {
			if ctxErr := e.contextError(ctx, fctx, key, timeout, start); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Debug("extractor failed", logger.Fields{"url": key, "error": r.err.Error()})
			return nil, &Error{Kind: KindUpstream, URL: key, Detail: r.err.Error(), Err: r.err}
		}
		if r.info == nil {
			return nil, &Error{Kind: KindUpstream, URL: key, Detail: "extractor returned no metadata"}
		}
		return e.catalog(key, r.info), nil
	case <-fctx.Done():
		return nil, e.contextError(ctx, fctx, key, timeout, start)
	}
}

// contextError classifies a finished derived context. It returns nil while the context is live.
// A caller deadline that expires before the executor's own is still a timeout.
func (e *Executor) contextError(parent, derived context.Context, url string, timeout time.Duration, start time.Time) error {
	if derived.Err() == nil {
		return nil
	}
	if perr := parent.Err(); perr != nil {
		if !stderrors.Is(perr, context.DeadlineExceeded) {
			return &Error{Kind: KindCanceled, URL: url, Err: perr}
		}
		if dl, ok := parent.Deadline(); ok && dl.Sub(start) < timeout {
			timeout = dl.Sub(start).Round(time.Millisecond)
		}
	}
	logger.Warn("metadata fetch timed out", logger.Fields{"url": url, "timeout": timeout.String()})
	return &Error{Kind: KindTimeout, URL: url, Timeout: timeout, Err: derived.Err()}
}

func (e *Executor) catalog(url string, info *model.MediaInfo) *model.VariantCatalog {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return &model.VariantCatalog{
		SourceURL:       url,
		Title:           info.Title,
		Uploader:        info.Uploader,
		DurationSeconds: info.DurationSeconds,
		ViewCount:       info.ViewCount,
		Variants:        variant.Filter(info.Formats, e.Policy),
		FetchedAt:       now(),
	}
}
