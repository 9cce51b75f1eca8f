// Package pipeline ties the metadata cache, the fetch executor, staging areas
// and the download executor into the fetch-then-download job flow.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/singleflight"

	"github.com/cperrin88/grabvid/internal/logger"
	"github.com/cperrin88/grabvid/pkg/cache"
	"github.com/cperrin88/grabvid/pkg/errors"
	"github.com/cperrin88/grabvid/pkg/fsutil"
	"github.com/cperrin88/grabvid/pkg/model"
	"github.com/cperrin88/grabvid/pkg/staging"
)

// Service runs fetch and download jobs. Create it with New.
type Service struct {
	Cache    cache.Store
	Fetcher  Fetcher
	Executor Executor
	Staging  Stager
	Hooks    Hooks
	// Coalesce shares one in-flight fetch between concurrent callers for the same URL.
	Coalesce bool
	Now      func() time.Time
	NewID    func() string

	group singleflight.Group
	jobs  *registry
}

// New creates a Service. A nil store gets an unbounded in-memory cache.
func New(store cache.Store, fetcher Fetcher, executor Executor, stager Stager) *Service {
	if store == nil {
		store = cache.NewMemoryStore()
	}
	return &Service{
		Cache:    store,
		Fetcher:  fetcher,
		Executor: executor,
		Staging:  stager,
		Now:      time.Now,
		NewID:    uuid.NewString,
		jobs:     newRegistry(),
	}
}

// FetchVariants returns the catalog for url from the cache or a fresh fetch.
// Only successful fetches are cached.
func (s *Service) FetchVariants(ctx context.Context, url string) (*model.VariantCatalog, error) {
	key := cache.NormalizeKey(url)
	if key == "" {
		return nil, invalidInput("url is required")
	}

	if c, ok := s.Cache.Get(key); ok {
		logger.Debug("catalog cache hit", logger.Fields{"url": key})
		return c, nil
	}

	c, err := s.fetch(ctx, key)
	if err != nil {
		return nil, &JobError{Kind: KindFetchFailed, Reason: err.Error(), Err: err}
	}
	return c, nil
}

// fetch calls the fetcher and populates the cache on success.
func (s *Service) fetch(ctx context.Context, key string) (*model.VariantCatalog, error) {
	if !s.Coalesce {
		return s.fetchAndStore(ctx, key)
	}

	// The shared call must not die with whichever caller started it. The
	// fetcher's own deadline still bounds it.
	ch := s.group.DoChan(key, func() (interface{}, error) {
		if c, ok := s.Cache.Get(key); ok {
			return c, nil
		}
		return s.fetchAndStore(context.WithoutCancel(ctx), key)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			logger.Debug("shared in-flight fetch", logger.Fields{"url": key})
		}
		return res.Val.(*model.VariantCatalog), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) fetchAndStore(ctx context.Context, key string) (*model.VariantCatalog, error) {
	start := time.Now()
	c, err := s.Fetcher.Fetch(ctx, key)
	if err != nil {
		logger.Warn("metadata fetch failed", logger.Fields{"url": key, "error": err.Error()})
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: fetcher returned no catalog", errors.ErrUpstream)
	}
	s.Cache.Put(key, c)
	logger.Debug("catalog fetched", logger.Fields{
		"url":      key,
		"variants": len(c.Variants),
		"duration": time.Since(start).String(),
	})
	return c, nil
}

// StartDownload materializes variantID of url into a fresh staging area. On
// success the caller owns the returned Download and must Release it once the
// file has been transferred. On failure nothing is left on disk.
func (s *Service) StartDownload(ctx context.Context, url, variantID string) (*Download, error) {
	key := cache.NormalizeKey(url)
	vid := strings.TrimSpace(variantID)
	switch {
	case key == "":
		return nil, invalidInput("url is required")
	case vid == "":
		return nil, invalidInput("format id is required")
	}

	job := model.NewDownloadJob(s.NewID(), key, vid, s.Now())
	s.jobs.add(job)
	s.event(*job, "")

	catalog, hit := s.Cache.Get(key)
	if !hit {
		if err := s.transition(job, model.JobFetching, ""); err != nil {
			return nil, s.fail(job, nil, KindInternal, err)
		}
		var err error
		catalog, err = s.fetch(ctx, key)
		if err != nil {
			return nil, s.fail(job, nil, KindFetchFailed, err)
		}
	}

	hint, known := catalog.Variant(vid)
	if !known {
		logger.Warn("format id not in catalog, passing to executor", logger.Fields{
			"job_id":  job.ID,
			"url":     key,
			"variant": vid,
		})
	}

	area, err := s.Staging.Acquire(job.ID)
	if err != nil {
		return nil, s.fail(job, nil, KindInternal, err)
	}
	handedOff := false
	defer func() {
		if !handedOff {
			_ = area.Release()
			s.retire(job.ID)
		}
	}()

	if _, err := s.jobs.update(job, func(j *model.DownloadJob) error {
		j.StagingDir = area.Path()
		return j.Transition(model.JobDownloading, s.Now())
	}); err != nil {
		return nil, s.fail(job, area, KindInternal, err)
	}
	s.event(*job, area.Path())

	req := model.DownloadRequest{
		URL:       key,
		VariantID: vid,
		Dir:       area.Path(),
		Title:     catalog.Title,
		Variant:   hint,
	}
	path, err := s.download(ctx, req)
	if err != nil {
		return nil, s.fail(job, area, KindDownloadFailed, err)
	}

	resolved, err := verifyOutput(area.Path(), path)
	if err != nil {
		return nil, s.fail(job, area, KindDownloadFailed, err)
	}

	snap, err := s.jobs.update(job, func(j *model.DownloadJob) error {
		return j.MarkReady(resolved, s.Now())
	})
	if err != nil {
		return nil, s.fail(job, area, KindInternal, err)
	}
	s.event(snap, resolved)
	logger.Info("download staged", logger.Fields{"job_id": job.ID, "url": key, "variant": vid, "file": filepath.Base(resolved)})

	handedOff = true
	return &Download{Job: snap, FilePath: resolved, area: area, svc: s}, nil
}

// download calls the executor and turns a panic into an ordinary error.
func (s *Service) download(ctx context.Context, req model.DownloadRequest) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			path, err = "", fmt.Errorf("download executor panicked: %v", r)
		}
	}()
	return s.Executor.Download(ctx, req)
}

// WithDownload runs fn with a staged download and releases it on every exit
// path, including a panic inside fn.
func (s *Service) WithDownload(ctx context.Context, url, variantID string, fn func(*Download) error) (err error) {
	dl, err := s.StartDownload(ctx, url, variantID)
	if err != nil {
		return err
	}
	defer func() {
		if relErr := dl.Release(); relErr != nil {
			logger.Warn("failed to release staging area", logger.Fields{"job_id": dl.Job.ID, "error": relErr.Error()})
			if err == nil {
				err = relErr
			} else {
				err = multierror.Append(err, relErr)
			}
		}
	}()
	return fn(dl)
}

// ActiveJobs returns snapshots of the jobs that are in flight or awaiting release.
func (s *Service) ActiveJobs() []model.DownloadJob {
	return s.jobs.snapshots()
}

// ActiveJobCount returns the number of tracked jobs.
func (s *Service) ActiveJobCount() int {
	return s.jobs.len()
}

// CachedCatalogs returns the number of catalogs currently cached.
func (s *Service) CachedCatalogs() int {
	return s.Cache.Len()
}

func (s *Service) transition(job *model.DownloadJob, next model.JobState, msg string) error {
	snap, err := s.jobs.update(job, func(j *model.DownloadJob) error {
		return j.Transition(next, s.Now())
	})
	if err != nil {
		return err
	}
	s.event(snap, msg)
	return nil
}

// fail releases the staging area (if any), moves the job through Failed to
// Cleaned, drops it from the registry and returns the classified error. A release error is
// attached to the cause and never replaces it.
func (s *Service) fail(job *model.DownloadJob, area *staging.Area, kind ErrorKind, cause error) error {
	log := logger.With(logger.Fields{"job_id": job.ID, "url": job.SourceURL, "variant": job.VariantID})
	reason := cause.Error()
	var jobErr error = cause
	if area != nil {
		if relErr := area.Release(); relErr != nil {
			log.Error("failed to release staging area", "error", relErr.Error())
			jobErr = multierror.Append(cause, relErr)
		}
	}

	snap, err := s.jobs.update(job, func(j *model.DownloadJob) error {
		return j.MarkFailed(reason, s.Now())
	})
	if err != nil {
		log.Debug("job already terminal", "state", string(snap.State))
	}
	s.event(snap, reason)
	s.retire(job.ID)
	log.Warn("download job failed", "kind", string(kind), "reason", reason)

	return &JobError{Kind: kind, Reason: reason, JobID: job.ID, Err: jobErr}
}

func (s *Service) event(j model.DownloadJob, msg string) {
	logger.Debug("job state", logger.Fields{"job_id": j.ID, "state": string(j.State)})
	emit(s.Hooks, Event{Phase: string(j.State), ID: j.ID, Msg: msg})
}

// verifyOutput checks that the executor's reported file is a regular file
// inside dir. Relative paths are taken relative to dir.
func verifyOutput(dir, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("executor reported no output file")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	path = filepath.Clean(path)
	if !fsutil.IsWithin(dir, path) {
		return "", fmt.Errorf("%w: %s", errors.ErrOutsideDir, path)
	}
	fi, err := os.Lstat(path)
	if err != nil {
		return "", fmt.Errorf("executor output missing: %w", err)
	}
	if !fi.Mode().IsRegular() {
		return "", fmt.Errorf("executor output is not a regular file: %s", path)
	}
	return path, nil
}
