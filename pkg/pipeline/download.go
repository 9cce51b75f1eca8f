package pipeline

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/cperrin88/grabvid/internal/logger"
	"github.com/cperrin88/grabvid/pkg/model"
	"github.com/cperrin88/grabvid/pkg/staging"
)

// Download is a staged file plus the obligation to clean it up. The staging
// area lives until Release is called.
type Download struct {
	// Job is the job snapshot taken when the file became ready.
	Job      model.DownloadJob
	FilePath string

	area *staging.Area
	svc  *Service
	once sync.Once
}

// Name returns the base name of the staged file.
func (d *Download) Name() string {
	return filepath.Base(d.FilePath)
}

// Open opens the staged file for reading.
func (d *Download) Open() (*os.File, error) {
	return os.Open(d.FilePath)
}

// Release removes the staging area and retires the job. Later calls are no-ops.
func (d *Download) Release() error {
	var err error
	d.once.Do(func() {
		if d.area != nil {
			err = d.area.Release()
		}
		if d.svc != nil {
			d.svc.retire(d.Job.ID)
		}
	})
	return err
}

// retire moves a finished job to Cleaned and drops it from the registry.
func (s *Service) retire(id string) {
	s.jobs.mu.Lock()
	job, ok := s.jobs.jobs[id]
	if !ok {
		s.jobs.mu.Unlock()
		return
	}
	if err := job.Transition(model.JobCleaned, s.Now()); err != nil {
		logger.Debug("unexpected state on release", logger.Fields{"job_id": id, "state": string(job.State)})
	}
	snap := job.Snapshot()
	delete(s.jobs.jobs, id)
	s.jobs.mu.Unlock()

	s.event(snap, "")
	logger.Debug("job retired", logger.Fields{"job_id": id})
}
