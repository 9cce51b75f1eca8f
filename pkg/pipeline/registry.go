package pipeline

import (
	"sort"
	"sync"

	"github.com/cperrin88/grabvid/pkg/model"
)

// registry tracks in-flight jobs. Jobs leave it on failure or release.
type registry struct {
	mu   sync.RWMutex
	jobs map[string]*model.DownloadJob
}

func newRegistry() *registry {
	return &registry{jobs: make(map[string]*model.DownloadJob)}
}

func (r *registry) add(job *model.DownloadJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
}

// update applies fn to the job under the registry lock and returns a snapshot.
func (r *registry) update(job *model.DownloadJob, fn func(*model.DownloadJob) error) (model.DownloadJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := fn(job)
	return job.Snapshot(), err
}

func (r *registry) snapshots() []model.DownloadJob {
	r.mu.RLock()
	out := make([]model.DownloadJob, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j.Snapshot())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, k int) bool {
		if out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].ID < out[k].ID
		}
		return out[i].CreatedAt.Before(out[k].CreatedAt)
	})
	return out
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
