//go:generate mockgen -destination=./mocks/pipeline.go . Fetcher,Executor

package pipeline

import (
	"context"

	"github.com/cperrin88/grabvid/pkg/model"
	"github.com/cperrin88/grabvid/pkg/staging"
)

// Fetcher produces a variant catalog for a URL. *fetch.Executor satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*model.VariantCatalog, error)
}

// Executor materializes one variant into req.Dir and returns the produced file path.
type Executor interface {
	Download(ctx context.Context, req model.DownloadRequest) (string, error)
}

// Stager hands out exclusively owned staging areas. *staging.Manager satisfies it.
type Stager interface {
	Acquire(jobID string) (*staging.Area, error)
}

// Event represents a job progress notification.
type Event struct {
	Phase string // pending|fetching|downloading|ready|failed|cleaned
	ID    string // job ID
	Msg   string
}

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent func(Event)
}

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}
