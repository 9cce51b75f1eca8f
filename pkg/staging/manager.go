// Package staging hands out exclusively owned temporary directories for
// download jobs and cleans up the ones a crashed process left behind.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/cperrin88/grabvid/pkg/errors"
	"github.com/cperrin88/grabvid/pkg/fsutil"
)

// dirPrefix is shared by every job directory so Clean never touches foreign entries.
const dirPrefix = "job-"

// Manager allocates staging areas below a root directory.
type Manager struct {
	root   string
	prefix string

	mu     sync.Mutex
	active map[string]struct{}
}

// NewManager creates a manager rooted at root. An empty root uses the
// per-user temp location from fsutil.GetStagingRoot.
func NewManager(root string) *Manager {
	if root == "" {
		root = fsutil.GetStagingRoot()
	}
	return &Manager{
		root:   root,
		prefix: dirPrefix,
		active: make(map[string]struct{}),
	}
}

// Root returns the directory job areas are created in.
func (m *Manager) Root() string {
	return m.root
}

// Acquire creates a fresh, uniquely named directory owned by jobID.
func (m *Manager) Acquire(jobID string) (*Area, error) {
	if err := os.MkdirAll(m.root, fsutil.DirModePrivate); err != nil {
		return nil, fmt.Errorf("%w: %w: %w", errors.ErrInternal, errors.ErrStagingCreate, err)
	}
	dir, err := os.MkdirTemp(m.root, m.prefix+sanitizeID(jobID)+"-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", errors.ErrInternal, errors.ErrStagingCreate, err)
	}

	m.mu.Lock()
	m.active[dir] = struct{}{}
	m.mu.Unlock()

	return &Area{path: dir, owner: m}, nil
}

func (m *Manager) forget(dir string) {
	m.mu.Lock()
	delete(m.active, dir)
	m.mu.Unlock()
}

func (m *Manager) isActive(dir string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[dir]
	return ok
}

// Active returns the number of areas acquired and not yet released.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

func sanitizeID(id string) string {
	id = strings.Map(func(r rune) rune {
		if r == os.PathSeparator || r == '/' || r == '*' {
			return '_'
		}
		return r
	}, id)
	if id == "" {
		return "anon"
	}
	return id
}

// Area is one job's staging directory. Release is safe to call any number of times.
type Area struct {
	path     string
	owner    *Manager
	once     sync.Once
	released atomic.Bool
}

// Path returns the directory path.
func (a *Area) Path() string {
	return a.path
}

// Release removes the directory and everything in it. Only the first call
// does any work. A directory that is already gone is not an error.
func (a *Area) Release() error {
	var err error
	a.once.Do(func() {
		if rmErr := os.RemoveAll(a.path); rmErr != nil && !os.IsNotExist(rmErr) {
			err = errors.Wrapf(rmErr, "failed to remove staging area %s", a.path)
		}
		a.released.Store(true)
		if a.owner != nil {
			a.owner.forget(a.path)
		}
	})
	return err
}

// Released reports whether Release has run.
func (a *Area) Released() bool {
	return a.released.Load()
}

// Info describes the staging root.
type Info struct {
	Directory string
	Jobs      int
	TotalSize int64
}

// CleanResult reports what Clean removed.
type CleanResult struct {
	Removed int
	Freed   int64
}

// Info reports how many job directories exist under the root and their total size.
func (m *Manager) Info() (*Info, error) {
	info := &Info{Directory: m.root}
	dirs, err := m.jobDirs()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrStagingInfo, err)
	}
	for _, d := range dirs {
		size, err := fsutil.DirSize(filepath.Join(m.root, d.Name()))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrStagingInfo, err)
		}
		info.Jobs++
		info.TotalSize += size
	}
	return info, nil
}

// Clean removes job directories last modified more than olderThan ago.
// Areas held by this manager are skipped. All removal errors are collected.
func (m *Manager) Clean(olderThan time.Duration) (*CleanResult, error) {
	result := &CleanResult{}
	dirs, err := m.jobDirs()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrStagingClean, err)
	}

	cutoff := time.Now().Add(-olderThan)
	var errs *multierror.Error
	for _, d := range dirs {
		path := filepath.Join(m.root, d.Name())
		if m.isActive(path) {
			continue
		}
		fi, err := d.Info()
		if err != nil {
			if !os.IsNotExist(err) {
				errs = multierror.Append(errs, err)
			}
			continue
		}
		if olderThan > 0 && fi.ModTime().After(cutoff) {
			continue
		}
		size, err := fsutil.DirSize(path)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "failed to remove %s", path))
			continue
		}
		result.Removed++
		result.Freed += size
	}

	if err := errs.ErrorOrNil(); err != nil {
		return result, fmt.Errorf("%w: %w", errors.ErrStagingClean, err)
	}
	return result, nil
}

func (m *Manager) jobDirs() ([]os.DirEntry, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	dirs := entries[:0]
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), m.prefix) {
			dirs = append(dirs, e)
		}
	}
	return dirs, nil
}
