package profile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/textpack/internal/logging"
)

// reloadDelay coalesces bursts of filesystem events into one reload.
const reloadDelay = 100 * time.Millisecond

// Registry holds the profiles found in a directory.
type Registry struct {
	dir    string
	logger *logging.Logger

	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewRegistry creates an empty registry for dir. Call Load to populate it.
func NewRegistry(dir string, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Registry{
		dir:      dir,
		logger:   logger.Named("profile"),
		profiles: make(map[string]*Profile),
	}
}

// Load replaces the registry contents with the profiles in the directory.
// Invalid files are skipped and reported in the joined error; valid ones
// are still loaded. An empty directory setting loads nothing.
func (r *Registry) Load(ctx context.Context) error {
	if r.dir == "" {
		return nil
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading profile directory: %w", err)
	}

	loaded := make(map[string]*Profile)
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || Format(entry.Name()) == "" {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		p, err := LoadFile(path)
		if err != nil {
			r.logger.Warn(ctx, "skipping profile", zap.String("path", path), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if prev, ok := loaded[p.ID]; ok {
			err := fmt.Errorf("%w: duplicate id %q in %s and %s", ErrInvalidProfile, p.ID, prev.Source, path)
			r.logger.Warn(ctx, "skipping profile", zap.String("path", path), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		loaded[p.ID] = p
	}

	r.mu.Lock()
	r.profiles = loaded
	r.mu.Unlock()

	r.logger.Info(ctx, "profiles loaded",
		zap.String("dir", r.dir),
		zap.Int("count", len(loaded)),
		zap.Int("skipped", len(errs)),
	)
	return errors.Join(errs...)
}

// Add registers p after validating it. It replaces any profile with the
// same id.
func (r *Registry) Add(p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.profiles[p.ID] = p
	r.mu.Unlock()
	return nil
}

// Get returns the profile with the given id.
func (r *Registry) Get(id string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return p, nil
}

// List returns all profiles sorted by id.
func (r *Registry) List() []*Profile {
	r.mu.RLock()
	out := make([]*Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Watch reloads the registry whenever a profile file in the directory
// changes. It blocks until ctx is cancelled.
func (r *Registry) Watch(ctx context.Context) error {
	if r.dir == "" {
		return errors.New("profile directory is not configured")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating profile watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(r.dir); err != nil {
		return fmt.Errorf("watching %s: %w", r.dir, err)
	}

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if Format(event.Name) == "" {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				timer.Reset(reloadDelay)
			}
		case <-timer.C:
			// Errors are already logged per file.
			_ = r.Load(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn(ctx, "profile watcher error", zap.Error(err))
		}
	}
}
