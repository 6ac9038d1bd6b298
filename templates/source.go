package templates

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/friendsofgo/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// RawSource is the text of one template file.
type RawSource struct {
	Name         string
	Text         string
	LastModified time.Time
}

// Source lists template files. Implementations must be safe for concurrent
// use.
type Source interface {
	ListSources(ctx context.Context, pattern string) ([]RawSource, error)
}

// Watcher is implemented by sources that can push change notifications.
type Watcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// DirSource reads templates from a directory tree.
type DirSource struct {
	dir    string
	fsys   fs.FS
	logger logrus.FieldLogger
}

// NewDirSource returns a Source rooted at dir.
func NewDirSource(dir string, logger logrus.FieldLogger) *DirSource {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DirSource{dir: dir, fsys: os.DirFS(dir), logger: logger}
}

// ListSources walks the tree and returns every file whose slash separated
// path, or base name, matches pattern. An empty pattern matches "*.sql".
func (s *DirSource) ListSources(ctx context.Context, pattern string) ([]RawSource, error) {
	if pattern == "" {
		pattern = "*.sql"
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, errors.Wrapf(err, "bad template pattern %q", pattern)
	}

	var out []RawSource
	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !matches(pattern, p) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := fs.ReadFile(s.fsys, p)
		if err != nil {
			return err
		}
		out = append(out, RawSource{Name: p, Text: string(data), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "list templates in %s", s.dir)
	}
	return out, nil
}

func matches(pattern, p string) bool {
	if ok, _ := path.Match(pattern, p); ok {
		return true
	}
	ok, _ := path.Match(pattern, path.Base(p))
	return ok
}

// Watch calls onChange whenever a file under the directory is written,
// created, removed or renamed, until ctx is done. New subdirectories are
// watched as they appear.
func (s *DirSource) Watch(ctx context.Context, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create template watcher")
	}
	err = filepath.WalkDir(s.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
	if err != nil {
		w.Close()
		return errors.Wrapf(err, "watch %s", s.dir)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&fsnotify.Create == fsnotify.Create {
					if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
						if err := w.Add(ev.Name); err != nil {
							s.logger.WithError(err).WithField("dir", ev.Name).Warn("templates: cannot watch directory")
						}
					}
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					s.logger.WithField("file", ev.Name).Debug("templates: change detected")
					onChange()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.WithError(err).Warn("templates: watcher error")
			}
		}
	}()
	return nil
}

// MemorySource holds templates in memory. It is mostly useful in tests and
// for templates embedded in a binary.
type MemorySource struct {
	mu      sync.RWMutex
	sources map[string]RawSource
}

// NewMemorySource returns a MemorySource holding the given name/text pairs.
func NewMemorySource(files map[string]string) *MemorySource {
	s := &MemorySource{sources: map[string]RawSource{}}
	for name, text := range files {
		s.Set(name, text)
	}
	return s
}

// Set adds or replaces a source, stamping it with the current time.
func (s *MemorySource) Set(name, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[name] = RawSource{Name: name, Text: text, LastModified: time.Now()}
}

// Remove drops a source.
func (s *MemorySource) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, name)
}

// ListSources returns the sources whose name matches pattern, sorted by name.
func (s *MemorySource) ListSources(ctx context.Context, pattern string) ([]RawSource, error) {
	if pattern == "" {
		pattern = "*.sql"
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RawSource, 0, len(s.sources))
	for name, src := range s.sources {
		if matches(pattern, strings.TrimPrefix(name, "/")) {
			out = append(out, src)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
