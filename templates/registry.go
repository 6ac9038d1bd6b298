package templates

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/friendsofgo/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// DefaultRefreshInterval is used by Start when no interval is given.
const DefaultRefreshInterval = 5 * time.Second

type snapshot struct {
	entries  map[Key]*Template
	stamps   map[string]time.Time
	loadedAt time.Time
}

// Registry holds the current set of templates. Reads never block: the whole
// set is swapped atomically when a reload succeeds, and a failed reload
// leaves the previous set in place.
type Registry struct {
	sources []Source
	pattern string
	logger  logrus.FieldLogger

	current atomic.Pointer[snapshot]
	group   singleflight.Group

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Registry.
type Option func(*Registry)

// WithPattern sets the file pattern passed to every source.
func WithPattern(pattern string) Option {
	return func(r *Registry) {
		r.pattern = pattern
	}
}

// WithLogger sets the logger used for background reloads.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSource adds another source. Keys must be unique across sources.
func WithSource(src Source) Option {
	return func(r *Registry) {
		r.sources = append(r.sources, src)
	}
}

// NewRegistry returns an empty Registry reading from src. Call Init to load.
func NewRegistry(src Source, opts ...Option) *Registry {
	r := &Registry{
		pattern: "*.sql",
		logger:  logrus.StandardLogger(),
	}
	if src != nil {
		r.sources = append(r.sources, src)
	}
	for _, opt := range opts {
		opt(r)
	}
	r.current.Store(&snapshot{entries: map[Key]*Template{}})
	return r
}

// Get returns the template for owner and method from the current set.
func (r *Registry) Get(owner, method string) (*Template, bool) {
	t, ok := r.current.Load().entries[Key{Owner: owner, Method: method}]
	return t, ok
}

// Len returns the number of loaded templates.
func (r *Registry) Len() int {
	return len(r.current.Load().entries)
}

// Keys returns the loaded keys in order.
func (r *Registry) Keys() []Key {
	s := r.current.Load()
	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Owner != keys[j].Owner {
			return keys[i].Owner < keys[j].Owner
		}
		return keys[i].Method < keys[j].Method
	})
	return keys
}

// LoadedAt returns when the current set was built.
func (r *Registry) LoadedAt() time.Time {
	return r.current.Load().loadedAt
}

// Init rescans every source and replaces the current set. On error the
// current set is kept.
func (r *Registry) Init(ctx context.Context) error {
	return r.reload(ctx, true)
}

// Refresh reloads only when a source was added, removed or modified since
// the last successful load.
func (r *Registry) Refresh(ctx context.Context) error {
	return r.reload(ctx, false)
}

// reload is coalesced: concurrent callers share one scan.
func (r *Registry) reload(ctx context.Context, force bool) error {
	key := "refresh"
	if force {
		key = "init"
	}
	_, err, _ := r.group.Do(key, func() (interface{}, error) {
		return nil, r.load(ctx, force)
	})
	return err
}

func (r *Registry) load(ctx context.Context, force bool) error {
	var raws []RawSource
	for _, src := range r.sources {
		list, err := src.ListSources(ctx, r.pattern)
		if err != nil {
			return err
		}
		raws = append(raws, list...)
	}

	stamps := make(map[string]time.Time, len(raws))
	for _, raw := range raws {
		stamps[raw.Name] = raw.LastModified
	}
	if !force && unchanged(r.current.Load().stamps, stamps) {
		return nil
	}

	entries := map[Key]*Template{}
	for _, raw := range raws {
		parsed, err := Parse(raw)
		if err != nil {
			return err
		}
		for _, t := range parsed {
			if prev, dup := entries[t.Key]; dup {
				return &DuplicateTemplateError{Key: t.Key, Sources: []string{prev.Source, t.Source}}
			}
			entries[t.Key] = t
		}
	}

	r.current.Store(&snapshot{entries: entries, stamps: stamps, loadedAt: time.Now()})
	r.logger.WithFields(logrus.Fields{
		"sources":   len(raws),
		"templates": len(entries),
	}).Debug("templates: loaded")
	return nil
}

func unchanged(prev, next map[string]time.Time) bool {
	if prev == nil || len(prev) != len(next) {
		return false
	}
	for name, ts := range next {
		old, ok := prev[name]
		if !ok || ts.After(old) {
			return false
		}
	}
	return true
}

// Start refreshes the registry every interval in one background goroutine
// until ctx is done or Stop is called. Sources that implement Watcher also
// trigger a refresh on change. Calling Start again is a no-op.
func (r *Registry) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)

	for _, src := range r.sources {
		w, ok := src.(Watcher)
		if !ok {
			continue
		}
		if err := w.Watch(ctx, func() { r.refreshLogged(ctx) }); err != nil {
			cancel()
			return errors.Wrap(err, "start template watcher")
		}
	}
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.refreshLogged(ctx)
			}
		}
	}()
	return nil
}

// Stop ends the background refresh started by Start and waits for it.
func (r *Registry) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		r.wg.Wait()
	}
}

func (r *Registry) refreshLogged(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
		r.logger.WithError(err).Error("templates: refresh failed, keeping previous templates")
	}
}
