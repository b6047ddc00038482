// Package registry fans accessory registrations out to a persistent cache
// and any number of announcer backends. The cache is authoritative: its
// failures abort the operation, while announcer failures are logged and the
// remaining backends still run.
package registry

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/anicoll/switchbridge/internal/pkg/model"
)

var errAlreadyRegistered = errors.New("announcer already registered")

// Announcer mirrors registry mutations to an external surface.
type Announcer interface {
	Register(ctx context.Context, entries []model.Entry) error
	Unregister(ctx context.Context, entries []model.Entry) error
	Update(ctx context.Context, entries []model.Entry) error
}

// StateAnnouncer is implemented by announcers that also expose live state.
type StateAnnouncer interface {
	AnnounceState(ctx context.Context, entry model.Entry, on bool) error
}

// Cache is the persistent identity store backing restore-on-startup.
type Cache interface {
	Announcer
	RestoreCached(ctx context.Context) ([]model.Entry, error)
}

type Registry struct {
	mu         sync.RWMutex
	cache      Cache
	announcers map[string]Announcer
	logger     *zap.Logger
}

func New(cache Cache) *Registry {
	return &Registry{
		cache:      cache,
		announcers: make(map[string]Announcer),
		logger:     zap.L(),
	}
}

// AddAnnouncer attaches a named backend. Names must be unique.
func (r *Registry) AddAnnouncer(name string, a Announcer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.announcers[name]; ok {
		return errAlreadyRegistered
	}
	r.announcers[name] = a
	return nil
}

func (r *Registry) RestoreCached(ctx context.Context) ([]model.Entry, error) {
	return r.cache.RestoreCached(ctx)
}

func (r *Registry) Register(ctx context.Context, entries []model.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := r.cache.Register(ctx, entries); err != nil {
		return err
	}
	r.fanout(ctx, "register", entries, Announcer.Register)
	return nil
}

func (r *Registry) Unregister(ctx context.Context, entries []model.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := r.cache.Unregister(ctx, entries); err != nil {
		return err
	}
	r.fanout(ctx, "unregister", entries, Announcer.Unregister)
	return nil
}

func (r *Registry) Update(ctx context.Context, entries []model.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := r.cache.Update(ctx, entries); err != nil {
		return err
	}
	r.fanout(ctx, "update", entries, Announcer.Update)
	return nil
}

// NotifyState pushes a switch's new state to every announcer that carries
// state. Failures are logged, never propagated; state delivery must not
// block or fail the event path.
func (r *Registry) NotifyState(ctx context.Context, entry model.Entry, on bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, a := range r.announcers {
		sa, ok := a.(StateAnnouncer)
		if !ok {
			continue
		}
		if err := sa.AnnounceState(ctx, entry, on); err != nil {
			r.logger.Error("failed to announce state",
				zap.Error(err), zap.String("announcer", name), zap.String("uuid", entry.UUID))
		}
	}
}

func (r *Registry) fanout(ctx context.Context, op string, entries []model.Entry, call func(Announcer, context.Context, []model.Entry) error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, a := range r.announcers {
		if err := call(a, ctx, entries); err != nil {
			r.logger.Error("announcer backend failed",
				zap.Error(err), zap.String("announcer", name), zap.String("op", op), zap.Int("entries", len(entries)))
			continue
		}
		r.logger.Debug("announced", zap.String("announcer", name), zap.String("op", op), zap.Int("entries", len(entries)))
	}
}
