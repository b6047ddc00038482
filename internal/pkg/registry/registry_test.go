package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anicoll/switchbridge/internal/pkg/model"
)

type fakeCache struct {
	fakeAnnouncer
	restored []model.Entry
}

func (f *fakeCache) RestoreCached(_ context.Context) ([]model.Entry, error) {
	return f.restored, nil
}

type fakeAnnouncer struct {
	registered   [][]model.Entry
	unregistered [][]model.Entry
	updated      [][]model.Entry
	states       []bool
	err          error
}

func (f *fakeAnnouncer) Register(_ context.Context, entries []model.Entry) error {
	f.registered = append(f.registered, entries)
	return f.err
}

func (f *fakeAnnouncer) Unregister(_ context.Context, entries []model.Entry) error {
	f.unregistered = append(f.unregistered, entries)
	return f.err
}

func (f *fakeAnnouncer) Update(_ context.Context, entries []model.Entry) error {
	f.updated = append(f.updated, entries)
	return f.err
}

func (f *fakeAnnouncer) AnnounceState(_ context.Context, _ model.Entry, on bool) error {
	f.states = append(f.states, on)
	return f.err
}

func entries(uuids ...string) []model.Entry {
	out := make([]model.Entry, 0, len(uuids))
	for _, u := range uuids {
		out = append(out, model.Entry{UUID: u, DisplayName: "Switch " + u})
	}
	return out
}

func TestRegister_CacheErrorAborts(t *testing.T) {
	cache := &fakeCache{fakeAnnouncer: fakeAnnouncer{err: errors.New("disk full")}}
	announcer := &fakeAnnouncer{}

	r := New(cache)
	assert.NoError(t, r.AddAnnouncer("hass", announcer))

	err := r.Register(context.Background(), entries("u1"))
	assert.Error(t, err)
	assert.Empty(t, announcer.registered, "announcers must not run when the cache write fails")
}

func TestRegister_AnnouncerErrorContinues(t *testing.T) {
	cache := &fakeCache{}
	failing := &fakeAnnouncer{err: errors.New("broker down")}
	healthy := &fakeAnnouncer{}

	r := New(cache)
	assert.NoError(t, r.AddAnnouncer("failing", failing))
	assert.NoError(t, r.AddAnnouncer("healthy", healthy))

	assert.NoError(t, r.Register(context.Background(), entries("u1", "u2")))
	assert.Len(t, failing.registered, 1)
	assert.Len(t, healthy.registered, 1)
}

func TestEmptyBatchesAreNoOps(t *testing.T) {
	cache := &fakeCache{}
	r := New(cache)

	assert.NoError(t, r.Register(context.Background(), nil))
	assert.NoError(t, r.Unregister(context.Background(), nil))
	assert.NoError(t, r.Update(context.Background(), nil))
	assert.Empty(t, cache.registered)
	assert.Empty(t, cache.unregistered)
	assert.Empty(t, cache.updated)
}

func TestAddAnnouncer_DuplicateName(t *testing.T) {
	r := New(&fakeCache{})
	assert.NoError(t, r.AddAnnouncer("hass", &fakeAnnouncer{}))
	assert.Error(t, r.AddAnnouncer("hass", &fakeAnnouncer{}))
}

func TestNotifyState_ReachesStateAnnouncersOnly(t *testing.T) {
	cache := &fakeCache{}
	announcer := &fakeAnnouncer{}
	r := New(cache)
	assert.NoError(t, r.AddAnnouncer("hass", announcer))

	r.NotifyState(context.Background(), entries("u1")[0], true)
	assert.Equal(t, []bool{true}, announcer.states)
}

func TestRestoreCached_DelegatesToCache(t *testing.T) {
	cache := &fakeCache{restored: entries("u1", "u2")}
	r := New(cache)

	restored, err := r.RestoreCached(context.Background())
	assert.NoError(t, err)
	assert.Len(t, restored, 2)
}
