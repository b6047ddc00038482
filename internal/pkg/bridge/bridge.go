// Package bridge maps a remotely defined list of switches onto a stable set
// of registered accessory identities and relays state both ways: remote push
// events update the tracked units, host commands go back to the device.
package bridge

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/switchbridge/internal/pkg/contxt"
	"github.com/anicoll/switchbridge/internal/pkg/model"
	"github.com/anicoll/switchbridge/internal/pkg/remote"
)

// accessoryRegistry is what the bridge needs from the host registry layer.
type accessoryRegistry interface {
	RestoreCached(ctx context.Context) ([]model.Entry, error)
	Register(ctx context.Context, entries []model.Entry) error
	Unregister(ctx context.Context, entries []model.Entry) error
	Update(ctx context.Context, entries []model.Entry) error
	NotifyState(ctx context.Context, entry model.Entry, on bool)
}

type Service struct {
	client   remote.Client
	registry accessoryRegistry
	deviceID string
	excluded model.ExclusionSet
	errChan  chan error
	logger   *zap.Logger
	onEvent  func(Event)

	mu          sync.RWMutex
	tracked     map[string]*SwitchUnit // by uuid
	byIndex     map[int]*SwitchUnit
	lastApplied int64
	ready       bool

	// reconcileMu keeps at most one reconciliation pass in flight;
	// coalescing of bursts falls out of the epoch guard.
	reconcileMu sync.Mutex
}

func New(client remote.Client, registry accessoryRegistry, excluded model.ExclusionSet, errChan chan error) *Service {
	return &Service{
		client:   client,
		registry: registry,
		deviceID: client.ID(),
		excluded: excluded,
		errChan:  errChan,
		logger:   zap.L(),
		tracked:  make(map[string]*SwitchUnit),
		byIndex:  make(map[int]*SwitchUnit),
	}
}

// SetEventHook attaches an observer for bridge events. Must be called
// before Start.
func (s *Service) SetEventHook(fn func(Event)) {
	s.onEvent = fn
}

// Start restores cached identities, wires the push subscriptions and runs
// the initial reconciliation pass. On any failure the subscriptions are
// released before returning.
func (s *Service) Start(ctx context.Context) error {
	entries, err := s.registry.RestoreCached(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	for _, e := range entries {
		id := model.Identity{
			Index:     e.Context.Index,
			Name:      e.DisplayName,
			SerialKey: e.Context.SerialKey,
			UUID:      e.UUID,
		}
		unit := restoredUnit(s.client, id)
		s.tracked[id.UUID] = unit
		s.byIndex[id.Index] = unit
	}
	s.mu.Unlock()
	s.logger.Info("restored cached accessories", zap.Int("count", len(entries)), zap.String("device_id", s.deviceID))

	s.client.OnConfigChanged(s.onConfigChanged)
	if err := s.client.OnStateChanged(s.OnRemoteStateChanged); err != nil {
		s.client.OnConfigChanged(nil)
		return err
	}

	if err := s.Reconcile(ctx); err != nil {
		_ = s.Close()
		return err
	}
	return nil
}

// Close releases the push subscriptions so no callback fires into a
// torn-down service. Safe to call on a service that never started.
func (s *Service) Close() error {
	s.client.OnConfigChanged(nil)
	if err := s.client.OnStateChanged(nil); err != nil {
		s.logger.Error("failed to clear state subscription", zap.Error(err))
	}
	s.mu.Lock()
	s.ready = false
	s.mu.Unlock()
	return nil
}

func (s *Service) onConfigChanged(timestamp int64) {
	s.logger.Debug("remote config change pushed", zap.Int64("timestamp", timestamp))
	go func() {
		if err := s.Reconcile(contxt.NewContext(time.Minute)); err != nil {
			s.errChan <- err
		}
	}()
}

// Ready reports whether the first reconciliation pass has completed.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// SwitchStatus is a read-only view of one tracked unit.
type SwitchStatus struct {
	Index int    `json:"index"`
	UUID  string `json:"uuid"`
	Name  string `json:"name"`
	On    bool   `json:"on"`
}

// Snapshot lists the tracked units, ordered by index.
func (s *Service) Snapshot() []SwitchStatus {
	s.mu.RLock()
	statuses := make([]SwitchStatus, 0, len(s.byIndex))
	for index, unit := range s.byIndex {
		statuses = append(statuses, SwitchStatus{
			Index: index,
			UUID:  unit.identity.UUID,
			Name:  unit.identity.Name,
			On:    unit.state,
		})
	}
	s.mu.RUnlock()

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Index < statuses[j].Index })
	return statuses
}

func (s *Service) emit(ev Event) {
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}
