package bridge

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/switchbridge/internal/pkg/contxt"
)

const notifyTimeout = time.Second * 5

// OnRemoteStateChanged applies a pushed state to the tracked unit at index.
// Pushes for untracked indexes are dropped silently: they can legitimately
// race with a reconciliation pass that just retired the unit. Re-sent
// unchanged states are suppressed.
func (s *Service) OnRemoteStateChanged(index int, on bool) {
	s.mu.Lock()
	unit, ok := s.byIndex[index]
	if !ok {
		s.mu.Unlock()
		s.logger.Debug("state push for untracked index", zap.Int("index", index), zap.Bool("on", on))
		return
	}
	if unit.state == on {
		unit.seeded = true
		s.mu.Unlock()
		return
	}
	unit.state = on
	unit.seeded = true
	entry := s.entryForIdentity(unit.identity)
	s.mu.Unlock()

	s.logger.Debug("state push applied", zap.Int("index", index), zap.Bool("on", on), zap.String("uuid", entry.UUID))
	s.registry.NotifyState(contxt.NewContext(notifyTimeout), entry, on)
	s.emit(Event{Type: EventStateChanged, Index: index, UUID: entry.UUID, Name: entry.DisplayName, On: on})
}

// GetSwitch returns the last known state immediately. It never calls the
// remote device.
func (s *Service) GetSwitch(index int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	unit, ok := s.byIndex[index]
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	return unit.state, nil
}

// SetSwitch issues the command for the desired state and records the actual
// resulting state reported by the device, which wins even when it differs
// from the request. The remote call runs outside the lock so reads stay
// non-blocking; a push arriving mid-call is resolved last-write-wins.
func (s *Service) SetSwitch(ctx context.Context, index int, desired bool) (bool, error) {
	s.mu.RLock()
	if !s.ready {
		s.mu.RUnlock()
		return false, ErrNotReady
	}
	unit, ok := s.byIndex[index]
	if !ok {
		s.mu.RUnlock()
		return false, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	command := unit.turnOff
	if desired {
		command = unit.turnOn
	}
	s.mu.RUnlock()

	actual, err := command(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrCommunication, err)
	}

	s.mu.Lock()
	current, stillTracked := s.byIndex[index]
	changed := stillTracked && current == unit && unit.state != actual
	if stillTracked && current == unit {
		unit.state = actual
		unit.seeded = true
	}
	entry := s.entryForIdentity(unit.identity)
	s.mu.Unlock()

	s.logger.Debug("command applied",
		zap.Int("index", index), zap.Bool("desired", desired), zap.Bool("actual", actual))
	if changed {
		s.registry.NotifyState(contxt.NewContext(notifyTimeout), entry, actual)
		s.emit(Event{Type: EventStateChanged, Index: index, UUID: entry.UUID, Name: entry.DisplayName, On: actual})
	}
	return actual, nil
}
