package bridge

import (
	"context"
	"fmt"
	"sort"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/switchbridge/internal/pkg/model"
)

// Reconcile re-derives the tracked set from the current remote snapshot.
// The pass is idempotent: stale epochs are dropped by the timestamp guard,
// and any fetch or shape failure aborts with the previous tracked set fully
// intact.
//
// Identity is keyed by index position within the snapshot, matching the
// remote's own addressing. If the remote ever reorders switches instead of
// adding/removing them, a uuid silently changes meaning; the snapshot
// carries no per-switch stable key that would let us detect that.
func (s *Service) Reconcile(ctx context.Context) error {
	s.reconcileMu.Lock()
	defer s.reconcileMu.Unlock()

	snap, err := s.client.SwitchConfig(ctx)
	if err != nil {
		return fmt.Errorf("fetching switch config: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrConfigUnavailable, err)
	}

	s.mu.RLock()
	lastApplied := s.lastApplied
	prev := s.tracked
	s.mu.RUnlock()

	if snap.Timestamp <= lastApplied {
		s.logger.Debug("dropping stale config epoch",
			zap.Int64("timestamp", snap.Timestamp), zap.Int64("last_applied", lastApplied))
		return nil
	}

	states, err := s.client.SwitchStates(ctx)
	if err != nil {
		return fmt.Errorf("fetching switch states: %w", err)
	}
	if len(states) != len(snap.Names) {
		return fmt.Errorf("%w: %d states for %d switches", ErrConfigUnavailable, len(states), len(snap.Names))
	}

	next := make(map[string]*SwitchUnit, len(snap.Names))
	renames := make(map[string]string)
	seeds := make(map[string]bool)
	var created, confirmed []model.Entry

	for i, name := range snap.Names {
		if len(snap.Codes[i]) == 0 || s.excluded.Contains(i) {
			continue
		}
		id := model.NewIdentity(s.deviceID, i, name)
		if unit, ok := prev[id.UUID]; ok {
			next[id.UUID] = unit
			confirmed = append(confirmed, s.entryForIdentity(id))
			if unit.identity.Name != name {
				renames[id.UUID] = name
			}
			seeds[id.UUID] = states[i]
			continue
		}
		unit := newUnit(s.client, id, states[i])
		next[id.UUID] = unit
		created = append(created, s.entryForIdentity(id))
	}

	staleUnits := lo.PickBy(prev, func(uuid string, _ *SwitchUnit) bool {
		_, stillTracked := next[uuid]
		return !stillTracked
	})
	stale := lo.MapToSlice(staleUnits, func(_ string, unit *SwitchUnit) model.Entry {
		return s.entryForIdentity(unit.identity)
	})
	sort.Slice(stale, func(i, j int) bool { return stale[i].Context.Index < stale[j].Context.Index })

	// Unregister before register so a uuid is never registered twice, even
	// transiently.
	if err := s.registry.Unregister(ctx, stale); err != nil {
		return fmt.Errorf("unregistering stale accessories: %w", err)
	}
	if err := s.registry.Update(ctx, confirmed); err != nil {
		return fmt.Errorf("updating confirmed accessories: %w", err)
	}
	if err := s.registry.Register(ctx, created); err != nil {
		return fmt.Errorf("registering new accessories: %w", err)
	}

	s.mu.Lock()
	for uuid, name := range renames {
		next[uuid].identity.Name = name
	}
	// Confirmed units restored from the cache have never observed a device
	// state; fill them in from the fetched states. Anything a push or
	// command already wrote stays authoritative.
	for uuid, state := range seeds {
		if unit := next[uuid]; !unit.seeded {
			unit.state = state
			unit.seeded = true
		}
	}
	byIndex := make(map[int]*SwitchUnit, len(next))
	for _, unit := range next {
		byIndex[unit.identity.Index] = unit
	}
	s.tracked = next
	s.byIndex = byIndex
	s.lastApplied = snap.Timestamp
	s.ready = true
	s.mu.Unlock()

	s.logger.Info("reconciliation pass applied",
		zap.Int64("timestamp", snap.Timestamp),
		zap.Int("registered", len(created)),
		zap.Int("updated", len(confirmed)),
		zap.Int("removed", len(stale)))
	s.emit(Event{
		Type:       EventReconciled,
		Registered: len(created),
		Updated:    len(confirmed),
		Removed:    len(stale),
		Timestamp:  snap.Timestamp,
	})
	return nil
}

func (s *Service) entryForIdentity(id model.Identity) model.Entry {
	return model.Entry{
		UUID:        id.UUID,
		DisplayName: id.Name,
		Context: model.SwitchContext{
			DeviceID:  s.deviceID,
			Index:     id.Index,
			SerialKey: id.SerialKey,
		},
	}
}
