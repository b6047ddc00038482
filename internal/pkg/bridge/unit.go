package bridge

import (
	"context"

	"github.com/anicoll/switchbridge/internal/pkg/model"
	"github.com/anicoll/switchbridge/internal/pkg/remote"
)

// SwitchUnit is one tracked switch: its stable identity, last known state
// and the command closures bound to its index. Units are owned by the
// service; state is guarded by the service mutex.
type SwitchUnit struct {
	identity model.Identity
	state    bool
	// seeded is false until a device-observed state has been recorded. Units
	// rebuilt from the cache start unseeded; the next reconciliation pass
	// fills their state in from the fetched snapshot.
	seeded  bool
	turnOn  func(ctx context.Context) (bool, error)
	turnOff func(ctx context.Context) (bool, error)
}

func newUnit(client remote.Client, id model.Identity, state bool) *SwitchUnit {
	index := id.Index
	return &SwitchUnit{
		identity: id,
		state:    state,
		seeded:   true,
		turnOn: func(ctx context.Context) (bool, error) {
			return client.TurnOn(ctx, index)
		},
		turnOff: func(ctx context.Context) (bool, error) {
			return client.TurnOff(ctx, index)
		},
	}
}

// restoredUnit rebuilds a unit from a cached entry. Its state is unknown
// until a reconciliation pass or a push supplies one.
func restoredUnit(client remote.Client, id model.Identity) *SwitchUnit {
	unit := newUnit(client, id, false)
	unit.seeded = false
	return unit
}
