package model

import (
	"fmt"
	"strconv"

	"github.com/anicoll/switchbridge/pkg/hasher"
)

// Identity is the stable addressable identity of one remote switch.
// The UUID is derived deterministically from the serial key so the same
// (device, index) pair resolves to the same accessory across restarts.
type Identity struct {
	Index     int
	Name      string
	SerialKey string
	UUID      string
}

func NewIdentity(deviceID string, index int, name string) Identity {
	serialKey := deviceID + ":" + strconv.Itoa(index)
	return Identity{
		Index:     index,
		Name:      name,
		SerialKey: serialKey,
		UUID:      hasher.DeterministicID(serialKey),
	}
}

// SwitchContext is the typed per-accessory payload persisted alongside a
// registry entry. It carries everything needed to rebind the entry to its
// remote switch after a restart.
type SwitchContext struct {
	DeviceID  string `json:"device_id"`
	Index     int    `json:"index"`
	SerialKey string `json:"serial_key"`
}

// Entry is one accessory record as seen by the registry.
type Entry struct {
	UUID        string        `json:"uuid"`
	DisplayName string        `json:"display_name"`
	Context     SwitchContext `json:"context"`
}

// ConfigSnapshot is one remote configuration epoch. Names and Codes are
// positional; an empty code marks the slot as not exposable.
type ConfigSnapshot struct {
	Names     []string
	Codes     [][]byte
	Timestamp int64
}

// Validate checks the snapshot shape, not its content.
func (s ConfigSnapshot) Validate() error {
	if s.Names == nil || s.Codes == nil {
		return fmt.Errorf("snapshot missing names or codes")
	}
	if len(s.Names) != len(s.Codes) {
		return fmt.Errorf("snapshot shape mismatch: %d names, %d codes", len(s.Names), len(s.Codes))
	}
	return nil
}

// ExclusionSet holds switch indexes hidden from the registry.
// Immutable after load.
type ExclusionSet map[int]struct{}

func NewExclusionSet(indexes ...int) ExclusionSet {
	set := make(ExclusionSet, len(indexes))
	for _, i := range indexes {
		set[i] = struct{}{}
	}
	return set
}

func (e ExclusionSet) Contains(index int) bool {
	_, ok := e[index]
	return ok
}
