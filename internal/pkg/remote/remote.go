package remote

import (
	"context"
	"errors"

	"github.com/anicoll/switchbridge/internal/pkg/model"
)

var (
	// ErrAuthFailure means the cloud service rejected the access token.
	ErrAuthFailure = errors.New("remote authentication failed")
	// ErrDeviceUnreachable means a session could not be established.
	ErrDeviceUnreachable = errors.New("remote device unreachable")
	// ErrCommunication means an established session failed mid-call.
	ErrCommunication = errors.New("remote communication failure")
)

// ConfigChangedHandler receives the timestamp of a new remote config epoch.
type ConfigChangedHandler func(timestamp int64)

// StateChangedHandler receives a push for one switch's new state.
type StateChangedHandler func(index int, on bool)

// Client is one session against the cloud device. Implementations own their
// transport, auth and timeout policy; callers see only switch configuration,
// states, push subscriptions and per-index commands.
type Client interface {
	// ID returns the stable device identifier the session is bound to.
	ID() string
	Online() bool
	SwitchConfig(ctx context.Context) (model.ConfigSnapshot, error)
	// SwitchStates returns the current per-index states, same length and
	// order as the snapshot's names.
	SwitchStates(ctx context.Context) ([]bool, error)
	// OnConfigChanged replaces the active config subscription. A nil handler
	// clears it.
	OnConfigChanged(handler ConfigChangedHandler)
	// OnStateChanged replaces the active state subscription. A nil handler
	// clears it.
	OnStateChanged(handler StateChangedHandler) error
	// TurnOn and TurnOff return the actual resulting state, which may differ
	// from the requested one when the device rejects the command.
	TurnOn(ctx context.Context, index int) (bool, error)
	TurnOff(ctx context.Context, index int) (bool, error)
}
