package bridge

import "errors"

var (
	// ErrConfigUnavailable marks a malformed or incomplete remote snapshot;
	// the reconciliation pass that hit it left the tracked set untouched.
	ErrConfigUnavailable = errors.New("switch configuration unavailable")
	// ErrInvalidIndex is returned for commands addressing an untracked index.
	ErrInvalidIndex = errors.New("no tracked switch at index")
	// ErrNotReady is returned for commands issued before the first
	// reconciliation pass completed.
	ErrNotReady = errors.New("remote session not ready")
	// ErrCommunication wraps a failed remote call; local state is unchanged.
	ErrCommunication = errors.New("remote communication failure")
)
