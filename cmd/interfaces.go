package cmd

import (
	"context"
)

// resyncService defines what the scheduled resync needs from the bridge.
type resyncService interface {
	Reconcile(ctx context.Context) error
}
