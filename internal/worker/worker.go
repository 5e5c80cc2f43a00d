package worker

import (
	"context"
)

// Worker is a long-running background task.
type Worker interface {
	// Start runs the worker until the context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop signals the worker to shut down.
	Stop() error

	// Name identifies the worker in logs.
	Name() string
}
