package interfaces

import "context"

type SchedulerInterface interface {
	Init()
	Stop()
	// RunOnce executes every maintenance job synchronously.
	RunOnce(ctx context.Context)
	Persist() error
}
