package driving

import "context"

// Scheduler syncs tool providers on a cron schedule.
type Scheduler interface {
	// Start blocks, running a sync pass at each scheduled time, until ctx is
	// cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop ends the loop and waits for a running pass to finish.
	Stop() error
}
