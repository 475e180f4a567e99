package health

import (
	"context"
	"fmt"

	"baatcheet/relay/pkg/journal"
)

// BackendCounter reports how many back-ends can currently serve traffic.
// *providers.Manager satisfies it.
type BackendCounter interface {
	ActiveBackends() int
}

// BackendsCheck fails readiness while fewer than minHealthy back-ends
// hold usable credentials behind a closed breaker.
func BackendsCheck(counter BackendCounter, minHealthy int) CheckFunc {
	if minHealthy <= 0 {
		minHealthy = 1
	}

	return func(ctx context.Context) error {
		if n := counter.ActiveBackends(); n < minHealthy {
			return fmt.Errorf("%d back-ends available, need %d", n, minHealthy)
		}
		return nil
	}
}

// StorageCheck probes the attempt journal's storage with a cheap read.
func StorageCheck(storage journal.Storage) CheckFunc {
	return func(ctx context.Context) error {
		_, err := storage.Query(ctx, &journal.Query{Limit: 1})
		return err
	}
}
