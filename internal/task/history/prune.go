package history

import (
	"carebot/internal/storage"
	"carebot/internal/task/scheduler"
	logx "carebot/pkg/logx"
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

const DefaultRetention = 7 * 24 * time.Hour

// PruneWork returns a scheduler.Work that deletes run records older than
// retention. A nil clock means the real clock.
func PruneWork(store storage.Store, retention time.Duration, clock clockwork.Clock, log logx.Logger) scheduler.Work {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return scheduler.WorkFunc(func(ctx context.Context) error {
		cutoff := clock.Now().Add(-retention)
		n, err := store.PruneRuns(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("prune runs before %s: %w", cutoff.Format(time.RFC3339), err)
		}
		if n > 0 {
			log.Info("run history pruned", logx.Int("removed", n), logx.Duration("retention", retention))
		}
		return nil
	})
}
