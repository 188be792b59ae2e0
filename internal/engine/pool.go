package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func heartbeatMessage(completed, inFlight, pending int64) string {
	return fmt.Sprintf("Progresso da rodada: %d concluídos, %d em andamento, %d na fila", completed, inFlight, pending)
}

// runPool distributes identifiers to a bounded set of workers pulling from
// a shared queue. Each identifier is dispatched at most once; handle runs
// at most workers at a time. Identifiers not yet dequeued when the context
// is cancelled are simply never handled, which is how a stopped run leaves
// them pending.
func runPool(ctx context.Context, ids []string, workers int, heartbeat time.Duration, logger *logrus.Logger, logf func(string), handle func(ctx context.Context, id string)) {
	if len(ids) == 0 {
		return
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(ids) {
		workers = len(ids)
	}

	queue := make(chan string)
	go func() {
		defer close(queue)
		for _, id := range ids {
			select {
			case queue <- id:
			case <-ctx.Done():
				return
			}
		}
	}()

	var completed, inFlight int64
	total := int64(len(ids))

	heartbeatDone := make(chan struct{})
	defer close(heartbeatDone)
	go func() {
		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				done := atomic.LoadInt64(&completed)
				busy := atomic.LoadInt64(&inFlight)
				entry := logrus.Fields{
					"completed": done,
					"in_flight": busy,
					"pending":   total - done - busy,
				}
				logger.WithFields(entry).Info("Round heartbeat")
				if logf != nil {
					logf(heartbeatMessage(done, busy, total-done-busy))
				}
			case <-heartbeatDone:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	g := new(errgroup.Group)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for id := range queue {
				if ctx.Err() != nil {
					return nil
				}
				atomic.AddInt64(&inFlight, 1)
				handle(ctx, id)
				atomic.AddInt64(&inFlight, -1)
				atomic.AddInt64(&completed, 1)
			}
			return nil
		})
	}
	g.Wait()
}
