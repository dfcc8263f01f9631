package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/slumber/pkg/metrics"
)

// updater publishes the record count on a ticker until stopped.
type updater struct {
	wg       sync.WaitGroup
	stopChan chan struct{}
	once     sync.Once
}

func startUpdater(ctx context.Context, interval time.Duration, count func(context.Context) int) *updater {
	u := &updater{stopChan: make(chan struct{})}
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-u.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateHistoryRecords(count(ctx))
			}
		}
	}()
	return u
}

func (u *updater) stop() {
	u.once.Do(func() { close(u.stopChan) })
	u.wg.Wait()
}
