package authentication

import (
	"context"
	"log/slog"
	"sync"
	"time"

	authcontext "github.com/nasermirzaei89/vidtube/authentication/context"
)

const (
	DefaultPurgeInterval = time.Minute

	purgeWorkerName = "account-purger"
)

type UnverifiedPurger interface {
	PurgeUnverified(ctx context.Context) (int, error)
}

var _ UnverifiedPurger = (*Service)(nil)

type purgeTicker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	ticker *time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t timeTicker) Stop() {
	t.ticker.Stop()
}

type tickerFactory func(time.Duration) purgeTicker

// StartPurgeWorker deletes due unverified accounts every interval until ctx is
// done or the returned stop function is called. stop waits for the worker to
// exit and is safe to call more than once.
func StartPurgeWorker(ctx context.Context, purger UnverifiedPurger, interval time.Duration) (stop func()) {
	return startPurgeWorkerWithTicker(ctx, purger, interval, func(d time.Duration) purgeTicker {
		return timeTicker{ticker: time.NewTicker(d)}
	})
}

func startPurgeWorkerWithTicker(
	ctx context.Context,
	purger UnverifiedPurger,
	interval time.Duration,
	newTicker tickerFactory,
) func() {
	if purger == nil || interval <= 0 {
		return func() {}
	}

	workerCtx, cancel := context.WithCancel(authcontext.WithServiceSubject(ctx, purgeWorkerName))
	ticker := newTicker(interval)
	done := make(chan struct{})

	go func() {
		defer func() {
			ticker.Stop()
			close(done)
		}()

		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C():
				deleted, err := purger.PurgeUnverified(workerCtx)
				if err != nil {
					slog.ErrorContext(workerCtx, "failed to purge unverified accounts", "error", err)

					continue
				}

				if deleted > 0 {
					slog.InfoContext(workerCtx, "purged unverified accounts", "count", deleted)
				}
			}
		}
	}()

	var once sync.Once

	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
