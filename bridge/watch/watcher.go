// Package watch follows freshly created orders and pushes status updates to
// their owners until the order settles or the watch budget runs out.
package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/avelune/xmrbridge/bridge/client"
	"github.com/avelune/xmrbridge/core/logger"
)

// Default watch budget: a poll every 30 seconds, 360 polls, three hours total.
const (
	DefaultInterval = 30 * time.Second
	DefaultMaxPolls = 360
)

// OrderFetcher loads the current state of an order.
type OrderFetcher interface {
	Order(ctx context.Context, id string) (client.Order, error)
}

// Notifier receives watch outcomes. Implementations deliver them to the user.
type Notifier interface {
	StatusChanged(userID int64, order client.Order, prev string)
	WatchExpired(userID int64, order client.Order)
}

// Options configures a Watcher. Zero values fall back to the defaults above.
type Options struct {
	Interval time.Duration
	MaxPolls int
}

// Watcher runs one goroutine per watched order. All goroutines stop when the
// context given to Watch is cancelled; Wait blocks until they have drained.
type Watcher struct {
	fetch  OrderFetcher
	notify Notifier
	opts   Options
	wg     sync.WaitGroup
}

// New builds a Watcher on top of the given fetcher and notifier.
func New(fetch OrderFetcher, notify Notifier, opts Options) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MaxPolls <= 0 {
		opts.MaxPolls = DefaultMaxPolls
	}
	return &Watcher{fetch: fetch, notify: notify, opts: opts}
}

// Watch starts following the order in the background. The order passed in is
// the creation response: its status seeds the change detector, so the first
// poll that returns the same status produces no notification.
func (w *Watcher) Watch(ctx context.Context, userID int64, order client.Order) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx, userID, order)
	}()
}

// Wait blocks until every watch goroutine has finished.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

func (w *Watcher) run(ctx context.Context, userID int64, order client.Order) {
	log := logger.WATCH.With(
		slog.String("order_id", order.ID),
		slog.Int64("user_id", userID),
	)
	log.Info("watch started", slog.String("event", "watch.start"), slog.String("order_status", order.Status))

	prev := order.Status
	last := order
	timer := time.NewTimer(w.opts.Interval)
	defer timer.Stop()

	for polls := 0; polls < w.opts.MaxPolls; polls++ {
		select {
		case <-ctx.Done():
			log.Info("watch stopped", slog.String("event", "watch.stop"), slog.Int("polls", polls))
			return
		case <-timer.C:
		}

		current, err := w.fetch.Order(ctx, order.ID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Transient backend trouble is not a reason to drop the watch.
			log.Warn("watch poll failed", slog.String("event", "watch.poll_error"), slog.Any("err", err))
			timer.Reset(w.opts.Interval)
			continue
		}
		last = current

		if current.Status != prev {
			log.Info("order status changed",
				slog.String("event", "watch.status_change"),
				slog.String("prev_status", prev),
				slog.String("order_status", current.Status),
			)
			w.notify.StatusChanged(userID, current, prev)
			prev = current.Status
		}
		if client.IsTerminal(current.Status) {
			log.Info("watch finished", slog.String("event", "watch.terminal"), slog.String("order_status", current.Status))
			return
		}
		timer.Reset(w.opts.Interval)
	}

	log.Warn("watch budget exhausted",
		slog.String("event", "watch.expired"),
		slog.Int("polls", w.opts.MaxPolls),
		slog.String("order_status", last.Status),
	)
	w.notify.WatchExpired(userID, last)
}
