package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/avelune/xmrbridge/bridge/client"
)

type scriptedFetcher struct {
	mu       sync.Mutex
	statuses []string
	errs     []error
	calls    int
}

func (f *scriptedFetcher) Order(_ context.Context, id string) (client.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return client.Order{}, f.errs[i]
	}
	status := f.statuses[len(f.statuses)-1]
	if i < len(f.statuses) {
		status = f.statuses[i]
	}
	return client.Order{ID: id, Status: status}, nil
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []string
	expired int
}

func (n *recordingNotifier) StatusChanged(_ int64, order client.Order, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, order.Status)
}

func (n *recordingNotifier) WatchExpired(int64, client.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expired++
}

func (n *recordingNotifier) snapshot() ([]string, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.changes...), n.expired
}

func testOptions(maxPolls int) Options {
	return Options{Interval: time.Millisecond, MaxPolls: maxPolls}
}

func TestNotifiesOncePerChange(t *testing.T) {
	fetcher := &scriptedFetcher{statuses: []string{
		client.StatusPending, client.StatusPending, client.StatusConfirming, client.StatusCompleted,
	}}
	notifier := &recordingNotifier{}
	w := New(fetcher, notifier, testOptions(100))

	w.Watch(context.Background(), 1, client.Order{ID: "ord-1", Status: client.StatusPending})
	w.Wait()

	changes, expired := notifier.snapshot()
	if len(changes) != 2 || changes[0] != client.StatusConfirming || changes[1] != client.StatusCompleted {
		t.Fatalf("changes = %v, want [confirming completed]", changes)
	}
	if expired != 0 {
		t.Fatalf("expired = %d", expired)
	}
}

func TestStopsAtTerminalStatus(t *testing.T) {
	fetcher := &scriptedFetcher{statuses: []string{client.StatusFailed}}
	notifier := &recordingNotifier{}
	w := New(fetcher, notifier, testOptions(100))

	w.Watch(context.Background(), 1, client.Order{ID: "ord-1", Status: client.StatusPending})
	w.Wait()

	if got := fetcher.callCount(); got != 1 {
		t.Fatalf("fetch calls after terminal = %d, want 1", got)
	}
	changes, _ := notifier.snapshot()
	if len(changes) != 1 || changes[0] != client.StatusFailed {
		t.Fatalf("changes = %v", changes)
	}
}

func TestExpiredNoticeSentOnce(t *testing.T) {
	fetcher := &scriptedFetcher{statuses: []string{client.StatusPending}}
	notifier := &recordingNotifier{}
	w := New(fetcher, notifier, testOptions(3))

	w.Watch(context.Background(), 1, client.Order{ID: "ord-1", Status: client.StatusPending})
	w.Wait()

	changes, expired := notifier.snapshot()
	if len(changes) != 0 {
		t.Fatalf("unchanged status must not notify, got %v", changes)
	}
	if expired != 1 {
		t.Fatalf("expired = %d, want 1", expired)
	}
	if got := fetcher.callCount(); got != 3 {
		t.Fatalf("fetch calls = %d, want 3", got)
	}
}

func TestCancellationStopsWatch(t *testing.T) {
	fetcher := &scriptedFetcher{statuses: []string{client.StatusPending}}
	notifier := &recordingNotifier{}
	w := New(fetcher, notifier, Options{Interval: time.Hour, MaxPolls: 100})

	ctx, cancel := context.WithCancel(context.Background())
	w.Watch(ctx, 1, client.Order{ID: "ord-1", Status: client.StatusPending})
	cancel()
	w.Wait()

	changes, expired := notifier.snapshot()
	if len(changes) != 0 || expired != 0 {
		t.Fatalf("cancelled watch must stay silent: changes=%v expired=%d", changes, expired)
	}
}

func TestPollErrorDoesNotDropWatch(t *testing.T) {
	fetcher := &scriptedFetcher{
		statuses: []string{"", client.StatusCompleted},
		errs:     []error{errors.New("backend unavailable"), nil},
	}
	notifier := &recordingNotifier{}
	w := New(fetcher, notifier, testOptions(100))

	w.Watch(context.Background(), 1, client.Order{ID: "ord-1", Status: client.StatusPending})
	w.Wait()

	changes, _ := notifier.snapshot()
	if len(changes) != 1 || changes[0] != client.StatusCompleted {
		t.Fatalf("changes = %v, want [completed]", changes)
	}
	if got := fetcher.callCount(); got != 2 {
		t.Fatalf("fetch calls = %d, want 2", got)
	}
}
