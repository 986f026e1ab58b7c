package ratelimit

import (
	"testing"
	"time"
)

func newTestLimiter(msgLimit, orderLimit int) (*Limiter, *time.Time) {
	l := New(Options{
		MessageLimit:  msgLimit,
		MessageWindow: time.Minute,
		OrderLimit:    orderLimit,
		OrderWindow:   time.Hour,
	})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.nowFunc = func() time.Time { return now }
	return l, &now
}

func TestAllowMessageCeiling(t *testing.T) {
	l, _ := newTestLimiter(3, 3)

	for i := 0; i < 3; i++ {
		if !l.AllowMessage(7) {
			t.Fatalf("message %d unexpectedly rejected", i+1)
		}
	}
	if l.AllowMessage(7) {
		t.Fatal("4th message within window should be rejected")
	}
}

func TestRejectedMessageNotRecorded(t *testing.T) {
	l, now := newTestLimiter(2, 3)

	l.AllowMessage(7)
	l.AllowMessage(7)
	for i := 0; i < 10; i++ {
		if l.AllowMessage(7) {
			t.Fatal("over-limit message accepted")
		}
	}

	// Only the two accepted timestamps count; once they age out the user
	// is allowed again regardless of how many rejections happened.
	*now = now.Add(61 * time.Second)
	if !l.AllowMessage(7) {
		t.Fatal("user should be allowed after window slides past accepted events")
	}
}

func TestWindowSlides(t *testing.T) {
	l, now := newTestLimiter(2, 3)

	l.AllowMessage(7)
	*now = now.Add(30 * time.Second)
	l.AllowMessage(7)
	if l.AllowMessage(7) {
		t.Fatal("both events still in window, should reject")
	}

	// First event leaves the window, second remains.
	*now = now.Add(31 * time.Second)
	if !l.AllowMessage(7) {
		t.Fatal("expected one free slot after first event expired")
	}
	if l.AllowMessage(7) {
		t.Fatal("window full again")
	}
}

func TestUsersIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, 3)

	if !l.AllowMessage(1) {
		t.Fatal("first user rejected")
	}
	if !l.AllowMessage(2) {
		t.Fatal("second user should have its own bucket")
	}
	if l.AllowMessage(1) {
		t.Fatal("first user should be over limit")
	}
}

func TestOrderQuotaCheckThenRecord(t *testing.T) {
	l, now := newTestLimiter(30, 3)

	// The check records nothing.
	for i := 0; i < 5; i++ {
		if !l.CanCreateOrder(7) {
			t.Fatal("repeated checks must not consume quota")
		}
	}

	l.RecordOrder(7)
	l.RecordOrder(7)
	l.RecordOrder(7)
	if l.CanCreateOrder(7) {
		t.Fatal("quota of 3 exhausted, check should fail")
	}

	*now = now.Add(time.Hour + time.Second)
	if !l.CanCreateOrder(7) {
		t.Fatal("quota should reset after the window passes")
	}
}

func TestDefaults(t *testing.T) {
	l := New(Options{})
	if l.opts.MessageLimit != DefaultMessageLimit || l.opts.OrderLimit != DefaultOrderLimit {
		t.Fatalf("unexpected defaults: %+v", l.opts)
	}
	if l.OrderLimit() != DefaultOrderLimit {
		t.Fatalf("OrderLimit() = %d", l.OrderLimit())
	}
}
