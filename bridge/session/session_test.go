package session

import (
	"sync"
	"testing"
)

func TestFreshSessionDefaults(t *testing.T) {
	s := NewStore()
	sess := s.Get(1)
	if sess.State != StateIdle {
		t.Fatalf("state = %s", sess.State)
	}
	if sess.Slippage != DefaultSlippage {
		t.Fatalf("slippage = %v", sess.Slippage)
	}
}

func TestStartFlowDiscardsPreviousData(t *testing.T) {
	s := NewStore()
	s.StartFlow(1)
	s.Update(1, func(sess *Session) {
		sess.State = StateEnteringAddress
		sess.Direction = DirectionFromXMR
		sess.FromCurrency = "XMR"
		sess.ToCurrency = "TON"
		sess.Amount = 1.5
	})

	s.StartFlow(1)
	sess := s.Get(1)
	if sess.State != StateChoosingDirection {
		t.Fatalf("state = %s", sess.State)
	}
	if sess.Direction != "" || sess.FromCurrency != "" || sess.ToCurrency != "" || sess.Amount != 0 {
		t.Fatalf("flow data not cleared: %+v", sess)
	}
}

func TestResetFlowIsIdempotent(t *testing.T) {
	s := NewStore()
	s.StartFlow(1)
	s.Update(1, func(sess *Session) {
		sess.State = StateConfirming
		sess.Amount = 2.0
	})

	s.ResetFlow(1)
	first := s.Get(1)
	s.ResetFlow(1)
	second := s.Get(1)

	if first != second {
		t.Fatalf("reset not idempotent: %+v vs %+v", first, second)
	}
	if first.State != StateIdle || first.Amount != 0 {
		t.Fatalf("flow not cleared: %+v", first)
	}
}

func TestSlippageSurvivesFlowReset(t *testing.T) {
	s := NewStore()
	s.SetSlippage(1, 1.0)
	s.StartFlow(1)
	s.ResetFlow(1)
	if got := s.Slippage(1); got != 1.0 {
		t.Fatalf("slippage = %v, want 1.0", got)
	}

	s.StartFlow(1)
	if got := s.Get(1).Slippage; got != 1.0 {
		t.Fatalf("slippage after restart = %v, want 1.0", got)
	}
}

func TestUsersAreIndependent(t *testing.T) {
	s := NewStore()
	s.StartFlow(1)
	s.SetSlippage(2, 3.0)

	if s.State(2) != StateIdle {
		t.Fatalf("user 2 state = %s", s.State(2))
	}
	if s.Slippage(1) != DefaultSlippage {
		t.Fatalf("user 1 slippage = %v", s.Slippage(1))
	}
	if !s.InProgress(1) || s.InProgress(2) {
		t.Fatal("InProgress mixed up users")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewStore()
	s.StartFlow(1)
	sess := s.Get(1)
	sess.Amount = 99

	if got := s.Get(1).Amount; got != 0 {
		t.Fatalf("stored session mutated through copy: amount = %v", got)
	}
}

func TestSerializeExcludesSameUser(t *testing.T) {
	s := NewStore()

	release := s.Serialize(1)
	entered := make(chan struct{})
	go func() {
		r := s.Serialize(1)
		close(entered)
		r()
	}()

	select {
	case <-entered:
		t.Fatal("second holder entered while lock was held")
	default:
	}

	// A different user must not block.
	done := make(chan struct{})
	go func() {
		r := s.Serialize(2)
		r()
		close(done)
	}()
	<-done

	release()
	<-entered
}

func TestConcurrentUpdates(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s.Update(id%5, func(sess *Session) { sess.Amount++ })
			_ = s.Get(id % 5)
		}(int64(i))
	}
	wg.Wait()

	var total float64
	for id := int64(0); id < 5; id++ {
		total += s.Get(id).Amount
	}
	if total != 50 {
		t.Fatalf("lost updates: total = %v", total)
	}
}
