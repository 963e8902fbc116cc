package lifecycle

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func blockingStartStop() (StartFunc, StopFunc, chan struct{}) {
	stopCh := make(chan struct{})
	started := make(chan struct{})
	start := func() error {
		close(started)
		<-stopCh
		return nil
	}
	stop := func() error {
		close(stopCh)
		return nil
	}
	return start, stop, started
}

func TestStartTransitionsToRunning(t *testing.T) {
	start, stop, started := blockingStartStop()
	l := New(start, stop)

	go l.Start()
	<-started

	if !l.IsRunning() {
		t.Fatalf("expected Running after Start")
	}
	if err := l.Stop(); err != nil {
		t.Fatalf("unexpected Stop error: %v", err)
	}
	if l.IsRunning() {
		t.Fatalf("expected Idle after Stop")
	}
}

func TestDoubleStartRejected(t *testing.T) {
	start, stop, started := blockingStartStop()
	l := New(start, stop)
	go l.Start()
	<-started
	defer l.Stop()

	if err := l.Start(); err == nil {
		t.Fatalf("expected error starting an already-running lifecycle")
	}
}

func TestBeginDrainRequiresRunning(t *testing.T) {
	l := New(nil, nil)
	if err := l.BeginDrain(); err == nil {
		t.Fatalf("expected error draining an idle lifecycle")
	}
}

func TestBeginDrainTransitionsState(t *testing.T) {
	start, stop, started := blockingStartStop()
	l := New(start, stop)
	go l.Start()
	<-started
	defer l.Stop()

	if err := l.BeginDrain(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.State() != Draining {
		t.Fatalf("expected Draining, got %v", l.State())
	}
	if !l.IsRunning() {
		t.Fatalf("Draining should still report IsRunning true")
	}
}

func TestStopWithoutStartReportsNotRunning(t *testing.T) {
	l := New(nil, nil)
	if err := l.Stop(); err == nil {
		t.Fatalf("expected error stopping an idle lifecycle")
	}
}

func TestInvalidStartFuncRecordsError(t *testing.T) {
	l := New(nil, func() error { return nil })
	if err := l.Start(); err == nil {
		t.Fatalf("expected error for nil start function")
	}
	if l.ErrorsLast() == nil {
		t.Fatalf("expected the nil-start error to be recorded")
	}
}

func TestUptimeZeroWhenIdle(t *testing.T) {
	l := New(nil, nil)
	if l.Uptime() != 0 {
		t.Fatalf("expected zero uptime when idle")
	}
}

func TestUptimeAdvancesWhileRunning(t *testing.T) {
	start, stop, started := blockingStartStop()
	l := New(start, stop)
	go l.Start()
	<-started
	defer l.Stop()

	time.Sleep(5 * time.Millisecond)
	if l.Uptime() <= 0 {
		t.Fatalf("expected positive uptime while running")
	}
}

func TestErrorsListAccumulates(t *testing.T) {
	var calls int32
	start := func() error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return errors.New("boom")
		}
		return nil
	}
	l := New(start, func() error { return nil })
	_ = l.Start()

	if len(l.ErrorsList()) != 1 {
		t.Fatalf("expected one recorded error, got %d", len(l.ErrorsList()))
	}
}
