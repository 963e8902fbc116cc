/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package lifecycle tracks the reactor's run state (Idle, Running, Draining,
// Stopping) the way the teacher's runner/startStop package tracks a managed
// goroutine's start/stop state, extended with the Draining phase spec.md §5
// requires between "stop accepting new connections" and "last connection
// closed."
package lifecycle

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sabouaram/reactorhttp/rerrors"
)

const (
	ErrAlreadyRunning rerrors.CodeError = iota + rerrors.MinPkgLifecycle
	ErrNotRunning
	ErrInvalidStartFunc
	ErrInvalidStopFunc
)

func init() {
	rerrors.RegisterIdFctMessage(ErrAlreadyRunning, func(rerrors.CodeError) string { return "lifecycle is already running" })
	rerrors.RegisterIdFctMessage(ErrNotRunning, func(rerrors.CodeError) string { return "lifecycle is not running" })
	rerrors.RegisterIdFctMessage(ErrInvalidStartFunc, func(rerrors.CodeError) string { return "invalid start function" })
	rerrors.RegisterIdFctMessage(ErrInvalidStopFunc, func(rerrors.CodeError) string { return "invalid stop function" })
}

// State enumerates the reactor's coarse run phases.
type State uint8

const (
	Idle State = iota
	Running
	Draining
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// StartFunc runs the reactor's accept/event loop; it blocks until the loop
// exits (err == nil on a clean Stop) or fails to start.
type StartFunc func() error

// StopFunc tears the loop down. It takes no arguments, so any drain deadline
// is one the function carries itself.
type StopFunc func() error

// Lifecycle wraps a start/stop function pair with state tracking, an error
// history, and an uptime clock, mirroring the teacher's startStop.Runner
// surface (New/Start/Stop/IsRunning/Uptime/ErrorsLast/ErrorsList) plus the
// Draining phase the reactor's graceful shutdown needs.
type Lifecycle struct {
	mu        sync.RWMutex
	state     State
	start     StartFunc
	stop      StopFunc
	startedAt atomic.Value // time.Time
	errs      []error
	runDone   chan struct{}
}

// New builds a Lifecycle around the given start/stop pair. Either may be
// nil; calling Start or Stop in that case records ErrInvalidStartFunc /
// ErrInvalidStopFunc instead of panicking, matching the teacher's
// defensive-nil-function handling.
func New(start StartFunc, stop StopFunc) *Lifecycle {
	return &Lifecycle{start: start, stop: stop, state: Idle}
}

// Start transitions Idle -> Running and invokes the start function
// synchronously; it returns once the start function returns (i.e. once the
// event loop has exited), recording any error into the error history.
func (l *Lifecycle) Start() error {
	l.mu.Lock()
	if l.state != Idle {
		l.mu.Unlock()
		return rerrors.New(ErrAlreadyRunning, "")
	}
	if l.start == nil {
		l.mu.Unlock()
		err := rerrors.New(ErrInvalidStartFunc, "")
		l.recordErr(err)
		return err
	}
	l.state = Running
	l.startedAt.Store(time.Now())
	l.runDone = make(chan struct{})
	l.mu.Unlock()

	err := l.start()

	l.mu.Lock()
	l.state = Idle
	l.startedAt.Store(time.Time{})
	close(l.runDone)
	l.mu.Unlock()

	if err != nil {
		l.recordErr(err)
	}
	return err
}

// BeginDrain moves Running -> Draining (spec.md §5's graceful shutdown first
// phase). It only records the state; it does not touch any listener or
// connection.
func (l *Lifecycle) BeginDrain() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Running {
		return rerrors.New(ErrNotRunning, "")
	}
	l.state = Draining
	return nil
}

// Stop moves the lifecycle to Stopping and invokes the stop function, which
// is responsible for honoring any deadline the caller embedded when
// constructing it.
func (l *Lifecycle) Stop() error {
	l.mu.Lock()
	if l.state == Idle {
		l.mu.Unlock()
		return rerrors.New(ErrNotRunning, "")
	}
	if l.stop == nil {
		l.mu.Unlock()
		err := rerrors.New(ErrInvalidStopFunc, "")
		l.recordErr(err)
		return err
	}
	l.state = Stopping
	done := l.runDone
	l.mu.Unlock()

	err := l.stop()
	if err != nil {
		l.recordErr(err)
	}
	if done != nil {
		<-done
	}
	return err
}

// State returns the current run phase.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsRunning reports whether the state is Running or Draining. Stop moves the
// state to Stopping before the start function returns, so from then on this
// reports false.
func (l *Lifecycle) IsRunning() bool {
	s := l.State()
	return s == Running || s == Draining
}

// IsDraining reports whether BeginDrain has been called and Stop has not
// been called since.
func (l *Lifecycle) IsDraining() bool {
	return l.State() == Draining
}

// Uptime returns the duration since Start began, or zero when idle.
func (l *Lifecycle) Uptime() time.Duration {
	v := l.startedAt.Load()
	if v == nil {
		return 0
	}
	t, ok := v.(time.Time)
	if !ok || t.IsZero() {
		return 0
	}
	return time.Since(t)
}

func (l *Lifecycle) recordErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, err)
}

// ErrorsLast returns the most recently recorded error, or nil.
func (l *Lifecycle) ErrorsLast() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.errs) == 0 {
		return nil
	}
	return l.errs[len(l.errs)-1]
}

// ErrorsList returns a copy of every error recorded across this
// Lifecycle's history.
func (l *Lifecycle) ErrorsList() []error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]error, len(l.errs))
	copy(out, l.errs)
	return out
}
