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

//go:build linux

package reactor

import (
	"encoding/binary"
	"time"

	"golang.org/x/sys/unix"
)

// wakeupFD is an eventfd used to interrupt a blocked epoll_wait from
// another goroutine posting a config or router update (spec.md §4.1's
// "internal wakeup fd").
type wakeupFD struct {
	fd int
}

func newWakeupFD() (*wakeupFD, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &wakeupFD{fd: fd}, nil
}

func (w *wakeupFD) signal() {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, _ = unix.Write(w.fd, buf[:])
}

func (w *wakeupFD) drain() {
	var buf [8]byte
	for {
		n, err := unix.Read(w.fd, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func (w *wakeupFD) close() error {
	return unix.Close(w.fd)
}

// maintenanceTimerFD is a timerfd firing on a coarse period to sweep
// connections past their header/body/keep-alive deadlines (spec.md §4.1's
// "maintenance timer").
type maintenanceTimerFD struct {
	fd int
}

func newMaintenanceTimerFD(period time.Duration) (*maintenanceTimerFD, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, err
	}
	t := &maintenanceTimerFD{fd: fd}
	if err := t.reset(period); err != nil {
		_ = t.close()
		return nil, err
	}
	return t, nil
}

func (t *maintenanceTimerFD) reset(period time.Duration) error {
	spec := unix.ItimerSpec{
		Interval: unix.NsecToTimespec(period.Nanoseconds()),
		Value:    unix.NsecToTimespec(period.Nanoseconds()),
	}
	return unix.TimerfdSettime(t.fd, 0, &spec, nil)
}

func (t *maintenanceTimerFD) drain() {
	var buf [8]byte
	_, _ = unix.Read(t.fd, buf[:])
}

func (t *maintenanceTimerFD) close() error {
	return unix.Close(t.fd)
}
