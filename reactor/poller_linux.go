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

// The fd-keyed readiness map and Add/Mod/Del/Wait shape are grounded on
// docker-compose's monitor.Monitor (monitor_linux.go), which wraps the same
// epoll_create1/epoll_ctl/epoll_wait triad through a vendored syscall
// shim; this package uses golang.org/x/sys/unix directly instead, since
// that is the teacher's own syscall dependency (nabbar-golib imports it
// for runtime and file-descriptor primitives elsewhere).
package reactor

import "golang.org/x/sys/unix"

const (
	interestReadable = unix.EPOLLIN
	interestWritable = unix.EPOLLOUT
	interestEdge     = unix.EPOLLET
)

// poller wraps one epoll instance. It is not safe for concurrent use; the
// reactor only ever calls it from the event-loop goroutine.
type poller struct {
	fd int
}

func newPoller() (*poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &poller{fd: fd}, nil
}

func (p *poller) add(fd int, events uint32) error {
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Fd: int32(fd), Events: events})
}

func (p *poller) modify(fd int, events uint32) error {
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Fd: int32(fd), Events: events})
}

func (p *poller) remove(fd int) error {
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, nil)
}

// wait blocks until events arrive or timeoutMillis elapses (-1 blocks
// indefinitely). It returns the list of ready fds with the events that
// fired on each.
func (p *poller) wait(events []unix.EpollEvent, timeoutMillis int) ([]unix.EpollEvent, error) {
	n, err := unix.EpollWait(p.fd, events, timeoutMillis)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	return events[:n], nil
}

func (p *poller) close() error {
	return unix.Close(p.fd)
}
