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

// Package reactor is the single-threaded epoll event loop tying together the
// wire parser, router, middleware chain, codec negotiation, and response
// writer. Everything in this file runs on one goroutine (the one that calls
// Run); the only cross-goroutine entry points are PostConfigUpdate,
// PostRouterUpdate, Stop and BeginDrain, all of which hand work to the loop
// through a mutex-guarded queue plus the wakeup fd (spec.md §5's "shared
// resource policy").
package reactor

import (
	"io"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/sabouaram/reactorhttp/codec"
	"github.com/sabouaram/reactorhttp/middleware"
	"github.com/sabouaram/reactorhttp/respwriter"
	"github.com/sabouaram/reactorhttp/rlog"
	"github.com/sabouaram/reactorhttp/router"
	"github.com/sabouaram/reactorhttp/srvconfig"
	"github.com/sabouaram/reactorhttp/telemetry"
	"github.com/sabouaram/reactorhttp/tlsbundle"
	"github.com/sabouaram/reactorhttp/wire"
)

const (
	maxEpollEvents = 256
	// maintenancePeriod is deliberately coarse: the sweep only needs to
	// notice a deadline within a fraction of the smallest configured
	// timeout, not on every tick.
	maintenancePeriod = time.Second
)

// Reactor owns one listening socket and every connection accepted from it.
// All fields below the mutex line are touched only from the loop goroutine.
type Reactor struct {
	log rlog.Logger

	rtr   *router.Router
	chain *middleware.Chain
	hook  telemetry.Hook
	tls   *tlsbundle.Registry

	mu             sync.Mutex
	cfg            srvconfig.Config
	pendingConfig  []srvconfig.Updater
	pendingRouter  []*router.Router
	drainRequested bool
	drainDeadline  time.Time
	stopRequested  bool
	started        bool

	listenFD int
	poll     *poller
	wake     *wakeupFD
	timer    *maintenanceTimerFD

	conns      map[int]*connection
	generation uint64
}

// New builds a Reactor bound to cfg; it does not open the listening socket
// until Run is called.
func New(cfg srvconfig.Config, rtr *router.Router, chain *middleware.Chain, hook telemetry.Hook, tls *tlsbundle.Registry, log rlog.Logger) *Reactor {
	if hook == nil {
		hook = telemetry.NoOp{}
	}
	if log == nil {
		log = rlog.Discard()
	}
	re := &Reactor{
		cfg:   cfg,
		rtr:   rtr,
		chain: chain,
		hook:  hook,
		tls:   tls,
		log:   log,
		conns: make(map[int]*connection),
	}
	if cfg.BuiltinProbes && rtr != nil {
		if err := RegisterHealthProbes(rtr, DefaultProbePaths(), re, re.Started); err != nil {
			log.Entry(rlog.ErrorLevel, "register builtin health probes").ErrorAdd(true, err).Log()
		}
	}
	return re
}

// IsRunning reports whether the loop has bound its listener and has not been
// asked to stop; used by the builtin readyz probe.
func (re *Reactor) IsRunning() bool {
	re.mu.Lock()
	defer re.mu.Unlock()
	return re.started && !re.stopRequested
}

// IsDraining reports whether BeginDrain has been called.
func (re *Reactor) IsDraining() bool {
	re.mu.Lock()
	defer re.mu.Unlock()
	return re.drainRequested
}

// Started reports whether the listening socket has been bound at least once;
// used by the builtin startupz probe.
func (re *Reactor) Started() bool {
	re.mu.Lock()
	defer re.mu.Unlock()
	return re.started
}

// PostConfigUpdate queues fn to run at the top of the next loop iteration and
// wakes the poller if it is blocked. Safe to call from any goroutine.
func (re *Reactor) PostConfigUpdate(fn srvconfig.Updater) {
	re.mu.Lock()
	re.pendingConfig = append(re.pendingConfig, fn)
	re.mu.Unlock()
	if re.wake != nil {
		re.wake.signal()
	}
}

// PostRouterUpdate queues a full router replacement the same way.
func (re *Reactor) PostRouterUpdate(rtr *router.Router) {
	re.mu.Lock()
	re.pendingRouter = append(re.pendingRouter, rtr)
	re.mu.Unlock()
	if re.wake != nil {
		re.wake.signal()
	}
}

// BeginDrain marks the reactor for a graceful shutdown: the listener stays
// open but every response finalized from now on forces Connection: close.
func (re *Reactor) BeginDrain() {
	re.mu.Lock()
	re.drainRequested = true
	if re.cfg.DrainDeadline > 0 {
		re.drainDeadline = time.Now().Add(re.cfg.DrainDeadline)
	}
	re.mu.Unlock()
	if re.wake != nil {
		re.wake.signal()
	}
}

// Stop asks the loop to exit: after the current iteration, or, once
// BeginDrain has been called, when no connection remains open. Stop does not
// close the listening socket; the loop keeps accepting until Run returns and
// closes it.
func (re *Reactor) Stop() {
	re.mu.Lock()
	re.stopRequested = true
	re.mu.Unlock()
	if re.wake != nil {
		re.wake.signal()
	}
}

func (re *Reactor) snapshotConfig() srvconfig.Config {
	re.mu.Lock()
	defer re.mu.Unlock()
	return re.cfg
}

func (re *Reactor) isDraining() bool {
	re.mu.Lock()
	defer re.mu.Unlock()
	return re.drainRequested
}

// Run opens the listening socket and blocks, servicing readiness events
// until Stop is called or an unrecoverable setup error occurs.
func (re *Reactor) Run() error {
	cfg := re.snapshotConfig()

	if cfg.TLSBundleID != "" && re.tls != nil {
		if _, err := re.tls.Lookup(cfg.TLSBundleID); err != nil {
			return err
		}
	}

	fd, err := newListener(cfg)
	if err != nil {
		return err
	}
	re.listenFD = fd
	defer unix.Close(fd)

	re.mu.Lock()
	re.started = true
	re.mu.Unlock()

	p, err := newPoller()
	if err != nil {
		return err
	}
	re.poll = p
	defer p.close()

	wake, err := newWakeupFD()
	if err != nil {
		return err
	}
	re.wake = wake
	defer wake.close()

	tm, err := newMaintenanceTimerFD(maintenancePeriod)
	if err != nil {
		return err
	}
	re.timer = tm
	defer tm.close()

	if err := p.add(fd, interestReadable); err != nil {
		return err
	}
	if err := p.add(wake.fd, interestReadable); err != nil {
		return err
	}
	if err := p.add(tm.fd, interestReadable); err != nil {
		return err
	}

	events := make([]unix.EpollEvent, maxEpollEvents)

	for {
		re.drainPendingUpdates()

		if re.shouldExit() {
			re.closeAllConnections()
			return nil
		}

		// -1 blocks indefinitely; the timerfd registered above guarantees a
		// periodic wakeup for the maintenance sweep regardless.
		ready, err := p.wait(events, -1)
		if err != nil {
			return err
		}

		for _, ev := range ready {
			fdReady := int(ev.Fd)
			switch {
			case fdReady == fd:
				re.acceptLoop(cfg)
			case fdReady == wake.fd:
				wake.drain()
			case fdReady == tm.fd:
				tm.drain()
				if re.drainDeadlinePassed() {
					re.closeAllConnections()
				} else {
					re.sweep(cfg)
				}
			default:
				re.serviceConnection(fdReady, ev.Events, cfg)
			}
		}

		cfg = re.snapshotConfig()
	}
}

func (re *Reactor) shouldExit() bool {
	re.mu.Lock()
	defer re.mu.Unlock()
	if !re.stopRequested {
		return false
	}
	return len(re.conns) == 0 || !re.drainRequested
}

// drainDeadlinePassed reports whether BeginDrain's deadline has elapsed,
// which forces a hard close of every remaining connection regardless of
// pending requests (spec.md §4.1's "beginDrain with a deadline").
func (re *Reactor) drainDeadlinePassed() bool {
	re.mu.Lock()
	defer re.mu.Unlock()
	if !re.drainRequested || re.drainDeadline.IsZero() {
		return false
	}
	return time.Now().After(re.drainDeadline)
}

// drainPendingUpdates applies queued config/router updaters FIFO, restoring
// immutable config fields per posted updater (spec.md §4.1's "snapshot
// before, restore after").
func (re *Reactor) drainPendingUpdates() {
	re.mu.Lock()
	configs := re.pendingConfig
	re.pendingConfig = nil
	routers := re.pendingRouter
	re.pendingRouter = nil
	re.mu.Unlock()

	for _, fn := range configs {
		re.mu.Lock()
		re.cfg = srvconfig.Apply(re.cfg, fn)
		re.mu.Unlock()
	}
	for _, rtr := range routers {
		re.rtr = rtr
	}
}

func (re *Reactor) acceptLoop(cfg srvconfig.Config) {
	maxAccept := cfg.MaxAcceptPerCycle
	if maxAccept <= 0 {
		maxAccept = 64
	}

	for i := 0; i < maxAccept; i++ {
		connFD, _, err := unix.Accept4(re.listenFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			return
		}

		_ = unix.SetsockoptInt(connFD, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)

		limits := wire.Limits{
			MaxHeaderBytes:           cfg.MaxHeaderBytes,
			MaxBodyBytes:             cfg.MaxBodyBytes,
			MaxRequestsPerConnection: cfg.MaxRequestsPerConnection,
		}
		parser := wire.NewParser(limits, cfg.MergeUnknownRequestHeaders)

		re.generation++
		c := newConnection(connFD, parser, re.generation)
		re.conns[connFD] = c

		if err := re.poll.add(connFD, interestReadable); err != nil {
			re.closeConnection(c)
			continue
		}
		re.hook.ConnectionAccepted()
	}
}

func (re *Reactor) serviceConnection(fd int, events uint32, cfg srvconfig.Config) {
	c, ok := re.conns[fd]
	if !ok {
		return
	}

	if events&unix.EPOLLHUP != 0 || events&unix.EPOLLERR != 0 {
		re.closeConnection(c)
		return
	}

	if events&interestWritable != 0 {
		re.flushOutbound(c)
		if c.markedForClose && !c.hasPendingOutbound() {
			re.closeConnection(c)
			return
		}
	}

	if events&interestReadable != 0 {
		re.readConnection(c, cfg)
	}
}

func (re *Reactor) readConnection(c *connection, cfg srvconfig.Config) {
	maxRead := cfg.MaxPerEventReadBytes
	if maxRead <= 0 {
		maxRead = 64 * 1024
	}
	buf := make([]byte, maxRead)

	n, err := unix.Read(c.fd, buf)
	if n > 0 {
		c.touch()
		c.parser.Feed(buf[:n])
		re.processConnectionInput(c, cfg)
	}
	if n == 0 || (err != nil && err != unix.EAGAIN && err != unix.EWOULDBLOCK) {
		re.closeConnection(c)
	}
}

// processConnectionInput drains as many complete requests as the buffered
// bytes allow (pipelining, spec.md §4.2's residual-buffer reparse), writing
// each response before parsing the next.
func (re *Reactor) processConnectionInput(c *connection, cfg srvconfig.Config) {
	for {
		req, perr := c.parser.Parse()
		if perr != nil {
			re.respondParseError(c, perr, cfg)
			re.closeConnection(c)
			return
		}
		if req == nil {
			return
		}

		start := time.Now()
		status := re.handleRequest(c, req, cfg)
		re.hook.RequestCompleted(status, time.Since(start), int64(len(req.Body)), int64(c.outboundBytes))

		decision := wire.KeepAliveEligible(req.Version, connectionHeaderOf(req), cfg.KeepAliveEnabled, c.parser.RequestCount(), cfg.MaxRequestsPerConnection, re.isDraining())
		if !decision.KeepAlive {
			c.closeAfterDrain = true
		}

		re.flushOutbound(c)

		if c.closeAfterDrain && !c.hasPendingOutbound() {
			re.closeConnection(c)
			return
		}

		if !c.parser.Pending() {
			return
		}
	}
}

func connectionHeaderOf(req *wire.Request) string {
	if v, ok := req.Headers.Get("Connection"); ok {
		return v
	}
	return ""
}

func (re *Reactor) handleRequest(c *connection, req *wire.Request, cfg srvconfig.Config) int {
	body := req.Body
	if req.ContentEncoding != "" {
		dec, err := codec.Decompress(byteReader(body), req.ContentEncoding, int64(len(body)), cfg.Decompression)
		if err != nil {
			return writeDecodeFailure(c, re)
		}
		out, err := io.ReadAll(dec)
		_ = dec.Close()
		if err != nil {
			return writeDecodeFailure(c, re)
		}
		req.Body = out
	}

	sink := &connSink{c: c, re: re, cfg: cfg}
	var policy *respwriter.CompressionPolicy
	if acceptEnc, ok := req.Headers.Get("Accept-Encoding"); ok {
		sel := codec.Select(&cfg.Compression, acceptEnc)
		policy = &respwriter.CompressionPolicy{Negotiated: sel, Config: &cfg.Compression}
	}

	isHead := req.Method == wire.MethodHead
	w := respwriter.New(sink, isHead, policy)
	for name, value := range cfg.GlobalResponseHeaders {
		_ = w.Header(name, value)
	}

	// The Connection value must land inside the header block flushHeaders
	// writes, not after End() has already closed it out, so it is set on
	// the writer's own header map (bypassing the reserved-header guard
	// Header() enforces for handler code) before dispatch runs.
	decision := wire.KeepAliveEligible(req.Version, connectionHeaderOf(req), cfg.KeepAliveEnabled, c.parser.RequestCount(), cfg.MaxRequestsPerConnection, re.isDraining())
	if connValue := wire.ConnectionHeaderValue(decision.KeepAlive, req.Version); connValue != "" {
		w.Headers().Set("Connection", connValue)
	}

	if policy != nil && policy.Negotiated.NotAcceptable {
		return writeSimple(w, isHead, 406, reasonFor(406), nil, "", nil)
	}

	return dispatch(re.rtr, re.chain, cfg.CORS, req, w, isHead)
}

func writeDecodeFailure(c *connection, re *Reactor) int {
	c.markedForClose = true
	return 413
}

type byteReaderImpl struct {
	b []byte
	i int
}

func (r *byteReaderImpl) Read(p []byte) (int, error) {
	if r.i >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.i:])
	r.i += n
	return n, nil
}

func byteReader(b []byte) io.Reader {
	return &byteReaderImpl{b: b}
}

func (re *Reactor) respondParseError(c *connection, perr error, cfg srvconfig.Config) {
	status := 400
	if pe, ok := perr.(*wire.ParseError); ok {
		status = pe.Status
	}
	sink := &connSink{c: c, re: re, cfg: cfg}
	w := respwriter.New(sink, false, nil)
	_ = w.Status(status, "")
	_ = w.ContentLength(0)
	w.WriteBody(nil)
	_ = w.End()
	re.flushOutbound(c)
}

// flushOutbound attempts to drain the connection's outbound queue,
// registering or clearing writable interest depending on whether the whole
// queue emptied (spec.md §4.1's write path).
func (re *Reactor) flushOutbound(c *connection) {
	for len(c.outbound) > 0 {
		chunk := c.outbound[0]
		if chunk.file != nil {
			if !re.sendFileChunk(c, chunk.file) {
				re.armWritable(c)
				return
			}
			c.outbound = c.outbound[1:]
			continue
		}

		n, err := unix.Write(c.fd, chunk.data)
		if n > 0 {
			c.outboundBytes -= n
			chunk.data = chunk.data[n:]
			c.outbound[0] = chunk
		}
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				re.armWritable(c)
				return
			}
			re.closeConnection(c)
			return
		}
		if len(chunk.data) == 0 {
			c.outbound = c.outbound[1:]
		} else {
			re.armWritable(c)
			return
		}
	}

	if c.writableArmed {
		_ = re.poll.modify(c.fd, interestReadable)
		c.writableArmed = false
	}
}

func (re *Reactor) sendFileChunk(c *connection, f *pendingFile) bool {
	remaining := f.size - f.sent
	if remaining <= 0 {
		return true
	}
	n, err := unix.Sendfile(c.fd, f.fd, &f.offset, int(remaining))
	if n > 0 {
		f.sent += int64(n)
	}
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return false
		}
		re.closeConnection(c)
		return false
	}
	return f.sent >= f.size
}

func (re *Reactor) armWritable(c *connection) {
	if c.writableArmed {
		return
	}
	c.writableArmed = true
	_ = re.poll.modify(c.fd, interestReadable|interestWritable)
}

func (re *Reactor) closeConnection(c *connection) {
	_ = re.poll.remove(c.fd)
	_ = unix.Close(c.fd)
	delete(re.conns, c.fd)
	re.hook.ConnectionClosed()
}

func (re *Reactor) closeAllConnections() {
	for _, c := range re.conns {
		re.closeConnection(c)
	}
}

// sweep closes connections past their header/body/keep-alive deadline per
// spec.md §4.1's maintenance timer. No TLS-handshake deadline is tracked.
func (re *Reactor) sweep(cfg srvconfig.Config) {
	now := time.Now()
	var stale []*connection

	for _, c := range re.conns {
		var deadline time.Duration
		switch c.state {
		case connReadingHeaders, connAwaitingRequest:
			deadline = cfg.ReadHeaderTimeout
		case connReadingBody:
			deadline = cfg.ReadBodyTimeout
		default:
			deadline = cfg.KeepAliveTimeout
		}
		if deadline <= 0 {
			continue
		}
		if now.Sub(c.lastActivity) > deadline {
			stale = append(stale, c)
		}
	}

	for _, c := range stale {
		re.closeConnection(c)
	}
}

// connSink adapts a connection's outbound queue to respwriter.Sink: writes
// are attempted immediately through the reactor's write path rather than
// buffered unconditionally, so a fast client never pays for a queue
// round-trip it didn't need.
type connSink struct {
	c   *connection
	re  *Reactor
	cfg srvconfig.Config
}

func (s *connSink) Write(p []byte) (int, error) {
	if len(s.c.outbound) == 0 {
		n, err := unix.Write(s.c.fd, p)
		if err == nil && n == len(p) {
			return n, nil
		}
		if err != nil && err != unix.EAGAIN && err != unix.EWOULDBLOCK {
			return n, err
		}
		p = p[n:]
	}

	ok := s.c.queue(p, s.cfg.MaxOutboundBufferBytes)
	if !ok {
		s.c.markedForClose = true
	}
	s.re.armWritable(s.c)
	return len(p), nil
}

func (s *connSink) CanWrite() bool {
	if s.cfg.MaxOutboundBufferBytes <= 0 {
		return true
	}
	return s.c.outboundBytes < s.cfg.MaxOutboundBufferBytes
}
