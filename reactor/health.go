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

// health.go implements the three builtin probe routes spec.md §6.4
// describes: livez always succeeds, readyz reflects the reactor's
// running/draining state, and startupz reflects whether the listener has
// been bound at least once.
package reactor

import (
	"github.com/sabouaram/reactorhttp/respwriter"
	"github.com/sabouaram/reactorhttp/router"
)

// readinessProbe is satisfied by *Reactor itself; kept as a narrow interface
// rather than a concrete *Reactor parameter so a test fake can stand in for
// one without a real epoll loop.
type readinessProbe interface {
	IsRunning() bool
	IsDraining() bool
}

// ProbePaths names the three builtin health routes; a blank path skips
// registering that probe.
type ProbePaths struct {
	Livez    string
	Readyz   string
	Startupz string
}

// DefaultProbePaths matches the literal names spec.md §6.4 uses.
func DefaultProbePaths() ProbePaths {
	return ProbePaths{Livez: "/livez", Readyz: "/readyz", Startupz: "/startupz"}
}

type statusResponse int

func (s statusResponse) StatusCode() int { return int(s) }

// RegisterHealthProbes installs the configured probe routes on rtr. probe
// reports running/draining state; started reports whether the listener has
// ever bound successfully (set once by the reactor's Run, read thereafter).
func RegisterHealthProbes(rtr *router.Router, paths ProbePaths, probe readinessProbe, started func() bool) error {
	if paths.Livez != "" {
		if err := rtr.Register(router.MethodGet, paths.Livez, livezHandler); err != nil {
			return err
		}
	}
	if paths.Readyz != "" {
		if err := rtr.Register(router.MethodGet, paths.Readyz, readyzHandler(probe)); err != nil {
			return err
		}
	}
	if paths.Startupz != "" {
		if err := rtr.Register(router.MethodGet, paths.Startupz, startupzHandler(started)); err != nil {
			return err
		}
	}
	return nil
}

func livezHandler(ctx *router.Context) router.Response {
	writePlainProbe(ctx, 200, "OK\n")
	return statusResponse(200)
}

func readyzHandler(probe readinessProbe) router.Handler {
	return func(ctx *router.Context) router.Response {
		if probe == nil || probe.IsDraining() || !probe.IsRunning() {
			writePlainProbe(ctx, 503, "Not Ready\n")
			return statusResponse(503)
		}
		writePlainProbe(ctx, 200, "OK\n")
		return statusResponse(200)
	}
}

func startupzHandler(started func() bool) router.Handler {
	return func(ctx *router.Context) router.Response {
		if started != nil && started() {
			writePlainProbe(ctx, 200, "OK\n")
			return statusResponse(200)
		}
		writePlainProbe(ctx, 503, "Not Ready\n")
		return statusResponse(503)
	}
}

func writePlainProbe(ctx *router.Context, status int, body string) {
	w, ok := ctx.Writer.(*respwriter.Writer)
	if !ok {
		return
	}
	_ = w.Status(status, reasonFor(status))
	_ = w.ContentType("text/plain; charset=utf-8")
	_ = w.ContentLength(int64(len(body)))
	w.WriteBody([]byte(body))
}
